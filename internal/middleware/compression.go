package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
)

// CompressionConfig holds configuration for response compression
type CompressionConfig struct {
	MinSize          int      // Minimum first write to compress (bytes)
	CompressionLevel int      // Gzip compression level (1-9)
	ContentTypes     []string // Content types to compress
}

// DefaultCompressionConfig returns the default compression configuration
func DefaultCompressionConfig() CompressionConfig {
	return CompressionConfig{
		MinSize:          1024,
		CompressionLevel: gzip.DefaultCompression,
		ContentTypes: []string{
			"application/json",
			"text/plain",
			"text/html",
			"text/css",
			"application/javascript",
		},
	}
}

// CompressionMiddleware gzips large responses for clients that accept it.
type CompressionMiddleware struct {
	config CompressionConfig
	stats  *CompressionStats
	pool   sync.Pool
}

// NewCompressionMiddleware creates a new compression middleware. An invalid
// level falls back to the gzip default.
func NewCompressionMiddleware(config CompressionConfig) *CompressionMiddleware {
	level := config.CompressionLevel
	if level < gzip.HuffmanOnly || level > gzip.BestCompression {
		level = gzip.DefaultCompression
	}
	config.CompressionLevel = level

	return &CompressionMiddleware{
		config: config,
		stats:  NewCompressionStats(),
		pool: sync.Pool{
			New: func() interface{} {
				gz, _ := gzip.NewWriterLevel(io.Discard, level)
				return gz
			},
		},
	}
}

// Handler returns the gin middleware.
func (cm *CompressionMiddleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !clientAcceptsGzip(c.Request) || c.Request.Method == http.MethodHead {
			c.Next()
			return
		}

		cw := &compressWriter{ResponseWriter: c.Writer, cm: cm}
		c.Writer = cw
		defer cw.finish()

		c.Next()
	}
}

func clientAcceptsGzip(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept-Encoding"), "gzip")
}

func (cm *CompressionMiddleware) shouldCompress(contentType string) bool {
	for _, ct := range cm.config.ContentTypes {
		if strings.Contains(contentType, ct) {
			return true
		}
	}
	return false
}

// GetStats returns compression statistics
func (cm *CompressionMiddleware) GetStats() map[string]interface{} {
	return cm.stats.GetStats()
}

type byteCounter struct {
	w io.Writer
	n int64
}

func (b *byteCounter) Write(p []byte) (int, error) {
	n, err := b.w.Write(p)
	b.n += int64(n)
	return n, err
}

// compressWriter decides on the first write whether the response is worth
// compressing. Headers are still mutable at that point because gin flushes
// them lazily.
type compressWriter struct {
	gin.ResponseWriter
	cm       *CompressionMiddleware
	gz       *gzip.Writer
	counter  *byteCounter
	decided  bool
	original int64
}

func (w *compressWriter) decide(first []byte) {
	w.decided = true

	h := w.Header()
	if h.Get("Content-Encoding") != "" || len(first) < w.cm.config.MinSize || !w.cm.shouldCompress(h.Get("Content-Type")) {
		return
	}
	switch w.Status() {
	case http.StatusNoContent, http.StatusNotModified:
		return
	}

	h.Set("Content-Encoding", "gzip")
	h.Add("Vary", "Accept-Encoding")
	h.Del("Content-Length")

	w.counter = &byteCounter{w: w.ResponseWriter}
	w.gz = w.cm.pool.Get().(*gzip.Writer)
	w.gz.Reset(w.counter)
}

func (w *compressWriter) Write(data []byte) (int, error) {
	if !w.decided {
		w.decide(data)
	}
	w.original += int64(len(data))
	if w.gz == nil {
		return w.ResponseWriter.Write(data)
	}
	return w.gz.Write(data)
}

func (w *compressWriter) WriteString(s string) (int, error) {
	return w.Write([]byte(s))
}

func (w *compressWriter) Flush() {
	if w.gz != nil {
		_ = w.gz.Flush()
	}
	w.ResponseWriter.Flush()
}

func (w *compressWriter) finish() {
	if w.gz == nil {
		if w.decided {
			w.cm.stats.RecordRequest(w.original, w.original, false)
		}
		return
	}
	_ = w.gz.Close()
	w.cm.stats.RecordRequest(w.original, w.counter.n, true)
	w.gz.Reset(io.Discard)
	w.cm.pool.Put(w.gz)
	w.gz = nil
}

// CompressionStats tracks compression statistics
type CompressionStats struct {
	TotalRequests      int64
	CompressedRequests int64
	TotalBytes         int64
	CompressedBytes    int64
	mutex              sync.RWMutex
}

// NewCompressionStats creates new compression statistics
func NewCompressionStats() *CompressionStats {
	return &CompressionStats{}
}

// RecordRequest records a request's compression stats
func (cs *CompressionStats) RecordRequest(originalSize, compressedSize int64, compressed bool) {
	cs.mutex.Lock()
	defer cs.mutex.Unlock()

	cs.TotalRequests++
	cs.TotalBytes += originalSize

	if compressed {
		cs.CompressedRequests++
		cs.CompressedBytes += compressedSize
	} else {
		cs.CompressedBytes += originalSize
	}
}

// GetStats returns current compression statistics
func (cs *CompressionStats) GetStats() map[string]interface{} {
	cs.mutex.RLock()
	defer cs.mutex.RUnlock()

	compressionRatio := float64(1)
	if cs.TotalBytes > 0 {
		compressionRatio = float64(cs.CompressedBytes) / float64(cs.TotalBytes)
	}

	return map[string]interface{}{
		"total_requests":      cs.TotalRequests,
		"compressed_requests": cs.CompressedRequests,
		"total_bytes":         cs.TotalBytes,
		"compressed_bytes":    cs.CompressedBytes,
		"compression_ratio":   compressionRatio,
	}
}
