package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCompressedRouter(cm *CompressionMiddleware) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(cm.Handler())
	r.GET("/large", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"entries": strings.Repeat("maize ", 500)})
	})
	r.GET("/small", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/binary", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/octet-stream", make([]byte, 4096))
	})
	return r
}

func get(r http.Handler, path string, acceptGzip bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if acceptGzip {
		req.Header.Set("Accept-Encoding", "gzip, deflate")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCompression_LargeJSON(t *testing.T) {
	cm := NewCompressionMiddleware(DefaultCompressionConfig())
	r := newCompressedRouter(cm)

	w := get(r, "/large", true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))
	assert.Contains(t, w.Header().Values("Vary"), "Accept-Encoding")

	gz, err := gzip.NewReader(w.Body)
	require.NoError(t, err)
	body, err := io.ReadAll(gz)
	require.NoError(t, err)
	assert.Contains(t, string(body), "maize maize")

	stats := cm.GetStats()
	assert.Equal(t, int64(1), stats["compressed_requests"])
	assert.Less(t, stats["compression_ratio"].(float64), 0.5)
}

func TestCompression_Skipped(t *testing.T) {
	r := newCompressedRouter(NewCompressionMiddleware(DefaultCompressionConfig()))

	tests := []struct {
		name   string
		path   string
		accept bool
	}{
		{name: "client without gzip", path: "/large", accept: false},
		{name: "small body", path: "/small", accept: true},
		{name: "content type not listed", path: "/binary", accept: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(r, tt.path, tt.accept)
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Empty(t, w.Header().Get("Content-Encoding"))
			assert.NotEmpty(t, w.Body.Bytes())
		})
	}
}

func TestCompression_PoolReuse(t *testing.T) {
	cm := NewCompressionMiddleware(CompressionConfig{MinSize: 10, CompressionLevel: 42, ContentTypes: []string{"application/json"}})
	r := newCompressedRouter(cm)

	for i := 0; i < 3; i++ {
		w := get(r, "/large", true)
		gz, err := gzip.NewReader(w.Body)
		require.NoError(t, err)
		_, err = io.ReadAll(gz)
		require.NoError(t, err)
	}
	assert.Equal(t, int64(3), cm.GetStats()["compressed_requests"])
}
