package monitoring

import (
	"net/http"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "luwero_advisor"

// Metrics keeps cheap atomic counters for /stats and mirrors them into a
// Prometheus registry owned by this instance.
type Metrics struct {
	RequestCount        int64
	ErrorCount          int64
	Predictions         int64
	Lookups             int64
	LookupMisses        int64
	ChatRequests        int64
	CacheHits           int64
	CacheMisses         int64
	HistoryWrites       int64
	HistoryWriteErrors  int64
	AverageResponseTime int64 // in nanoseconds
	StartTime           time.Time

	// Last 1000 samples, for percentiles
	ResponseTimes      []time.Duration
	ResponseTimesMutex sync.RWMutex

	RequestCountByStatus map[int]int64
	StatusMutex          sync.RWMutex

	CircuitBreakerOpens  int64
	CircuitBreakerCloses int64

	ExternalAPIRequests   map[string]int64
	ExternalAPIErrorCount map[string]int64
	ExternalAPIMutex      sync.RWMutex

	GCCount        int64
	GCPauseTotalNs int64
	HeapAlloc      int64
	HeapSys        int64

	RateLimitBlocks        int64
	RateLimitRedisErrors   int64
	RateLimitFallbackCount int64

	registry         *prometheus.Registry
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	predictionsTotal *prometheus.CounterVec
	lookupsTotal     *prometheus.CounterVec
	chatTotal        *prometheus.CounterVec
	cacheTotal       *prometheus.CounterVec
	upstreamTotal    *prometheus.CounterVec
	rateLimitTotal   *prometheus.CounterVec
	breakerTotal     *prometheus.CounterVec
	historyTotal     *prometheus.CounterVec
	heapAllocBytes   prometheus.Gauge
	modelClasses     prometheus.Gauge
}

// NewMetrics creates a metrics instance with its own registry, so several
// servers can coexist in one process.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	factory := promauto.With(reg)

	return &Metrics{
		StartTime:             time.Now(),
		ResponseTimes:         make([]time.Duration, 0, 1000),
		RequestCountByStatus:  make(map[int]int64),
		ExternalAPIRequests:   make(map[string]int64),
		ExternalAPIErrorCount: make(map[string]int64),

		registry: reg,
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		predictionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Recommendations served, by top crop.",
		}, []string{"top_crop"}),
		lookupsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lookups_total",
			Help:      "Crop searches by outcome.",
		}, []string{"outcome"}),
		chatTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_requests_total",
			Help:      "Advisor chat requests by outcome.",
		}, []string{"outcome"}),
		cacheTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_requests_total",
			Help:      "Answer cache lookups by result.",
		}, []string{"result"}),
		upstreamTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Third-party API calls by API and success.",
		}, []string{"api", "success"}),
		rateLimitTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_events_total",
			Help:      "Rate limiter events by kind.",
		}, []string{"event"}),
		breakerTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_transitions_total",
			Help:      "Circuit breaker state transitions.",
		}, []string{"to"}),
		historyTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_writes_total",
			Help:      "Prediction history writes by result.",
		}, []string{"result"}),
		heapAllocBytes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "heap_alloc_bytes",
			Help:      "Last sampled heap allocation.",
		}),
		modelClasses: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "model_classes",
			Help:      "Number of crop classes in the loaded model.",
		}),
	}
}

// Registry exposes the Prometheus registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the Prometheus exposition format for this instance.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// IncrementRequest increments the request count
func (m *Metrics) IncrementRequest() {
	atomic.AddInt64(&m.RequestCount, 1)
}

// IncrementError increments the error count
func (m *Metrics) IncrementError() {
	atomic.AddInt64(&m.ErrorCount, 1)
}

// IncrementCacheHit increments cache hit count
func (m *Metrics) IncrementCacheHit() {
	atomic.AddInt64(&m.CacheHits, 1)
	m.cacheTotal.WithLabelValues("hit").Inc()
}

// IncrementCacheMiss increments cache miss count
func (m *Metrics) IncrementCacheMiss() {
	atomic.AddInt64(&m.CacheMisses, 1)
	m.cacheTotal.WithLabelValues("miss").Inc()
}

// RecordPrediction counts one recommendation response.
func (m *Metrics) RecordPrediction(topCrop string) {
	atomic.AddInt64(&m.Predictions, 1)
	if topCrop == "" {
		topCrop = "none"
	}
	m.predictionsTotal.WithLabelValues(topCrop).Inc()
}

// RecordLookup counts one crop search.
func (m *Metrics) RecordLookup(found bool) {
	atomic.AddInt64(&m.Lookups, 1)
	outcome := "found"
	if !found {
		atomic.AddInt64(&m.LookupMisses, 1)
		outcome = "not_found"
	}
	m.lookupsTotal.WithLabelValues(outcome).Inc()
}

// RecordChat counts one chat request by outcome (answered, cached, failed,
// rejected).
func (m *Metrics) RecordChat(outcome string) {
	atomic.AddInt64(&m.ChatRequests, 1)
	m.chatTotal.WithLabelValues(outcome).Inc()
}

// RecordHistoryWrite counts a history insert.
func (m *Metrics) RecordHistoryWrite(err error) {
	if err != nil {
		atomic.AddInt64(&m.HistoryWriteErrors, 1)
		m.historyTotal.WithLabelValues("error").Inc()
		return
	}
	atomic.AddInt64(&m.HistoryWrites, 1)
	m.historyTotal.WithLabelValues("ok").Inc()
}

// SetModelClasses records the class count of the loaded model.
func (m *Metrics) SetModelClasses(n int) {
	m.modelClasses.Set(float64(n))
}

// RecordHTTP records one finished request against its route template.
func (m *Metrics) RecordHTTP(method, route string, statusCode int, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordResponseTime records response time for averaging and percentiles
func (m *Metrics) RecordResponseTime(duration time.Duration) {
	current := atomic.LoadInt64(&m.AverageResponseTime)
	newAverage := (current + duration.Nanoseconds()) / 2
	atomic.StoreInt64(&m.AverageResponseTime, newAverage)

	m.ResponseTimesMutex.Lock()
	m.ResponseTimes = append(m.ResponseTimes, duration)
	if len(m.ResponseTimes) > 1000 {
		m.ResponseTimes = m.ResponseTimes[1:]
	}
	m.ResponseTimesMutex.Unlock()
}

// RecordRequestByStatus records request count by HTTP status code
func (m *Metrics) RecordRequestByStatus(statusCode int) {
	m.StatusMutex.Lock()
	defer m.StatusMutex.Unlock()
	m.RequestCountByStatus[statusCode]++
}

// IncrementCircuitBreakerOpen increments circuit breaker open count
func (m *Metrics) IncrementCircuitBreakerOpen() {
	atomic.AddInt64(&m.CircuitBreakerOpens, 1)
	m.breakerTotal.WithLabelValues("open").Inc()
}

// IncrementCircuitBreakerClose increments circuit breaker close count
func (m *Metrics) IncrementCircuitBreakerClose() {
	atomic.AddInt64(&m.CircuitBreakerCloses, 1)
	m.breakerTotal.WithLabelValues("closed").Inc()
}

// RecordExternalAPIRequest records an external API request
func (m *Metrics) RecordExternalAPIRequest(apiName string, success bool) {
	m.ExternalAPIMutex.Lock()
	m.ExternalAPIRequests[apiName]++
	if !success {
		m.ExternalAPIErrorCount[apiName]++
	}
	m.ExternalAPIMutex.Unlock()

	m.upstreamTotal.WithLabelValues(apiName, strconv.FormatBool(success)).Inc()
}

// RecordGCMetrics records Go garbage collector metrics
func (m *Metrics) RecordGCMetrics(gcCount int64, gcPauseTotalNs int64, heapAlloc, heapSys int64) {
	atomic.StoreInt64(&m.GCCount, gcCount)
	atomic.StoreInt64(&m.GCPauseTotalNs, gcPauseTotalNs)
	atomic.StoreInt64(&m.HeapAlloc, heapAlloc)
	atomic.StoreInt64(&m.HeapSys, heapSys)
	m.heapAllocBytes.Set(float64(heapAlloc))
}

// IncrementRateLimitBlock counts a rejected request.
func (m *Metrics) IncrementRateLimitBlock() {
	atomic.AddInt64(&m.RateLimitBlocks, 1)
	m.rateLimitTotal.WithLabelValues("blocked").Inc()
}

// IncrementRateLimitRedisError increments Redis error count for rate limiting
func (m *Metrics) IncrementRateLimitRedisError() {
	atomic.AddInt64(&m.RateLimitRedisErrors, 1)
	m.rateLimitTotal.WithLabelValues("redis_error").Inc()
}

// IncrementRateLimitFallback increments fallback rate limiter usage count
func (m *Metrics) IncrementRateLimitFallback() {
	atomic.AddInt64(&m.RateLimitFallbackCount, 1)
	m.rateLimitTotal.WithLabelValues("fallback").Inc()
}

// GetPercentileResponseTime calculates percentile response time
func (m *Metrics) GetPercentileResponseTime(percentile float64) time.Duration {
	m.ResponseTimesMutex.RLock()
	defer m.ResponseTimesMutex.RUnlock()

	if len(m.ResponseTimes) == 0 {
		return 0
	}

	times := make([]time.Duration, len(m.ResponseTimes))
	copy(times, m.ResponseTimes)

	sort.Slice(times, func(i, j int) bool {
		return times[i] < times[j]
	})

	index := int(float64(len(times)-1) * percentile / 100.0)
	if index >= len(times) {
		index = len(times) - 1
	}

	return times[index]
}

// GetStatusCodeDistribution returns request count by status code
func (m *Metrics) GetStatusCodeDistribution() map[int]int64 {
	m.StatusMutex.RLock()
	defer m.StatusMutex.RUnlock()

	distribution := make(map[int]int64, len(m.RequestCountByStatus))
	for code, count := range m.RequestCountByStatus {
		distribution[code] = count
	}
	return distribution
}

// GetExternalAPIStats returns external API statistics
func (m *Metrics) GetExternalAPIStats() map[string]interface{} {
	m.ExternalAPIMutex.RLock()
	defer m.ExternalAPIMutex.RUnlock()

	stats := make(map[string]interface{})
	for api, requests := range m.ExternalAPIRequests {
		errors := m.ExternalAPIErrorCount[api]
		errorRate := float64(0)
		if requests > 0 {
			errorRate = float64(errors) / float64(requests) * 100
		}

		stats[api] = map[string]interface{}{
			"requests":   requests,
			"errors":     errors,
			"error_rate": errorRate,
		}
	}
	return stats
}

// GetStats returns current metrics statistics
func (m *Metrics) GetStats() map[string]interface{} {
	requests := atomic.LoadInt64(&m.RequestCount)
	errors := atomic.LoadInt64(&m.ErrorCount)
	cacheHits := atomic.LoadInt64(&m.CacheHits)
	cacheMisses := atomic.LoadInt64(&m.CacheMisses)
	avgResponseTime := atomic.LoadInt64(&m.AverageResponseTime)

	errorRate := float64(0)
	if requests > 0 {
		errorRate = float64(errors) / float64(requests) * 100
	}

	cacheHitRate := float64(0)
	if total := cacheHits + cacheMisses; total > 0 {
		cacheHitRate = float64(cacheHits) / float64(total) * 100
	}

	heapAlloc := atomic.LoadInt64(&m.HeapAlloc)
	heapSys := atomic.LoadInt64(&m.HeapSys)
	heapUsage := float64(0)
	if heapSys > 0 {
		heapUsage = float64(heapAlloc) / float64(heapSys) * 100
	}

	return map[string]interface{}{
		"uptime_seconds":         time.Since(m.StartTime).Seconds(),
		"total_requests":         requests,
		"error_count":            errors,
		"error_rate_percent":     errorRate,
		"predictions":            atomic.LoadInt64(&m.Predictions),
		"lookups":                atomic.LoadInt64(&m.Lookups),
		"lookup_misses":          atomic.LoadInt64(&m.LookupMisses),
		"chat_requests":          atomic.LoadInt64(&m.ChatRequests),
		"cache_hits":             cacheHits,
		"cache_misses":           cacheMisses,
		"cache_hit_rate_percent": cacheHitRate,
		"history_writes":         atomic.LoadInt64(&m.HistoryWrites),
		"history_write_errors":   atomic.LoadInt64(&m.HistoryWriteErrors),
		"avg_response_time_ms":   float64(avgResponseTime) / 1e6,
		"start_time":             m.StartTime.Format(time.RFC3339),

		"p50_response_time_ms":     float64(m.GetPercentileResponseTime(50)) / 1e6,
		"p95_response_time_ms":     float64(m.GetPercentileResponseTime(95)) / 1e6,
		"p99_response_time_ms":     float64(m.GetPercentileResponseTime(99)) / 1e6,
		"status_code_distribution": m.GetStatusCodeDistribution(),
		"external_api_stats":       m.GetExternalAPIStats(),

		"circuit_breaker_opens":  atomic.LoadInt64(&m.CircuitBreakerOpens),
		"circuit_breaker_closes": atomic.LoadInt64(&m.CircuitBreakerCloses),

		"rate_limit_blocks":       atomic.LoadInt64(&m.RateLimitBlocks),
		"rate_limit_redis_errors": atomic.LoadInt64(&m.RateLimitRedisErrors),
		"rate_limit_fallbacks":    atomic.LoadInt64(&m.RateLimitFallbackCount),

		"go_gc_count":           atomic.LoadInt64(&m.GCCount),
		"go_gc_pause_total_ns":  atomic.LoadInt64(&m.GCPauseTotalNs),
		"go_heap_alloc_bytes":   heapAlloc,
		"go_heap_sys_bytes":     heapSys,
		"go_heap_usage_percent": heapUsage,
	}
}
