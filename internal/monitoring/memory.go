package monitoring

import (
	"context"
	"runtime"
	"time"
)

// RuntimeSampler periodically copies Go runtime memory statistics into Metrics.
type RuntimeSampler struct {
	metrics  *Metrics
	logger   *Logger
	interval time.Duration
}

// NewRuntimeSampler samples every interval; non-positive means 30s.
func NewRuntimeSampler(metrics *Metrics, logger *Logger, interval time.Duration) *RuntimeSampler {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &RuntimeSampler{metrics: metrics, logger: logger, interval: interval}
}

// Run samples until ctx is cancelled.
func (s *RuntimeSampler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Sample()
	for {
		select {
		case <-ticker.C:
			s.Sample()
		case <-ctx.Done():
			return
		}
	}
}

// Sample reads runtime.MemStats once.
func (s *RuntimeSampler) Sample() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	s.metrics.RecordGCMetrics(int64(ms.NumGC), int64(ms.PauseTotalNs), int64(ms.HeapAlloc), int64(ms.HeapSys))
	if s.logger != nil {
		s.logger.Debug("Runtime Sample",
			"heap_alloc_mb", ms.HeapAlloc/(1024*1024),
			"heap_sys_mb", ms.HeapSys/(1024*1024),
			"num_gc", ms.NumGC,
			"goroutines", runtime.NumGoroutine(),
		)
	}
}
