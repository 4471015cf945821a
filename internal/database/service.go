package database

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/ZanzyTHEbar/luwero-crop-advisor/internal/prediction"
	"github.com/ZanzyTHEbar/luwero-crop-advisor/internal/recommend"
)

// Metrics receives history write outcomes.
type Metrics interface {
	RecordHistoryWrite(err error)
}

// HistoryService saves predictions off the request path and enforces the
// retention window.
type HistoryService struct {
	repo    *Repository
	metrics Metrics
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	queue  chan *HistoryEntry
	wg     sync.WaitGroup
}

// NewHistoryService starts one writer goroutine with a queue of queueSize
// entries. metrics may be nil.
func NewHistoryService(repo *Repository, metrics Metrics, queueSize int) *HistoryService {
	if queueSize <= 0 {
		queueSize = 256
	}
	s := &HistoryService{
		repo:    repo,
		metrics: metrics,
		timeout: 5 * time.Second,
		queue:   make(chan *HistoryEntry, queueSize),
	}

	s.wg.Add(1)
	go s.writer()

	return s
}

// Repository exposes the underlying repository for reads.
func (s *HistoryService) Repository() *Repository {
	return s.repo
}

// Record queues a prediction for saving. It never blocks; when the queue is
// full the entry is dropped and counted as a failed write.
func (s *HistoryService) Record(clientID string, in prediction.Input, recs []recommend.RankedCrop) bool {
	entry := NewHistoryEntry(clientID, in, recs)

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false
	}

	select {
	case s.queue <- entry:
		return true
	default:
		slog.Warn("History queue full, dropping entry", "client_id", clientID)
		s.record(errQueueFull)
		return false
	}
}

func (s *HistoryService) writer() {
	defer s.wg.Done()

	for entry := range s.queue {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		err := s.repo.SaveHistory(ctx, entry)
		cancel()

		if err != nil {
			slog.Error("Failed to save prediction history", "id", entry.ID, "error", err)
		}
		s.record(err)
	}
}

// Close stops accepting entries and waits for queued ones to be written.
func (s *HistoryService) Close() error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

// Cleanup deletes entries older than retention.
func (s *HistoryService) Cleanup(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)
	deleted, err := s.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	slog.Info("History cleanup completed", "cutoff", cutoff.Format(time.RFC3339), "deleted", deleted)
	return deleted, nil
}

// RunRetention calls Cleanup every interval until ctx is done.
func (s *HistoryService) RunRetention(ctx context.Context, retention, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Cleanup(ctx, retention); err != nil {
				slog.Error("History cleanup failed", "error", err)
			}
		}
	}
}

func (s *HistoryService) record(err error) {
	if s.metrics != nil {
		s.metrics.RecordHistoryWrite(err)
	}
}

var errQueueFull = errors.New("history queue full")
