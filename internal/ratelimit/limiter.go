package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-redis/redis_rate/v10"
	"golang.org/x/time/rate"
)

// Limit allows Requests per Period for one key.
type Limit struct {
	Name     string
	Requests int
	Period   time.Duration
}

// Metrics receives limiter events.
type Metrics interface {
	IncrementRateLimitBlock()
	IncrementRateLimitRedisError()
	IncrementRateLimitFallback()
}

// Result represents the result of a rate limit check
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

type fallbackEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter provides distributed rate limiting with Redis and an in-memory
// token bucket fallback.
type RateLimiter struct {
	redisLimiter *redis_rate.Limiter
	redisClient  *RedisClient
	metrics      Metrics

	fallbackLimiters map[string]*fallbackEntry
	fallbackMutex    sync.Mutex
	stop             chan struct{}
	stopOnce         sync.Once
}

// NewRateLimiter uses Redis when redisClient is enabled. metrics may be nil.
func NewRateLimiter(redisClient *RedisClient, metrics Metrics) *RateLimiter {
	if redisClient == nil {
		redisClient = &RedisClient{}
	}
	rl := &RateLimiter{
		redisClient:      redisClient,
		metrics:          metrics,
		fallbackLimiters: make(map[string]*fallbackEntry),
		stop:             make(chan struct{}),
	}

	if redisClient.IsEnabled() {
		rl.redisLimiter = redis_rate.NewLimiter(redisClient.GetClient())
		slog.Info("Redis rate limiter initialized")
	} else {
		slog.Warn("Redis unavailable, using in-memory rate limiting only")
	}

	go rl.cleanupFallbackLimiters(time.Minute)

	return rl
}

// Close stops background cleanup.
func (rl *RateLimiter) Close() error {
	rl.stopOnce.Do(func() { close(rl.stop) })
	return nil
}

func limitKey(limit Limit, subject string) string {
	return fmt.Sprintf("ratelimit:%s:%s", limit.Name, subject)
}

// Allow checks and consumes one request for subject under limit.
func (rl *RateLimiter) Allow(ctx context.Context, limit Limit, subject string) (*Result, error) {
	if limit.Requests <= 0 || limit.Period <= 0 {
		return nil, fmt.Errorf("invalid rate limit %q: %d per %s", limit.Name, limit.Requests, limit.Period)
	}
	key := limitKey(limit, subject)

	if rl.redisClient.IsEnabled() && rl.redisLimiter != nil {
		result, err := rl.allowRedis(ctx, key, limit)
		if err == nil {
			return result, nil
		}
		slog.Warn("Redis rate limit check failed, using fallback", "key", key, "error", err)
		if rl.metrics != nil {
			rl.metrics.IncrementRateLimitRedisError()
		}
	}

	if rl.metrics != nil {
		rl.metrics.IncrementRateLimitFallback()
	}
	return rl.allowFallback(key, limit), nil
}

func (rl *RateLimiter) allowRedis(ctx context.Context, key string, limit Limit) (*Result, error) {
	res, err := rl.redisLimiter.Allow(ctx, key, redis_rate.Limit{
		Rate:   limit.Requests,
		Burst:  limit.Requests,
		Period: limit.Period,
	})
	if err != nil {
		return nil, fmt.Errorf("redis rate limit check failed: %w", err)
	}

	retryAfter := res.RetryAfter
	if retryAfter < 0 {
		retryAfter = 0
	}
	return &Result{
		Allowed:    res.Allowed > 0,
		Limit:      limit.Requests,
		Remaining:  res.Remaining,
		ResetAt:    time.Now().Add(res.ResetAfter),
		RetryAfter: retryAfter,
	}, nil
}

// allowFallback refills Requests tokens per Period with a burst of Requests,
// matching the Redis GCRA limit.
func (rl *RateLimiter) allowFallback(key string, limit Limit) *Result {
	now := time.Now()

	rl.fallbackMutex.Lock()
	entry, exists := rl.fallbackLimiters[key]
	if !exists {
		every := limit.Period / time.Duration(limit.Requests)
		entry = &fallbackEntry{limiter: rate.NewLimiter(rate.Every(every), limit.Requests)}
		rl.fallbackLimiters[key] = entry
	}
	entry.lastSeen = now
	rl.fallbackMutex.Unlock()

	reservation := entry.limiter.ReserveN(now, 1)
	delay := reservation.DelayFrom(now)
	if !reservation.OK() || delay > 0 {
		reservation.CancelAt(now)
		return &Result{
			Allowed:    false,
			Limit:      limit.Requests,
			Remaining:  0,
			ResetAt:    now.Add(delay),
			RetryAfter: delay,
		}
	}

	remaining := int(entry.limiter.TokensAt(now))
	if remaining < 0 {
		remaining = 0
	}
	missing := float64(limit.Requests) - entry.limiter.TokensAt(now)
	resetAfter := time.Duration(missing * float64(limit.Period) / float64(limit.Requests))

	return &Result{
		Allowed:   true,
		Limit:     limit.Requests,
		Remaining: remaining,
		ResetAt:   now.Add(resetAfter),
	}
}

// cleanupFallbackLimiters drops buckets idle for over an hour.
func (rl *RateLimiter) cleanupFallbackLimiters(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.evictIdle(time.Now().Add(-time.Hour))
		case <-rl.stop:
			return
		}
	}
}

func (rl *RateLimiter) evictIdle(before time.Time) int {
	rl.fallbackMutex.Lock()
	defer rl.fallbackMutex.Unlock()

	evicted := 0
	for key, entry := range rl.fallbackLimiters {
		if entry.lastSeen.Before(before) {
			delete(rl.fallbackLimiters, key)
			evicted++
		}
	}
	return evicted
}

// GetStats returns rate limiter statistics
func (rl *RateLimiter) GetStats() map[string]interface{} {
	rl.fallbackMutex.Lock()
	fallbackCount := len(rl.fallbackLimiters)
	rl.fallbackMutex.Unlock()

	stats := map[string]interface{}{
		"redis_enabled":     rl.redisClient.IsEnabled(),
		"fallback_limiters": fallbackCount,
	}

	if rl.redisClient.IsEnabled() {
		stats["redis_pool"] = rl.redisClient.GetPoolStats()
	}

	return stats
}
