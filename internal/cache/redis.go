package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache shares cached entries between server instances. Redis failures
// degrade to misses and are logged, never returned.
type RedisCache struct {
	client  *redis.Client
	prefix  string
	ttl     time.Duration
	metrics Metrics
}

var _ Store = (*RedisCache)(nil)

// NewRedisCache stores keys as prefix + HashKey(key).
func NewRedisCache(client *redis.Client, prefix string, ttl time.Duration, metrics Metrics) *RedisCache {
	return &RedisCache{client: client, prefix: prefix, ttl: ttl, metrics: metrics}
}

func (r *RedisCache) key(k string) string {
	return r.prefix + HashKey(k)
}

// Get returns the cached bytes for key.
func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	data, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Warn("Redis cache get failed", "error", err)
		}
		r.recordMiss()
		return nil, false
	}
	r.recordHit()
	return data, true
}

// Set stores data under key with the cache TTL.
func (r *RedisCache) Set(ctx context.Context, key string, data []byte) {
	if err := r.client.Set(ctx, r.key(key), data, r.ttl).Err(); err != nil {
		slog.Warn("Redis cache set failed", "error", err)
	}
}

// Delete removes key.
func (r *RedisCache) Delete(ctx context.Context, key string) {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		slog.Warn("Redis cache delete failed", "error", err)
	}
}

// Stats reports the backend and TTL.
func (r *RedisCache) Stats() map[string]interface{} {
	return map[string]interface{}{
		"backend":     "redis",
		"prefix":      r.prefix,
		"ttl_seconds": r.ttl.Seconds(),
	}
}

func (r *RedisCache) recordHit() {
	if r.metrics != nil {
		r.metrics.IncrementCacheHit()
	}
}

func (r *RedisCache) recordMiss() {
	if r.metrics != nil {
		r.metrics.IncrementCacheMiss()
	}
}
