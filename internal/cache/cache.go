package cache

import (
	"context"
	"crypto/md5"
	"fmt"
	"sync"
	"time"
)

// Store is a byte cache with a fixed TTL per entry.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, data []byte)
	Delete(ctx context.Context, key string)
}

// Metrics receives hit and miss notifications.
type Metrics interface {
	IncrementCacheHit()
	IncrementCacheMiss()
}

// CacheItem represents a cached item with expiration
type CacheItem struct {
	Data      []byte    `json:"data"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IsExpired checks if the cache item has expired
func (c *CacheItem) IsExpired() bool {
	return time.Now().After(c.ExpiresAt)
}

// Cache provides thread-safe in-process caching with TTL
type Cache struct {
	mu      sync.RWMutex
	items   map[string]*CacheItem
	ttl     time.Duration
	metrics Metrics
	stop    chan struct{}
	once    sync.Once
}

var _ Store = (*Cache)(nil)

// NewCache creates a cache and starts its cleanup goroutine. Call Close to
// stop it.
func NewCache(ttl time.Duration, metrics Metrics) *Cache {
	cache := &Cache{
		items:   make(map[string]*CacheItem),
		ttl:     ttl,
		metrics: metrics,
		stop:    make(chan struct{}),
	}

	go cache.cleanup(cleanupInterval(ttl))

	return cache
}

func cleanupInterval(ttl time.Duration) time.Duration {
	if ttl <= 0 || ttl > 5*time.Minute {
		return 5 * time.Minute
	}
	return ttl
}

func (c *Cache) cleanup(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.mu.Lock()
			for key, item := range c.items {
				if item.IsExpired() {
					delete(c.items, key)
				}
			}
			c.mu.Unlock()
		case <-c.stop:
			return
		}
	}
}

// Close stops the cleanup goroutine.
func (c *Cache) Close() error {
	c.once.Do(func() { close(c.stop) })
	return nil
}

// HashKey derives a fixed-length key from arbitrary input.
func HashKey(input string) string {
	hash := md5.Sum([]byte(input))
	return fmt.Sprintf("%x", hash)
}

// Get retrieves an item from the cache
func (c *Cache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.RLock()
	item, exists := c.items[key]
	c.mu.RUnlock()

	if !exists || item.IsExpired() {
		if exists {
			c.mu.Lock()
			if cur, ok := c.items[key]; ok && cur.IsExpired() {
				delete(c.items, key)
			}
			c.mu.Unlock()
		}
		c.recordMiss()
		return nil, false
	}

	c.recordHit()
	return item.Data, true
}

// Set stores an item in the cache
func (c *Cache) Set(_ context.Context, key string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = &CacheItem{
		Data:      data,
		ExpiresAt: time.Now().Add(c.ttl),
	}
}

// Delete removes an item from the cache
func (c *Cache) Delete(_ context.Context, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.items, key)
}

// Clear removes all items from the cache
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*CacheItem)
}

// Size returns the number of items in the cache
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.items)
}

// Stats returns cache statistics
func (c *Cache) Stats() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	totalItems := len(c.items)
	expiredItems := 0

	for _, item := range c.items {
		if item.IsExpired() {
			expiredItems++
		}
	}

	return map[string]interface{}{
		"backend":       "memory",
		"total_items":   totalItems,
		"expired_items": expiredItems,
		"active_items":  totalItems - expiredItems,
		"ttl_seconds":   c.ttl.Seconds(),
	}
}

func (c *Cache) recordHit() {
	if c.metrics != nil {
		c.metrics.IncrementCacheHit()
	}
}

func (c *Cache) recordMiss() {
	if c.metrics != nil {
		c.metrics.IncrementCacheMiss()
	}
}
