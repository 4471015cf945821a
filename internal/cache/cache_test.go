package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingMetrics struct {
	mu     sync.Mutex
	hits   int
	misses int
}

func (m *countingMetrics) IncrementCacheHit() {
	m.mu.Lock()
	m.hits++
	m.mu.Unlock()
}

func (m *countingMetrics) IncrementCacheMiss() {
	m.mu.Lock()
	m.misses++
	m.mu.Unlock()
}

func TestCache_GetSet(t *testing.T) {
	metrics := &countingMetrics{}
	c := NewCache(time.Minute, metrics)
	defer c.Close()
	ctx := context.Background()

	_, ok := c.Get(ctx, "missing")
	assert.False(t, ok)

	c.Set(ctx, "k", []byte("answer"))
	data, ok := c.Get(ctx, "k")
	assert.True(t, ok)
	assert.Equal(t, []byte("answer"), data)
	assert.Equal(t, 1, c.Size())

	c.Delete(ctx, "k")
	_, ok = c.Get(ctx, "k")
	assert.False(t, ok)

	assert.Equal(t, 1, metrics.hits)
	assert.Equal(t, 2, metrics.misses)
}

func TestCache_Expiry(t *testing.T) {
	c := NewCache(20*time.Millisecond, nil)
	defer c.Close()
	ctx := context.Background()

	c.Set(ctx, "k", []byte("v"))
	time.Sleep(40 * time.Millisecond)

	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Size())
}

func TestCache_ClearAndStats(t *testing.T) {
	c := NewCache(time.Minute, nil)
	defer c.Close()
	ctx := context.Background()

	c.Set(ctx, "a", []byte("1"))
	c.Set(ctx, "b", []byte("2"))

	stats := c.Stats()
	assert.Equal(t, 2, stats["total_items"])
	assert.Equal(t, 2, stats["active_items"])
	assert.Equal(t, "memory", stats["backend"])

	c.Clear()
	assert.Equal(t, 0, c.Size())
	assert.NoError(t, c.Close())
}

func TestHashKey(t *testing.T) {
	assert.Equal(t, HashKey("1.2.3.4:how do i plant maize?"), HashKey("1.2.3.4:how do i plant maize?"))
	assert.NotEqual(t, HashKey("a"), HashKey("b"))
	assert.Len(t, HashKey("anything"), 32)
}

func TestRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	metrics := &countingMetrics{}
	rc := NewRedisCache(client, "chat:", 5*time.Minute, metrics)
	ctx := context.Background()

	_, ok := rc.Get(ctx, "q")
	assert.False(t, ok)

	rc.Set(ctx, "q", []byte("plant early"))
	data, ok := rc.Get(ctx, "q")
	require.True(t, ok)
	assert.Equal(t, []byte("plant early"), data)

	assert.True(t, mr.Exists("chat:"+HashKey("q")))
	assert.Equal(t, 5*time.Minute, mr.TTL("chat:"+HashKey("q")))

	mr.FastForward(6 * time.Minute)
	_, ok = rc.Get(ctx, "q")
	assert.False(t, ok)

	rc.Set(ctx, "q", []byte("again"))
	rc.Delete(ctx, "q")
	_, ok = rc.Get(ctx, "q")
	assert.False(t, ok)

	assert.Equal(t, 1, metrics.hits)
	assert.Equal(t, 3, metrics.misses)
}

func TestRedisCache_DownIsMiss(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	rc := NewRedisCache(client, "chat:", time.Minute, nil)

	mr.Close()

	rc.Set(context.Background(), "q", []byte("x"))
	_, ok := rc.Get(context.Background(), "q")
	assert.False(t, ok)
}
