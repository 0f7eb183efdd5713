package engine

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// active is the process-wide cache. L1 lives in memory and is lost on
// restart; the optional L2 Redis tier survives restarts.
var active atomic.Pointer[tieredCache]

type cacheEntry struct {
	data      []byte
	expiresAt time.Time
}

type tieredCache struct {
	mu         sync.Mutex
	l1         map[string]cacheEntry
	rdb        *redis.Client // nil = L1 only
	ttl        time.Duration
	maxEntries int
	stop       chan struct{}

	hits   atomic.Int64
	misses atomic.Int64
}

// InitCache installs a fresh cache, stopping the previous one's cleanup
// loop. An empty or unreachable redisURL leaves L2 disabled.
func InitCache(redisURL string, ttl time.Duration, maxEntries int, cleanupInterval time.Duration) {
	c := &tieredCache{
		l1:         make(map[string]cacheEntry),
		rdb:        connectRedis(redisURL),
		ttl:        ttl,
		maxEntries: maxEntries,
		stop:       make(chan struct{}),
	}
	if prev := active.Swap(c); prev != nil {
		close(prev.stop)
	}
	slog.Info("cache: initialized", slog.Duration("ttl", ttl), slog.Bool("redis", c.rdb != nil), slog.Int("max_entries", maxEntries))

	if cleanupInterval <= 0 {
		cleanupInterval = 5 * time.Minute
	}
	go c.cleanupLoop(cleanupInterval)
}

func connectRedis(redisURL string) *redis.Client {
	if redisURL == "" {
		return nil
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		slog.Warn("cache: invalid redis URL, L2 disabled", slog.Any("error", err))
		return nil
	}
	rdb := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Warn("cache: redis unreachable, L2 disabled", slog.Any("error", err))
		rdb.Close()
		return nil
	}
	slog.Info("cache: L2 redis connected", slog.String("addr", opts.Addr))
	return rdb
}

// CacheKey builds a deterministic cache key from parts.
func CacheKey(parts ...string) string {
	hash := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return fmt.Sprintf("gr:%x", hash[:12])
}

// CacheGet tries L1, then L2. An L2 hit is copied into L1.
func CacheGet(ctx context.Context, key string) ([]byte, bool) {
	c := active.Load()
	if c == nil {
		return nil, false
	}
	data, ok := c.get(ctx, key)
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return data, ok
}

// CacheSet stores data in both tiers.
func CacheSet(ctx context.Context, key string, data []byte) {
	c := active.Load()
	if c == nil {
		return
	}
	c.put(key, data)
	if c.rdb != nil {
		if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
			slog.Debug("cache: L2 set failed", slog.Any("error", err))
		}
	}
}

// CacheLoadJSON decodes a cached value of type T. Undecodable entries count
// as a miss.
func CacheLoadJSON[T any](ctx context.Context, key string) (T, bool) {
	var out T
	data, ok := CacheGet(ctx, key)
	if !ok {
		return out, false
	}
	if err := json.Unmarshal(data, &out); err != nil {
		var zero T
		return zero, false
	}
	return out, true
}

// CacheStoreJSON marshals v and stores it.
func CacheStoreJSON[T any](ctx context.Context, key string, v T) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Debug("cache: marshal failed", slog.String("key", key), slog.Any("error", err))
		return
	}
	CacheSet(ctx, key, data)
}

// CacheStats returns hit/miss counters of the current cache.
func CacheStats() (hits, misses int64) {
	c := active.Load()
	if c == nil {
		return 0, 0
	}
	return c.hits.Load(), c.misses.Load()
}

func (c *tieredCache) get(ctx context.Context, key string) ([]byte, bool) {
	now := time.Now()
	c.mu.Lock()
	entry, ok := c.l1[key]
	if ok && now.After(entry.expiresAt) {
		delete(c.l1, key)
		ok = false
	}
	c.mu.Unlock()
	if ok {
		return entry.data, true
	}

	if c.rdb == nil {
		return nil, false
	}
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	c.put(key, data)
	return data, true
}

func (c *tieredCache) put(key string, data []byte) {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.l1[key]; !exists {
		c.makeRoomLocked(now)
	}
	c.l1[key] = cacheEntry{data: data, expiresAt: now.Add(c.ttl)}
}

// makeRoomLocked drops expired entries, then the soonest-expiring ones,
// until one more entry fits under maxEntries. Entries share a TTL, so the
// soonest to expire is the oldest.
func (c *tieredCache) makeRoomLocked(now time.Time) {
	if c.maxEntries <= 0 || len(c.l1) < c.maxEntries {
		return
	}
	c.purgeLocked(now)
	for len(c.l1) >= c.maxEntries {
		var oldest string
		var oldestAt time.Time
		for k, e := range c.l1 {
			if oldestAt.IsZero() || e.expiresAt.Before(oldestAt) {
				oldest, oldestAt = k, e.expiresAt
			}
		}
		delete(c.l1, oldest)
	}
}

func (c *tieredCache) purgeLocked(now time.Time) {
	for k, e := range c.l1 {
		if now.After(e.expiresAt) {
			delete(c.l1, k)
		}
	}
}

func (c *tieredCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.l1)
}

func (c *tieredCache) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case now := <-ticker.C:
			c.mu.Lock()
			c.purgeLocked(now)
			c.mu.Unlock()
		}
	}
}
