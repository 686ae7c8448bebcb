package release

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cookieshake/santokit-sub000/internal/telemetry"
)

// Fetcher retrieves the currently published release for key from the
// Hub. The cache calls it only on a miss.
type Fetcher interface {
	Fetch(ctx context.Context, key Key) (Release, error)
}

// Cache is the two-tier Release Cache: an in-process map (L1, always
// consulted first) backed by an optional Redis client (L2, shared across
// Bridge replicas so a cold replica doesn't always have to hit the Hub).
type Cache struct {
	mu      sync.RWMutex
	entries map[string]Cached

	ttl    time.Duration
	redis  *redis.Client
	fetch  Fetcher
	nowFn  func() time.Time
}

// NewCache builds a Cache with the given TTL. redisClient may be nil to
// run L1-only.
func NewCache(ttl time.Duration, redisClient *redis.Client, fetcher Fetcher) *Cache {
	return &Cache{
		entries: map[string]Cached{},
		ttl:     ttl,
		redis:   redisClient,
		fetch:   fetcher,
		nowFn:   time.Now,
	}
}

// Get returns the release for key, consulting L1 then L2 then the
// Fetcher, in that order, refreshing each faster tier on the way back up.
func (c *Cache) Get(ctx context.Context, key Key) (Release, error) {
	now := c.nowFn()
	cacheKey := key.CacheKey()

	if cached, ok := c.readL1(cacheKey); ok && cached.IsFresh(c.ttl, now) {
		telemetry.ReleaseCacheHitsTotal.WithLabelValues("l1").Inc()
		return cached.Release, nil
	}

	if c.redis != nil {
		if cached, ok := c.readL2(ctx, cacheKey); ok && cached.IsFresh(c.ttl, now) {
			telemetry.ReleaseCacheHitsTotal.WithLabelValues("l2").Inc()
			c.writeL1(cacheKey, cached)
			return cached.Release, nil
		}
	}

	telemetry.ReleaseCacheMissesTotal.Inc()

	rel, err := c.fetch.Fetch(ctx, key)
	if err != nil {
		return Release{}, fmt.Errorf("release: fetching %s from hub: %w", cacheKey, err)
	}

	cached := Cached{Release: rel, CachedAt: now}
	c.writeL1(cacheKey, cached)
	c.writeL2(ctx, cacheKey, cached)

	return rel, nil
}

// Invalidate drops a release from both tiers, so the next Get fetches it
// from the Hub. The Bridge's request path does not call it; entries
// otherwise expire by TTL.
func (c *Cache) Invalidate(ctx context.Context, key Key) {
	cacheKey := key.CacheKey()

	c.mu.Lock()
	delete(c.entries, cacheKey)
	c.mu.Unlock()

	if c.redis != nil {
		c.redis.Del(ctx, redisKeyPrefix+cacheKey)
	}
}

func (c *Cache) readL1(cacheKey string) (Cached, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cached, ok := c.entries[cacheKey]
	return cached, ok
}

func (c *Cache) writeL1(cacheKey string, cached Cached) {
	c.mu.Lock()
	defer c.mu.Unlock()
	// Last writer wins: a concurrent refresh racing this one simply
	// overwrites, which is fine since both fetched the same fresh release.
	c.entries[cacheKey] = cached
}

const redisKeyPrefix = "stk:release:"

func (c *Cache) readL2(ctx context.Context, cacheKey string) (Cached, bool) {
	raw, err := c.redis.Get(ctx, redisKeyPrefix+cacheKey).Bytes()
	if err != nil {
		return Cached{}, false
	}
	var cached Cached
	if err := json.Unmarshal(raw, &cached); err != nil {
		return Cached{}, false
	}
	return cached, true
}

func (c *Cache) writeL2(ctx context.Context, cacheKey string, cached Cached) {
	raw, err := json.Marshal(cached)
	if err != nil {
		return
	}
	c.redis.Set(ctx, redisKeyPrefix+cacheKey, raw, c.ttl)
}
