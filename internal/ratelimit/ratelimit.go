// Package ratelimit implements the Request Gate's per-client fixed-window
// counter: the first pipeline stage a call passes through, ahead of
// authentication, so unauthenticated floods are bounded cheaply.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter is satisfied by both the Redis-backed and in-process gates so the
// request pipeline can run against either without knowing which is wired.
type Limiter interface {
	Allow(ctx context.Context, clientIP string) (bool, error)
}

// RedisLimiter enforces a fixed window per key using Redis INCR + EXPIRE.
// It is the production limiter: counters survive process restarts within
// their window and are shared across Bridge replicas.
type RedisLimiter struct {
	redis  *redis.Client
	max    int
	window time.Duration
}

// NewRedisLimiter creates a Redis-backed fixed-window limiter. max is the
// number of requests allowed per clientIP within window.
func NewRedisLimiter(rdb *redis.Client, max int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{redis: rdb, max: max, window: window}
}

// Allow increments the counter for clientIP and reports whether the request
// is within the window's budget. The first increment in a window also sets
// its expiry, so the window resets window after the first hit in it.
func (rl *RedisLimiter) Allow(ctx context.Context, clientIP string) (bool, error) {
	key := fmt.Sprintf("ratelimit:call:%s", clientIP)

	count, err := rl.redis.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("ratelimit: %w", err)
	}
	if count == 1 {
		if err := rl.redis.Expire(ctx, key, rl.window).Err(); err != nil && !errors.Is(err, redis.Nil) {
			return false, fmt.Errorf("ratelimit: setting window expiry: %w", err)
		}
	}

	return count <= int64(rl.max), nil
}

// InMemoryLimiter is a single-process fallback used when no Redis URL is
// configured and in tests: a per-key fixed window guarded by a mutex,
// mirroring the RateBucket{window_start, count} shape from the spec.
type InMemoryLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	max     int
	window  time.Duration
	now     func() time.Time
}

type bucket struct {
	windowStart time.Time
	count       int
}

// NewInMemoryLimiter creates an in-process fixed-window limiter.
func NewInMemoryLimiter(max int, window time.Duration) *InMemoryLimiter {
	return &InMemoryLimiter{
		buckets: make(map[string]*bucket),
		max:     max,
		window:  window,
		now:     time.Now,
	}
}

// Allow implements Limiter.
func (l *InMemoryLimiter) Allow(_ context.Context, clientIP string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[clientIP]
	if !ok || now.Sub(b.windowStart) > l.window {
		b = &bucket{windowStart: now, count: 0}
		l.buckets[clientIP] = b
	}

	if b.count >= l.max {
		return false, nil
	}
	b.count++
	return true, nil
}

// ClientIP extracts the caller's address the way the Request Gate specifies:
// first token of X-Forwarded-For, else X-Real-IP, else "unknown".
func ClientIP(forwardedFor, realIP string) string {
	if forwardedFor != "" {
		first, _, _ := strings.Cut(forwardedFor, ",")
		return strings.TrimSpace(first)
	}
	if realIP != "" {
		return strings.TrimSpace(realIP)
	}
	return "unknown"
}
