package bridgeapi

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PoolRegistry holds one pgxpool.Pool per distinct database URL, creating
// it lazily on first use. A release's tables may span multiple
// connections, and many releases commonly share the same underlying
// database — keying by URL rather than by project/env avoids opening a
// duplicate pool for that common case.
type PoolRegistry struct {
	mu    sync.Mutex
	pools map[string]*pgxpool.Pool
}

// NewPoolRegistry builds an empty registry.
func NewPoolRegistry() *PoolRegistry {
	return &PoolRegistry{pools: map[string]*pgxpool.Pool{}}
}

// Get returns the pool for dbURL, creating and caching it on first use.
func (r *PoolRegistry) Get(ctx context.Context, dbURL string) (*pgxpool.Pool, error) {
	r.mu.Lock()
	if pool, ok := r.pools[dbURL]; ok {
		r.mu.Unlock()
		return pool, nil
	}
	r.mu.Unlock()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, fmt.Errorf("bridgeapi: connecting to %s: %w", redactDBURL(dbURL), err)
	}

	r.mu.Lock()
	if existing, ok := r.pools[dbURL]; ok {
		r.mu.Unlock()
		pool.Close()
		return existing, nil
	}
	r.pools[dbURL] = pool
	r.mu.Unlock()

	return pool, nil
}

// Close closes every pool the registry has created, for graceful
// shutdown.
func (r *PoolRegistry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, pool := range r.pools {
		pool.Close()
	}
}

// Ping verifies every currently open pool is reachable, satisfying
// httpserver.Pinger for the readiness endpoint.
func (r *PoolRegistry) Ping(ctx context.Context) error {
	r.mu.Lock()
	pools := make([]*pgxpool.Pool, 0, len(r.pools))
	for _, p := range r.pools {
		pools = append(pools, p)
	}
	r.mu.Unlock()

	for _, p := range pools {
		if err := p.Ping(ctx); err != nil {
			return err
		}
	}
	return nil
}

// redactDBURL avoids leaking credentials embedded in a postgres:// URL
// (user:password@host) into an error message a caller might log.
func redactDBURL(dbURL string) string {
	at := -1
	for i, c := range dbURL {
		if c == '@' {
			at = i
		}
	}
	scheme := -1
	for i := 0; i+2 < len(dbURL); i++ {
		if dbURL[i] == ':' && dbURL[i+1] == '/' && dbURL[i+2] == '/' {
			scheme = i + 3
			break
		}
	}
	if at == -1 || scheme == -1 || at <= scheme {
		return dbURL
	}
	return dbURL[:scheme] + "***:***" + dbURL[at:]
}
