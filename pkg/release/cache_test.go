package release

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeFetcher struct {
	calls int
	rel   Release
	err   error
}

func (f *fakeFetcher) Fetch(ctx context.Context, key Key) (Release, error) {
	f.calls++
	if f.err != nil {
		return Release{}, f.err
	}
	return f.rel, nil
}

func TestCacheGetFetchesOnMiss(t *testing.T) {
	fetcher := &fakeFetcher{rel: Release{ID: "rel-1", ProjectID: "p1", EnvID: "e1"}}
	cache := NewCache(time.Minute, nil, fetcher)

	rel, err := cache.Get(context.Background(), Key{ProjectID: "p1", EnvID: "e1"})
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if rel.ID != "rel-1" {
		t.Errorf("rel.ID = %q, want rel-1", rel.ID)
	}
	if fetcher.calls != 1 {
		t.Errorf("fetcher.calls = %d, want 1", fetcher.calls)
	}
}

func TestCacheGetServesFreshFromL1WithoutRefetching(t *testing.T) {
	fetcher := &fakeFetcher{rel: Release{ID: "rel-1", ProjectID: "p1", EnvID: "e1"}}
	cache := NewCache(time.Minute, nil, fetcher)
	key := Key{ProjectID: "p1", EnvID: "e1"}

	if _, err := cache.Get(context.Background(), key); err != nil {
		t.Fatalf("first Get() error: %v", err)
	}
	if _, err := cache.Get(context.Background(), key); err != nil {
		t.Fatalf("second Get() error: %v", err)
	}
	if fetcher.calls != 1 {
		t.Errorf("fetcher.calls = %d, want 1 (second call should hit cache)", fetcher.calls)
	}
}

func TestCacheGetRefetchesAfterTTLExpires(t *testing.T) {
	fetcher := &fakeFetcher{rel: Release{ID: "rel-1", ProjectID: "p1", EnvID: "e1"}}
	cache := NewCache(time.Minute, nil, fetcher)
	key := Key{ProjectID: "p1", EnvID: "e1"}

	start := time.Now()
	cache.nowFn = func() time.Time { return start }
	if _, err := cache.Get(context.Background(), key); err != nil {
		t.Fatalf("first Get() error: %v", err)
	}

	cache.nowFn = func() time.Time { return start.Add(2 * time.Minute) }
	if _, err := cache.Get(context.Background(), key); err != nil {
		t.Fatalf("second Get() error: %v", err)
	}

	if fetcher.calls != 2 {
		t.Errorf("fetcher.calls = %d, want 2 (expired entry should refetch)", fetcher.calls)
	}
}

func TestCacheGetPropagatesFetchError(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("hub unreachable")}
	cache := NewCache(time.Minute, nil, fetcher)

	if _, err := cache.Get(context.Background(), Key{ProjectID: "p1", EnvID: "e1"}); err == nil {
		t.Errorf("expected fetch error to propagate")
	}
}

func TestCacheInvalidateForcesRefetch(t *testing.T) {
	fetcher := &fakeFetcher{rel: Release{ID: "rel-1", ProjectID: "p1", EnvID: "e1"}}
	cache := NewCache(time.Minute, nil, fetcher)
	key := Key{ProjectID: "p1", EnvID: "e1"}

	if _, err := cache.Get(context.Background(), key); err != nil {
		t.Fatalf("first Get() error: %v", err)
	}
	cache.Invalidate(context.Background(), key)
	if _, err := cache.Get(context.Background(), key); err != nil {
		t.Fatalf("second Get() error: %v", err)
	}
	if fetcher.calls != 2 {
		t.Errorf("fetcher.calls = %d, want 2 after invalidate", fetcher.calls)
	}
}

func TestKeyCacheKeyFormat(t *testing.T) {
	k := Key{ProjectID: "proj", EnvID: "prod"}
	if k.CacheKey() != "proj:prod" {
		t.Errorf("CacheKey() = %q, want proj:prod", k.CacheKey())
	}
}
