// Package cache memoizes parsed commit diffs for the lifetime of one
// analysis run.
package cache

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/jensroland/git-trueblame/internal/diff"
)

// Loader produces the parsed diffs of a commit on a cache miss.
type Loader func(ctx context.Context, hash string) ([]*diff.Diff, error)

// Observer is notified of cache hits and misses. It may be nil.
type Observer interface {
	CacheHit(ctx context.Context)
	CacheMiss(ctx context.Context)
}

// DiffCache maps commit hashes to their parsed diffs.
//
// Commits are immutable, so entries are never invalidated or evicted.
// Concurrent misses on one hash share a single load; the first stored
// value wins. Failed loads are not cached.
type DiffCache struct {
	load     Loader
	observer Observer

	mu      sync.RWMutex
	entries map[string][]*diff.Diff
	group   singleflight.Group
}

// NewDiffCache returns an empty cache backed by load.
func NewDiffCache(load Loader, observer Observer) *DiffCache {
	return &DiffCache{
		load:     load,
		observer: observer,
		entries:  make(map[string][]*diff.Diff),
	}
}

// Get returns the diffs for hash, loading them on first use.
func (c *DiffCache) Get(ctx context.Context, hash string) ([]*diff.Diff, error) {
	if diffs, ok := c.lookup(hash); ok {
		if c.observer != nil {
			c.observer.CacheHit(ctx)
		}
		return diffs, nil
	}
	if c.observer != nil {
		c.observer.CacheMiss(ctx)
	}

	v, err, _ := c.group.Do(hash, func() (interface{}, error) {
		// another caller may have finished the load while we waited
		if diffs, ok := c.lookup(hash); ok {
			return diffs, nil
		}
		diffs, err := c.load(ctx, hash)
		if err != nil {
			return nil, err
		}
		return c.store(hash, diffs), nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]*diff.Diff), nil
}

// Len returns the number of cached commits.
func (c *DiffCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *DiffCache) lookup(hash string) ([]*diff.Diff, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	diffs, ok := c.entries[hash]
	return diffs, ok
}

// store inserts diffs unless hash is already present, and returns the
// value that ended up in the cache.
func (c *DiffCache) store(hash string, diffs []*diff.Diff) []*diff.Diff {
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.entries[hash]; ok {
		return existing
	}
	c.entries[hash] = diffs
	return diffs
}
