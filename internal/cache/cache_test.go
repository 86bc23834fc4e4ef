package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jensroland/git-trueblame/internal/diff"
)

type countingObserver struct {
	hits, misses atomic.Int64
}

func (o *countingObserver) CacheHit(context.Context)  { o.hits.Add(1) }
func (o *countingObserver) CacheMiss(context.Context) { o.misses.Add(1) }

func TestGetLoadsOnce(t *testing.T) {
	var loads atomic.Int64
	want := []*diff.Diff{{PreImagePath: "a", PostImagePath: "a"}}
	c := NewDiffCache(func(_ context.Context, hash string) ([]*diff.Diff, error) {
		loads.Add(1)
		assert.Equal(t, "abc", hash)
		return want, nil
	}, nil)

	const n = 64
	var wg sync.WaitGroup
	results := make([][]*diff.Diff, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got, err := c.Get(context.Background(), "abc")
			assert.NoError(t, err)
			results[i] = got
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(1), loads.Load())
	assert.Equal(t, 1, c.Len())
	for _, r := range results {
		require.Len(t, r, 1)
		assert.Same(t, want[0], r[0])
	}
}

func TestGetDistinctKeys(t *testing.T) {
	var loads atomic.Int64
	c := NewDiffCache(func(_ context.Context, hash string) ([]*diff.Diff, error) {
		loads.Add(1)
		return []*diff.Diff{{PostImagePath: hash}}, nil
	}, nil)

	for _, h := range []string{"a", "b", "a", "c", "b"} {
		got, err := c.Get(context.Background(), h)
		require.NoError(t, err)
		assert.Equal(t, h, got[0].PostImagePath)
	}
	assert.Equal(t, int64(3), loads.Load())
	assert.Equal(t, 3, c.Len())
}

func TestGetDoesNotCacheErrors(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	c := NewDiffCache(func(context.Context, string) ([]*diff.Diff, error) {
		calls++
		if calls == 1 {
			return nil, boom
		}
		return nil, nil
	}, nil)

	_, err := c.Get(context.Background(), "x")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.Len())

	got, err := c.Get(context.Background(), "x")
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, 1, c.Len(), "a commit without file changes is still cached")
	assert.Equal(t, 2, calls)
}

func TestGetReportsHitsAndMisses(t *testing.T) {
	obs := &countingObserver{}
	c := NewDiffCache(func(context.Context, string) ([]*diff.Diff, error) {
		return nil, nil
	}, obs)

	for i := 0; i < 3; i++ {
		_, err := c.Get(context.Background(), "h")
		require.NoError(t, err)
	}
	assert.Equal(t, int64(1), obs.misses.Load())
	assert.Equal(t, int64(2), obs.hits.Load())
}
