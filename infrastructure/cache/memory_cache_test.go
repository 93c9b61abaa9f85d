package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	apperrors "filing-backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func newTestCache(t *testing.T, opts ...MemoryOption) *MemoryCache {
	t.Helper()
	c := NewMemoryCache(MemoryCacheConfig{}, zap.NewNop(), opts...)
	t.Cleanup(c.Destroy)
	return c
}

func TestMemoryCache_TTLExpiry(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 100*time.Millisecond))

	val, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v"), val)

	time.Sleep(150 * time.Millisecond)

	val, ok, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, val)
}

func TestMemoryCache_NoTTLIsPermanent(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 0))
	time.Sleep(100 * time.Millisecond)

	val, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v"), val)
}

func TestMemoryCache_ExpiryIsStrict(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	c := newTestCache(t, WithClock(clock.Now))

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Second))

	clock.Advance(time.Second)
	ok, err := c.Has(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok, "an entry is still live at exactly its expiry")
	assert.Equal(t, 0, c.EvictExpired(), "sweep agrees with lazy eviction at the boundary")

	clock.Advance(time.Nanosecond)
	ok, err = c.Has(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryCache_LazyEvictionRemovesEntry(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	c := newTestCache(t, WithClock(clock.Now))

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Second))
	clock.Advance(2 * time.Second)

	assert.Equal(t, 1, c.Stats().Items)
	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	stats := c.Stats()
	assert.Equal(t, 0, stats.Items)
	assert.Equal(t, int64(1), stats.Expirations)
}

func TestMemoryCache_EvictExpired(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	c := newTestCache(t, WithClock(clock.Now))

	require.NoError(t, c.Set(ctx, "short", []byte("1"), time.Second))
	require.NoError(t, c.Set(ctx, "long", []byte("2"), time.Hour))
	require.NoError(t, c.Set(ctx, "forever", []byte("3"), 0))

	clock.Advance(time.Minute)

	assert.Equal(t, 1, c.EvictExpired())
	assert.Equal(t, 2, c.Stats().Items)

	ok, err := c.Has(ctx, "long")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryCache_SweepRunsInBackground(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(MemoryCacheConfig{SweepInterval: 20 * time.Millisecond}, zap.NewNop())
	defer c.Destroy()

	require.NoError(t, c.Set(ctx, "written-once", []byte("v"), 10*time.Millisecond))
	c.Start()
	assert.True(t, c.Running())

	// Stats never evicts, so only the sweep can bring the count to zero.
	require.Eventually(t, func() bool {
		return c.Stats().Items == 0
	}, time.Second, 10*time.Millisecond)
}

func TestMemoryCache_StartStopLifecycle(t *testing.T) {
	c := NewMemoryCache(MemoryCacheConfig{SweepInterval: time.Millisecond}, zap.NewNop())

	c.Start()
	c.Start() // idempotent
	assert.True(t, c.Running())

	c.Stop()
	assert.False(t, c.Running())
	c.Stop() // idempotent

	c.Start()
	assert.True(t, c.Running())
	c.Destroy()
	assert.False(t, c.Running())
}

func TestMemoryCache_DestroyReleasesEntries(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(MemoryCacheConfig{}, zap.NewNop())
	require.NoError(t, c.Set(ctx, "k", []byte("v"), 0))
	c.Start()

	c.Destroy()

	assert.Equal(t, 0, c.Stats().Items)
	_, _, err := c.Get(ctx, "k")
	assert.True(t, errors.Is(err, ErrClosed))
	assert.True(t, apperrors.IsCache(err))
	assert.Error(t, c.Set(ctx, "k", []byte("v"), 0))
}

func TestMemoryCache_DeletePatternSelectivity(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	for _, key := range []string{"user:1", "user:2", "order:1"} {
		require.NoError(t, c.Set(ctx, key, []byte(key), 0))
	}

	require.NoError(t, c.DeletePattern(ctx, "user:*"))

	for key, want := range map[string]bool{"user:1": false, "user:2": false, "order:1": true} {
		ok, err := c.Has(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, want, ok, key)
	}
}

func TestMemoryCache_DeletePatternNoMatchIsNoop(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)
	require.NoError(t, c.Set(ctx, "order:1", []byte("1"), 0))

	require.NoError(t, c.DeletePattern(ctx, "user:*"))
	require.NoError(t, c.DeletePattern(ctx, "order:2"))

	assert.Equal(t, 1, c.Stats().Items)
}

func TestMemoryCache_DeletePatternLiteral(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)
	require.NoError(t, c.Set(ctx, "order:1", []byte("1"), 0))
	require.NoError(t, c.Set(ctx, "order:10", []byte("10"), 0))

	require.NoError(t, c.DeletePattern(ctx, "order:1"))

	ok, err := c.Has(ctx, "order:10")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, c.Stats().Items)
}

func TestMemoryCache_DeletePatternInvalidFailsFast(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)
	require.NoError(t, c.Set(ctx, "a:b", []byte("1"), 0))

	err := c.DeletePattern(ctx, "a:*:*")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidPattern))
	assert.Equal(t, 1, c.Stats().Items)
}

func TestMemoryCache_ScenarioBasics(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	require.NoError(t, c.Clear(ctx))

	ok, err := c.Has(ctx, "nonexistent")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, SetJSON(ctx, c, "x", map[string]string{"foo": "bar"}, 0))
	got, found, err := GetJSON[map[string]string](ctx, c, "x")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, map[string]string{"foo": "bar"}, got)
}

func TestMemoryCache_DeleteAbsentKey(t *testing.T) {
	c := newTestCache(t)
	assert.NoError(t, c.Delete(context.Background(), "missing"))
}

func TestMemoryCache_ClearRemovesEverything(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)
	for i := 0; i < 10; i++ {
		require.NoError(t, c.Set(ctx, fmt.Sprintf("k%d", i), []byte("v"), time.Hour))
	}

	require.NoError(t, c.Clear(ctx))

	stats := c.Stats()
	assert.Equal(t, 0, stats.Items)
	assert.Equal(t, int64(0), stats.Size)
}

func TestMemoryCache_ValuesAreCopied(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	original := []byte("value")
	require.NoError(t, c.Set(ctx, "k", original, 0))
	original[0] = 'X'

	got, _, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("value"), got)

	got[0] = 'Y'
	again, _, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("value"), again)
}

func TestMemoryCache_OverwriteResetsTTL(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	c := newTestCache(t, WithClock(clock.Now))

	require.NoError(t, c.Set(ctx, "k", []byte("1"), time.Second))
	require.NoError(t, c.Set(ctx, "k", []byte("2"), 0))
	clock.Advance(time.Hour)

	got, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("2"), got)
}

func TestMemoryCache_LRUEviction(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(MemoryCacheConfig{MaxItems: 2}, zap.NewNop())
	defer c.Destroy()

	require.NoError(t, c.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, c.Set(ctx, "b", []byte("2"), 0))

	// Promote "a"
	_, _, err := c.Get(ctx, "a")
	require.NoError(t, err)

	require.NoError(t, c.Set(ctx, "c", []byte("3"), 0))

	ok, err := c.Has(ctx, "b")
	require.NoError(t, err)
	assert.False(t, ok, "expected b to be evicted")

	ok, err = c.Has(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(1), c.Stats().Evictions)
}

func TestMemoryCache_MaxMemorySkipsOversizedItem(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(MemoryCacheConfig{MaxMemory: 8}, zap.NewNop())
	defer c.Destroy()

	require.NoError(t, c.Set(ctx, "k", []byte("ok"), 0))
	require.NoError(t, c.Set(ctx, "k", []byte("much too large"), 0))

	ok, err := c.Has(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok, "an oversized overwrite must not leave the old value behind")
}

func TestMemoryCache_Stats(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 0))
	_, _, _ = c.Get(ctx, "k")
	_, _, _ = c.Get(ctx, "missing")

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.InDelta(t, 0.5, stats.HitRate, 0.0001)
	assert.Equal(t, int64(len("k")+len("v")), stats.Size)
}

func TestMemoryCache_Concurrent(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(MemoryCacheConfig{MaxItems: 50, SweepInterval: time.Millisecond}, zap.NewNop())
	c.Start()
	defer c.Destroy()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				key := fmt.Sprintf("k:%d:%d", worker, i%20)
				_ = c.Set(ctx, key, []byte("v"), time.Millisecond)
				_, _, _ = c.Get(ctx, key)
				if i%50 == 0 {
					_ = c.DeletePattern(ctx, fmt.Sprintf("k:%d:*", worker))
				}
			}
		}(w)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Stats().Items, 50)
}
