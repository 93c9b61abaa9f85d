package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"filing-backend/application/ports/mocks"
	apperrors "filing-backend/pkg/errors"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newBreakerFixture(t *testing.T) (*BreakerCache, *mocks.FaultyCache) {
	t.Helper()
	mem := NewMemoryCache(MemoryCacheConfig{}, zap.NewNop())
	t.Cleanup(mem.Destroy)

	faulty := mocks.NewFaultyCache(mem)
	config := DefaultBreakerConfig("test-cache")
	config.MinRequests = 3
	config.Timeout = time.Hour
	return NewBreakerCache(faulty, config, zap.NewNop()), faulty
}

func TestBreakerCache_PassesThrough(t *testing.T) {
	ctx := context.Background()
	b, _ := newBreakerFixture(t)

	require.NoError(t, b.Set(ctx, "k", []byte("v"), 0))

	val, ok, err := b.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v"), val)

	has, err := b.Has(ctx, "k")
	require.NoError(t, err)
	assert.True(t, has)

	require.NoError(t, b.DeletePattern(ctx, "k*"))
	has, err = b.Has(ctx, "k")
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, b.Delete(ctx, "k"))
	require.NoError(t, b.Clear(ctx))
	assert.Equal(t, gobreaker.StateClosed, b.State())
}

func TestBreakerCache_TripsAndShortCircuits(t *testing.T) {
	ctx := context.Background()
	b, faulty := newBreakerFixture(t)

	backendDown := apperrors.NewCacheError("get", errors.New("connection refused"))
	faulty.SetError("Get", backendDown)

	for i := 0; i < 3; i++ {
		_, _, err := b.Get(ctx, "k")
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, b.State())

	_, _, err := b.Get(ctx, "k")
	require.Error(t, err)
	assert.True(t, errors.Is(err, gobreaker.ErrOpenState))
	assert.True(t, apperrors.IsCache(err))
	assert.Equal(t, 3, faulty.Calls("Get"), "an open breaker must not reach the backend")
}

func TestBreakerCache_InvalidPatternDoesNotTrip(t *testing.T) {
	ctx := context.Background()
	b, _ := newBreakerFixture(t)

	for i := 0; i < 5; i++ {
		err := b.DeletePattern(ctx, "a*b*")
		require.Error(t, err)
		assert.True(t, errors.Is(err, apperrors.ErrInvalidPattern))
	}
	assert.Equal(t, gobreaker.StateClosed, b.State())
}

func TestBreakerCache_InvalidationReachesBackendWhileOpen(t *testing.T) {
	ctx := context.Background()
	b, faulty := newBreakerFixture(t)

	require.NoError(t, b.Set(ctx, "order:1", []byte("stale"), 0))
	require.NoError(t, b.Set(ctx, "order:1:full", []byte("stale"), 0))

	faulty.SetError("Get", apperrors.NewCacheError("get", errors.New("connection refused")))
	for i := 0; i < 3; i++ {
		_, _, _ = b.Get(ctx, "k")
	}
	require.Equal(t, gobreaker.StateOpen, b.State())
	faulty.ClearErrors()

	require.NoError(t, b.Delete(ctx, "order:1"))
	require.NoError(t, b.DeletePattern(ctx, "order:1:*"))
	assert.Equal(t, 1, faulty.Calls("Delete"))
	assert.Equal(t, 1, faulty.Calls("DeletePattern"))

	has, err := faulty.Has(ctx, "order:1")
	require.NoError(t, err)
	assert.False(t, has)
	has, err = faulty.Has(ctx, "order:1:full")
	require.NoError(t, err)
	assert.False(t, has)

	// Still open for reads.
	_, _, err = b.Get(ctx, "order:1")
	assert.True(t, errors.Is(err, gobreaker.ErrOpenState))
}

func TestBreakerCache_InvalidationErrorSurfacesWhileOpen(t *testing.T) {
	ctx := context.Background()
	b, faulty := newBreakerFixture(t)

	backendDown := apperrors.NewCacheError("get", errors.New("connection refused"))
	faulty.SetError("Get", backendDown)
	for i := 0; i < 3; i++ {
		_, _, _ = b.Get(ctx, "k")
	}
	require.Equal(t, gobreaker.StateOpen, b.State())

	faulty.SetError("Delete", backendDown)
	err := b.Delete(ctx, "k")
	require.Error(t, err)
	assert.True(t, apperrors.IsCache(err))
	assert.Equal(t, 1, faulty.Calls("Delete"))
}
