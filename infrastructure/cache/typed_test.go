package cache

import (
	"context"
	"testing"

	apperrors "filing-backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type sample struct {
	Name  string   `json:"name"`
	Count int      `json:"count"`
	Tags  []string `json:"tags"`
}

func TestTypedHelpers_RoundTrip(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(MemoryCacheConfig{}, zap.NewNop())
	defer c.Destroy()

	in := sample{Name: "order", Count: 3, Tags: []string{"a", "b"}}
	require.NoError(t, SetJSON(ctx, c, "s", in, 0))

	out, found, err := GetJSON[sample](ctx, c, "s")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, in, out)
}

func TestTypedHelpers_Miss(t *testing.T) {
	c := NewMemoryCache(MemoryCacheConfig{}, zap.NewNop())
	defer c.Destroy()

	out, found, err := GetJSON[sample](context.Background(), c, "missing")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Zero(t, out)
}

func TestTypedHelpers_CorruptValueIsCacheError(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(MemoryCacheConfig{}, zap.NewNop())
	defer c.Destroy()

	require.NoError(t, c.Set(ctx, "bad", []byte("{not json"), 0))

	_, found, err := GetJSON[sample](ctx, c, "bad")
	require.Error(t, err)
	assert.False(t, found)
	assert.True(t, apperrors.IsCache(err))
}

func TestTypedHelpers_UnencodableValue(t *testing.T) {
	c := NewMemoryCache(MemoryCacheConfig{}, zap.NewNop())
	defer c.Destroy()

	err := SetJSON(context.Background(), c, "ch", make(chan int), 0)
	require.Error(t, err)
	assert.True(t, apperrors.IsCache(err))
}
