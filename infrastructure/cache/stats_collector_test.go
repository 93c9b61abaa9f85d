package cache

import (
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestStatsCollector(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(MemoryCacheConfig{}, zap.NewNop())
	defer c.Destroy()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 0))
	_, _, _ = c.Get(ctx, "k")
	_, _, _ = c.Get(ctx, "missing")

	collector := NewStatsCollector("test", c)

	expected := `
# HELP test_memory_cache_items Entries currently held
# TYPE test_memory_cache_items gauge
test_memory_cache_items 1
# HELP test_memory_cache_hits_total Memory cache hits
# TYPE test_memory_cache_hits_total counter
test_memory_cache_hits_total 1
`
	err := testutil.CollectAndCompare(collector, strings.NewReader(expected),
		"test_memory_cache_items", "test_memory_cache_hits_total")
	require.NoError(t, err)
	assert.Equal(t, 6, testutil.CollectAndCount(collector))
}
