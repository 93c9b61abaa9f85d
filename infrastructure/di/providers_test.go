package di

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"filing-backend/infrastructure/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig() *config.Config {
	cfg := config.Defaults()
	cfg.LogLevel = "error"
	cfg.EnableMetrics = true
	return cfg
}

func TestInitializeContainer_MemoryDefaults(t *testing.T) {
	ctx := context.Background()
	container, err := InitializeContainer(ctx, testConfig())
	require.NoError(t, err)
	defer container.Shutdown(ctx)

	require.NotNil(t, container.Cache.Memory)
	assert.Same(t, container.Cache.Memory, container.Cache.Cache)
	assert.Nil(t, container.Tracing)

	ttl, relationsTTL := container.Repository.TTLs()
	assert.Equal(t, container.Config.Cache.TTL, ttl)
	assert.Equal(t, container.Config.Cache.RelationsTTL, relationsTTL)

	rec := httptest.NewRecorder()
	container.Router.Setup().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "filing_memory_cache_")
}

func TestProvideCacheRuntime_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Cache.Provider = config.CacheProviderNone

	rt, err := ProvideCacheRuntime(cfg, ProvideMetrics(), zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, rt.Cache)
	assert.NoError(t, rt.Close())

	// The repository must still see a nil cache, not a typed nil
	repo := ProvideOrderRepository(nil, rt, cfg, zap.NewNop(), nil)
	assert.NotNil(t, repo)
}

func TestProvideCacheRuntime_RedisWithBreaker(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig()
	cfg.Cache.Provider = config.CacheProviderRedis
	cfg.Cache.Redis.Addr = mr.Addr()

	rt, err := ProvideCacheRuntime(cfg, ProvideMetrics(), zap.NewNop())
	require.NoError(t, err)
	defer rt.Close()

	require.NotNil(t, rt.Redis)
	require.NotNil(t, rt.Breaker)
	assert.Same(t, rt.Breaker, rt.Cache)

	ctx := context.Background()
	require.NoError(t, rt.Cache.Set(ctx, "k", []byte("v"), 0))
	assert.True(t, mr.Exists("filing:k"))

	router := ProvideRouter(cfg, nil, nil, rt, zap.NewNop()).Setup()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy","dependencies":{"redis":"healthy"}}`, rec.Body.String())

	mr.Close()
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestProvideLogger_InvalidLevel(t *testing.T) {
	cfg := testConfig()
	cfg.LogLevel = "loud"

	_, err := ProvideLogger(cfg)
	assert.Error(t, err)
}
