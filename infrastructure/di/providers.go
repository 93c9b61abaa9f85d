package di

import (
	"context"
	"fmt"

	"filing-backend/application/ports"
	"filing-backend/application/services"
	"filing-backend/infrastructure/cache"
	"filing-backend/infrastructure/config"
	persistencecache "filing-backend/infrastructure/persistence/cache"
	"filing-backend/infrastructure/persistence/dynamodb"
	"filing-backend/infrastructure/persistence/memory"
	"filing-backend/interfaces/http/rest"
	"filing-backend/pkg/observability"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const serviceName = "filing-backend"

// CacheRuntime is the cache the repository uses plus the concrete backends
// behind it, kept for lifecycle management and health checks. Cache is nil
// when caching is disabled.
type CacheRuntime struct {
	Cache   ports.Cache
	Memory  *cache.MemoryCache
	Redis   *cache.RedisCache
	Breaker *cache.BreakerCache
	client  redis.UniversalClient
}

// Start launches the memory cache sweep, if any.
func (rt *CacheRuntime) Start() {
	if rt.Memory != nil {
		rt.Memory.Start()
	}
}

// Close destroys the memory cache and closes the redis client.
func (rt *CacheRuntime) Close() error {
	if rt.Memory != nil {
		rt.Memory.Destroy()
	}
	if rt.client != nil {
		return rt.client.Close()
	}
	return nil
}

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.IsProduction() {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	if cfg.LogLevel != "" {
		level, err := zapcore.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
		}
		zapCfg.Level = zap.NewAtomicLevelAt(level)
	}

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.With(zap.String("service", serviceName)), nil
}

// ProvideMetrics creates the prometheus collector
func ProvideMetrics() *observability.Collector {
	return observability.NewCollector("filing")
}

// ProvideTracerProvider installs the OTLP tracer provider when tracing is
// enabled and returns nil otherwise.
func ProvideTracerProvider(ctx context.Context, cfg *config.Config) (*observability.TracerProvider, error) {
	if !cfg.EnableTracing {
		return nil, nil
	}
	return observability.InitTracing(ctx, observability.TracingConfig{
		ServiceName: serviceName,
		Environment: cfg.Environment,
		Endpoint:    cfg.OTLPEndpoint,
	})
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client
func ProvideDynamoDBClient(awsCfg aws.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg)
}

// ProvideOrderStore selects the backing store.
func ProvideOrderStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (ports.OrderStore, error) {
	switch cfg.Store.Provider {
	case config.StoreProviderDynamoDB:
		awsCfg, err := ProvideAWSConfig(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		return dynamodb.NewOrderStore(ProvideDynamoDBClient(awsCfg), dynamodb.Config{
			TableName:        cfg.Store.TableName,
			OrderNumberIndex: cfg.Store.OrderNumberIndex,
			CustomerIndex:    cfg.Store.CustomerIndex,
		}, logger), nil
	case config.StoreProviderMemory:
		logger.Warn("Using in-memory order store; data is lost on restart")
		return memory.NewOrderStore(), nil
	default:
		return nil, fmt.Errorf("unknown store provider %q", cfg.Store.Provider)
	}
}

// ProvideCacheRuntime builds the configured cache backend. The memory
// cache's statistics are registered with the collector; a redis backend is
// wrapped in a circuit breaker when enabled.
func ProvideCacheRuntime(cfg *config.Config, metrics *observability.Collector, logger *zap.Logger) (*CacheRuntime, error) {
	rt := &CacheRuntime{}
	cc := cfg.Cache

	switch cc.Provider {
	case config.CacheProviderNone:
		logger.Info("Order cache disabled")
		return rt, nil

	case config.CacheProviderMemory:
		rt.Memory = cache.NewMemoryCache(cache.MemoryCacheConfig{
			MaxItems:      cc.MaxItems,
			MaxMemory:     cc.MaxMemory,
			SweepInterval: cc.SweepInterval,
		}, logger)
		if err := metrics.Register(cache.NewStatsCollector("filing", rt.Memory)); err != nil {
			return nil, fmt.Errorf("failed to register cache stats: %w", err)
		}
		rt.Cache = rt.Memory

	case config.CacheProviderRedis:
		rt.client = redis.NewClient(&redis.Options{
			Addr:     cc.Redis.Addr,
			Password: cc.Redis.Password,
			DB:       cc.Redis.DB,
		})
		rt.Redis = cache.NewRedisCache(rt.client, logger, cache.WithPrefix(cc.Redis.Prefix))
		rt.Cache = rt.Redis

		if cc.Breaker.Enabled {
			breakerCfg := cache.DefaultBreakerConfig("order-cache")
			if cc.Breaker.FailureThreshold > 0 {
				breakerCfg.FailureThreshold = cc.Breaker.FailureThreshold
			}
			if cc.Breaker.MinRequests > 0 {
				breakerCfg.MinRequests = cc.Breaker.MinRequests
			}
			if cc.Breaker.Timeout > 0 {
				breakerCfg.Timeout = cc.Breaker.Timeout
			}
			rt.Breaker = cache.NewBreakerCache(rt.Redis, breakerCfg, logger)
			rt.Cache = rt.Breaker
		}

	default:
		return nil, fmt.Errorf("unknown cache provider %q", cc.Provider)
	}

	logger.Info("Order cache configured",
		zap.String("provider", cc.Provider),
		zap.Duration("ttl", cc.TTL),
		zap.Duration("relations_ttl", cc.RelationsTTL),
		zap.Bool("populate_guard", cc.PopulateGuard),
	)
	return rt, nil
}

// ProvideOrderRepository creates the cache-aside order repository
func ProvideOrderRepository(
	store ports.OrderStore,
	rt *CacheRuntime,
	cfg *config.Config,
	logger *zap.Logger,
	metrics *observability.Collector,
) *persistencecache.CachingOrderRepository {
	return persistencecache.NewCachingOrderRepository(store, rt.Cache, persistencecache.Config{
		TTL:           cfg.Cache.TTL,
		RelationsTTL:  cfg.Cache.RelationsTTL,
		PopulateGuard: cfg.Cache.PopulateGuard,
	}, logger, metrics)
}

// ProvideOrderService creates the order service
func ProvideOrderService(repo ports.OrderRepository, logger *zap.Logger) *services.OrderService {
	return services.NewOrderService(repo, logger)
}

// ProvideRouter creates the HTTP router
func ProvideRouter(
	cfg *config.Config,
	orders *services.OrderService,
	metrics *observability.Collector,
	rt *CacheRuntime,
	logger *zap.Logger,
) *rest.Router {
	checks := map[string]rest.Pinger{}
	if rt.Redis != nil {
		checks["redis"] = rt.Redis
	}

	var routeMetrics *observability.Collector
	if cfg.EnableMetrics {
		routeMetrics = metrics
	}
	return rest.NewRouter(orders, routeMetrics, checks, rest.RouterConfig{
		ServiceName:    serviceName,
		EnableCORS:     cfg.EnableCORS,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		EnableMetrics:  cfg.EnableMetrics,
		EnableTracing:  cfg.EnableTracing,
	}, logger)
}
