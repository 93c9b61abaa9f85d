package di

import (
	"context"
	"errors"

	"filing-backend/application/ports"
	"filing-backend/application/services"
	"filing-backend/infrastructure/config"
	persistencecache "filing-backend/infrastructure/persistence/cache"
	"filing-backend/interfaces/http/rest"
	"filing-backend/pkg/observability"

	"go.uber.org/zap"
)

// Container holds all application dependencies
type Container struct {
	Config     *config.Config
	Logger     *zap.Logger
	Metrics    *observability.Collector
	Tracing    *observability.TracerProvider
	Store      ports.OrderStore
	Cache      *CacheRuntime
	Repository *persistencecache.CachingOrderRepository
	Orders     *services.OrderService
	Router     *rest.Router
}

// Shutdown releases the cache backends and flushes tracing. The logger is
// synced last.
func (c *Container) Shutdown(ctx context.Context) error {
	var errs []error
	if err := c.Cache.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Tracing.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	_ = c.Logger.Sync()
	return errors.Join(errs...)
}
