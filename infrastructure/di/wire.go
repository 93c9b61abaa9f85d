//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"filing-backend/application/ports"
	"filing-backend/infrastructure/config"
	persistencecache "filing-backend/infrastructure/persistence/cache"

	"github.com/google/wire"
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideMetrics,
	ProvideTracerProvider,
	ProvideOrderStore,
	ProvideCacheRuntime,
	ProvideOrderRepository,
	wire.Bind(new(ports.OrderRepository), new(*persistencecache.CachingOrderRepository)),
	ProvideOrderService,
	ProvideRouter,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	wire.Build(SuperSet)
	return nil, nil // Wire will replace this
}
