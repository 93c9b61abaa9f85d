// Package cache implements the cache-aside order repository: reads are
// served from the cache when possible and populated from the store on a
// miss, writes commit to the store first and then invalidate every key
// derived from the written order.
package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"filing-backend/application/ports"
	"filing-backend/domain/core/entities"
	infracache "filing-backend/infrastructure/cache"
	"filing-backend/pkg/observability"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const tracerName = "filing-backend/persistence/cache"

// Config controls caching behavior
type Config struct {
	// TTL bounds entries for single-record and listing lookups.
	TTL time.Duration
	// RelationsTTL bounds the heavier with-relations entries.
	RelationsTTL time.Duration
	// PopulateGuard rejects populates that raced with a write. Without it
	// only the TTL bounds how long such a stale entry can live.
	PopulateGuard bool
}

// DefaultConfig returns the defaults used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		TTL:           60 * time.Second,
		RelationsTTL:  30 * time.Second,
		PopulateGuard: true,
	}
}

// CachingOrderRepository decorates an OrderStore with cache-aside reads and
// write-path invalidation. It is safe for concurrent use and behaves exactly
// like the store, only slower, when constructed without a cache.
type CachingOrderRepository struct {
	store   ports.OrderStore
	cache   ports.Cache
	keys    KeyScheme
	guard   *populateGuard
	flight  singleflight.Group
	metrics *observability.Collector
	logger  *zap.Logger
	tracer  trace.Tracer
	now     func() time.Time

	ttl          atomic.Int64
	relationsTTL atomic.Int64
}

// NewCachingOrderRepository creates the repository. cache and metrics may be nil.
func NewCachingOrderRepository(
	store ports.OrderStore,
	cache ports.Cache,
	config Config,
	logger *zap.Logger,
	metrics *observability.Collector,
) *CachingOrderRepository {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &CachingOrderRepository{
		store:   store,
		cache:   cache,
		keys:    NewKeyScheme(RepositoryName),
		metrics: metrics,
		logger:  logger.Named("order_repository"),
		tracer:  otel.Tracer(tracerName),
		now:     time.Now,
	}
	if config.PopulateGuard {
		r.guard = newPopulateGuard()
	}
	r.SetTTLs(config.TTL, config.RelationsTTL)
	return r
}

// SetTTLs changes the populate TTLs for subsequent reads. Non-positive
// values fall back to the defaults so entries stay bounded.
func (r *CachingOrderRepository) SetTTLs(ttl, relationsTTL time.Duration) {
	defaults := DefaultConfig()
	if ttl <= 0 {
		ttl = defaults.TTL
	}
	if relationsTTL <= 0 {
		relationsTTL = defaults.RelationsTTL
	}
	r.ttl.Store(int64(ttl))
	r.relationsTTL.Store(int64(relationsTTL))
}

// TTLs returns the populate TTLs currently in effect.
func (r *CachingOrderRepository) TTLs() (time.Duration, time.Duration) {
	return time.Duration(r.ttl.Load()), time.Duration(r.relationsTTL.Load())
}

// Keys exposes the key scheme, mainly for tests and diagnostics.
func (r *CachingOrderRepository) Keys() KeyScheme {
	return r.keys
}

// FindByID returns the order with the given id.
func (r *CachingOrderRepository) FindByID(ctx context.Context, id string) (*entities.Order, error) {
	ctx, span := r.startSpan(ctx, "FindByID", attribute.String("order.id", id))
	defer span.End()

	order, err := readThrough(ctx, r, lookupPlan[*entities.Order]{
		lookup: DimensionID,
		key:    r.keys.ByID(id),
		ttl:    time.Duration(r.ttl.Load()),
		load: func(ctx context.Context) (*entities.Order, error) {
			return r.store.FindByID(ctx, id)
		},
		identities: orderIdentities,
		clone:      (*entities.Order).Clone,
	})
	return order, endSpan(span, err)
}

// FindByOrderNumber returns the order with the given order number.
func (r *CachingOrderRepository) FindByOrderNumber(ctx context.Context, orderNumber string) (*entities.Order, error) {
	ctx, span := r.startSpan(ctx, "FindByOrderNumber", attribute.String("order.number", orderNumber))
	defer span.End()

	order, err := readThrough(ctx, r, lookupPlan[*entities.Order]{
		lookup: DimensionOrderNumber,
		key:    r.keys.ByOrderNumber(orderNumber),
		ttl:    time.Duration(r.ttl.Load()),
		load: func(ctx context.Context) (*entities.Order, error) {
			return r.store.FindByOrderNumber(ctx, orderNumber)
		},
		identities: orderIdentities,
		clone:      (*entities.Order).Clone,
	})
	return order, endSpan(span, err)
}

// FindByIDWithRelations returns the order and its line items.
func (r *CachingOrderRepository) FindByIDWithRelations(ctx context.Context, id string) (*entities.OrderWithRelations, error) {
	ctx, span := r.startSpan(ctx, "FindByIDWithRelations", attribute.String("order.id", id))
	defer span.End()

	order, err := readThrough(ctx, r, lookupPlan[*entities.OrderWithRelations]{
		lookup: DimensionID + ":" + VariantWithRelations,
		key:    r.keys.ByIDWithRelations(id),
		ttl:    time.Duration(r.relationsTTL.Load()),
		load: func(ctx context.Context) (*entities.OrderWithRelations, error) {
			return r.store.FindByIDWithRelations(ctx, id)
		},
		identities: func(o *entities.OrderWithRelations) []string {
			return orderIdentities(o.Order)
		},
		clone: (*entities.OrderWithRelations).Clone,
	})
	return order, endSpan(span, err)
}

// FindByCustomer lists a customer's orders. An empty listing is absence and
// is never cached.
func (r *CachingOrderRepository) FindByCustomer(ctx context.Context, customerID string) ([]*entities.Order, error) {
	ctx, span := r.startSpan(ctx, "FindByCustomer", attribute.String("customer.id", customerID))
	defer span.End()

	orders, err := readThrough(ctx, r, lookupPlan[[]*entities.Order]{
		lookup: DimensionCustomer,
		key:    r.keys.ByCustomer(customerID),
		ttl:    time.Duration(r.ttl.Load()),
		load: func(ctx context.Context) ([]*entities.Order, error) {
			return r.store.FindByCustomer(ctx, customerID)
		},
		identities: func([]*entities.Order) []string {
			return []string{customerIdentity(customerID)}
		},
		clone:     cloneOrders,
		cacheable: func(orders []*entities.Order) bool { return len(orders) > 0 },
	})
	return orders, endSpan(span, err)
}

// Create persists a new order and invalidates its customer's listing.
func (r *CachingOrderRepository) Create(ctx context.Context, order *entities.Order, items []*entities.OrderItem) error {
	ctx, span := r.startSpan(ctx, "Create", attribute.String("order.id", order.ID))
	defer span.End()

	started := r.now()
	err := r.store.Create(ctx, order, items)
	r.metrics.ObserveStore("Create", started, err)
	if err != nil {
		return endSpan(span, err)
	}

	r.invalidate(ctx, order)
	return nil
}

// Update applies a patch, then invalidates every key derived from the
// committed order.
func (r *CachingOrderRepository) Update(ctx context.Context, id string, patch entities.OrderPatch) (*entities.Order, error) {
	ctx, span := r.startSpan(ctx, "Update", attribute.String("order.id", id))
	defer span.End()

	started := r.now()
	updated, err := r.store.Update(ctx, id, patch)
	r.metrics.ObserveStore("Update", started, err)
	if err != nil {
		return nil, endSpan(span, err)
	}

	r.invalidate(ctx, updated)
	return updated, nil
}

// UpdateStatus changes the fulfilment status.
func (r *CachingOrderRepository) UpdateStatus(ctx context.Context, id string, status entities.OrderStatus) (*entities.Order, error) {
	return r.Update(ctx, id, entities.OrderPatch{Status: &status})
}

// UpdatePaymentStatus changes the payment status.
func (r *CachingOrderRepository) UpdatePaymentStatus(ctx context.Context, id string, status entities.PaymentStatus) (*entities.Order, error) {
	return r.Update(ctx, id, entities.OrderPatch{PaymentStatus: &status})
}

// Delete removes the order and invalidates every key derived from it.
func (r *CachingOrderRepository) Delete(ctx context.Context, id string) error {
	ctx, span := r.startSpan(ctx, "Delete", attribute.String("order.id", id))
	defer span.End()

	started := r.now()
	deleted, err := r.store.Delete(ctx, id)
	r.metrics.ObserveStore("Delete", started, err)
	if err != nil {
		return endSpan(span, err)
	}

	r.invalidate(ctx, deleted)
	return nil
}

// invalidate runs after a committed write. Failures are logged at error
// level and never returned: the write itself succeeded.
func (r *CachingOrderRepository) invalidate(ctx context.Context, order *entities.Order) {
	r.guard.recordWrite(orderIdentity(order.ID), customerIdentity(order.CustomerID))

	keys := r.keys.OrderKeys(order)
	for _, key := range keys {
		r.flight.Forget(key)
	}

	if r.cache == nil {
		return
	}

	// The write is committed; a cancelled request must not skip invalidation.
	ctx = context.WithoutCancel(ctx)

	var (
		failed []string
		errs   []error
	)
	for _, key := range keys {
		if err := r.cache.Delete(ctx, key); err != nil {
			failed = append(failed, key)
			errs = append(errs, err)
		}
	}
	pattern := r.keys.VariantsPattern(order.ID)
	if err := r.cache.DeletePattern(ctx, pattern); err != nil {
		failed = append(failed, pattern)
		errs = append(errs, err)
	}

	if len(failed) == 0 {
		return
	}

	r.metrics.RecordInvalidationFailures(len(failed))
	trace.SpanFromContext(ctx).AddEvent("cache.invalidation_failed",
		trace.WithAttributes(attribute.StringSlice("cache.keys", failed)))
	r.logger.Error("Cache invalidation failed after committed write",
		zap.String("order_id", order.ID),
		zap.Strings("keys", failed),
		zap.Error(errors.Join(errs...)),
	)
}

// lookupPlan describes one cached lookup.
type lookupPlan[T any] struct {
	lookup     string
	key        string
	ttl        time.Duration
	load       func(context.Context) (T, error)
	identities func(T) []string
	clone      func(T) T
	// cacheable filters values that must not be cached; nil caches all.
	cacheable func(T) bool
}

// readThrough is the cache-aside read path: hit returns the cached copy,
// miss loads from the store and populates. Cache failures degrade to a miss;
// store failures are returned unchanged.
func readThrough[T any](ctx context.Context, r *CachingOrderRepository, plan lookupPlan[T]) (T, error) {
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(attribute.String("cache.key", plan.key))

	if r.cache == nil {
		return timedLoad(ctx, r, plan)
	}

	cached, found, err := infracache.GetJSON[T](ctx, r.cache, plan.key)
	switch {
	case err != nil:
		r.metrics.RecordCacheLookup(plan.lookup, observability.ResultError)
		r.logger.Warn("Cache read failed, falling back to store",
			zap.String("key", plan.key),
			zap.Error(err),
		)
	case found:
		r.metrics.RecordCacheLookup(plan.lookup, observability.ResultHit)
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return cached, nil
	default:
		r.metrics.RecordCacheLookup(plan.lookup, observability.ResultMiss)
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	v, err, shared := r.flight.Do(plan.key, func() (interface{}, error) {
		snapshot := r.guard.begin()
		defer r.guard.end(snapshot)

		value, err := timedLoad(ctx, r, plan)
		if err != nil {
			return value, err
		}
		populate(ctx, r, plan, value, snapshot)
		return value, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}

	value := v.(T)
	if shared {
		value = plan.clone(value)
	}
	return value, nil
}

func timedLoad[T any](ctx context.Context, r *CachingOrderRepository, plan lookupPlan[T]) (T, error) {
	started := r.now()
	value, err := plan.load(ctx)
	r.metrics.ObserveStore(plan.lookup, started, err)
	return value, err
}

// populate stores a freshly loaded value unless a write to the same
// identity raced with the load. The guard is checked again after Set: a
// write landing between the first check and Set may have invalidated
// before the entry existed.
func populate[T any](ctx context.Context, r *CachingOrderRepository, plan lookupPlan[T], value T, snapshot uint64) {
	if plan.cacheable != nil && !plan.cacheable(value) {
		return
	}

	identities := plan.identities(value)
	if !r.guard.allowed(snapshot, identities...) {
		r.metrics.RecordCachePopulate(plan.lookup, observability.PopulateSkipped)
		r.logger.Debug("Skipped cache populate after concurrent write", zap.String("key", plan.key))
		return
	}

	if err := infracache.SetJSON(ctx, r.cache, plan.key, value, plan.ttl); err != nil {
		r.metrics.RecordCachePopulate(plan.lookup, observability.PopulateFailed)
		r.logger.Warn("Cache populate failed",
			zap.String("key", plan.key),
			zap.Error(err),
		)
		return
	}

	if !r.guard.allowed(snapshot, identities...) {
		if err := r.cache.Delete(context.WithoutCancel(ctx), plan.key); err != nil {
			r.logger.Error("Failed to retract stale cache populate",
				zap.String("key", plan.key),
				zap.Error(err),
			)
		}
		r.metrics.RecordCachePopulate(plan.lookup, observability.PopulateSkipped)
		return
	}
	r.metrics.RecordCachePopulate(plan.lookup, observability.PopulateStored)
}

func (r *CachingOrderRepository) startSpan(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return r.tracer.Start(ctx, RepositoryName+"."+op, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) error {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func orderIdentities(o *entities.Order) []string {
	return []string{orderIdentity(o.ID)}
}

func cloneOrders(orders []*entities.Order) []*entities.Order {
	out := make([]*entities.Order, len(orders))
	for i, o := range orders {
		out[i] = o.Clone()
	}
	return out
}

var _ ports.OrderRepository = (*CachingOrderRepository)(nil)
