package cache

import (
	"context"
	"errors"
	"time"

	"filing-backend/application/ports"
	apperrors "filing-backend/pkg/errors"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// BreakerConfig holds configuration for the cache circuit breaker
type BreakerConfig struct {
	Name        string
	MaxRequests uint32
	Interval    time.Duration
	Timeout     time.Duration
	// FailureThreshold is the failure ratio that trips the breaker once
	// MinRequests have been observed.
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultBreakerConfig returns defaults tuned for a remote cache: trip fast,
// retry again soon.
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:             name,
		MaxRequests:      3,
		Interval:         30 * time.Second,
		Timeout:          10 * time.Second,
		FailureThreshold: 0.5,
		MinRequests:      5,
	}
}

// BreakerCache guards another cache with a circuit breaker. While open,
// reads and populates fail immediately with a cache error, which the
// repository treats as a miss, so reads go straight to the store.
// Invalidations always reach the backend.
type BreakerCache struct {
	next   ports.Cache
	cb     *gobreaker.CircuitBreaker
	logger *zap.Logger
}

// NewBreakerCache wraps next.
func NewBreakerCache(next ports.Cache, config BreakerConfig, logger *zap.Logger) *BreakerCache {
	if logger == nil {
		logger = zap.NewNop()
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        config.Name,
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < config.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= config.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Cache circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		// A malformed pattern is the caller's fault, not the backend's.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, apperrors.ErrInvalidPattern)
		},
	})

	return &BreakerCache{next: next, cb: cb, logger: logger}
}

// State exposes the breaker state for health reporting.
func (b *BreakerCache) State() gobreaker.State {
	return b.cb.State()
}

func (b *BreakerCache) execute(op string, fn func() (interface{}, error)) (interface{}, error) {
	result, err := b.cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, apperrors.NewCacheError(op, err)
	}
	return result, err
}

type getResult struct {
	value []byte
	found bool
}

func (b *BreakerCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	res, err := b.execute("get", func() (interface{}, error) {
		v, ok, err := b.next.Get(ctx, key)
		return getResult{value: v, found: ok}, err
	})
	if err != nil {
		return nil, false, err
	}
	r := res.(getResult)
	return r.value, r.found, nil
}

func (b *BreakerCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_, err := b.execute("set", func() (interface{}, error) {
		return nil, b.next.Set(ctx, key, value, ttl)
	})
	return err
}

// remove runs an invalidation. Removals are never short-circuited: while
// the breaker rejects calls they go to the backend directly, so a recovered
// backend never keeps entries for writes committed during the outage.
func (b *BreakerCache) remove(op string, fn func() error) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		b.logger.Debug("Cache breaker rejected invalidation, sending to backend",
			zap.String("op", op),
			zap.String("state", b.cb.State().String()),
		)
		return fn()
	}
	return err
}

func (b *BreakerCache) Delete(ctx context.Context, key string) error {
	return b.remove("delete", func() error {
		return b.next.Delete(ctx, key)
	})
}

func (b *BreakerCache) DeletePattern(ctx context.Context, pattern string) error {
	return b.remove("delete_pattern", func() error {
		return b.next.DeletePattern(ctx, pattern)
	})
}

func (b *BreakerCache) Clear(ctx context.Context) error {
	return b.remove("clear", func() error {
		return b.next.Clear(ctx)
	})
}

func (b *BreakerCache) Has(ctx context.Context, key string) (bool, error) {
	res, err := b.execute("has", func() (interface{}, error) {
		return b.next.Has(ctx, key)
	})
	if err != nil {
		return false, err
	}
	return res.(bool), nil
}

var _ ports.Cache = (*BreakerCache)(nil)
