// Package observability wires Prometheus metrics and OpenTelemetry tracing
// for the order API and its cache-aside repository.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Lookup results recorded on the cache lookups counter.
const (
	ResultHit   = "hit"
	ResultMiss  = "miss"
	ResultError = "error"
)

// Populate outcomes recorded on the cache populates counter.
const (
	PopulateStored  = "stored"
	PopulateSkipped = "skipped"
	PopulateFailed  = "failed"
)

// Collector holds all Prometheus metrics for the application. A nil
// *Collector is valid and records nothing.
type Collector struct {
	// Registry for this collector instance
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Repository metrics
	StoreOperations *prometheus.CounterVec
	StoreDuration   *prometheus.HistogramVec

	// Cache metrics
	CacheLookups         *prometheus.CounterVec
	CachePopulates       *prometheus.CounterVec
	InvalidationFailures prometheus.Counter
}

// NewCollector creates a new metrics collector with its own registry.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	httpRequests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	storeOperations := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_operations_total",
			Help:      "Total number of backing store operations",
		},
		[]string{"operation", "status"},
	)

	storeDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_operation_duration_seconds",
			Help:      "Backing store operation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	cacheLookups := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Cache lookups by dimension and result",
		},
		[]string{"lookup", "result"},
	)

	cachePopulates := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_populates_total",
			Help:      "Cache populations after a miss by dimension and outcome",
		},
		[]string{"lookup", "outcome"},
	)

	invalidationFailures := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_invalidation_failures_total",
			Help:      "Cache keys that could not be invalidated after a committed write",
		},
	)

	registry.MustRegister(
		httpRequests,
		httpDuration,
		storeOperations,
		storeDuration,
		cacheLookups,
		cachePopulates,
		invalidationFailures,
	)

	return &Collector{
		registry:             registry,
		HTTPRequests:         httpRequests,
		HTTPDuration:         httpDuration,
		StoreOperations:      storeOperations,
		StoreDuration:        storeDuration,
		CacheLookups:         cacheLookups,
		CachePopulates:       cachePopulates,
		InvalidationFailures: invalidationFailures,
	}
}

// Register adds extra collectors, such as cache statistics, to the registry.
func (c *Collector) Register(collectors ...prometheus.Collector) error {
	if c == nil {
		return nil
	}
	for _, col := range collectors {
		if err := c.registry.Register(col); err != nil {
			return err
		}
	}
	return nil
}

// RecordCacheLookup counts a cache read for the given lookup dimension.
func (c *Collector) RecordCacheLookup(lookup, result string) {
	if c == nil {
		return
	}
	c.CacheLookups.WithLabelValues(lookup, result).Inc()
}

// RecordCachePopulate counts what happened to a value read after a miss.
func (c *Collector) RecordCachePopulate(lookup, outcome string) {
	if c == nil {
		return
	}
	c.CachePopulates.WithLabelValues(lookup, outcome).Inc()
}

// RecordInvalidationFailures adds n keys that failed to invalidate.
func (c *Collector) RecordInvalidationFailures(n int) {
	if c == nil || n <= 0 {
		return
	}
	c.InvalidationFailures.Add(float64(n))
}

// ObserveStore records the outcome and latency of a backing store call.
func (c *Collector) ObserveStore(operation string, started time.Time, err error) {
	if c == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	c.StoreOperations.WithLabelValues(operation, status).Inc()
	c.StoreDuration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

// GetRegistry returns the Prometheus registry for this collector
func (c *Collector) GetRegistry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
