package cache

import (
	"github.com/prometheus/client_golang/prometheus"
)

// StatsCollector exports MemoryCache.Stats as Prometheus metrics, read at
// scrape time.
type StatsCollector struct {
	cache *MemoryCache

	hits        *prometheus.Desc
	misses      *prometheus.Desc
	evictions   *prometheus.Desc
	expirations *prometheus.Desc
	items       *prometheus.Desc
	size        *prometheus.Desc
}

// NewStatsCollector describes the memory cache metrics under namespace.
func NewStatsCollector(namespace string, c *MemoryCache) *StatsCollector {
	name := func(n string) string {
		return prometheus.BuildFQName(namespace, "memory_cache", n)
	}
	return &StatsCollector{
		cache:       c,
		hits:        prometheus.NewDesc(name("hits_total"), "Memory cache hits", nil, nil),
		misses:      prometheus.NewDesc(name("misses_total"), "Memory cache misses", nil, nil),
		evictions:   prometheus.NewDesc(name("evictions_total"), "Entries evicted to respect size bounds", nil, nil),
		expirations: prometheus.NewDesc(name("expirations_total"), "Entries removed after their TTL passed", nil, nil),
		items:       prometheus.NewDesc(name("items"), "Entries currently held", nil, nil),
		size:        prometheus.NewDesc(name("size_bytes"), "Approximate bytes held by keys and values", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (s *StatsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- s.hits
	ch <- s.misses
	ch <- s.evictions
	ch <- s.expirations
	ch <- s.items
	ch <- s.size
}

// Collect implements prometheus.Collector.
func (s *StatsCollector) Collect(ch chan<- prometheus.Metric) {
	stats := s.cache.Stats()
	ch <- prometheus.MustNewConstMetric(s.hits, prometheus.CounterValue, float64(stats.Hits))
	ch <- prometheus.MustNewConstMetric(s.misses, prometheus.CounterValue, float64(stats.Misses))
	ch <- prometheus.MustNewConstMetric(s.evictions, prometheus.CounterValue, float64(stats.Evictions))
	ch <- prometheus.MustNewConstMetric(s.expirations, prometheus.CounterValue, float64(stats.Expirations))
	ch <- prometheus.MustNewConstMetric(s.items, prometheus.GaugeValue, float64(stats.Items))
	ch <- prometheus.MustNewConstMetric(s.size, prometheus.GaugeValue, float64(stats.Size))
}

var _ prometheus.Collector = (*StatsCollector)(nil)
