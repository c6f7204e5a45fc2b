package redis

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Redis operation, cache and rate limiter metrics.
type Metrics struct {
	operationDuration *prometheus.HistogramVec
	operationErrors   *prometheus.CounterVec
	cacheLookups      *prometheus.CounterVec
	rateLimitDecision *prometheus.CounterVec
}

// DefaultMetrics is registered with the default Prometheus registry.
var DefaultMetrics = NewMetrics("scanledger", prometheus.DefaultRegisterer)

// NewMetrics registers the Redis metrics with reg under namespace.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		operationDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "redis",
			Name:      "operation_duration_seconds",
			Help:      "Duration of Redis operations in seconds",
			Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"operation"}),
		operationErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "redis",
			Name:      "operation_errors_total",
			Help:      "Total number of failed Redis operations",
		}, []string{"operation"}),
		cacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "redis",
			Name:      "cache_lookups_total",
			Help:      "Cache key lookups by result",
		}, []string{"cache", "result"}),
		rateLimitDecision: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "redis",
			Name:      "ratelimit_decisions_total",
			Help:      "Rate limiter decisions by result",
		}, []string{"limiter", "result"}),
	}
}

// ObserveOperation records the duration and outcome of one operation.
func (m *Metrics) ObserveOperation(operation string, d time.Duration, err error) {
	m.operationDuration.WithLabelValues(operation).Observe(d.Seconds())
	if err != nil {
		m.operationErrors.WithLabelValues(operation).Inc()
	}
}

// RecordCacheLookups adds hits and misses for one batched lookup.
func (m *Metrics) RecordCacheLookups(cache string, hits, misses int) {
	m.cacheLookups.WithLabelValues(cache, "hit").Add(float64(hits))
	m.cacheLookups.WithLabelValues(cache, "miss").Add(float64(misses))
}

// RecordRateLimit records one limiter decision.
func (m *Metrics) RecordRateLimit(limiter string, allowed bool) {
	result := "denied"
	if allowed {
		result = "allowed"
	}
	m.rateLimitDecision.WithLabelValues(limiter, result).Inc()
}

// poolCollector reads the connection pool statistics at scrape time.
type poolCollector struct {
	client   *Client
	hits     *prometheus.Desc
	misses   *prometheus.Desc
	timeouts *prometheus.Desc
	total    *prometheus.Desc
	idle     *prometheus.Desc
	stale    *prometheus.Desc
}

// NewPoolCollector exposes client's pool statistics as
// namespace_redis_pool_* metrics. Register it once per client.
func NewPoolCollector(namespace string, client *Client) prometheus.Collector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "redis", name), help, nil, nil)
	}
	return &poolCollector{
		client:   client,
		hits:     desc("pool_hits_total", "Times a free connection was found in the pool"),
		misses:   desc("pool_misses_total", "Times a free connection was not found in the pool"),
		timeouts: desc("pool_timeouts_total", "Times a wait for a connection timed out"),
		total:    desc("pool_connections", "Connections currently in the pool"),
		idle:     desc("pool_idle_connections", "Idle connections in the pool"),
		stale:    desc("pool_stale_connections_total", "Stale connections removed from the pool"),
	}
}

func (c *poolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.hits
	ch <- c.misses
	ch <- c.timeouts
	ch <- c.total
	ch <- c.idle
	ch <- c.stale
}

func (c *poolCollector) Collect(ch chan<- prometheus.Metric) {
	stats := c.client.PoolStats()
	if stats == nil {
		return
	}
	ch <- prometheus.MustNewConstMetric(c.hits, prometheus.CounterValue, float64(stats.Hits))
	ch <- prometheus.MustNewConstMetric(c.misses, prometheus.CounterValue, float64(stats.Misses))
	ch <- prometheus.MustNewConstMetric(c.timeouts, prometheus.CounterValue, float64(stats.Timeouts))
	ch <- prometheus.MustNewConstMetric(c.total, prometheus.GaugeValue, float64(stats.TotalConns))
	ch <- prometheus.MustNewConstMetric(c.idle, prometheus.GaugeValue, float64(stats.IdleConns))
	ch <- prometheus.MustNewConstMetric(c.stale, prometheus.CounterValue, float64(stats.StaleConns))
}
