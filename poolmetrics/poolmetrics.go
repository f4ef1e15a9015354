// Package poolmetrics exposes a connpool.Pool's state as Prometheus
// metrics: population, backoff, and churn gauges/counters registered
// under a caller-supplied namespace.
package poolmetrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PoolStats mirrors connpool.Stats field-for-field so this package stays
// free of a dependency back on the root package; convert a connpool.Stats
// value with a plain type conversion, e.g. poolmetrics.PoolStats(pool.Stats()).
type PoolStats struct {
	TotalCount          int
	Available           int
	Active              int
	ChurnCount          int64
	ActiveHighWaterMark int64
	CurrentBackoff      time.Duration
	LastError           error
}

// Collector registers gauges/counters for a pool under namespace and
// refreshes them from a Stats snapshot on demand.
type Collector struct {
	totalCount     prometheus.Gauge
	available      prometheus.Gauge
	active         prometheus.Gauge
	churnTotal     prometheus.Counter
	highWaterMark  prometheus.Gauge
	backoffSeconds prometheus.Gauge
	openErrors     prometheus.Counter

	lastChurn int64
}

// NewCollector registers this pool's metrics under registry. If registry
// is nil, prometheus.DefaultRegisterer is used.
func NewCollector(namespace string, registry prometheus.Registerer) *Collector {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "connpool"
	}

	f := promauto.With(registry)
	return &Collector{
		totalCount: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections_total",
			Help:      "Current number of physical connections owned by the pool.",
		}),
		available: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections_available",
			Help:      "Connections currently sitting in the available queue.",
		}),
		active: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections_active",
			Help:      "Connections currently borrowed by a caller.",
		}),
		churnTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_churned_total",
			Help:      "Connections retired as invalid; retirements for exceeding the maximum lifetime are not counted.",
		}),
		highWaterMark: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_high_water_mark",
			Help:      "Peak active connection count since the last prune cycle.",
		}),
		backoffSeconds: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "opener_backoff_seconds",
			Help:      "Current backoff delay applied by the opener task after a failed open.",
		}),
		openErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "open_errors_total",
			Help:      "Observed snapshots that carried a last open error; one per Observe call, not one per failed open attempt.",
		}),
	}
}

// Observe refreshes all registered metrics from a snapshot. Callers
// typically call this on a timer or after every Borrow/Close.
func (c *Collector) Observe(s PoolStats) {
	c.totalCount.Set(float64(s.TotalCount))
	c.available.Set(float64(s.Available))
	c.active.Set(float64(s.Active))
	c.highWaterMark.Set(float64(s.ActiveHighWaterMark))
	c.backoffSeconds.Set(s.CurrentBackoff.Seconds())

	if s.ChurnCount > c.lastChurn {
		c.churnTotal.Add(float64(s.ChurnCount - c.lastChurn))
		c.lastChurn = s.ChurnCount
	}
	if s.LastError != nil {
		c.openErrors.Inc()
	}
}
