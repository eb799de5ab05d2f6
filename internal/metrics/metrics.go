// Package metrics exposes the Prometheus metrics of the index stage.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "hubscope"

// Metrics holds the index stage counters.
type Metrics struct {
	EventsProcessed *prometheus.CounterVec
	EventFailures   *prometheus.CounterVec
	TicksCrossed    prometheus.Counter
	OrdersSettled   prometheus.Counter
	FeeRefreshes    *prometheus.CounterVec
	BatchSize       prometheus.Histogram
	LastBlock       prometheus.Gauge

	gatherer prometheus.Gatherer
}

// New registers the metrics on reg. A nil reg gets a private registry, which
// keeps repeated construction in tests from colliding.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		EventsProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "index",
			Name:      "events_processed_total",
			Help:      "Events applied to the entity store, by event name",
		}, []string{"event"}),
		EventFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "index",
			Name:      "event_failures_total",
			Help:      "Events whose changes were discarded, by event name and reason",
		}, []string{"event", "reason"}),
		TicksCrossed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ticks",
			Name:      "crossed_total",
			Help:      "Initialized ticks crossed by swaps",
		}),
		OrdersSettled: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ticks",
			Name:      "limit_orders_settled_total",
			Help:      "Limit order ticks settled while crossing",
		}),
		FeeRefreshes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ticks",
			Name:      "fee_refreshes_total",
			Help:      "Tick fee growth refreshes, performed or skipped once the budget ran out",
		}, []string{"result"}),
		BatchSize: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "batch_ops",
			Help:      "Entity writes per committed event",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
		LastBlock: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "index",
			Name:      "last_block",
			Help:      "Block number of the last committed event",
		}),
		gatherer: reg,
	}
}

// RecordRefresh counts the outcome of one tick save pass.
func (m *Metrics) RecordRefresh(refreshed, skipped int) {
	m.FeeRefreshes.WithLabelValues("refreshed").Add(float64(refreshed))
	m.FeeRefreshes.WithLabelValues("skipped").Add(float64(skipped))
}

// Handler serves the metrics registered by New.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
