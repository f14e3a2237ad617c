package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the stream coordinator.
type Metrics struct {
	MessagesConsumed prometheus.Counter
	MessagesDropped  prometheus.Counter
	SnapshotRecords  *prometheus.CounterVec // labels: source={snapshot,today}
	FetchFailures    *prometheus.CounterVec // labels: source={snapshot,today,feed}
	CoordinatorState prometheus.Gauge

	// Derived view metrics.
	AggregateBuckets prometheus.Gauge
	ChartRebuild     prometheus.Histogram
	FieldNodes       prometheus.Gauge
	FieldAlpha       prometheus.Gauge

	// Chart sink metrics.
	ChartPublishErrors prometheus.Counter
}

// NewMetrics creates and registers all coordinator metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := NewMetricsForTesting()

	prometheus.MustRegister(
		m.MessagesConsumed,
		m.MessagesDropped,
		m.SnapshotRecords,
		m.FetchFailures,
		m.CoordinatorState,
		m.AggregateBuckets,
		m.ChartRebuild,
		m.FieldNodes,
		m.FieldAlpha,
		m.ChartPublishErrors,
	)

	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		MessagesConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "neo_stream",
			Name:      "messages_consumed_total",
			Help:      "Total feed messages received.",
		}),
		MessagesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "neo_stream",
			Name:      "messages_dropped_total",
			Help:      "Feed messages dropped because they did not parse as a NEO record.",
		}),
		SnapshotRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "neo_stream",
			Name:      "snapshot_records_total",
			Help:      "Records loaded by bulk snapshot reads.",
		}, []string{"source"}),
		FetchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "neo_stream",
			Name:      "fetch_failures_total",
			Help:      "Transport failures replaced by an empty result.",
		}, []string{"source"}),
		CoordinatorState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "neo_stream",
			Name:      "coordinator_state",
			Help:      "0 uninitialized, 1 loading snapshot, 2 streaming.",
		}),
		AggregateBuckets: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "neo_stream",
			Name:      "aggregate_buckets",
			Help:      "Number of distinct close-approach dates aggregated.",
		}),
		ChartRebuild: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "neo_stream",
			Name:      "chart_rebuild_duration_seconds",
			Help:      "Duration of a full chart rebuild and render.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}),
		FieldNodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "neo_stream",
			Name:      "field_nodes",
			Help:      "Nodes in today's danger field.",
		}),
		FieldAlpha: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "neo_stream",
			Name:      "field_alpha",
			Help:      "Current danger-field simulation energy.",
		}),
		ChartPublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "neo_stream",
			Name:      "chart_publish_errors_total",
			Help:      "Chart series that failed to publish to the sink topic.",
		}),
	}
}
