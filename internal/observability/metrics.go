package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the dashboard.
type Metrics struct {
	// Dataset loading metrics.
	DatasetLoads    *prometheus.CounterVec   // labels: dataset={tribes,polygons,lines}, outcome={success,error}
	DatasetFeatures *prometheus.GaugeVec     // labels: dataset
	LoadDuration    *prometheus.HistogramVec // labels: dataset
	PayloadCache    *prometheus.CounterVec   // labels: result={hit,miss,error}
	SnapshotReady   prometheus.Gauge

	// Selection metrics.
	Selections      *prometheus.CounterVec // labels: outcome={found,missing}
	RenderDuration  prometheus.Histogram
	SelectionEvents *prometheus.CounterVec // labels: outcome={success,error}
}

// NewMetrics creates and registers all dashboard metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		DatasetLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tribe_map",
			Name:      "dataset_loads_total",
			Help:      "Dataset load attempts by dataset and outcome.",
		}, []string{"dataset", "outcome"}),
		DatasetFeatures: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "tribe_map",
			Name:      "dataset_features",
			Help:      "Rows or features held in memory per dataset.",
		}, []string{"dataset"}),
		LoadDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tribe_map",
			Name:      "dataset_load_duration_seconds",
			Help:      "Duration of fetching and parsing one dataset.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"dataset"}),
		PayloadCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tribe_map",
			Name:      "payload_cache_total",
			Help:      "Remote payload cache lookups by result.",
		}, []string{"result"}),
		SnapshotReady: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tribe_map",
			Name:      "snapshot_ready",
			Help:      "1 when the coordinate table is loaded, 0 otherwise.",
		}),
		Selections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tribe_map",
			Name:      "selections_total",
			Help:      "Rendered selections by whether the village was found.",
		}, []string{"outcome"}),
		RenderDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "tribe_map",
			Name:      "render_duration_seconds",
			Help:      "Duration of filtering and building one selection.",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}),
		SelectionEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tribe_map",
			Name:      "selection_events_total",
			Help:      "Selection events published by outcome.",
		}, []string{"outcome"}),
	}

	prometheus.MustRegister(
		m.DatasetLoads,
		m.DatasetFeatures,
		m.LoadDuration,
		m.PayloadCache,
		m.SnapshotReady,
		m.Selections,
		m.RenderDuration,
		m.SelectionEvents,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		DatasetLoads:    prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "tribe_map", Name: "dataset_loads_total"}, []string{"dataset", "outcome"}),
		DatasetFeatures: prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: "tribe_map", Name: "dataset_features"}, []string{"dataset"}),
		LoadDuration:    prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: "tribe_map", Name: "dataset_load_duration_seconds"}, []string{"dataset"}),
		PayloadCache:    prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "tribe_map", Name: "payload_cache_total"}, []string{"result"}),
		SnapshotReady:   prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "tribe_map", Name: "snapshot_ready"}),
		Selections:      prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "tribe_map", Name: "selections_total"}, []string{"outcome"}),
		RenderDuration:  prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "tribe_map", Name: "render_duration_seconds"}),
		SelectionEvents: prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "tribe_map", Name: "selection_events_total"}, []string{"outcome"}),
	}
}
