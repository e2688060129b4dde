package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// dataset updater and its adapters.
type Metrics struct {
	UpdateRuns     prometheus.Counter
	UpdateFailures prometheus.Counter
	UpdaterRunning prometheus.Gauge

	SeriesFetches *prometheus.CounterVec // labels: series, outcome={success,error,empty}
	RowsAppended  prometheus.Counter
	RowsRevised   prometheus.Counter
	DatasetRows   prometheus.Gauge
	LastUpdate    prometheus.Gauge // unix seconds of the last successful run

	UpdateDuration     prometheus.Histogram
	BLSRequestDuration prometheus.Histogram

	ObservationsAnnounced prometheus.Counter
	AnnounceErrors        prometheus.Counter
}

// NewMetrics creates and registers all updater metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.UpdateRuns,
		m.UpdateFailures,
		m.UpdaterRunning,
		m.SeriesFetches,
		m.RowsAppended,
		m.RowsRevised,
		m.DatasetRows,
		m.LastUpdate,
		m.UpdateDuration,
		m.BLSRequestDuration,
		m.ObservationsAnnounced,
		m.AnnounceErrors,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		UpdateRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "labor_etl",
			Name:      "update_runs_total",
			Help:      "Total updater runs attempted.",
		}),
		UpdateFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "labor_etl",
			Name:      "update_failures_total",
			Help:      "Updater runs that failed fatally (load or persist error).",
		}),
		UpdaterRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "labor_etl",
			Name:      "updater_running",
			Help:      "1 while an update run is in progress.",
		}),
		SeriesFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "labor_etl",
			Name:      "series_fetches_total",
			Help:      "Per-series fetch attempts by outcome.",
		}, []string{"series", "outcome"}),
		RowsAppended: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "labor_etl",
			Name:      "rows_appended_total",
			Help:      "Observations appended to the dataset.",
		}),
		RowsRevised: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "labor_etl",
			Name:      "rows_revised_total",
			Help:      "Stored observations revised in place (revise mode only).",
		}),
		DatasetRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "labor_etl",
			Name:      "dataset_rows",
			Help:      "Rows in the persisted dataset after the last run.",
		}),
		LastUpdate: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "labor_etl",
			Name:      "last_successful_update_timestamp_seconds",
			Help:      "Unix time of the last successful update run.",
		}),
		UpdateDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "labor_etl",
			Name:      "update_duration_seconds",
			Help:      "Duration of a complete fetch-merge-persist run.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		BLSRequestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "labor_etl",
			Name:      "bls_request_duration_seconds",
			Help:      "BLS API request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		ObservationsAnnounced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "labor_etl",
			Name:      "observations_announced_total",
			Help:      "Newly appended observations published to Kafka.",
		}),
		AnnounceErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "labor_etl",
			Name:      "announce_errors_total",
			Help:      "Kafka announce failures (non-fatal to the run).",
		}),
	}
}
