package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for a city import run.
type Metrics struct {
	// Source resolution. labels: tier={remote,local,builtin}, outcome={success,failure}
	SourceAttempts *prometheus.CounterVec
	SourceTier     *prometheus.GaugeVec // labels: tier; 1 for the tier that won
	CitiesResolved prometheus.Gauge

	// Batch writes.
	RecordsWritten   prometheus.Counter
	BatchCommits     prometheus.Counter
	BatchSize        prometheus.Histogram
	CommitDuration   prometheus.Histogram
	ImportDuration   prometheus.Histogram
	LastSuccess      prometheus.Gauge
	AnnounceErrors   prometheus.Counter
	SnapshotFailures prometheus.Counter
}

// NewMetrics creates and registers all import metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()

	prometheus.MustRegister(
		m.SourceAttempts,
		m.SourceTier,
		m.CitiesResolved,
		m.RecordsWritten,
		m.BatchCommits,
		m.BatchSize,
		m.CommitDuration,
		m.ImportDuration,
		m.LastSuccess,
		m.AnnounceErrors,
		m.SnapshotFailures,
	)

	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		SourceAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "city_import",
			Name:      "source_attempts_total",
			Help:      "Source resolution attempts by tier and outcome.",
		}, []string{"tier", "outcome"}),
		SourceTier: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "city_import",
			Name:      "source_tier",
			Help:      "1 for the fallback tier that supplied the cities.",
		}, []string{"tier"}),
		CitiesResolved: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "city_import",
			Name:      "cities_resolved",
			Help:      "Unique city names extracted from the source.",
		}),
		RecordsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "city_import",
			Name:      "records_written_total",
			Help:      "City records committed to Firestore.",
		}),
		BatchCommits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "city_import",
			Name:      "batch_commits_total",
			Help:      "Successful Firestore batch commits.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "city_import",
			Name:      "batch_size",
			Help:      "Writes per committed batch.",
			Buckets:   []float64{1, 10, 50, 100, 200, 300, 400, 500},
		}),
		CommitDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "city_import",
			Name:      "commit_duration_seconds",
			Help:      "Duration of a single batch commit.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		ImportDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "city_import",
			Name:      "import_duration_seconds",
			Help:      "Duration of a complete resolve-normalize-write run.",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300},
		}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "city_import",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful import.",
		}),
		AnnounceErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "city_import",
			Name:      "announce_errors_total",
			Help:      "Batches whose Kafka announcement failed.",
		}),
		SnapshotFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "city_import",
			Name:      "snapshot_failures_total",
			Help:      "Source snapshots that could not be archived.",
		}),
	}
}
