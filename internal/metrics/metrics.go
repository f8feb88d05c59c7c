// Package metrics collects per-run counters for the updater and writes them
// in the Prometheus text format for a node-exporter textfile collector.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace prefixes every metric name.
const Namespace = "alps"

// Error kinds used as the "kind" label of Errors.
const (
	ErrorLoad    = "load"
	ErrorRemote  = "remote"
	ErrorPersist = "persist"
)

// Metrics holds the collectors for one updater run. Each Metrics owns its
// registry, so several can coexist in one process.
type Metrics struct {
	Registry *prometheus.Registry

	// RecordsProcessed counts records that went through reconciliation.
	RecordsProcessed prometheus.Counter

	// RecordsUnchanged counts processed records neither source changed.
	RecordsUnchanged prometheus.Counter

	// Updates counts records changed, labeled by source.
	Updates *prometheus.CounterVec

	// NewPublications counts publications appended to records.
	NewPublications prometheus.Counter

	// Errors counts failures, labeled by kind (load, remote, persist).
	Errors *prometheus.CounterVec

	// SourceRequests counts remote calls, labeled by source and outcome.
	SourceRequests *prometheus.CounterVec

	// SourceLatency observes remote call durations in seconds.
	SourceLatency *prometheus.HistogramVec

	// LastRun is the Unix time the last run finished.
	LastRun prometheus.Gauge

	// RunDuration is the wall time of the last run in seconds.
	RunDuration prometheus.Gauge
}

// New creates a Metrics with a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		RecordsProcessed: f.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "records_processed_total",
			Help:      "Records reconciled against remote sources.",
		}),
		RecordsUnchanged: f.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "records_unchanged_total",
			Help:      "Processed records that no source changed.",
		}),
		Updates: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "record_updates_total",
			Help:      "Records changed, by source.",
		}, []string{"source"}),
		NewPublications: f.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "new_publications_total",
			Help:      "Publications appended to records.",
		}),
		Errors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "errors_total",
			Help:      "Load, remote and persist failures.",
		}, []string{"kind"}),
		SourceRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "source_requests_total",
			Help:      "Remote source calls, by source and outcome.",
		}, []string{"source", "outcome"}),
		SourceLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "source_request_duration_seconds",
			Help:      "Remote source call latency.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"source"}),
		LastRun: f.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
		RunDuration: f.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "last_run_duration_seconds",
			Help:      "Wall time of the last run.",
		}),
	}
}

// ObserveRequest records one remote call.
func (m *Metrics) ObserveRequest(source string, d time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.SourceRequests.WithLabelValues(source, outcome).Inc()
	m.SourceLatency.WithLabelValues(source).Observe(d.Seconds())
}

// RunFinished sets the run gauges.
func (m *Metrics) RunFinished(start, end time.Time) {
	m.LastRun.Set(float64(end.Unix()))
	m.RunDuration.Set(end.Sub(start).Seconds())
}

// WriteTextfile writes every metric to path, replacing it atomically.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.Registry); err != nil {
		return fmt.Errorf("writing metrics: %w", err)
	}
	return nil
}
