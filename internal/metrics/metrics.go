// Package metrics records per-run Prometheus metrics for the scraper.
//
// The scraper is a short-lived process run from cron or CI, so metrics are
// not served over HTTP. They are gathered from a private registry and written
// in the text exposition format for the node-exporter textfile collector.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Run results.
const (
	ResultSuccess = "success"
	ResultPartial = "partial"
	ResultFailure = "failure"
)

// Source attempt outcomes.
const (
	OutcomeItems       = "items"
	OutcomeEmpty       = "empty"
	OutcomeUnavailable = "unavailable"
)

// Manager owns the metrics of one scraper process.
type Manager struct {
	namespace string
	subsystem string
	buckets   []float64
	registry  *prometheus.Registry

	runs           *prometheus.CounterVec
	items          prometheus.Gauge
	sourceAttempts *prometheus.CounterVec
	unresolved     *prometheus.CounterVec
	duration       prometheus.Histogram
	lastSuccess    prometheus.Gauge
}

// NewManager creates a manager on its own registry unless WithRegistry is given.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace: "minerva",
		subsystem: "scrape",
		buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
	}

	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.runs = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "runs_total",
		Help:      "Scrape runs by result",
	}, []string{"result"})

	m.items = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "items",
		Help:      "Number of reward items in the last extracted record",
	})

	m.sourceAttempts = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "source_attempts_total",
		Help:      "Item source attempts by source label and outcome",
	}, []string{"source", "outcome"})

	m.unresolved = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "unresolved_fields_total",
		Help:      "Record fields left empty by the extraction",
	}, []string{"field"})

	m.duration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "duration_seconds",
		Help:      "Wall time of a scrape run",
		Buckets:   m.buckets,
	})

	m.lastSuccess = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "last_success_timestamp_seconds",
		Help:      "Unix time of the last run that wrote a record",
	})
}

// RecordRun counts a finished run and observes its duration. A run that
// wrote a record (success or partial) also sets the last success timestamp.
func (m *Manager) RecordRun(result string, took time.Duration, at time.Time) {
	m.runs.WithLabelValues(result).Inc()
	m.duration.Observe(took.Seconds())
	if result != ResultFailure {
		m.lastSuccess.Set(float64(at.Unix()))
	}
}

// SetItems sets the item gauge.
func (m *Manager) SetItems(n int) {
	m.items.Set(float64(n))
}

// RecordSourceAttempt counts one item source attempt.
func (m *Manager) RecordSourceAttempt(source, outcome string) {
	m.sourceAttempts.WithLabelValues(source, outcome).Inc()
}

// RecordUnresolved counts one empty record field.
func (m *Manager) RecordUnresolved(field string) {
	m.unresolved.WithLabelValues(field).Inc()
}

// Registry returns the gatherer holding the manager's metrics.
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

// WriteFile writes every metric to path in the text exposition format.
// The write is atomic, so a collector never reads a partial file.
func (m *Manager) WriteFile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteMetrics, err)
	}
	return nil
}
