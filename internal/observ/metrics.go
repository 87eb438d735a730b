package observ

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts what a run checked and found. Each Metrics owns its registry,
// so tests and library callers never touch the global one.
type Metrics struct {
	registry    *prometheus.Registry
	files       prometheus.Counter
	entries     prometheus.Counter
	diagnostics *prometheus.CounterVec
	phases      *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		files: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bibcheck_files_checked_total",
			Help: "Number of bibliography files checked",
		}),
		entries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bibcheck_entries_checked_total",
			Help: "Number of entries checked",
		}),
		diagnostics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bibcheck_diagnostics_total",
			Help: "Diagnostics reported, by code and severity",
		}, []string{"code", "severity"}),
		phases: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bibcheck_phase_duration_seconds",
			Help:    "Duration of pass phases",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
		}, []string{"phase"}),
	}
	m.registry.MustRegister(m.files, m.entries, m.diagnostics, m.phases)
	return m
}

// Registry exposes the underlying registry, for example to serve it over HTTP.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) FileChecked() {
	if m == nil {
		return
	}
	m.files.Inc()
}

func (m *Metrics) EntriesChecked(n int) {
	if m == nil {
		return
	}
	m.entries.Add(float64(n))
}

func (m *Metrics) Diagnostic(code, severity string) {
	if m == nil {
		return
	}
	m.diagnostics.WithLabelValues(code, severity).Inc()
}

func (m *Metrics) ObservePhase(phase string, d time.Duration) {
	if m == nil {
		return
	}
	m.phases.WithLabelValues(phase).Observe(d.Seconds())
}

// ObserveTimer records every phase of t.
func (m *Metrics) ObserveTimer(t *Timer) {
	if m == nil || t == nil {
		return
	}
	for name, d := range t.Durations() {
		m.ObservePhase(name, d)
	}
}

// WriteTextfile writes the metrics in the text exposition format, atomically.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
