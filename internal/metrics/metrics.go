package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rickgao/barsync/internal/model"
)

const namespace = "barsync"

// Run status label values.
const (
	StatusOK        = "ok"
	StatusError     = "error"
	StatusCancelled = "cancelled"
)

// Metrics holds all sync metrics.
type Metrics struct {
	// Counters
	RunsTotal   *prometheus.CounterVec
	RowsWritten *prometheus.CounterVec
	ItemErrors  *prometheus.CounterVec

	// Gauges
	Instruments   prometheus.Gauge
	LastSuccessAt prometheus.Gauge

	// Histograms
	RunDuration prometheus.Histogram

	registry *prometheus.Registry
}

// New creates and registers all metrics on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}

	m.RunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Total sync runs by status",
		},
		[]string{"status"},
	)

	m.RowsWritten = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_written_total",
			Help:      "Total bars written by cadence family",
		},
		[]string{"mode"},
	)

	m.ItemErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "item_errors_total",
			Help:      "Total failed instrument fetches by cadence family",
		},
		[]string{"mode"},
	)

	m.Instruments = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "instruments",
			Help:      "Instruments resolved by the last run",
		},
	)

	m.LastSuccessAt = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run",
		},
	)

	m.RunDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Sync run duration",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
		},
	)

	m.registry.MustRegister(
		m.RunsTotal,
		m.RowsWritten,
		m.ItemErrors,
		m.Instruments,
		m.LastSuccessAt,
		m.RunDuration,
	)

	return m
}

// ObserveRun records a finished run. summary may be nil for fatal runs.
func (m *Metrics) ObserveRun(summary *model.Summary, duration time.Duration, err error) {
	m.RunsTotal.WithLabelValues(runStatus(err)).Inc()
	m.RunDuration.Observe(duration.Seconds())

	if summary != nil {
		m.Instruments.Set(float64(summary.Stocks))
		m.RowsWritten.WithLabelValues(string(model.FamilyDaily)).Add(float64(summary.DailyRows))
		m.RowsWritten.WithLabelValues(string(model.FamilyMinute)).Add(float64(summary.MinuteRows))
		for _, e := range summary.Errors {
			m.ItemErrors.WithLabelValues(e.Mode).Inc()
		}
	}

	if err == nil {
		m.LastSuccessAt.SetToCurrentTime()
	}
}

func runStatus(err error) string {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return StatusCancelled
	default:
		return StatusError
	}
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// WriteTextfile writes the current metrics to path in the text exposition
// format, atomically, for node_exporter's textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
