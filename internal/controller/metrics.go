package controller

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Compute outcomes recorded in foldkit_compute_total.
const (
	OutcomeApplied  = "applied"
	OutcomeFailed   = "failed"
	OutcomeStale    = "stale"
	OutcomeCanceled = "canceled"
)

// Metrics holds the Prometheus collectors of the folding controllers.
type Metrics struct {
	ComputeTotal       *prometheus.CounterVec
	ComputeDuration    *prometheus.HistogramVec
	Regions            prometheus.Histogram
	LimitExceededTotal prometheus.Counter
	ActiveDocuments    prometheus.Gauge
	CommandsTotal      *prometheus.CounterVec
}

// NewMetrics creates and registers the collectors once per process.
//
// Metrics:
//   - foldkit_compute_total{provider,outcome} - provider computations
//   - foldkit_compute_duration_seconds{provider} - compute latency
//   - foldkit_regions - regions per applied computation
//   - foldkit_limit_exceeded_total - computations cut to the region limit
//   - foldkit_active_documents - controllers holding a folding model
//   - foldkit_commands_total{command} - executed fold commands
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			ComputeTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "foldkit_compute_total",
					Help: "Total number of folding range computations",
				},
				[]string{"provider", "outcome"},
			),
			ComputeDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "foldkit_compute_duration_seconds",
					Help:    "Duration of folding range computations in seconds",
					Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
				},
				[]string{"provider"},
			),
			Regions: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "foldkit_regions",
					Help:    "Number of fold regions applied per computation",
					Buckets: []float64{0, 10, 50, 100, 500, 1000, 5000, 10000, 65535},
				},
			),
			LimitExceededTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "foldkit_limit_exceeded_total",
					Help: "Total number of computations truncated to the region limit",
				},
			),
			ActiveDocuments: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "foldkit_active_documents",
					Help: "Number of documents with an active folding model",
				},
			),
			CommandsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "foldkit_commands_total",
					Help: "Total number of fold commands executed",
				},
				[]string{"command"},
			),
		}
	})
	return globalMetrics
}

func (m *Metrics) recordCompute(provider, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.ComputeTotal.WithLabelValues(provider, outcome).Inc()
	if outcome == OutcomeApplied || outcome == OutcomeFailed {
		m.ComputeDuration.WithLabelValues(provider).Observe(seconds)
	}
}

func (m *Metrics) recordRegions(n int) {
	if m == nil {
		return
	}
	m.Regions.Observe(float64(n))
}

func (m *Metrics) recordLimitExceeded() {
	if m == nil {
		return
	}
	m.LimitExceededTotal.Inc()
}

func (m *Metrics) activeDelta(d float64) {
	if m == nil {
		return
	}
	m.ActiveDocuments.Add(d)
}

func (m *Metrics) recordCommand(name string) {
	if m == nil {
		return
	}
	m.CommandsTotal.WithLabelValues(name).Inc()
}
