package server

import (
	"github.com/prometheus/client_golang/prometheus"

	"go-sqladvisor/pkg/analyzer"
)

// Metrics holds the collectors exported on /metrics. Each server owns its
// own registry so several servers can live in one process.
type Metrics struct {
	registry        *prometheus.Registry
	analyses        *prometheus.CounterVec
	recommendations *prometheus.CounterVec
	totalCost       prometheus.Histogram
}

// NewMetrics creates and registers the analysis collectors
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		analyses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sqladvisor_analyses_total",
				Help: "Analyses performed, by outcome.",
			},
			[]string{"status"},
		),
		recommendations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sqladvisor_recommendations_total",
				Help: "Recommendations produced, by severity.",
			},
			[]string{"severity"},
		),
		totalCost: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sqladvisor_plan_total_cost",
			Help:    "Total cost of synthesized execution plans.",
			Buckets: prometheus.LinearBuckets(0, 50, 10),
		}),
	}
	m.registry.MustRegister(m.analyses, m.recommendations, m.totalCost)
	return m
}

// Registry exposes the underlying gatherer
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveBundle records a successful analysis
func (m *Metrics) ObserveBundle(bundle *analyzer.Bundle) {
	m.analyses.WithLabelValues("ok").Inc()
	m.totalCost.Observe(float64(bundle.Plan.TotalCost))
	for _, rec := range bundle.Recommendations {
		m.recommendations.WithLabelValues(string(rec.Severity)).Inc()
	}
}

// ObserveFailure records a failed analysis under status
func (m *Metrics) ObserveFailure(status string) {
	m.analyses.WithLabelValues(status).Inc()
}
