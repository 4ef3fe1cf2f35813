package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"meridian-hq/vega/pkg/config"
)

// EnrichmentMetrics tracks external enrichment calls.
//
// Metrics:
//   - meridian_vega_enrichment_calls_total: calls by name and status
//   - meridian_vega_enrichment_call_duration_seconds: call latency by name
type EnrichmentMetrics struct {
	callsTotal   *prometheus.CounterVec
	callDuration *prometheus.HistogramVec
}

// NewEnrichmentMetrics creates and registers enrichment metrics with the provided registry.
func NewEnrichmentMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *EnrichmentMetrics {
	em := &EnrichmentMetrics{
		callsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "enrichment_calls_total",
				Help:      "Total number of enrichment calls by call name and status",
			},
			[]string{"call", "status"},
		),

		callDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "enrichment_call_duration_seconds",
				Help:      "Enrichment call latency in seconds by call name",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0},
			},
			[]string{"call"},
		),
	}

	registry.MustRegister(
		em.callsTotal,
		em.callDuration,
	)

	return em
}
