package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"meridian-hq/vega/pkg/config"
)

// DecisionMetrics tracks decision flow metrics.
//
// Metrics:
//   - meridian_vega_decisions_total: decisions by type, result, and variant
//   - meridian_vega_decision_duration_seconds: decision latency by type
//   - meridian_vega_rule_overrides_total: policy decisions overridden by rules
//   - meridian_vega_decision_fallbacks_total: decisions served by the policy fallback
//   - meridian_vega_outcomes_total: ingested outcomes by type and outcome
type DecisionMetrics struct {
	decisionsTotal     *prometheus.CounterVec
	durationSeconds    *prometheus.HistogramVec
	ruleOverridesTotal *prometheus.CounterVec
	fallbacksTotal     *prometheus.CounterVec
	outcomesTotal      *prometheus.CounterVec
}

// NewDecisionMetrics creates and registers decision metrics with the provided registry.
func NewDecisionMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *DecisionMetrics {
	dm := &DecisionMetrics{
		decisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "decisions_total",
				Help:      "Total number of decisions by type, result, and experiment variant",
			},
			[]string{"type", "result", "variant"},
		),

		durationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "decision_duration_seconds",
				Help:      "Decision latency in seconds by decision type",
				Buckets:   cfg.DecisionDurationBuckets,
			},
			[]string{"type"},
		),

		ruleOverridesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "rule_overrides_total",
				Help:      "Total number of policy decisions overridden by operator rules",
			},
			[]string{"type"},
		),

		fallbacksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "decision_fallbacks_total",
				Help:      "Total number of decisions served by the pure policy fallback",
			},
			[]string{"type"},
		),

		outcomesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "outcomes_total",
				Help:      "Total number of ingested decision outcomes",
			},
			[]string{"type", "outcome"},
		),
	}

	registry.MustRegister(
		dm.decisionsTotal,
		dm.durationSeconds,
		dm.ruleOverridesTotal,
		dm.fallbacksTotal,
		dm.outcomesTotal,
	)

	return dm
}
