package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"meridian-hq/vega/pkg/config"
)

// Collector owns the Prometheus registry and all metric families for the
// decisioning service. A nil *Collector is valid and records nothing, so
// callers do not need to guard every recording site.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	decisionMetrics   *DecisionMetrics
	cacheMetrics      *CacheMetrics
	enrichmentMetrics *EnrichmentMetrics
}

// NewCollector creates a new metrics collector with the specified
// configuration and Prometheus registry. If registry is nil, a new
// registry is created.
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = config.DefaultMetricsSubsystem
	}
	if len(cfg.DecisionDurationBuckets) == 0 {
		cfg.DecisionDurationBuckets = append([]float64(nil), config.DefaultDecisionDurationBuckets...)
	}

	c := &Collector{
		config:   cfg,
		registry: registry,
	}

	c.decisionMetrics = NewDecisionMetrics(cfg, registry)
	c.cacheMetrics = NewCacheMetrics(cfg, registry)
	c.enrichmentMetrics = NewEnrichmentMetrics(cfg, registry)

	return c
}

// Registry returns the underlying Prometheus registry.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// RecordDecision records a completed decision with its disposition and
// experiment variant. Variant may be empty for unassigned requests.
func (c *Collector) RecordDecision(decisionType, result, variant string, duration time.Duration) {
	if c == nil {
		return
	}
	if variant == "" {
		variant = "none"
	}
	c.decisionMetrics.decisionsTotal.WithLabelValues(decisionType, result, variant).Inc()
	c.decisionMetrics.durationSeconds.WithLabelValues(decisionType).Observe(duration.Seconds())
}

// RecordRuleOverride records a policy decision overridden by an operator rule.
func (c *Collector) RecordRuleOverride(ruleType string) {
	if c == nil {
		return
	}
	c.decisionMetrics.ruleOverridesTotal.WithLabelValues(ruleType).Inc()
}

// RecordFallback records a decision served by the pure policy fallback
// after an engine failure.
func (c *Collector) RecordFallback(decisionType string) {
	if c == nil {
		return
	}
	c.decisionMetrics.fallbacksTotal.WithLabelValues(decisionType).Inc()
}

// RecordOutcome records an ingested decision outcome.
func (c *Collector) RecordOutcome(decisionType, outcome string) {
	if c == nil {
		return
	}
	c.decisionMetrics.outcomesTotal.WithLabelValues(decisionType, outcome).Inc()
}

// RecordCacheHit records a fresh snapshot served from a dataset cache.
func (c *Collector) RecordCacheHit(cache string) {
	if c == nil {
		return
	}
	c.cacheMetrics.hitsTotal.WithLabelValues(cache).Inc()
}

// RecordCacheMiss records a stale or empty dataset cache.
func (c *Collector) RecordCacheMiss(cache string) {
	if c == nil {
		return
	}
	c.cacheMetrics.missesTotal.WithLabelValues(cache).Inc()
}

// RecordCacheRefresh records a dataset cache refresh attempt.
func (c *Collector) RecordCacheRefresh(cache string, ok bool) {
	if c == nil {
		return
	}
	status := "ok"
	if !ok {
		status = "error"
	}
	c.cacheMetrics.refreshesTotal.WithLabelValues(cache, status).Inc()
	if ok {
		c.cacheMetrics.lastRefresh.WithLabelValues(cache).SetToCurrentTime()
	}
}

// RecordEnrichmentCall records an external enrichment call and its status
// ("present", "skipped", "timed_out", or "failed").
func (c *Collector) RecordEnrichmentCall(call, status string, duration time.Duration) {
	if c == nil {
		return
	}
	c.enrichmentMetrics.callsTotal.WithLabelValues(call, status).Inc()
	c.enrichmentMetrics.callDuration.WithLabelValues(call).Observe(duration.Seconds())
}
