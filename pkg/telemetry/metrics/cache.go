package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"meridian-hq/vega/pkg/config"
)

// CacheMetrics tracks dataset cache performance.
//
// Metrics:
//   - meridian_vega_cache_hits_total: fresh snapshot served, by cache name
//   - meridian_vega_cache_misses_total: stale or empty cache, by cache name
//   - meridian_vega_cache_refreshes_total: refresh attempts by cache and status
//   - meridian_vega_cache_last_refresh_timestamp_seconds: last successful refresh
type CacheMetrics struct {
	hitsTotal      *prometheus.CounterVec
	missesTotal    *prometheus.CounterVec
	refreshesTotal *prometheus.CounterVec
	lastRefresh    *prometheus.GaugeVec
}

// NewCacheMetrics creates and registers cache metrics with the provided registry.
func NewCacheMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *CacheMetrics {
	cm := &CacheMetrics{
		hitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "cache_hits_total",
				Help:      "Total number of dataset cache hits",
			},
			[]string{"cache"},
		),

		missesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "cache_misses_total",
				Help:      "Total number of dataset cache misses",
			},
			[]string{"cache"},
		),

		refreshesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "cache_refreshes_total",
				Help:      "Total number of dataset cache refresh attempts",
			},
			[]string{"cache", "status"},
		),

		lastRefresh: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "cache_last_refresh_timestamp_seconds",
				Help:      "Unix timestamp of the last successful cache refresh",
			},
			[]string{"cache"},
		),
	}

	registry.MustRegister(
		cm.hitsTotal,
		cm.missesTotal,
		cm.refreshesTotal,
		cm.lastRefresh,
	)

	return cm
}
