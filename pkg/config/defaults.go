package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress   = "127.0.0.1:9180"
	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultShutdownTimeout = 15 * time.Second

	// Store defaults
	DefaultStorePath         = "data/vega.db"
	DefaultStoreMaxOpenConns = 10
	DefaultStoreMaxIdleConns = 5

	// Audit defaults
	DefaultAuditEnabled       = true
	DefaultAuditPath          = "data/audit.db"
	DefaultAuditAsyncBuffer   = 1000
	DefaultAuditWriteTimeout  = 5 * time.Second
	DefaultAuditRetentionDays = 90
	DefaultAuditMaxRecords    = int64(0)
	DefaultAuditPruneSchedule = "0 3 * * *"

	// Decision defaults
	DefaultCacheTTL          = 60 * time.Second
	DefaultEnrichmentTimeout = 2 * time.Second

	// Scoring defaults
	DefaultServiceTimeout = 5 * time.Second

	// Telemetry defaults
	DefaultLoggingLevel     = "info"
	DefaultLoggingFormat    = "json"
	DefaultMetricsEnabled   = true
	DefaultMetricsPath      = "/metrics"
	DefaultMetricsNamespace = "meridian"
	DefaultMetricsSubsystem = "vega"
)

// DefaultDecisionDurationBuckets are the default histogram buckets for
// decision latency in seconds.
var DefaultDecisionDurationBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5}

// ApplyDefaults fills in default values for any unset configuration fields.
// It modifies the configuration in place.
func ApplyDefaults(cfg *Config) {
	// Server
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	// Store
	if cfg.Store.Path == "" {
		cfg.Store.Path = DefaultStorePath
	}
	if cfg.Store.MaxOpenConns == 0 {
		cfg.Store.MaxOpenConns = DefaultStoreMaxOpenConns
	}
	if cfg.Store.MaxIdleConns == 0 {
		cfg.Store.MaxIdleConns = DefaultStoreMaxIdleConns
	}

	// Audit
	if cfg.Audit.Path == "" {
		cfg.Audit.Path = DefaultAuditPath
	}
	if cfg.Audit.AsyncBuffer == 0 {
		cfg.Audit.AsyncBuffer = DefaultAuditAsyncBuffer
	}
	if cfg.Audit.WriteTimeout == 0 {
		cfg.Audit.WriteTimeout = DefaultAuditWriteTimeout
	}
	if cfg.Audit.RetentionDays == 0 {
		cfg.Audit.RetentionDays = DefaultAuditRetentionDays
	}
	if cfg.Audit.PruneSchedule == "" {
		cfg.Audit.PruneSchedule = DefaultAuditPruneSchedule
	}

	// Decision
	if cfg.Decision.CacheTTL == 0 {
		cfg.Decision.CacheTTL = DefaultCacheTTL
	}
	if cfg.Decision.EnrichmentTimeout == 0 {
		cfg.Decision.EnrichmentTimeout = DefaultEnrichmentTimeout
	}

	// Scoring
	if cfg.Scoring.Scoring.Timeout == 0 {
		cfg.Scoring.Scoring.Timeout = DefaultServiceTimeout
	}
	if cfg.Scoring.Similarity.Timeout == 0 {
		cfg.Scoring.Similarity.Timeout = DefaultServiceTimeout
	}

	// Telemetry
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Telemetry.Metrics.Subsystem == "" {
		cfg.Telemetry.Metrics.Subsystem = DefaultMetricsSubsystem
	}
	if len(cfg.Telemetry.Metrics.DecisionDurationBuckets) == 0 {
		cfg.Telemetry.Metrics.DecisionDurationBuckets = append([]float64(nil), DefaultDecisionDurationBuckets...)
	}
}

// NewDefaultConfig returns a configuration populated entirely with defaults.
// Boolean fields that default to true are set here because ApplyDefaults
// cannot distinguish false from unset.
func NewDefaultConfig() *Config {
	cfg := &Config{}
	cfg.Audit.Enabled = DefaultAuditEnabled
	cfg.Decision.EnrichmentEnabled = true
	cfg.Decision.RuleEngineEnabled = true
	cfg.Scoring.Scoring.Enabled = true
	cfg.Scoring.Similarity.Enabled = true
	cfg.Telemetry.Logging.RedactPII = true
	cfg.Telemetry.Metrics.Enabled = DefaultMetricsEnabled
	ApplyDefaults(cfg)
	return cfg
}
