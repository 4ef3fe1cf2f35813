package config

import "time"

// Config is the root configuration structure for Vega.
type Config struct {
	// Server contains the HTTP server configuration for the metrics and
	// health endpoints.
	Server ServerConfig `yaml:"server"`

	// Store contains configuration for the decisioning dataset store
	// (rules, experiments, decline codes, route scores, features).
	Store StoreConfig `yaml:"store"`

	// Audit contains configuration for decision audit logging: storage
	// backend, async recorder, and retention.
	Audit AuditConfig `yaml:"audit"`

	// Decision contains tuning for the decision engine itself: dataset
	// cache TTL, enrichment timeout, and rule engine toggle.
	Decision DecisionConfig `yaml:"decision"`

	// Scoring contains client configuration for the external scoring and
	// similarity services used during enrichment.
	Scoring ScoringConfig `yaml:"scoring"`

	// Telemetry contains logging and metrics configuration.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains configuration for the HTTP server.
type ServerConfig struct {
	// ListenAddress is the address and port to listen on.
	// Default: "127.0.0.1:9180"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading a request.
	// Default: 15s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration for writing a response.
	// Default: 15s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// ShutdownTimeout is the maximum duration to wait for graceful
	// shutdown before forcing exit.
	// Default: 15s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// StoreConfig contains configuration for the decisioning dataset store.
type StoreConfig struct {
	// Path is the SQLite database file path.
	// Default: "data/vega.db"
	Path string `yaml:"path"`

	// MaxOpenConns limits concurrent database connections.
	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// MaxIdleConns limits idle database connections.
	// Default: 5
	MaxIdleConns int `yaml:"max_idle_conns"`
}

// AuditConfig contains configuration for decision audit logging.
type AuditConfig struct {
	// Enabled controls whether decisions and outcomes are recorded.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the SQLite database file path for audit records.
	// Default: "data/audit.db"
	Path string `yaml:"path"`

	// AsyncBuffer is the size of the async decision write buffer.
	// Decisions are dropped (with an error log) when the buffer is full.
	// Default: 1000
	AsyncBuffer int `yaml:"async_buffer"`

	// WriteTimeout bounds synchronous outcome writes.
	// Default: 5s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// RetentionDays is the age in days after which decision logs are
	// pruned. Zero disables age-based pruning.
	// Default: 90
	RetentionDays int `yaml:"retention_days"`

	// MaxRecords caps the number of retained decision logs. Zero
	// disables count-based pruning.
	// Default: 0
	MaxRecords int64 `yaml:"max_records"`

	// PruneSchedule is the cron expression for retention runs.
	// Default: "0 3 * * *"
	PruneSchedule string `yaml:"prune_schedule"`
}

// DecisionConfig contains tuning for the decision engine.
type DecisionConfig struct {
	// CacheTTL is how long cached dataset snapshots (parameters, decline
	// codes, route scores, rules, recommendations) remain fresh.
	// Default: 60s
	CacheTTL time.Duration `yaml:"cache_ttl"`

	// EnrichmentTimeout bounds each external enrichment call.
	// Default: 2s
	EnrichmentTimeout time.Duration `yaml:"enrichment_timeout"`

	// EnrichmentEnabled controls whether ML and similarity enrichment
	// runs at all. When false decisions are pure policy.
	// Default: true
	EnrichmentEnabled bool `yaml:"enrichment_enabled"`

	// RuleEngineEnabled controls whether operator rules can override
	// policy decisions.
	// Default: true
	RuleEngineEnabled bool `yaml:"rule_engine_enabled"`
}

// ScoringConfig contains client configuration for external model services.
type ScoringConfig struct {
	// Scoring is the client configuration for the model scoring service.
	Scoring ServiceConfig `yaml:"scoring"`

	// Similarity is the client configuration for the transaction
	// similarity search service.
	Similarity ServiceConfig `yaml:"similarity"`
}

// ServiceConfig describes a single external HTTP service.
type ServiceConfig struct {
	// Enabled controls whether the service is called.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// BaseURL is the service base URL, e.g. "http://localhost:9400".
	BaseURL string `yaml:"base_url"`

	// APIKey is an optional bearer token for the service.
	APIKey string `yaml:"api_key"`

	// Timeout is the per-request timeout.
	// Default: 5s
	Timeout time.Duration `yaml:"timeout"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`

	// RedactPII enables automatic redaction of card numbers and other
	// sensitive values in log fields.
	// Default: true
	RedactPII bool `yaml:"redact_pii"`

	// RedactPatterns contains custom redaction patterns.
	RedactPatterns []RedactPattern `yaml:"redact_patterns"`
}

// RedactPattern defines a custom redaction pattern.
type RedactPattern struct {
	// Name is a descriptive name for the pattern.
	Name string `yaml:"name"`

	// Pattern is the regular expression to match.
	Pattern string `yaml:"pattern"`

	// Replacement is the string to replace matches with.
	Replacement string `yaml:"replacement"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics collection is active.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path for the Prometheus metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "meridian"
	Namespace string `yaml:"namespace"`

	// Subsystem is the metric subsystem name.
	// Default: "vega"
	Subsystem string `yaml:"subsystem"`

	// DecisionDurationBuckets defines histogram buckets for decision
	// latency in seconds.
	// Default: [0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5]
	DecisionDurationBuckets []float64 `yaml:"decision_duration_buckets"`
}
