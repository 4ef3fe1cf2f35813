package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified path.
// Unset fields take their defaults, including boolean fields that default
// to true. The result is validated before being returned.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	// Unmarshal over a fully defaulted config so booleans that default to
	// true keep their default unless the file sets them explicitly.
	cfg := NewDefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}
	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention VEGA_SECTION_FIELD (e.g., VEGA_SERVER_LISTEN_ADDRESS) and always
// take precedence over file-based configuration.
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}
	return cfg, nil
}

// LoadOrDefault behaves like LoadConfigWithEnvOverrides, but falls back
// to the built-in defaults (still honoring environment overrides) when
// the file does not exist. Useful for running without a config file.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to stat configuration file %q: %w", path, err)
		}
		cfg := NewDefaultConfig()
		applyEnvOverrides(cfg)
		if err := Validate(cfg); err != nil {
			return nil, fmt.Errorf("configuration validation failed: %w", err)
		}
		return cfg, nil
	}
	return LoadConfigWithEnvOverrides(path)
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	// Server overrides
	envString("VEGA_SERVER_LISTEN_ADDRESS", &cfg.Server.ListenAddress)
	envDuration("VEGA_SERVER_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	envDuration("VEGA_SERVER_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	envDuration("VEGA_SERVER_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)

	// Store overrides
	envString("VEGA_STORE_PATH", &cfg.Store.Path)
	envInt("VEGA_STORE_MAX_OPEN_CONNS", &cfg.Store.MaxOpenConns)
	envInt("VEGA_STORE_MAX_IDLE_CONNS", &cfg.Store.MaxIdleConns)

	// Audit overrides
	envBool("VEGA_AUDIT_ENABLED", &cfg.Audit.Enabled)
	envString("VEGA_AUDIT_PATH", &cfg.Audit.Path)
	envInt("VEGA_AUDIT_ASYNC_BUFFER", &cfg.Audit.AsyncBuffer)
	envDuration("VEGA_AUDIT_WRITE_TIMEOUT", &cfg.Audit.WriteTimeout)
	envInt("VEGA_AUDIT_RETENTION_DAYS", &cfg.Audit.RetentionDays)
	envInt64("VEGA_AUDIT_MAX_RECORDS", &cfg.Audit.MaxRecords)
	envString("VEGA_AUDIT_PRUNE_SCHEDULE", &cfg.Audit.PruneSchedule)

	// Decision overrides
	envDuration("VEGA_DECISION_CACHE_TTL", &cfg.Decision.CacheTTL)
	envDuration("VEGA_DECISION_ENRICHMENT_TIMEOUT", &cfg.Decision.EnrichmentTimeout)
	envBool("VEGA_DECISION_ENRICHMENT_ENABLED", &cfg.Decision.EnrichmentEnabled)
	envBool("VEGA_DECISION_RULE_ENGINE_ENABLED", &cfg.Decision.RuleEngineEnabled)

	// Scoring overrides
	envBool("VEGA_SCORING_ENABLED", &cfg.Scoring.Scoring.Enabled)
	envString("VEGA_SCORING_BASE_URL", &cfg.Scoring.Scoring.BaseURL)
	envString("VEGA_SCORING_API_KEY", &cfg.Scoring.Scoring.APIKey)
	envDuration("VEGA_SCORING_TIMEOUT", &cfg.Scoring.Scoring.Timeout)
	envBool("VEGA_SIMILARITY_ENABLED", &cfg.Scoring.Similarity.Enabled)
	envString("VEGA_SIMILARITY_BASE_URL", &cfg.Scoring.Similarity.BaseURL)
	envString("VEGA_SIMILARITY_API_KEY", &cfg.Scoring.Similarity.APIKey)
	envDuration("VEGA_SIMILARITY_TIMEOUT", &cfg.Scoring.Similarity.Timeout)

	// Telemetry overrides
	envString("VEGA_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	envString("VEGA_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	envBool("VEGA_LOGGING_REDACT_PII", &cfg.Telemetry.Logging.RedactPII)
	envBool("VEGA_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	envString("VEGA_METRICS_PATH", &cfg.Telemetry.Metrics.Path)
	envString("VEGA_METRICS_NAMESPACE", &cfg.Telemetry.Metrics.Namespace)
	envString("VEGA_METRICS_SUBSYSTEM", &cfg.Telemetry.Metrics.Subsystem)
}

func envString(key string, dst *string) {
	if val := os.Getenv(key); val != "" {
		*dst = val
	}
}

func envInt(key string, dst *int) {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			*dst = i
		}
	}
}

func envInt64(key string, dst *int64) {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			*dst = i
		}
	}
}

func envBool(key string, dst *bool) {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}

func envDuration(key string, dst *time.Duration) {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}
