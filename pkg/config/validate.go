package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "server.listen_address").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. All errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	if _, _, err := net.SplitHostPort(cfg.Server.ListenAddress); err != nil {
		errs = append(errs, FieldError{"server.listen_address", fmt.Sprintf("invalid address %q", cfg.Server.ListenAddress)})
	}
	if cfg.Store.Path == "" {
		errs = append(errs, FieldError{"store.path", "must not be empty"})
	}
	if cfg.Store.MaxOpenConns < 1 {
		errs = append(errs, FieldError{"store.max_open_conns", "must be at least 1"})
	}
	if cfg.Audit.Enabled && cfg.Audit.Path == "" {
		errs = append(errs, FieldError{"audit.path", "must not be empty when audit is enabled"})
	}
	if cfg.Audit.AsyncBuffer < 1 {
		errs = append(errs, FieldError{"audit.async_buffer", "must be at least 1"})
	}
	if cfg.Audit.RetentionDays < 0 {
		errs = append(errs, FieldError{"audit.retention_days", "must not be negative"})
	}
	if cfg.Audit.MaxRecords < 0 {
		errs = append(errs, FieldError{"audit.max_records", "must not be negative"})
	}
	if cfg.Audit.PruneSchedule != "" {
		if _, err := cron.ParseStandard(cfg.Audit.PruneSchedule); err != nil {
			errs = append(errs, FieldError{"audit.prune_schedule", fmt.Sprintf("invalid cron expression %q", cfg.Audit.PruneSchedule)})
		}
	}
	if cfg.Decision.CacheTTL <= 0 {
		errs = append(errs, FieldError{"decision.cache_ttl", "must be positive"})
	}
	if cfg.Decision.EnrichmentTimeout <= 0 {
		errs = append(errs, FieldError{"decision.enrichment_timeout", "must be positive"})
	}
	errs = append(errs, validateService("scoring.scoring", &cfg.Scoring.Scoring)...)
	errs = append(errs, validateService("scoring.similarity", &cfg.Scoring.Similarity)...)

	switch cfg.Telemetry.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, FieldError{"telemetry.logging.level", fmt.Sprintf("unknown level %q", cfg.Telemetry.Logging.Level)})
	}
	switch cfg.Telemetry.Logging.Format {
	case "json", "text":
	default:
		errs = append(errs, FieldError{"telemetry.logging.format", fmt.Sprintf("unknown format %q", cfg.Telemetry.Logging.Format)})
	}
	if cfg.Telemetry.Metrics.Enabled && !strings.HasPrefix(cfg.Telemetry.Metrics.Path, "/") {
		errs = append(errs, FieldError{"telemetry.metrics.path", "must start with /"})
	}

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateService(field string, svc *ServiceConfig) []FieldError {
	var errs []FieldError
	if !svc.Enabled {
		return nil
	}
	if svc.BaseURL == "" {
		// An enabled service with no URL is treated as absent at runtime,
		// not a configuration error.
		return nil
	}
	u, err := url.Parse(svc.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, FieldError{field + ".base_url", fmt.Sprintf("invalid URL %q", svc.BaseURL)})
	}
	if svc.Timeout <= 0 {
		errs = append(errs, FieldError{field + ".timeout", "must be positive"})
	}
	return errs
}
