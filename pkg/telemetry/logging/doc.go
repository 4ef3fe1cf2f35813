// Package logging configures the process-wide slog logger for Vega.
//
// Loggers are plain slog loggers built from config.LoggingConfig. When
// redaction is enabled, string attribute values pass through a Redactor
// that masks card numbers, API keys, emails, and any custom patterns
// before they reach the output.
package logging
