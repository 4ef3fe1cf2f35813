// Package telemetry groups the observability subpackages: structured
// logging with redaction (logging) and Prometheus metrics (metrics).
package telemetry
