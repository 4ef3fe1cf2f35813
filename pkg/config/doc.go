// Package config defines the configuration structures for the Vega
// decisioning service and provides loading, defaulting, validation,
// environment overrides, and file watching.
//
// Configuration is loaded from a YAML file and may be overridden by
// environment variables with the VEGA_ prefix, for example
// VEGA_SERVER_LISTEN_ADDRESS or VEGA_STORE_PATH. Environment variables
// always take precedence over file values.
package config
