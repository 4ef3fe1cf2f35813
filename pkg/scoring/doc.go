// Package scoring holds the HTTP clients for the external model
// scoring service and the similar-transaction search service. Both are
// best-effort dependencies: callers bound each call with a context
// deadline and treat failures as a signal to fall back to pure policy.
package scoring
