// Package engine orchestrates payment decisioning: it resolves the
// experiment variant, loads cached operator datasets, enriches the
// decision context with similarity and model scores, runs the policy
// functions, applies operator rule overrides, and records the decision
// for audit.
//
// Datasets (parameters, decline codes, route scores, rules, and agent
// recommendations) are read through TTL snapshot caches so the hot path
// never waits on the store while a fresh snapshot exists. Every external
// dependency degrades gracefully: enrichment failures leave the context
// unenriched, rule loading failures skip overrides, and an orchestration
// panic falls back to the pure policy functions with default parameters.
package engine
