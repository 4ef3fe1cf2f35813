// Package store provides the row-oriented configuration and experiment
// store behind the decision engine: tunable parameter rows, retryable
// decline codes, route performance scores, approval rules, agent
// recommendations, experiments with their assignments, and online
// feature rows written by the enrichment path.
//
// The engine addresses the store only through simple predicates
// (equality, active/inactive, recency window, ordering, limit); no
// decision logic depends on the storage engine. Two backends are
// provided: SQLite for deployments and an in-memory backend for tests.
package store
