// Package experiment implements deterministic A/B bucketing and the
// statistical analysis of recorded experiment results.
//
// Assignment is idempotent: the first call for an (experiment, subject)
// pair persists a variant computed from a stable hash of the subject
// key, and every later call returns that stored row verbatim. Analysis
// joins assignments, decision logs and outcomes to compute per-variant
// approval rates, lift and a two-proportion z-test.
package experiment
