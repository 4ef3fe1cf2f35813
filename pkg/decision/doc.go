// Package decision defines the core data model for the decisioning engine:
// the transaction context, tunable parameters, the cached datasets
// (retryable decline codes, route performance scores), and the structured
// decision outputs for authentication, retry, and routing.
//
// Everything in this package is plain data with value semantics. Contexts
// are never mutated after construction; enrichment operates on deep copies.
package decision
