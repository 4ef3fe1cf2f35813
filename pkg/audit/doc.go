// Package audit defines the decision audit trail: append-only decision
// logs written at decision time and outcome rows attached later by
// audit id. Decisions are immutable once written; corrections arrive as
// new outcomes, never as edits.
//
// Subpackages provide the storage backends (storage), the async
// recorder that keeps writes off the decision path (recorder), and
// scheduled retention pruning (retention).
package audit
