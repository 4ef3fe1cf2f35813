// Package rules implements the condition-expression engine used to
// override decision reasons.
//
// Expressions are a small fixed grammar over a flattened key→scalar view
// of the decision context:
//
//	amount_minor > 100000 and network == "visa"
//	metadata.ml_risk_tier in ["high", "critical"] or not supports_passkey
//
// An expression is parsed once into a tagged AST and evaluated by
// structural recursion. The evaluator never executes arbitrary code; a
// missing field makes the enclosing comparison false rather than raising
// an error.
package rules
