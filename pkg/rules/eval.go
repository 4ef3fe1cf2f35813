package rules

import (
	"fmt"
	"reflect"
	"strings"
)

// Evaluate evaluates a parsed expression against a flattened context.
// A nil expression always matches. A comparison against a missing field
// is false, not an error; errors are reserved for malformed ASTs.
func Evaluate(ctx map[string]any, expr *Expr) (bool, error) {
	if expr == nil {
		return true, nil
	}

	switch expr.Type {
	case ExprComparison:
		return evaluateComparison(ctx, expr)

	case ExprAnd:
		for _, child := range expr.Children {
			matched, err := Evaluate(ctx, child)
			if err != nil {
				return false, err
			}
			if !matched {
				return false, nil
			}
		}
		return true, nil

	case ExprOr:
		for _, child := range expr.Children {
			matched, err := Evaluate(ctx, child)
			if err != nil {
				return false, err
			}
			if matched {
				return true, nil
			}
		}
		return false, nil

	case ExprNot:
		if len(expr.Children) != 1 {
			return false, fmt.Errorf("not node must have exactly one child, got %d", len(expr.Children))
		}
		matched, err := Evaluate(ctx, expr.Children[0])
		if err != nil {
			return false, err
		}
		return !matched, nil

	default:
		return false, fmt.Errorf("unknown expression type: %q", expr.Type)
	}
}

// EvaluateString parses and evaluates in one call. Used by callers that
// do not cache parsed expressions.
func EvaluateString(ctx map[string]any, expression string) (bool, error) {
	expr, err := Parse(expression)
	if err != nil {
		return false, err
	}
	return Evaluate(ctx, expr)
}

func evaluateComparison(ctx map[string]any, expr *Expr) (bool, error) {
	actual, ok := ctx[expr.Field]
	if !ok {
		// Unknown identifier: the comparison is false, never an error.
		return false, nil
	}

	switch expr.Op {
	case OpEqual:
		return valuesEqual(actual, expr.Value), nil
	case OpNotEqual:
		return !valuesEqual(actual, expr.Value), nil
	case OpLessThan, OpLessEqual, OpGreaterThan, OpGreaterEqual:
		a, b, err := toNumericPair(actual, expr.Value)
		if err != nil {
			return false, nil // non-numeric operand: no match
		}
		switch expr.Op {
		case OpLessThan:
			return a < b, nil
		case OpLessEqual:
			return a <= b, nil
		case OpGreaterThan:
			return a > b, nil
		default:
			return a >= b, nil
		}
	case OpIn, OpNotIn:
		list, ok := expr.Value.([]any)
		if !ok {
			return false, fmt.Errorf("operator %q requires a list value", expr.Op)
		}
		found := false
		for _, item := range list {
			if valuesEqual(actual, item) {
				found = true
				break
			}
		}
		if expr.Op == OpNotIn {
			return !found, nil
		}
		return found, nil
	default:
		return false, fmt.Errorf("unknown operator: %q", expr.Op)
	}
}

// valuesEqual compares with numeric coercion first (int vs float64),
// then falls back to deep equality.
func valuesEqual(actual, expected any) bool {
	if actual == nil || expected == nil {
		return actual == nil && expected == nil
	}
	an, aerr := toFloat64(actual)
	bn, berr := toFloat64(expected)
	if aerr == nil && berr == nil {
		return an == bn
	}
	as, aok := actual.(string)
	bs, bok := expected.(string)
	if aok && bok {
		return as == bs
	}
	return reflect.DeepEqual(actual, expected)
}

func toNumericPair(actual, expected any) (float64, float64, error) {
	a, err := toFloat64(actual)
	if err != nil {
		return 0, 0, fmt.Errorf("cannot convert actual value to number: %w", err)
	}
	b, err := toFloat64(expected)
	if err != nil {
		return 0, 0, fmt.Errorf("cannot convert expected value to number: %w", err)
	}
	return a, b, nil
}

func toFloat64(v any) (float64, error) {
	switch val := v.(type) {
	case float64:
		return val, nil
	case float32:
		return float64(val), nil
	case int:
		return float64(val), nil
	case int32:
		return float64(val), nil
	case int64:
		return float64(val), nil
	case uint:
		return float64(val), nil
	case uint32:
		return float64(val), nil
	case uint64:
		return float64(val), nil
	case bool:
		if val {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("cannot convert %T to float64", v)
	}
}

// Flatten converts a nested map into a flat key→scalar view using "."
// as the separator, e.g. metadata.ml_risk_tier. Non-map, non-scalar
// values (slices) are kept as-is so "in"-style checks stay possible.
func Flatten(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	flattenInto(out, "", m)
	return out
}

func flattenInto(out map[string]any, prefix string, m map[string]any) {
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := v.(map[string]any); ok {
			flattenInto(out, key, nested)
			continue
		}
		out[strings.TrimSpace(key)] = v
	}
}
