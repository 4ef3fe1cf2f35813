package rules

import (
	"errors"
	"testing"
	"time"
)

func TestParseRejectsMalformedExpressions(t *testing.T) {
	tests := []struct {
		name       string
		expression string
	}{
		{"dangling operator", "amount_minor >"},
		{"missing field", "> 100"},
		{"unbalanced paren", "(amount_minor > 100"},
		{"unterminated string", `network == "visa`},
		{"bare not in without list", "network not in"},
		{"not without in", "network not visa"},
		{"trailing garbage", "amount_minor > 100 xyz"},
		{"list without bracket", "network in visa, mastercard"},
		{"unexpected character", "amount_minor > 100 && retry_count > 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.expression)
			if err == nil {
				t.Fatalf("Parse(%q) succeeded, want error", tt.expression)
			}
			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("error is %T, want *ParseError", err)
			}
		})
	}
}

func TestParseEmptyExpression(t *testing.T) {
	for _, expression := range []string{"", "   ", "\t\n"} {
		expr, err := Parse(expression)
		if err != nil {
			t.Fatalf("Parse(%q) returned error: %v", expression, err)
		}
		if expr != nil {
			t.Fatalf("Parse(%q) = %+v, want nil", expression, expr)
		}
	}
}

func TestParseRejectsOversizedExpression(t *testing.T) {
	long := make([]byte, maxExprLength+1)
	for i := range long {
		long[i] = 'a'
	}
	if _, err := Parse(string(long)); err == nil {
		t.Fatal("expected error for oversized expression")
	}
}

func TestEvaluateString(t *testing.T) {
	ctx := map[string]any{
		"amount_minor":     float64(125000),
		"network":          "visa",
		"retry_count":      2,
		"supports_passkey": false,
		"risk_score":       0.82,
		"issuer_country":   "BR",
	}

	tests := []struct {
		name       string
		expression string
		want       bool
	}{
		{"greater than", "amount_minor > 100000", true},
		{"greater than false", "amount_minor > 200000", false},
		{"less equal", "risk_score <= 0.82", true},
		{"string equality", `network == "visa"`, true},
		{"single quotes", `network == 'visa'`, true},
		{"string inequality", `network != "amex"`, true},
		{"bool literal", "supports_passkey == false", true},
		{"int vs float coercion", "retry_count == 2.0", true},
		{"and", `amount_minor > 100000 and network == "visa"`, true},
		{"and short circuit", `amount_minor > 200000 and network == "visa"`, false},
		{"or", `network == "amex" or issuer_country == "BR"`, true},
		{"not", `not network == "amex"`, true},
		{"precedence or over and", `network == "amex" and retry_count > 5 or issuer_country == "BR"`, true},
		{"parens override precedence", `network == "amex" and (retry_count > 5 or issuer_country == "BR")`, false},
		{"in list", `network in ["visa", "mastercard"]`, true},
		{"in list miss", `network in ["amex", "elo"]`, false},
		{"not in list", `network not in ["amex", "elo"]`, true},
		{"numeric in list", "retry_count in [1, 2, 3]", true},
		{"missing field is false", "nonexistent > 1", false},
		{"not missing field", "not nonexistent > 1", true},
		{"non-numeric comparison is false", `network > 100`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EvaluateString(ctx, tt.expression)
			if err != nil {
				t.Fatalf("EvaluateString(%q) returned error: %v", tt.expression, err)
			}
			if got != tt.want {
				t.Errorf("EvaluateString(%q) = %v, want %v", tt.expression, got, tt.want)
			}
		})
	}
}

func TestEvaluateDottedFields(t *testing.T) {
	flat := Flatten(map[string]any{
		"amount_minor": 50000,
		"metadata": map[string]any{
			"ml_risk_tier":  "high",
			"ml_risk_score": 0.91,
		},
	})

	got, err := EvaluateString(flat, `metadata.ml_risk_tier in ["high", "critical"] and metadata.ml_risk_score > 0.9`)
	if err != nil {
		t.Fatalf("EvaluateString returned error: %v", err)
	}
	if !got {
		t.Error("expected dotted-field expression to match")
	}
	if _, ok := flat["metadata.ml_risk_tier"]; !ok {
		t.Error("Flatten did not produce metadata.ml_risk_tier key")
	}
	if _, ok := flat["metadata"]; ok {
		t.Error("Flatten kept the nested map under its original key")
	}
}

func TestEvaluateNilExpression(t *testing.T) {
	got, err := Evaluate(map[string]any{}, nil)
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if !got {
		t.Error("nil expression should always match")
	}
}

func TestMatchOrdersByPriorityThenRecency(t *testing.T) {
	now := time.Now()
	all := []Rule{
		{ID: "r1", Name: "older low priority", Type: "authentication", Expression: "amount_minor > 10", Priority: 10, Active: true, UpdatedAt: now.Add(-time.Hour)},
		{ID: "r2", Name: "high priority", Type: "authentication", Expression: "amount_minor > 10", Priority: 1, Active: true, UpdatedAt: now.Add(-2 * time.Hour)},
		{ID: "r3", Name: "newer low priority", Type: "authentication", Expression: "amount_minor > 10", Priority: 10, Active: true, UpdatedAt: now},
		{ID: "r4", Name: "wrong type", Type: "retry", Expression: "amount_minor > 10", Priority: 0, Active: true, UpdatedAt: now},
		{ID: "r5", Name: "inactive", Type: "authentication", Expression: "amount_minor > 10", Priority: 0, Active: false, UpdatedAt: now},
		{ID: "r6", Name: "no match", Type: "authentication", Expression: "amount_minor > 99999", Priority: 0, Active: true, UpdatedAt: now},
	}

	ctx := map[string]any{"amount_minor": 100}
	matched := Match(ctx, all, "authentication", nil)

	want := []string{"r2", "r3", "r1"}
	if len(matched) != len(want) {
		t.Fatalf("Match returned %d rules, want %d", len(matched), len(want))
	}
	for i, id := range want {
		if matched[i].ID != id {
			t.Errorf("matched[%d].ID = %s, want %s", i, matched[i].ID, id)
		}
	}
}

func TestMatchSkipsBrokenRule(t *testing.T) {
	all := []Rule{
		{ID: "bad", Name: "broken", Type: "retry", Expression: "retry_count >", Priority: 0, Active: true},
		{ID: "good", Name: "valid", Type: "retry", Expression: "retry_count >= 1", Priority: 1, Active: true},
	}

	matched := Match(map[string]any{"retry_count": 2}, all, "retry", nil)
	if len(matched) != 1 || matched[0].ID != "good" {
		t.Fatalf("Match = %+v, want only the valid rule", matched)
	}
}

func TestMatchEmptyExpressionAlwaysMatches(t *testing.T) {
	all := []Rule{
		{ID: "r1", Name: "catch-all", Type: "routing", Expression: "", Active: true},
	}
	matched := Match(map[string]any{}, all, "routing", nil)
	if len(matched) != 1 {
		t.Fatalf("Match returned %d rules, want 1", len(matched))
	}
}
