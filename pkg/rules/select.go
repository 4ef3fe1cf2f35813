package rules

import (
	"log/slog"
	"sort"
	"time"
)

// Rule is the evaluator's view of an operator-authored rule. The
// configuration store owns the full entity; only the fields needed for
// matching and override provenance appear here.
type Rule struct {
	ID            string
	Name          string
	Type          string // authentication | retry | routing
	Expression    string // raw condition expression, empty means always-match
	ActionSummary string
	Priority      int // lower value wins
	Active        bool
	UpdatedAt     time.Time
}

// Match evaluates every active rule of the given type against the
// flattened context and returns the matching rules ordered by ascending
// priority, ties broken by most-recently-updated. A rule whose
// expression fails to parse or evaluate is logged and skipped; one bad
// rule never aborts the others.
func Match(ctx map[string]any, all []Rule, ruleType string, logger *slog.Logger) []Rule {
	if logger == nil {
		logger = slog.Default()
	}

	var matched []Rule
	for _, rule := range all {
		if !rule.Active || rule.Type != ruleType {
			continue
		}
		ok, err := EvaluateString(ctx, rule.Expression)
		if err != nil {
			logger.Debug("rule evaluation failed, skipping",
				"rule_id", rule.ID,
				"rule_name", rule.Name,
				"error", err,
			)
			continue
		}
		if ok {
			matched = append(matched, rule)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].Priority != matched[j].Priority {
			return matched[i].Priority < matched[j].Priority
		}
		return matched[i].UpdatedAt.After(matched[j].UpdatedAt)
	})
	return matched
}
