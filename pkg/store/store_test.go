package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"meridian-hq/vega/pkg/decision"
)

func openBackends(t *testing.T) map[string]Store {
	t.Helper()
	s, err := NewSQLiteStore(SQLiteConfig{Path: filepath.Join(t.TempDir(), "vega.db")})
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return map[string]Store{
		"sqlite": s,
		"memory": NewMemoryStore(),
	}
}

func TestConfigEntriesRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, s := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			if err := s.SetConfigEntry(ctx, "risk_threshold_high", "0.80", "tightened"); err != nil {
				t.Fatalf("set: %v", err)
			}
			if err := s.SetConfigEntry(ctx, " retry_max_attempts_control ", " 5 ", ""); err != nil {
				t.Fatalf("set trimmed: %v", err)
			}
			got, err := s.ConfigEntries(ctx)
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			if got["risk_threshold_high"] != "0.80" {
				t.Errorf("risk_threshold_high = %q, want 0.80", got["risk_threshold_high"])
			}
			if got["retry_max_attempts_control"] != "5" {
				t.Errorf("keys and values should be trimmed, got %v", got)
			}
		})
	}
}

func TestDeclineCodesActiveOnly(t *testing.T) {
	ctx := context.Background()
	for name, s := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			code := decision.RetryableCode{
				Code: "05", Label: "Do not honor", Category: "soft",
				DefaultBackoffSeconds: 900, MaxAttempts: 3,
			}
			if err := s.UpsertDeclineCode(ctx, code, true); err != nil {
				t.Fatalf("upsert: %v", err)
			}
			dead := decision.RetryableCode{Code: "14", Label: "Invalid card", Category: "hard"}
			if err := s.UpsertDeclineCode(ctx, dead, false); err != nil {
				t.Fatalf("upsert inactive: %v", err)
			}
			got, err := s.DeclineCodes(ctx)
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			if len(got) != 1 || got[0].Code != "05" {
				t.Fatalf("want only active code 05, got %+v", got)
			}
			if got[0].DefaultBackoffSeconds != 900 || got[0].MaxAttempts != 3 {
				t.Errorf("code fields lost: %+v", got[0])
			}
		})
	}
}

func TestRouteScoresRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, s := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			routes := []decision.RouteScore{
				{RouteName: "acquirer_a", ApprovalRatePct: 91.5, AvgLatencyMS: 120, CostScore: 0.4},
				{RouteName: "acquirer_b", ApprovalRatePct: 88.0, AvgLatencyMS: 80, CostScore: 0.2},
			}
			for _, r := range routes {
				if err := s.UpsertRouteScore(ctx, r, true); err != nil {
					t.Fatalf("upsert %s: %v", r.RouteName, err)
				}
			}
			got, err := s.RouteScores(ctx)
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			if len(got) != 2 {
				t.Fatalf("want 2 routes, got %d", len(got))
			}
		})
	}
}

func TestRuleCRUD(t *testing.T) {
	ctx := context.Background()
	for name, s := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			r := &Rule{
				Name:                "force 3ds on high amounts",
				RuleType:            decision.TypeAuthentication,
				ConditionExpression: "amount_minor > 500000",
				ActionSummary:       "require 3DS challenge",
				Priority:            10,
				Active:              true,
			}
			if err := s.CreateRule(ctx, r); err != nil {
				t.Fatalf("create: %v", err)
			}
			if r.ID == "" {
				t.Fatal("create should assign an id")
			}

			got, err := s.GetRule(ctx, r.ID)
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if got.Name != r.Name || got.Priority != 10 || !got.Active {
				t.Errorf("round trip mismatch: %+v", got)
			}

			active := false
			updated, err := s.UpdateRule(ctx, r.ID, RuleUpdate{Active: &active})
			if err != nil {
				t.Fatalf("update: %v", err)
			}
			if updated.Active {
				t.Error("update did not deactivate rule")
			}

			list, err := s.ListRules(ctx, RuleQuery{RuleType: decision.TypeAuthentication, ActiveOnly: true})
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(list) != 0 {
				t.Errorf("ActiveOnly should hide deactivated rule, got %d", len(list))
			}

			if err := s.DeleteRule(ctx, r.ID); err != nil {
				t.Fatalf("delete: %v", err)
			}
			if _, err := s.GetRule(ctx, r.ID); !errors.Is(err, ErrNotFound) {
				t.Errorf("get after delete: err = %v, want ErrNotFound", err)
			}
			if err := s.DeleteRule(ctx, r.ID); !errors.Is(err, ErrNotFound) {
				t.Errorf("double delete: err = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestListRulesOrdering(t *testing.T) {
	ctx := context.Background()
	for name, s := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			for _, spec := range []struct {
				name     string
				priority int
			}{
				{"low priority", 100},
				{"high priority", 1},
				{"mid priority", 50},
			} {
				r := &Rule{Name: spec.name, RuleType: decision.TypeRetry, Priority: spec.priority, Active: true, ActionSummary: "x"}
				if err := s.CreateRule(ctx, r); err != nil {
					t.Fatalf("create %s: %v", spec.name, err)
				}
			}
			list, err := s.ListRules(ctx, RuleQuery{RuleType: decision.TypeRetry})
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(list) != 3 {
				t.Fatalf("want 3 rules, got %d", len(list))
			}
			if list[0].Name != "high priority" || list[2].Name != "low priority" {
				t.Errorf("rules not sorted by priority: %s, %s, %s",
					list[0].Name, list[1].Name, list[2].Name)
			}
		})
	}
}

func TestExperimentLifecycle(t *testing.T) {
	ctx := context.Background()
	for name, s := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			e := &Experiment{Name: "retry backoff trial"}
			if err := s.CreateExperiment(ctx, e); err != nil {
				t.Fatalf("create: %v", err)
			}
			if e.Status != ExperimentDraft {
				t.Errorf("new experiment status = %q, want draft", e.Status)
			}

			running, err := s.SetExperimentStatus(ctx, e.ID, ExperimentRunning)
			if err != nil {
				t.Fatalf("start: %v", err)
			}
			if running.StartedAt == nil {
				t.Error("starting should stamp StartedAt")
			}

			stopped, err := s.SetExperimentStatus(ctx, e.ID, ExperimentStopped)
			if err != nil {
				t.Fatalf("stop: %v", err)
			}
			if stopped.EndedAt == nil {
				t.Error("stopping should stamp EndedAt")
			}
			if stopped.Assignable() {
				t.Error("stopped experiment must not be assignable")
			}

			if _, err := s.GetExperiment(ctx, "nope"); !errors.Is(err, ErrNotFound) {
				t.Errorf("missing experiment: err = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestPutAssignmentIdempotent(t *testing.T) {
	ctx := context.Background()
	for name, s := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			e := &Experiment{Name: "assignment test", Status: ExperimentRunning}
			if err := s.CreateExperiment(ctx, e); err != nil {
				t.Fatalf("create experiment: %v", err)
			}

			first, err := s.PutAssignment(ctx, Assignment{
				ExperimentID: e.ID, SubjectKey: "merchant-42", Variant: decision.VariantTreatment,
			})
			if err != nil {
				t.Fatalf("first put: %v", err)
			}

			// A conflicting write must return the stored row untouched.
			second, err := s.PutAssignment(ctx, Assignment{
				ExperimentID: e.ID, SubjectKey: "merchant-42", Variant: decision.VariantControl,
			})
			if err != nil {
				t.Fatalf("second put: %v", err)
			}
			if second.Variant != decision.VariantTreatment {
				t.Errorf("duplicate put changed variant to %q", second.Variant)
			}
			if second.ID != first.ID {
				t.Errorf("duplicate put created new row: %d != %d", second.ID, first.ID)
			}

			got, err := s.GetAssignment(ctx, e.ID, "merchant-42")
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if got.Variant != decision.VariantTreatment {
				t.Errorf("stored variant = %q, want treatment", got.Variant)
			}

			list, err := s.ListAssignments(ctx, e.ID, 0)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(list) != 1 {
				t.Errorf("want 1 assignment, got %d", len(list))
			}
		})
	}
}

func TestWriteFeatures(t *testing.T) {
	ctx := context.Background()
	for name, s := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			features := map[string]any{
				"amount":      125.50,
				"retry_count": 2,
				"is_weekend":  true,
				"network":     "visa",
				"skipped":     nil,
			}
			if err := s.WriteFeatures(ctx, "auth_abc123", "decision_engine", "auth_v1", features); err != nil {
				t.Fatalf("write: %v", err)
			}
			got, err := s.FeaturesByEntity(ctx, "auth_abc123", 10)
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			if len(got) != 4 {
				t.Fatalf("nil values must be dropped; want 4 features, got %d", len(got))
			}
			byName := map[string]OnlineFeature{}
			for _, f := range got {
				byName[f.FeatureName] = f
			}
			if f := byName["is_weekend"]; f.Value == nil || *f.Value != 1.0 {
				t.Errorf("bool feature should store 1.0, got %+v", f)
			}
			if f := byName["network"]; f.ValueStr == nil || *f.ValueStr != "visa" {
				t.Errorf("string feature should use the string column, got %+v", f)
			}
		})
	}
}

func TestRecommendationsWindow(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	m.AddRecommendation(Recommendation{
		RecommendationType: "retry_strategy",
		ActionSummary:      "shorten recurring backoff",
		Confidence:         0.9,
	})
	m.AddRecommendation(Recommendation{
		RecommendationType: "routing",
		ActionSummary:      "stale",
		Confidence:         0.99,
		CreatedAt:          time.Now().Add(-48 * time.Hour),
	})
	got, err := m.Recommendations(ctx, 24*time.Hour, 10)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 1 || got[0].ActionSummary != "shorten recurring backoff" {
		t.Fatalf("window filter failed: %+v", got)
	}
}

func TestPing(t *testing.T) {
	for name, s := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			if err := s.Ping(context.Background()); err != nil {
				t.Fatalf("ping: %v", err)
			}
		})
	}
}
