package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"meridian-hq/vega/pkg/audit"
	"meridian-hq/vega/pkg/decision"
)

func openBackends(t *testing.T) map[string]audit.Storage {
	t.Helper()
	s, err := NewSQLiteStorage(&SQLiteConfig{
		Path:         filepath.Join(t.TempDir(), "audit.db"),
		MaxOpenConns: 2,
		MaxIdleConns: 1,
		WALMode:      true,
		BusyTimeout:  time.Second,
	})
	if err != nil {
		t.Fatalf("open sqlite storage: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return map[string]audit.Storage{
		"sqlite": s,
		"memory": NewMemoryStorage(),
	}
}

func sampleDecision(auditID, decisionType, experimentID, variant string) *audit.DecisionLog {
	return &audit.DecisionLog{
		AuditID:      auditID,
		DecisionType: decisionType,
		ExperimentID: experimentID,
		Variant:      variant,
		Request:      map[string]any{"merchant_id": "m-1", "amount_minor": float64(12550)},
		Response:     map[string]any{"disposition": "approve", "reason": "low risk"},
	}
}

func TestStoreAndGetDecision(t *testing.T) {
	ctx := context.Background()
	for name, s := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			log := sampleDecision("aud-1", decision.TypeAuthentication, "exp-1", decision.VariantControl)
			if err := s.StoreDecision(ctx, log); err != nil {
				t.Fatalf("store: %v", err)
			}

			got, err := s.GetDecision(ctx, "aud-1")
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if got.DecisionType != decision.TypeAuthentication || got.Variant != decision.VariantControl {
				t.Errorf("round trip mismatch: %+v", got)
			}
			if got.Request["merchant_id"] != "m-1" {
				t.Errorf("request JSON lost: %v", got.Request)
			}
			if got.Response["disposition"] != "approve" {
				t.Errorf("response JSON lost: %v", got.Response)
			}

			if _, err := s.GetDecision(ctx, "missing"); !errors.Is(err, audit.ErrNotFound) {
				t.Errorf("missing decision: err = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestListDecisionsFilters(t *testing.T) {
	ctx := context.Background()
	for name, s := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			logs := []*audit.DecisionLog{
				sampleDecision("a-1", decision.TypeAuthentication, "exp-1", decision.VariantControl),
				sampleDecision("a-2", decision.TypeRetry, "exp-1", decision.VariantTreatment),
				sampleDecision("a-3", decision.TypeRetry, "", ""),
			}
			for _, l := range logs {
				if err := s.StoreDecision(ctx, l); err != nil {
					t.Fatalf("store %s: %v", l.AuditID, err)
				}
			}

			byType, err := s.ListDecisions(ctx, audit.DecisionQuery{DecisionType: decision.TypeRetry})
			if err != nil {
				t.Fatalf("list by type: %v", err)
			}
			if len(byType) != 2 {
				t.Errorf("want 2 retry decisions, got %d", len(byType))
			}

			byExp, err := s.ListDecisions(ctx, audit.DecisionQuery{ExperimentID: "exp-1"})
			if err != nil {
				t.Fatalf("list by experiment: %v", err)
			}
			if len(byExp) != 2 {
				t.Errorf("want 2 experiment decisions, got %d", len(byExp))
			}
		})
	}
}

func TestOutcomesByAudit(t *testing.T) {
	ctx := context.Background()
	for name, s := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			if err := s.StoreDecision(ctx, sampleDecision("a-1", decision.TypeAuthentication, "", "")); err != nil {
				t.Fatal(err)
			}

			latency := 230.0
			outcomes := []*audit.Outcome{
				{ID: "o-1", AuditID: "a-1", DecisionType: decision.TypeAuthentication, Outcome: "approved", LatencyMS: &latency},
				{ID: "o-2", AuditID: "a-1", DecisionType: decision.TypeAuthentication, Outcome: "chargeback", Code: "4863",
					Extra: map[string]any{"network": "visa"}},
			}
			for _, o := range outcomes {
				if err := s.StoreOutcome(ctx, o); err != nil {
					t.Fatalf("store outcome %s: %v", o.ID, err)
				}
			}

			got, err := s.OutcomesByAudit(ctx, "a-1")
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			if len(got) != 2 {
				t.Fatalf("want 2 outcomes, got %d", len(got))
			}
			if got[0].LatencyMS == nil || *got[0].LatencyMS != 230.0 {
				t.Errorf("latency lost: %+v", got[0])
			}
			if got[1].Extra["network"] != "visa" {
				t.Errorf("extra JSON lost: %+v", got[1])
			}
		})
	}
}

func TestVariantAggregates(t *testing.T) {
	ctx := context.Background()
	for name, s := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			seed := []struct {
				auditID string
				variant string
				outcome string
			}{
				{"c-1", decision.VariantControl, "approved"},
				{"c-2", decision.VariantControl, "declined"},
				{"t-1", decision.VariantTreatment, "approved"},
			}
			for _, row := range seed {
				if err := s.StoreDecision(ctx, sampleDecision(row.auditID, decision.TypeAuthentication, "exp-9", row.variant)); err != nil {
					t.Fatal(err)
				}
				if err := s.StoreOutcome(ctx, &audit.Outcome{
					ID: "o-" + row.auditID, AuditID: row.auditID,
					DecisionType: decision.TypeAuthentication, Outcome: row.outcome,
				}); err != nil {
					t.Fatal(err)
				}
			}
			// A decision outside the experiment must not be counted.
			if err := s.StoreDecision(ctx, sampleDecision("x-1", decision.TypeAuthentication, "", "")); err != nil {
				t.Fatal(err)
			}

			counts, err := s.DecisionCountsByVariant(ctx, "exp-9")
			if err != nil {
				t.Fatalf("counts: %v", err)
			}
			if counts[decision.VariantControl] != 2 || counts[decision.VariantTreatment] != 1 {
				t.Errorf("counts = %v", counts)
			}

			samples, err := s.OutcomesByVariant(ctx, "exp-9")
			if err != nil {
				t.Fatalf("samples: %v", err)
			}
			if len(samples[decision.VariantControl]) != 2 || len(samples[decision.VariantTreatment]) != 1 {
				t.Errorf("samples = %v", samples)
			}
		})
	}
}

func TestDeleteBefore(t *testing.T) {
	ctx := context.Background()
	for name, s := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			old := sampleDecision("old-1", decision.TypeRetry, "", "")
			old.CreatedAt = time.Now().Add(-48 * time.Hour)
			if err := s.StoreDecision(ctx, old); err != nil {
				t.Fatal(err)
			}
			if err := s.StoreDecision(ctx, sampleDecision("new-1", decision.TypeRetry, "", "")); err != nil {
				t.Fatal(err)
			}

			deleted, err := s.DeleteBefore(ctx, time.Now().Add(-24*time.Hour))
			if err != nil {
				t.Fatalf("delete: %v", err)
			}
			if deleted != 1 {
				t.Errorf("deleted = %d, want 1", deleted)
			}
			if _, err := s.GetDecision(ctx, "old-1"); !errors.Is(err, audit.ErrNotFound) {
				t.Errorf("old decision should be gone, err = %v", err)
			}
			if _, err := s.GetDecision(ctx, "new-1"); err != nil {
				t.Errorf("recent decision should survive: %v", err)
			}
		})
	}
}

func TestDeleteOldestDecisions(t *testing.T) {
	ctx := context.Background()
	for name, s := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			base := time.Now().Add(-time.Hour)
			for i := 0; i < 5; i++ {
				log := sampleDecision(
					string(rune('a'+i))+"-audit", decision.TypeRouting, "", "")
				log.CreatedAt = base.Add(time.Duration(i) * time.Minute)
				if err := s.StoreDecision(ctx, log); err != nil {
					t.Fatal(err)
				}
			}

			deleted, err := s.DeleteOldestDecisions(ctx, 2)
			if err != nil {
				t.Fatalf("trim: %v", err)
			}
			if deleted != 3 {
				t.Errorf("deleted = %d, want 3", deleted)
			}
			count, err := s.CountDecisions(ctx)
			if err != nil {
				t.Fatal(err)
			}
			if count != 2 {
				t.Errorf("count = %d, want 2", count)
			}
			// Newest rows survive.
			if _, err := s.GetDecision(ctx, "e-audit"); err != nil {
				t.Errorf("newest decision should survive: %v", err)
			}
		})
	}
}
