package retention

import (
	"context"
	"testing"
	"time"

	"meridian-hq/vega/pkg/audit"
	"meridian-hq/vega/pkg/audit/storage"
	"meridian-hq/vega/pkg/decision"
)

func seedDecisions(t *testing.T, s audit.Storage, n int, age time.Duration) {
	t.Helper()
	for i := 0; i < n; i++ {
		log := &audit.DecisionLog{
			AuditID:      audit.NewAuditID(),
			DecisionType: decision.TypeAuthentication,
			Request:      map[string]any{},
			Response:     map[string]any{},
			CreatedAt:    time.Now().Add(-age).Add(time.Duration(i) * time.Second),
		}
		if err := s.StoreDecision(context.Background(), log); err != nil {
			t.Fatal(err)
		}
	}
}

func TestPruneByAge(t *testing.T) {
	mem := storage.NewMemoryStorage()
	seedDecisions(t, mem, 3, 100*24*time.Hour)
	seedDecisions(t, mem, 2, time.Hour)

	p := NewPruner(mem, &Config{RetentionDays: 90})
	deleted, err := p.Prune(context.Background())
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if deleted != 3 {
		t.Errorf("deleted = %d, want 3", deleted)
	}
	count, _ := mem.CountDecisions(context.Background())
	if count != 2 {
		t.Errorf("remaining = %d, want 2", count)
	}
}

func TestPruneByCount(t *testing.T) {
	mem := storage.NewMemoryStorage()
	seedDecisions(t, mem, 10, time.Hour)

	p := NewPruner(mem, &Config{RetentionDays: 0, MaxRecords: 4})
	deleted, err := p.Prune(context.Background())
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if deleted != 6 {
		t.Errorf("deleted = %d, want 6", deleted)
	}
	count, _ := mem.CountDecisions(context.Background())
	if count != 4 {
		t.Errorf("remaining = %d, want 4", count)
	}
}

func TestPruneDisabled(t *testing.T) {
	mem := storage.NewMemoryStorage()
	seedDecisions(t, mem, 5, 365*24*time.Hour)

	p := NewPruner(mem, &Config{RetentionDays: 0, MaxRecords: 0})
	deleted, err := p.Prune(context.Background())
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if deleted != 0 {
		t.Errorf("deleted = %d, want 0 when retention disabled", deleted)
	}
}

func TestSchedulerLifecycle(t *testing.T) {
	mem := storage.NewMemoryStorage()
	p := NewPruner(mem, &Config{RetentionDays: 90, PruneSchedule: "0 3 * * *"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := p.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !p.scheduler.IsRunning() {
		t.Error("scheduler should be running")
	}
	if p.NextPruning() == nil {
		t.Error("next pruning time should be scheduled")
	}

	p.Stop()
	if p.scheduler.IsRunning() {
		t.Error("scheduler should be stopped")
	}
}

func TestSchedulerInvalidCron(t *testing.T) {
	mem := storage.NewMemoryStorage()
	p := NewPruner(mem, &Config{PruneSchedule: "not a cron expr"})

	if err := p.Start(context.Background()); err == nil {
		t.Error("invalid cron expression should fail Start")
	}
}

func TestSchedulerEmptyScheduleIsNoop(t *testing.T) {
	mem := storage.NewMemoryStorage()
	p := NewPruner(mem, &Config{PruneSchedule: ""})

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("empty schedule should be a no-op, got %v", err)
	}
	if p.scheduler.IsRunning() {
		t.Error("scheduler should not run without a schedule")
	}
}
