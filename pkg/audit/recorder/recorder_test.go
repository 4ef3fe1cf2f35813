package recorder

import (
	"context"
	"testing"
	"time"

	"meridian-hq/vega/pkg/audit"
	"meridian-hq/vega/pkg/audit/storage"
	"meridian-hq/vega/pkg/decision"
)

func TestRecordDecisionAsync(t *testing.T) {
	mem := storage.NewMemoryStorage()
	r := NewRecorder(mem, nil)
	defer r.Close()

	r.RecordDecision(&audit.DecisionLog{
		AuditID:      "aud-1",
		DecisionType: decision.TypeAuthentication,
		Request:      map[string]any{"merchant_id": "m-1"},
		Response:     map[string]any{"disposition": "approve"},
	})

	// The write is async; poll briefly.
	deadline := time.Now().Add(2 * time.Second)
	for {
		got, err := mem.GetDecision(context.Background(), "aud-1")
		if err == nil {
			if got.DecisionType != decision.TypeAuthentication {
				t.Errorf("decision type = %q", got.DecisionType)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("decision log never reached storage")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestRecordDecisionAssignsAuditID(t *testing.T) {
	mem := storage.NewMemoryStorage()
	r := NewRecorder(mem, nil)
	defer r.Close()

	log := &audit.DecisionLog{DecisionType: decision.TypeRetry}
	r.RecordDecision(log)
	if log.AuditID == "" {
		t.Error("RecordDecision should assign an audit id")
	}
}

func TestCloseDrainsQueue(t *testing.T) {
	mem := storage.NewMemoryStorage()
	r := NewRecorder(mem, &Config{Enabled: true, AsyncBuffer: 100, WriteTimeout: time.Second})

	for i := 0; i < 50; i++ {
		r.RecordDecision(&audit.DecisionLog{
			DecisionType: decision.TypeRouting,
			Request:      map[string]any{},
			Response:     map[string]any{},
		})
	}
	if err := r.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	count, err := mem.CountDecisions(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if count != 50 {
		t.Errorf("count after close = %d, want 50", count)
	}
}

func TestRecordOutcomeSuccess(t *testing.T) {
	mem := storage.NewMemoryStorage()
	r := NewRecorder(mem, nil)
	defer r.Close()

	latency := 180.0
	ok := r.RecordOutcome("aud-1", decision.TypeAuthentication, "approved", "", "", &latency,
		map[string]any{"processor": "acquirer_a"})
	if !ok {
		t.Fatal("RecordOutcome should succeed")
	}

	got, err := mem.OutcomesByAudit(context.Background(), "aud-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("want 1 outcome, got %d", len(got))
	}
	if got[0].ID == "" {
		t.Error("outcome should get a generated id")
	}
	if got[0].LatencyMS == nil || *got[0].LatencyMS != 180.0 {
		t.Errorf("latency lost: %+v", got[0])
	}
}

func TestRecordOutcomeStorageFailure(t *testing.T) {
	mem := storage.NewMemoryStorage()
	mem.Fail = true
	r := NewRecorder(mem, nil)
	defer r.Close()

	// Storage failure must surface as false, never a panic or error.
	if ok := r.RecordOutcome("aud-1", decision.TypeRetry, "declined", "05", "", nil, nil); ok {
		t.Error("RecordOutcome should report false when storage is down")
	}
}

func TestRecorderDisabled(t *testing.T) {
	mem := storage.NewMemoryStorage()
	r := NewRecorder(mem, &Config{Enabled: false})
	defer r.Close()

	r.RecordDecision(&audit.DecisionLog{AuditID: "aud-1", DecisionType: decision.TypeRetry})
	if ok := r.RecordOutcome("aud-1", decision.TypeRetry, "approved", "", "", nil, nil); ok {
		t.Error("disabled recorder should not record outcomes")
	}
	if err := r.Close(); err != nil {
		t.Fatal(err)
	}
	count, err := mem.CountDecisions(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("disabled recorder wrote %d records", count)
	}
}
