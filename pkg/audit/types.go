package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"meridian-hq/vega/pkg/experiment"
)

// DecisionLog is one decision's request/response pair, keyed by the
// audit id generated at decision time.
type DecisionLog struct {
	AuditID      string         `json:"audit_id"`
	DecisionType string         `json:"decision_type"`
	ExperimentID string         `json:"experiment_id,omitempty"`
	Variant      string         `json:"variant,omitempty"`
	Request      map[string]any `json:"request"`
	Response     map[string]any `json:"response"`
	CreatedAt    time.Time      `json:"created_at"`
}

// Outcome is a later-arriving result for a decision. Append-only; a
// decision may accumulate several outcomes (authorized, then
// chargeback).
type Outcome struct {
	ID           string         `json:"id"`
	AuditID      string         `json:"audit_id"`
	DecisionType string         `json:"decision_type"`
	Outcome      string         `json:"outcome"`
	Code         string         `json:"code,omitempty"`
	Reason       string         `json:"reason,omitempty"`
	LatencyMS    *float64       `json:"latency_ms,omitempty"`
	Extra        map[string]any `json:"extra,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// DecisionQuery filters decision log listings.
type DecisionQuery struct {
	DecisionType string
	ExperimentID string
	Since        time.Time
	Limit        int // 0 = default (100)
}

// NewAuditID generates a fresh audit id for a decision.
func NewAuditID() string {
	return uuid.New().String()
}

// Storage is the audit trail backend. It also serves as the result
// source for experiment analysis via the per-variant aggregate reads.
type Storage interface {
	StoreDecision(ctx context.Context, log *DecisionLog) error
	StoreOutcome(ctx context.Context, o *Outcome) error

	GetDecision(ctx context.Context, auditID string) (*DecisionLog, error)
	ListDecisions(ctx context.Context, q DecisionQuery) ([]*DecisionLog, error)
	OutcomesByAudit(ctx context.Context, auditID string) ([]*Outcome, error)

	// Experiment analysis aggregates (experiment.ResultSource).
	DecisionCountsByVariant(ctx context.Context, experimentID string) (map[string]int, error)
	OutcomesByVariant(ctx context.Context, experimentID string) (map[string][]experiment.OutcomeSample, error)

	// Retention.
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
	CountDecisions(ctx context.Context) (int64, error)
	DeleteOldestDecisions(ctx context.Context, keep int64) (int64, error)

	Ping(ctx context.Context) error
	Close() error
}
