package store

import (
	"context"
	"errors"
	"time"

	"meridian-hq/vega/pkg/decision"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("store: not found")

// Experiment statuses.
const (
	ExperimentDraft   = "draft"
	ExperimentRunning = "running"
	ExperimentPaused  = "paused"
	ExperimentStopped = "stopped"
)

// Rule is an operator-authored decision rule. Rules are created and
// maintained by an external operator workflow; the engine only reads an
// active, type-filtered view.
type Rule struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name"`
	RuleType            string    `json:"rule_type"` // authentication | retry | routing
	ConditionExpression string    `json:"condition_expression,omitempty"`
	ActionSummary       string    `json:"action_summary"`
	Priority            int       `json:"priority"`
	Active              bool      `json:"is_active"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// RuleUpdate is a partial update to a rule; nil fields are left as-is.
type RuleUpdate struct {
	Name                *string
	RuleType            *string
	ConditionExpression *string
	ActionSummary       *string
	Priority            *int
	Active              *bool
}

// RuleQuery filters a rule listing.
type RuleQuery struct {
	RuleType   string // empty = all types
	ActiveOnly bool
	Limit      int // 0 = default (200)
}

// Recommendation is an agent-authored suggestion consumed read-only by
// the engine, ranked by confidence within a recency window.
type Recommendation struct {
	ID                string    `json:"id"`
	RecommendationType string   `json:"recommendation_type"`
	Segment           string    `json:"segment,omitempty"`
	ActionSummary     string    `json:"action_summary"`
	ExpectedImpactPct float64   `json:"expected_impact_pct"`
	Confidence        float64   `json:"confidence"`
	Status            string    `json:"status"`
	CreatedAt         time.Time `json:"created_at"`
}

// Experiment is an A/B experiment definition.
type Experiment struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	EndedAt     *time.Time `json:"ended_at,omitempty"`
}

// Assignable reports whether new subjects may still be enrolled.
func (e *Experiment) Assignable() bool {
	return e.Status == ExperimentDraft || e.Status == ExperimentRunning
}

// Assignment maps an (experiment, subject) pair to a variant. The pair
// is unique for the lifetime of the experiment.
type Assignment struct {
	ID           int64     `json:"id"`
	ExperimentID string    `json:"experiment_id"`
	SubjectKey   string    `json:"subject_key"`
	Variant      string    `json:"variant"`
	CreatedAt    time.Time `json:"created_at"`
}

// OnlineFeature is a single feature value written by the enrichment
// path for later inspection and model training.
type OnlineFeature struct {
	ID          string    `json:"id"`
	Source      string    `json:"source"`
	FeatureSet  string    `json:"feature_set"`
	FeatureName string    `json:"feature_name"`
	Value       *float64  `json:"feature_value,omitempty"`
	ValueStr    *string   `json:"feature_value_str,omitempty"`
	EntityID    string    `json:"entity_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store is the row-oriented configuration and experiment store.
type Store interface {
	// Cached dataset reads used by the engine's TTL caches.
	ConfigEntries(ctx context.Context) (map[string]string, error)
	DeclineCodes(ctx context.Context) ([]decision.RetryableCode, error)
	RouteScores(ctx context.Context) ([]decision.RouteScore, error)
	ListRules(ctx context.Context, q RuleQuery) ([]Rule, error)
	Recommendations(ctx context.Context, window time.Duration, limit int) ([]Recommendation, error)

	// Operator-facing configuration writes.
	SetConfigEntry(ctx context.Context, key, value, description string) error
	UpsertDeclineCode(ctx context.Context, code decision.RetryableCode, active bool) error
	UpsertRouteScore(ctx context.Context, route decision.RouteScore, active bool) error

	// Rule CRUD (operator workflow).
	GetRule(ctx context.Context, id string) (*Rule, error)
	CreateRule(ctx context.Context, r *Rule) error
	UpdateRule(ctx context.Context, id string, upd RuleUpdate) (*Rule, error)
	DeleteRule(ctx context.Context, id string) error

	// Experiments.
	CreateExperiment(ctx context.Context, e *Experiment) error
	GetExperiment(ctx context.Context, id string) (*Experiment, error)
	ListExperiments(ctx context.Context, limit int) ([]Experiment, error)
	SetExperimentStatus(ctx context.Context, id, status string) (*Experiment, error)
	GetAssignment(ctx context.Context, experimentID, subjectKey string) (*Assignment, error)
	PutAssignment(ctx context.Context, a Assignment) (*Assignment, error)
	ListAssignments(ctx context.Context, experimentID string, limit int) ([]Assignment, error)

	// Online features.
	WriteFeatures(ctx context.Context, entityID, source, featureSet string, features map[string]any) error
	FeaturesByEntity(ctx context.Context, entityID string, limit int) ([]OnlineFeature, error)

	// Ping verifies the store is reachable; used at startup where an
	// unreachable store is fatal.
	Ping(ctx context.Context) error
	Close() error
}
