package decision

import (
	"fmt"
	"sort"
	"strings"
)

// Decision types supported by the engine.
const (
	TypeAuthentication = "authentication"
	TypeRetry          = "retry"
	TypeRouting        = "routing"
)

// Experiment variants.
const (
	VariantControl   = "control"
	VariantTreatment = "treatment"
)

// Context describes a single payment event to decide on.
// It is immutable by convention: the engine never modifies a Context in
// place. Enrichment produces a copy via Clone so that shared or cached
// contexts can be read concurrently.
type Context struct {
	MerchantID  string `json:"merchant_id"`
	AmountMinor int64  `json:"amount_minor"`
	Currency    string `json:"currency"`

	Network       string `json:"network,omitempty"`
	CardBIN       string `json:"card_bin,omitempty"`
	IssuerCountry string `json:"issuer_country,omitempty"`
	EntryMode     string `json:"entry_mode,omitempty"`

	AttemptNumber int    `json:"attempt_number"`
	DeclineCode   string `json:"decline_code,omitempty"`
	IsRecurring   bool   `json:"is_recurring,omitempty"`

	RiskScore        *float64 `json:"risk_score,omitempty"`
	DeviceTrustScore *float64 `json:"device_trust_score,omitempty"`
	SupportsPasskey  bool     `json:"supports_passkey,omitempty"`

	Metadata map[string]any `json:"metadata,omitempty"`

	ExperimentID string `json:"experiment_id,omitempty"`
	SubjectKey   string `json:"subject_key,omitempty"`
}

// ValidationError reports a malformed decision context.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid context: field %q %s", e.Field, e.Message)
}

// Validate checks that the context is well formed. It is the only check
// that can reject a request before decisioning begins.
func (c *Context) Validate() error {
	if strings.TrimSpace(c.MerchantID) == "" {
		return &ValidationError{Field: "merchant_id", Message: "must not be empty"}
	}
	if c.AmountMinor < 0 {
		return &ValidationError{Field: "amount_minor", Message: "must not be negative"}
	}
	if len(c.Currency) != 3 {
		return &ValidationError{Field: "currency", Message: "must be a 3-letter code"}
	}
	if c.AttemptNumber < 0 {
		return &ValidationError{Field: "attempt_number", Message: "must not be negative"}
	}
	if c.RiskScore != nil && (*c.RiskScore < 0 || *c.RiskScore > 1) {
		return &ValidationError{Field: "risk_score", Message: "must be in [0,1]"}
	}
	if c.DeviceTrustScore != nil && (*c.DeviceTrustScore < 0 || *c.DeviceTrustScore > 1) {
		return &ValidationError{Field: "device_trust_score", Message: "must be in [0,1]"}
	}
	return nil
}

// Clone returns a deep copy of the context. The metadata map is copied
// one level deep, which is sufficient because metadata values are scalars
// by contract.
func (c *Context) Clone() *Context {
	out := *c
	if c.Metadata != nil {
		out.Metadata = make(map[string]any, len(c.Metadata))
		for k, v := range c.Metadata {
			out.Metadata[k] = v
		}
	}
	if c.RiskScore != nil {
		v := *c.RiskScore
		out.RiskScore = &v
	}
	if c.DeviceTrustScore != nil {
		v := *c.DeviceTrustScore
		out.DeviceTrustScore = &v
	}
	return &out
}

// WithMetadata returns a copy of the context with the given keys merged
// into its metadata. The receiver is not modified.
func (c *Context) WithMetadata(extra map[string]any) *Context {
	out := c.Clone()
	if out.Metadata == nil {
		out.Metadata = make(map[string]any, len(extra))
	}
	for k, v := range extra {
		out.Metadata[k] = v
	}
	return out
}

// Subject returns the experiment subject key, falling back to the
// merchant id when none was supplied.
func (c *Context) Subject() string {
	if c.SubjectKey != "" {
		return c.SubjectKey
	}
	return c.MerchantID
}

// RetryableCode maps a normalized decline code to its retry policy row.
type RetryableCode struct {
	Code                  string `json:"code"`
	Label                 string `json:"label,omitempty"`
	Category              string `json:"category"`
	DefaultBackoffSeconds int    `json:"default_backoff_seconds"`
	MaxAttempts           int    `json:"max_attempts"`
}

// BuildCodeMap builds the decline code lookup keyed by the lower-cased
// code. Rows with an empty code are dropped.
func BuildCodeMap(rows []RetryableCode) map[string]RetryableCode {
	out := make(map[string]RetryableCode, len(rows))
	for _, row := range rows {
		code := strings.ToLower(strings.TrimSpace(row.Code))
		if code == "" {
			continue
		}
		row.Code = code
		out[code] = row
	}
	return out
}

// RouteScore is a performance snapshot for one payment route.
type RouteScore struct {
	RouteName       string  `json:"route_name"`
	ApprovalRatePct float64 `json:"approval_rate_pct"`
	AvgLatencyMS    float64 `json:"avg_latency_ms"`
	CostScore       float64 `json:"cost_score"`
}

// RankRoutes sorts routes by the composite ranking used by the routing
// policy: higher approval rate first, then lower latency, then lower
// cost. Ranking happens once per cache refresh, not per read.
func RankRoutes(routes []RouteScore) []RouteScore {
	out := make([]RouteScore, len(routes))
	copy(out, routes)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ApprovalRatePct != out[j].ApprovalRatePct {
			return out[i].ApprovalRatePct > out[j].ApprovalRatePct
		}
		if out[i].AvgLatencyMS != out[j].AvgLatencyMS {
			return out[i].AvgLatencyMS < out[j].AvgLatencyMS
		}
		return out[i].CostScore < out[j].CostScore
	})
	return out
}

// AuthDecision is the outcome of an authentication decision.
type AuthDecision struct {
	AuditID     string         `json:"audit_id"`
	Disposition string         `json:"disposition"` // approve | challenge | decline
	RiskScore   float64        `json:"risk_score"`
	Reason      string         `json:"reason"`
	Variant     string         `json:"variant,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// RetryDecision is the outcome of a retry decision.
type RetryDecision struct {
	AuditID        string         `json:"audit_id"`
	ShouldRetry    bool           `json:"should_retry"`
	BackoffSeconds int            `json:"backoff_seconds"`
	MaxAttempts    int            `json:"max_attempts"`
	Reason         string         `json:"reason"`
	Variant        string         `json:"variant,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// RoutingDecision is the outcome of a routing decision.
type RoutingDecision struct {
	AuditID      string         `json:"audit_id"`
	PrimaryRoute string         `json:"primary_route"`
	Alternatives []string       `json:"alternatives,omitempty"`
	Reason       string         `json:"reason"`
	Variant      string         `json:"variant,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}
