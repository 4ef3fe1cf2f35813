package scoring

import (
	"fmt"
	"time"
)

// ClientConfig configures a scoring service client.
type ClientConfig struct {
	// Name identifies the client in logs and health reports.
	Name string

	// BaseURL is the root URL of the scoring service, without a
	// trailing slash.
	BaseURL string

	// APIKey, when set, is sent as a bearer token.
	APIKey string

	// Timeout is the whole-client request timeout. Individual calls
	// may be bounded tighter via their context.
	Timeout time.Duration

	// Connection pool settings.
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
}

// ApplyDefaults fills zero-valued fields with sane defaults.
func (c *ClientConfig) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "scoring"
	}
	if c.Timeout == 0 {
		c.Timeout = 5 * time.Second
	}
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = 50
	}
	if c.MaxIdleConnsPerHost == 0 {
		c.MaxIdleConnsPerHost = 10
	}
	if c.IdleConnTimeout == 0 {
		c.IdleConnTimeout = 90 * time.Second
	}
}

// Health is a snapshot of a client's recent request history.
type Health struct {
	IsHealthy             bool
	LastCheck             time.Time
	ConsecutiveFailures   int
	LastError             error
	LastSuccessfulRequest time.Time
	TotalRequests         int64
	FailedRequests        int64
}

// ServiceError is a non-2xx response from the scoring service.
type ServiceError struct {
	Service    string
	StatusCode int
	Message    string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("scoring service %s returned status %d: %s", e.Service, e.StatusCode, e.Message)
}

// RiskResult is the fraud model's verdict for a feature vector.
type RiskResult struct {
	RiskScore    float64 `json:"risk_score"`
	RiskTier     string  `json:"risk_tier"`
	IsHighRisk   bool    `json:"is_high_risk"`
	ModelVersion string  `json:"model_version,omitempty"`
}

// ApprovalResult is the approval propensity model's verdict.
type ApprovalResult struct {
	ApprovalProbability float64 `json:"approval_probability"`
	ShouldApprove       bool    `json:"should_approve"`
	ModelVersion        string  `json:"model_version,omitempty"`
}

// RetryResult is the retry success model's verdict.
type RetryResult struct {
	ShouldRetry             bool    `json:"should_retry"`
	RetrySuccessProbability float64 `json:"retry_success_probability"`
	RetryDelaySeconds       int     `json:"retry_delay_seconds"`
	ModelVersion            string  `json:"model_version,omitempty"`
}

// RouteResult is the routing model's recommended payment solution.
type RouteResult struct {
	RecommendedSolution string   `json:"recommended_solution"`
	Confidence          float64  `json:"confidence"`
	Alternatives        []string `json:"alternatives,omitempty"`
	ModelVersion        string   `json:"model_version,omitempty"`
}

// SimilarTxn is one neighbour returned by the similarity service.
type SimilarTxn struct {
	TransactionID   string  `json:"transaction_id,omitempty"`
	PaymentSolution string  `json:"payment_solution"`
	ApprovalRatePct float64 `json:"approval_rate_pct"`
	AvgFraudScore   float64 `json:"avg_fraud_score"`
	Similarity      float64 `json:"similarity,omitempty"`
}
