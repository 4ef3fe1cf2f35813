package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

// unhealthyAfter is the consecutive-failure count at which a client
// reports itself unhealthy.
const unhealthyAfter = 3

// Client talks to the model scoring service over HTTP with connection
// pooling and health tracking. It is safe for concurrent use.
type Client struct {
	config ClientConfig
	client *http.Client

	healthMu sync.RWMutex
	health   Health
}

// NewClient creates a scoring client with a pooled transport.
func NewClient(config ClientConfig) *Client {
	config.ApplyDefaults()

	transport := &http.Transport{
		MaxIdleConns:        config.MaxIdleConns,
		MaxIdleConnsPerHost: config.MaxIdleConnsPerHost,
		IdleConnTimeout:     config.IdleConnTimeout,
		ForceAttemptHTTP2:   true,
	}

	return &Client{
		config: config,
		client: &http.Client{
			Transport: transport,
			Timeout:   config.Timeout,
		},
		health: Health{
			IsHealthy:             true, // start optimistic
			LastCheck:             time.Now(),
			LastSuccessfulRequest: time.Now(),
		},
	}
}

// Name returns the client's configured name.
func (c *Client) Name() string {
	return c.config.Name
}

// IsHealthy reports the current health status.
func (c *Client) IsHealthy() bool {
	c.healthMu.RLock()
	defer c.healthMu.RUnlock()
	return c.health.IsHealthy
}

// GetHealth returns a snapshot of the client's health.
func (c *Client) GetHealth() Health {
	c.healthMu.RLock()
	defer c.healthMu.RUnlock()
	return c.health
}

func (c *Client) recordResult(success bool, err error) {
	c.healthMu.Lock()
	defer c.healthMu.Unlock()

	c.health.LastCheck = time.Now()
	c.health.TotalRequests++

	if success {
		c.health.IsHealthy = true
		c.health.ConsecutiveFailures = 0
		c.health.LastError = nil
		c.health.LastSuccessfulRequest = time.Now()
		return
	}

	c.health.FailedRequests++
	c.health.ConsecutiveFailures++
	c.health.LastError = err

	if c.health.ConsecutiveFailures >= unhealthyAfter && c.health.IsHealthy {
		c.health.IsHealthy = false
		slog.Warn("scoring client marked unhealthy",
			"client", c.config.Name,
			"consecutive_failures", c.health.ConsecutiveFailures,
			"error", err,
		)
	}
}

// postJSON sends reqBody to path and decodes the response into respBody.
func (c *Client) postJSON(ctx context.Context, path string, reqBody, respBody any) error {
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	url := strings.TrimRight(c.config.BaseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.recordResult(false, err)
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errorBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		svcErr := &ServiceError{
			Service:    c.config.Name,
			StatusCode: resp.StatusCode,
			Message:    string(errorBody),
		}
		c.recordResult(false, svcErr)
		return svcErr
	}

	responseBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		c.recordResult(false, err)
		return fmt.Errorf("failed to read response: %w", err)
	}
	if err := json.Unmarshal(responseBytes, respBody); err != nil {
		c.recordResult(false, err)
		return fmt.Errorf("failed to unmarshal response from %s: %w", path, err)
	}

	c.recordResult(true, nil)
	return nil
}

type scoreRequest struct {
	Features map[string]any `json:"features"`
}

// RiskScore asks the fraud model for a risk verdict.
func (c *Client) RiskScore(ctx context.Context, features map[string]any) (*RiskResult, error) {
	var out RiskResult
	if err := c.postJSON(ctx, "/v1/score/risk", scoreRequest{Features: features}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ApprovalScore asks the approval propensity model for a verdict.
func (c *Client) ApprovalScore(ctx context.Context, features map[string]any) (*ApprovalResult, error) {
	var out ApprovalResult
	if err := c.postJSON(ctx, "/v1/score/approval", scoreRequest{Features: features}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RetryScore asks the retry success model whether a declined attempt
// is worth retrying and how long to wait.
func (c *Client) RetryScore(ctx context.Context, features map[string]any) (*RetryResult, error) {
	var out RetryResult
	if err := c.postJSON(ctx, "/v1/score/retry", scoreRequest{Features: features}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RouteRecommendation asks the routing model for a payment solution.
func (c *Client) RouteRecommendation(ctx context.Context, features map[string]any) (*RouteResult, error) {
	var out RouteResult
	if err := c.postJSON(ctx, "/v1/score/route", scoreRequest{Features: features}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.client.CloseIdleConnections()
	return nil
}
