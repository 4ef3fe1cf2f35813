package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// SimilarityClient talks to the similar-transaction search service,
// which indexes historical transactions and returns the nearest
// neighbours for a textual description.
type SimilarityClient struct {
	config ClientConfig
	client *http.Client

	healthMu sync.RWMutex
	health   Health
}

// NewSimilarityClient creates a similarity search client.
func NewSimilarityClient(config ClientConfig) *SimilarityClient {
	if config.Name == "" {
		config.Name = "similarity"
	}
	config.ApplyDefaults()

	transport := &http.Transport{
		MaxIdleConns:        config.MaxIdleConns,
		MaxIdleConnsPerHost: config.MaxIdleConnsPerHost,
		IdleConnTimeout:     config.IdleConnTimeout,
		ForceAttemptHTTP2:   true,
	}

	return &SimilarityClient{
		config: config,
		client: &http.Client{
			Transport: transport,
			Timeout:   config.Timeout,
		},
		health: Health{
			IsHealthy:             true,
			LastCheck:             time.Now(),
			LastSuccessfulRequest: time.Now(),
		},
	}
}

// IsHealthy reports the current health status.
func (c *SimilarityClient) IsHealthy() bool {
	c.healthMu.RLock()
	defer c.healthMu.RUnlock()
	return c.health.IsHealthy
}

func (c *SimilarityClient) recordResult(success bool, err error) {
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
	if c.health.ConsecutiveFailures >= unhealthyAfter {
		c.health.IsHealthy = false
	}
}

type searchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

type searchResponse struct {
	Results []SimilarTxn `json:"results"`
}

// Search returns up to k historical transactions similar to the
// description. The description is a compact rendering of the decision
// context, not raw cardholder data.
func (c *SimilarityClient) Search(ctx context.Context, description string, k int) ([]SimilarTxn, error) {
	if k <= 0 {
		k = 5
	}

	bodyBytes, err := json.Marshal(searchRequest{Query: description, TopK: k})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := strings.TrimRight(c.config.BaseURL, "/") + "/v1/similar"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.recordResult(false, err)
		return nil, fmt.Errorf("similarity search failed: %w", err)
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
		return nil, svcErr
	}

	var out searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		c.recordResult(false, err)
		return nil, fmt.Errorf("failed to decode similarity response: %w", err)
	}

	c.recordResult(true, nil)
	if len(out.Results) > k {
		out.Results = out.Results[:k]
	}
	return out.Results, nil
}

// Close releases idle connections.
func (c *SimilarityClient) Close() error {
	c.client.CloseIdleConnections()
	return nil
}
