package scoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClientRiskScore(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/score/risk" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %s", r.Method)
		}
		var req scoreRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Features["amount"] != 125.5 {
			t.Errorf("features not forwarded: %v", req.Features)
		}
		json.NewEncoder(w).Encode(RiskResult{
			RiskScore:  0.82,
			RiskTier:   "high",
			IsHighRisk: true,
		})
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL})
	defer c.Close()

	got, err := c.RiskScore(context.Background(), map[string]any{"amount": 125.5})
	if err != nil {
		t.Fatalf("RiskScore: %v", err)
	}
	if got.RiskScore != 0.82 || !got.IsHighRisk || got.RiskTier != "high" {
		t.Errorf("unexpected result: %+v", got)
	}
	if !c.IsHealthy() {
		t.Error("client should be healthy after success")
	}
}

func TestClientRetryScore(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(RetryResult{
			ShouldRetry:             true,
			RetrySuccessProbability: 0.41,
			RetryDelaySeconds:       300,
			ModelVersion:            "retry-v2",
		})
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL})
	defer c.Close()

	got, err := c.RetryScore(context.Background(), map[string]any{"retry_count": 1})
	if err != nil {
		t.Fatalf("RetryScore: %v", err)
	}
	if !got.ShouldRetry || got.RetryDelaySeconds != 300 || got.ModelVersion != "retry-v2" {
		t.Errorf("unexpected result: %+v", got)
	}
}

func TestClientServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL})
	defer c.Close()

	_, err := c.ApprovalScore(context.Background(), nil)
	if err == nil {
		t.Fatal("want error on 503")
	}
	svcErr, ok := err.(*ServiceError)
	if !ok {
		t.Fatalf("want *ServiceError, got %T: %v", err, err)
	}
	if svcErr.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d", svcErr.StatusCode)
	}
}

func TestClientUnhealthyAfterConsecutiveFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL})
	defer c.Close()

	ctx := context.Background()
	for i := 0; i < unhealthyAfter; i++ {
		if _, err := c.RiskScore(ctx, nil); err == nil {
			t.Fatal("want error")
		}
	}
	if c.IsHealthy() {
		t.Error("client should be unhealthy after repeated failures")
	}
	h := c.GetHealth()
	if h.ConsecutiveFailures != unhealthyAfter || h.FailedRequests != unhealthyAfter {
		t.Errorf("health counters wrong: %+v", h)
	}
}

func TestClientRespectsContextDeadline(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	c := NewClient(ClientConfig{BaseURL: srv.URL})
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := c.RouteRecommendation(ctx, map[string]any{"amount": 1})
	if err == nil {
		t.Fatal("want deadline error")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("call did not honor context deadline, took %v", elapsed)
	}
}

func TestSimilaritySearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/similar" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req searchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.TopK != 3 {
			t.Errorf("top_k = %d, want 3", req.TopK)
		}
		json.NewEncoder(w).Encode(searchResponse{Results: []SimilarTxn{
			{PaymentSolution: "acquirer_a", ApprovalRatePct: 92.0, AvgFraudScore: 0.08},
			{PaymentSolution: "acquirer_b", ApprovalRatePct: 85.5, AvgFraudScore: 0.12},
		}})
	}))
	defer srv.Close()

	c := NewSimilarityClient(ClientConfig{BaseURL: srv.URL})
	defer c.Close()

	got, err := c.Search(context.Background(), "visa credit BR recurring", 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("want 2 results, got %d", len(got))
	}
	if got[0].PaymentSolution != "acquirer_a" || got[0].ApprovalRatePct != 92.0 {
		t.Errorf("unexpected first result: %+v", got[0])
	}
}

func TestSimilaritySearchTruncatesToK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(searchResponse{Results: []SimilarTxn{
			{PaymentSolution: "a"}, {PaymentSolution: "b"}, {PaymentSolution: "c"},
		}})
	}))
	defer srv.Close()

	c := NewSimilarityClient(ClientConfig{BaseURL: srv.URL})
	defer c.Close()

	got, err := c.Search(context.Background(), "q", 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("want results truncated to 2, got %d", len(got))
	}
}
