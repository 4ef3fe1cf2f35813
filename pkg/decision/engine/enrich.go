package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"meridian-hq/vega/pkg/decision"
	"meridian-hq/vega/pkg/decision/policy"
)

// CallStatus describes the outcome of a single enrichment call.
type CallStatus string

const (
	// StatusPresent means the call succeeded and contributed metadata.
	StatusPresent CallStatus = "present"
	// StatusSkipped means the call was not attempted (disabled or no client).
	StatusSkipped CallStatus = "skipped"
	// StatusTimedOut means the call exceeded the enrichment timeout.
	StatusTimedOut CallStatus = "timed_out"
	// StatusFailed means the call errored for another reason.
	StatusFailed CallStatus = "failed"
)

// similarResults is how many similar transactions the lookup requests.
const similarResults = 5

// streamingFeatureLimit bounds the online feature read per merchant.
const streamingFeatureLimit = 10

// enrichmentFeatureSet names the online feature set the engine writes
// model scores into.
const enrichmentFeatureSet = "decision_enrichment"

// enrich returns a deep copy of req with similarity stats (vs_* keys),
// model scores (ml_* keys), the top agent recommendation (agent_* keys),
// and, for authentication, streaming merchant features (stream_* keys)
// merged into its metadata. Every call is bounded by the enrichment
// timeout and fails without affecting the others.
func (e *Engine) enrich(ctx context.Context, req *decision.Context, params decision.Params, decisionType string) *decision.Context {
	enriched := req.Clone()
	if enriched.Metadata == nil {
		enriched.Metadata = make(map[string]any)
	}

	scoringOn := e.config.EnrichmentEnabled && params.MLEnrichmentEnabled

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		merged = make(map[string]any)
		mlRisk *float64
	)

	run := func(name string, call func(context.Context) (map[string]any, *float64, error)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cctx, cancel := context.WithTimeout(ctx, params.MLEnrichmentTimeout)
			defer cancel()

			start := time.Now()
			meta, risk, err := call(cctx)
			elapsed := time.Since(start)
			if err != nil {
				status := StatusFailed
				if errors.Is(err, context.DeadlineExceeded) {
					status = StatusTimedOut
				}
				e.metrics.RecordEnrichmentCall(name, string(status), elapsed)
				e.logger.Debug("enrichment call failed",
					"call", name,
					"status", string(status),
					"error", err,
				)
				return
			}
			e.metrics.RecordEnrichmentCall(name, string(StatusPresent), elapsed)

			mu.Lock()
			for k, v := range meta {
				merged[k] = v
			}
			if risk != nil && mlRisk == nil {
				mlRisk = risk
			}
			mu.Unlock()
		}()
	}
	skip := func(names ...string) {
		for _, name := range names {
			e.metrics.RecordEnrichmentCall(name, string(StatusSkipped), 0)
		}
	}

	features := policy.BuildFeatures(req, params, time.Now())

	if scoringOn && e.similarity != nil {
		run("similarity", func(cctx context.Context) (map[string]any, *float64, error) {
			return e.similarCall(cctx, req)
		})
	} else {
		skip("similarity")
	}

	switch decisionType {
	case decision.TypeAuthentication:
		if scoringOn && e.scoring != nil {
			run("ml_risk", func(cctx context.Context) (map[string]any, *float64, error) {
				return e.riskCall(cctx, features)
			})
			run("ml_approval", func(cctx context.Context) (map[string]any, *float64, error) {
				return e.approvalCall(cctx, features)
			})
		} else {
			skip("ml_risk", "ml_approval")
		}
	case decision.TypeRetry:
		if scoringOn && e.scoring != nil {
			run("ml_retry", func(cctx context.Context) (map[string]any, *float64, error) {
				return e.retryCall(cctx, features)
			})
		} else {
			skip("ml_retry")
		}
	case decision.TypeRouting:
		if scoringOn && e.scoring != nil {
			run("ml_routing", func(cctx context.Context) (map[string]any, *float64, error) {
				return e.routingCall(cctx, features)
			})
		} else {
			skip("ml_routing")
		}
	}

	wg.Wait()

	for k, v := range merged {
		enriched.Metadata[k] = v
	}
	if mlRisk != nil && enriched.RiskScore == nil {
		enriched.RiskScore = mlRisk
	}

	e.applyRecommendation(ctx, enriched, decisionType)

	if decisionType == decision.TypeAuthentication {
		e.applyStreamingFeatures(ctx, enriched)
	}

	return enriched
}

// similarityDescription renders the context as a search query for the
// similarity service.
func similarityDescription(ctx *decision.Context) string {
	issuer := ctx.IssuerCountry
	if issuer == "" {
		issuer = "unknown"
	}
	network := ctx.Network
	if network == "" {
		network = "unknown"
	}
	var risk float64
	if ctx.RiskScore != nil {
		risk = *ctx.RiskScore
	}
	return fmt.Sprintf("Payment of %.2f from %s merchant %s network %s risk %.2f",
		float64(ctx.AmountMinor)/100.0, issuer, ctx.MerchantID, network, risk)
}

func (e *Engine) similarCall(ctx context.Context, req *decision.Context) (map[string]any, *float64, error) {
	results, err := e.similarity.Search(ctx, similarityDescription(req), similarResults)
	if err != nil {
		return nil, nil, err
	}
	if len(results) == 0 {
		return nil, nil, nil
	}

	var approvalSum, fraudSum float64
	for _, r := range results {
		approvalSum += r.ApprovalRatePct
		fraudSum += r.AvgFraudScore
	}
	n := float64(len(results))
	return map[string]any{
		"vs_similar_count":             len(results),
		"vs_similar_avg_approval_rate": approvalSum / n,
		"vs_similar_top_route":         results[0].PaymentSolution,
		"vs_similar_avg_fraud_score":   fraudSum / n,
	}, nil, nil
}

func (e *Engine) riskCall(ctx context.Context, features map[string]any) (map[string]any, *float64, error) {
	res, err := e.scoring.RiskScore(ctx, features)
	if err != nil {
		return nil, nil, err
	}
	risk := res.RiskScore
	return map[string]any{
		"ml_risk_score": res.RiskScore,
		"ml_risk_tier":  res.RiskTier,
	}, &risk, nil
}

func (e *Engine) approvalCall(ctx context.Context, features map[string]any) (map[string]any, *float64, error) {
	res, err := e.scoring.ApprovalScore(ctx, features)
	if err != nil {
		return nil, nil, err
	}
	return map[string]any{
		"ml_approval_probability": res.ApprovalProbability,
		"ml_model_version":        res.ModelVersion,
	}, nil, nil
}

func (e *Engine) retryCall(ctx context.Context, features map[string]any) (map[string]any, *float64, error) {
	res, err := e.scoring.RetryScore(ctx, features)
	if err != nil {
		return nil, nil, err
	}
	meta := map[string]any{
		"ml_retry_probability": res.RetrySuccessProbability,
		"ml_should_retry":      res.ShouldRetry,
		"ml_model_version":     res.ModelVersion,
	}
	if res.RetryDelaySeconds > 0 {
		meta["ml_retry_delay_seconds"] = float64(res.RetryDelaySeconds)
	}
	return meta, nil, nil
}

func (e *Engine) routingCall(ctx context.Context, features map[string]any) (map[string]any, *float64, error) {
	res, err := e.scoring.RouteRecommendation(ctx, features)
	if err != nil {
		return nil, nil, err
	}
	if res.RecommendedSolution == "" {
		return nil, nil, nil
	}
	return map[string]any{
		"ml_recommended_route":  res.RecommendedSolution,
		"ml_route_confidence":   res.Confidence,
		"ml_route_alternatives": res.Alternatives,
	}, nil, nil
}

// applyRecommendation merges the top-confidence active agent
// recommendation of the decision type into the context metadata.
func (e *Engine) applyRecommendation(ctx context.Context, enriched *decision.Context, decisionType string) {
	for _, rec := range e.caches.Recommendations(ctx) {
		if rec.RecommendationType != decisionType {
			continue
		}
		enriched.Metadata["agent_recommendation"] = rec.ActionSummary
		enriched.Metadata["agent_confidence"] = rec.Confidence
		if decisionType == decision.TypeAuthentication {
			enriched.Metadata["agent_expected_impact"] = rec.ExpectedImpactPct
		}
		return
	}
}

// applyStreamingFeatures merges recent streaming features for the
// merchant (approval_rate_5m and friends) under stream_* keys.
func (e *Engine) applyStreamingFeatures(ctx context.Context, enriched *decision.Context) {
	feats, err := e.store.FeaturesByEntity(ctx, enriched.MerchantID, streamingFeatureLimit)
	if err != nil {
		e.logger.Debug("streaming feature read failed", "merchant_id", enriched.MerchantID, "error", err)
		return
	}
	for _, f := range feats {
		if f.Source != "streaming" || f.Value == nil {
			continue
		}
		key := "stream_" + f.FeatureName
		if _, seen := enriched.Metadata[key]; seen {
			continue
		}
		enriched.Metadata[key] = *f.Value
	}
}

// writeEnrichmentFeatures persists the ml_* metadata keys as online
// features keyed by the decision's audit id. Best effort only.
func (e *Engine) writeEnrichmentFeatures(ctx context.Context, decisionType, auditID string, enriched *decision.Context) {
	mlFeatures := make(map[string]any)
	for k, v := range enriched.Metadata {
		if strings.HasPrefix(k, "ml_") {
			mlFeatures[k] = v
		}
	}
	if len(mlFeatures) == 0 {
		return
	}
	entityID := featureEntityID(decisionType, auditID)
	if err := e.store.WriteFeatures(ctx, entityID, "ml", enrichmentFeatureSet, mlFeatures); err != nil {
		e.logger.Debug("online feature write failed", "entity_id", entityID, "error", err)
	}
}

func featureEntityID(decisionType, auditID string) string {
	switch decisionType {
	case decision.TypeAuthentication:
		return "auth_" + auditID
	case decision.TypeRetry:
		return "retry_" + auditID
	default:
		return "routing_" + auditID
	}
}
