package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"meridian-hq/vega/pkg/audit"
	"meridian-hq/vega/pkg/audit/recorder"
	"meridian-hq/vega/pkg/decision"
	"meridian-hq/vega/pkg/decision/policy"
	"meridian-hq/vega/pkg/experiment"
	"meridian-hq/vega/pkg/rules"
	"meridian-hq/vega/pkg/scoring"
	"meridian-hq/vega/pkg/store"
	"meridian-hq/vega/pkg/telemetry/metrics"
)

// Config tunes the engine itself. The corresponding data-driven toggles
// in decision.Params are ANDed with these: either side can disable
// enrichment or the rule engine.
type Config struct {
	// CacheTTL is how long dataset snapshots stay fresh.
	CacheTTL time.Duration

	// EnrichmentEnabled gates similarity and model scoring calls.
	EnrichmentEnabled bool

	// RuleEngineEnabled gates operator rule overrides.
	RuleEngineEnabled bool
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		CacheTTL:          DefaultCacheTTL,
		EnrichmentEnabled: true,
		RuleEngineEnabled: true,
	}
}

// Options carries the engine's optional collaborators. Any of them may
// be nil; the engine degrades to pure policy decisions over whatever
// remains.
type Options struct {
	Assigner   *experiment.Assigner
	Scoring    *scoring.Client
	Similarity *scoring.SimilarityClient
	Recorder   *recorder.Recorder
	Metrics    *metrics.Collector
	Logger     *slog.Logger
}

// Engine is the decisioning orchestrator. It is safe for concurrent use.
type Engine struct {
	store      store.Store
	config     Config
	caches     *Caches
	assigner   *experiment.Assigner
	scoring    *scoring.Client
	similarity *scoring.SimilarityClient
	recorder   *recorder.Recorder
	metrics    *metrics.Collector
	logger     *slog.Logger
}

// New creates a decision engine backed by the given store.
func New(s store.Store, cfg Config, opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "decision_engine")

	return &Engine{
		store:      s,
		config:     cfg,
		caches:     NewCaches(s, cfg.CacheTTL, opts.Metrics, logger),
		assigner:   opts.Assigner,
		scoring:    opts.Scoring,
		similarity: opts.Similarity,
		recorder:   opts.Recorder,
		metrics:    opts.Metrics,
		logger:     logger,
	}
}

// Caches exposes the dataset cache service, mainly for Invalidate.
func (e *Engine) Caches() *Caches {
	return e.caches
}

// DecideAuthentication runs the authentication decision flow.
func (e *Engine) DecideAuthentication(ctx context.Context, req *decision.Context) (*decision.AuthDecision, error) {
	start := time.Now()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	params := e.caches.Params(ctx)
	variant := e.resolveVariant(ctx, req)

	var dec *decision.AuthDecision
	e.guarded(decision.TypeAuthentication, func() {
		enriched := e.enrich(ctx, req, params, decision.TypeAuthentication)
		dec = policy.DecideAuthentication(enriched, variant, params)
		dec.AuditID = audit.NewAuditID()
		e.writeEnrichmentFeatures(ctx, decision.TypeAuthentication, dec.AuditID, enriched)

		if rule, ok := e.matchRule(ctx, enriched, params, decision.TypeAuthentication); ok {
			dec.Reason = ruleReason(rule)
			if dec.Metadata == nil {
				dec.Metadata = make(map[string]any)
			}
			dec.Metadata["matched_rule_id"] = rule.ID
			dec.Metadata["matched_rule_name"] = rule.Name
		}
	})
	if dec == nil {
		dec = policy.DecideAuthentication(req, variant, decision.DefaultParams())
		dec.AuditID = audit.NewAuditID()
		e.metrics.RecordFallback(decision.TypeAuthentication)
	}

	e.recordDecision(ctx, decision.TypeAuthentication, req, dec.AuditID, map[string]any{
		"disposition": dec.Disposition,
		"risk_score":  dec.RiskScore,
		"reason":      dec.Reason,
		"variant":     dec.Variant,
		"metadata":    dec.Metadata,
	})
	e.metrics.RecordDecision(decision.TypeAuthentication, dec.Disposition, variant, time.Since(start))
	return dec, nil
}

// DecideRetry runs the retry decision flow.
func (e *Engine) DecideRetry(ctx context.Context, req *decision.Context) (*decision.RetryDecision, error) {
	start := time.Now()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	params := e.caches.Params(ctx)
	variant := e.resolveVariant(ctx, req)

	var dec *decision.RetryDecision
	e.guarded(decision.TypeRetry, func() {
		codes := e.caches.DeclineCodes(ctx)
		enriched := e.enrich(ctx, req, params, decision.TypeRetry)
		dec = policy.DecideRetry(enriched, variant, params, codes)
		dec.AuditID = audit.NewAuditID()
		e.writeEnrichmentFeatures(ctx, decision.TypeRetry, dec.AuditID, enriched)

		if rule, ok := e.matchRule(ctx, enriched, params, decision.TypeRetry); ok {
			dec.Reason = ruleReason(rule)
		}
	})
	if dec == nil {
		dec = policy.DecideRetry(req, variant, decision.DefaultParams(), nil)
		dec.AuditID = audit.NewAuditID()
		e.metrics.RecordFallback(decision.TypeRetry)
	}

	e.recordDecision(ctx, decision.TypeRetry, req, dec.AuditID, map[string]any{
		"should_retry":    dec.ShouldRetry,
		"backoff_seconds": dec.BackoffSeconds,
		"max_attempts":    dec.MaxAttempts,
		"reason":          dec.Reason,
		"variant":         dec.Variant,
		"metadata":        dec.Metadata,
	})
	e.metrics.RecordDecision(decision.TypeRetry, retryResult(dec), variant, time.Since(start))
	return dec, nil
}

// DecideRouting runs the routing decision flow.
func (e *Engine) DecideRouting(ctx context.Context, req *decision.Context) (*decision.RoutingDecision, error) {
	start := time.Now()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	params := e.caches.Params(ctx)
	variant := e.resolveVariant(ctx, req)

	var dec *decision.RoutingDecision
	e.guarded(decision.TypeRouting, func() {
		routes := e.caches.Routes(ctx)
		enriched := e.enrich(ctx, req, params, decision.TypeRouting)
		dec = policy.DecideRouting(enriched, variant, params, routes)
		dec.AuditID = audit.NewAuditID()
		e.writeEnrichmentFeatures(ctx, decision.TypeRouting, dec.AuditID, enriched)

		if rule, ok := e.matchRule(ctx, enriched, params, decision.TypeRouting); ok {
			dec.Reason = ruleReason(rule)
		}
	})
	if dec == nil {
		dec = policy.DecideRouting(req, variant, decision.DefaultParams(), nil)
		dec.AuditID = audit.NewAuditID()
		e.metrics.RecordFallback(decision.TypeRouting)
	}

	e.recordDecision(ctx, decision.TypeRouting, req, dec.AuditID, map[string]any{
		"primary_route": dec.PrimaryRoute,
		"alternatives":  dec.Alternatives,
		"reason":        dec.Reason,
		"variant":       dec.Variant,
		"metadata":      dec.Metadata,
	})
	e.metrics.RecordDecision(decision.TypeRouting, dec.PrimaryRoute, variant, time.Since(start))
	return dec, nil
}

// RecordOutcome records the observed outcome for a previously issued
// decision. It never returns an error; a false return means the outcome
// was not persisted.
func (e *Engine) RecordOutcome(auditID, decisionType, outcome, code, reason string, latencyMS *float64, extra map[string]any) bool {
	if e.recorder == nil {
		return false
	}
	ok := e.recorder.RecordOutcome(auditID, decisionType, outcome, code, reason, latencyMS, extra)
	if ok {
		e.metrics.RecordOutcome(decisionType, outcome)
	}
	return ok
}

// guarded runs fn and turns a panic anywhere in the orchestration into
// a logged event, leaving the caller's decision nil so the policy
// fallback takes over.
func (e *Engine) guarded(decisionType string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("decision pipeline panicked, serving policy fallback",
				"decision_type", decisionType,
				"panic", fmt.Sprint(r),
			)
		}
	}()
	fn()
}

// resolveVariant maps the request to its experiment variant. Assignment
// failures degrade to no variant rather than failing the decision.
func (e *Engine) resolveVariant(ctx context.Context, req *decision.Context) string {
	if e.assigner == nil || req.ExperimentID == "" {
		return ""
	}
	variant, err := e.assigner.Resolve(ctx, req.ExperimentID, req.Subject())
	if err != nil {
		e.logger.Warn("variant resolution failed, proceeding unassigned",
			"experiment_id", req.ExperimentID,
			"error", err,
		)
		return ""
	}
	return variant
}

// matchRule returns the highest-priority matching rule override, if any.
func (e *Engine) matchRule(ctx context.Context, enriched *decision.Context, params decision.Params, ruleType string) (rules.Rule, bool) {
	if !e.config.RuleEngineEnabled || !params.RuleEngineEnabled {
		return rules.Rule{}, false
	}
	flat := rules.Flatten(policy.SerializeContext(enriched))
	matched := rules.Match(flat, e.caches.Rules(ctx), ruleType, e.logger)
	if len(matched) == 0 {
		return rules.Rule{}, false
	}
	e.metrics.RecordRuleOverride(ruleType)
	return matched[0], true
}

func ruleReason(rule rules.Rule) string {
	return fmt.Sprintf("[Rule: %s] %s", rule.Name, rule.ActionSummary)
}

func (e *Engine) recordDecision(ctx context.Context, decisionType string, req *decision.Context, auditID string, response map[string]any) {
	if e.recorder == nil {
		return
	}
	e.recorder.RecordDecision(&audit.DecisionLog{
		AuditID:      auditID,
		DecisionType: decisionType,
		ExperimentID: req.ExperimentID,
		Variant:      variantOf(response),
		Request:      policy.SerializeContext(req),
		Response:     response,
	})
}

func variantOf(response map[string]any) string {
	if v, ok := response["variant"].(string); ok {
		return v
	}
	return ""
}

func retryResult(dec *decision.RetryDecision) string {
	if dec.ShouldRetry {
		return "retry"
	}
	return "no_retry"
}
