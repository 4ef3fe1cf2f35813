package engine

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"meridian-hq/vega/pkg/decision"
	"meridian-hq/vega/pkg/rules"
	"meridian-hq/vega/pkg/store"
	"meridian-hq/vega/pkg/telemetry/metrics"
)

// DefaultCacheTTL is how long dataset snapshots stay fresh.
const DefaultCacheTTL = 60 * time.Second

const (
	cacheParams          = "params"
	cacheDeclineCodes    = "decline_codes"
	cacheRoutes          = "routes"
	cacheRules           = "rules"
	cacheRecommendations = "recommendations"
)

// ruleListLimit bounds how many active rules a single refresh loads.
const ruleListLimit = 200

// recommendationWindow and recommendationLimit bound the agent
// recommendation snapshot: active recommendations from the last 24h,
// ordered by confidence.
const (
	recommendationWindow = 24 * time.Hour
	recommendationLimit  = 50
)

// Caches serves TTL-bounded snapshots of the operator datasets. Reads of
// a fresh snapshot are lock-free; refreshes are serialized by a single
// mutex with a double-check after acquisition so concurrent expiry
// triggers exactly one store read. A failed refresh keeps serving the
// last known snapshot.
type Caches struct {
	store   store.Store
	ttl     time.Duration
	metrics *metrics.Collector
	logger  *slog.Logger

	mu sync.Mutex

	params          cacheEntry[decision.Params]
	declineCodes    cacheEntry[map[string]decision.RetryableCode]
	routes          cacheEntry[[]decision.RouteScore]
	rules           cacheEntry[[]rules.Rule]
	recommendations cacheEntry[[]store.Recommendation]
}

type cacheEntry[T any] struct {
	snap atomic.Pointer[snapshot[T]]
}

type snapshot[T any] struct {
	data      T
	fetchedAt time.Time
}

// NewCaches creates the dataset cache service. If ttl is zero or
// negative, DefaultCacheTTL is used.
func NewCaches(s store.Store, ttl time.Duration, collector *metrics.Collector, logger *slog.Logger) *Caches {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Caches{
		store:   s,
		ttl:     ttl,
		metrics: collector,
		logger:  logger.With("component", "dataset_cache"),
	}
}

// Params returns the current decision parameters, falling back to the
// defaults when the store has never been readable.
func (c *Caches) Params(ctx context.Context) decision.Params {
	return cachedLoad(ctx, c, cacheParams, &c.params, c.loadParams, decision.DefaultParams())
}

// DeclineCodes returns the retryable decline code lookup.
func (c *Caches) DeclineCodes(ctx context.Context) map[string]decision.RetryableCode {
	return cachedLoad(ctx, c, cacheDeclineCodes, &c.declineCodes, c.loadDeclineCodes, nil)
}

// Routes returns the ranked route scores.
func (c *Caches) Routes(ctx context.Context) []decision.RouteScore {
	return cachedLoad(ctx, c, cacheRoutes, &c.routes, c.loadRoutes, nil)
}

// Rules returns the active operator rules in the evaluator's view.
func (c *Caches) Rules(ctx context.Context) []rules.Rule {
	return cachedLoad(ctx, c, cacheRules, &c.rules, c.loadRules, nil)
}

// Recommendations returns recent active agent recommendations ordered
// by descending confidence.
func (c *Caches) Recommendations(ctx context.Context) []store.Recommendation {
	return cachedLoad(ctx, c, cacheRecommendations, &c.recommendations, c.loadRecommendations, nil)
}

// Invalidate drops every snapshot so the next read refreshes.
func (c *Caches) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.params.snap.Store(nil)
	c.declineCodes.snap.Store(nil)
	c.routes.snap.Store(nil)
	c.rules.snap.Store(nil)
	c.recommendations.snap.Store(nil)
}

func cachedLoad[T any](ctx context.Context, c *Caches, name string, entry *cacheEntry[T], load func(context.Context) (T, error), fallback T) T {
	if snap := entry.snap.Load(); snap != nil && time.Since(snap.fetchedAt) < c.ttl {
		c.metrics.RecordCacheHit(name)
		return snap.data
	}
	c.metrics.RecordCacheMiss(name)

	c.mu.Lock()
	defer c.mu.Unlock()
	if snap := entry.snap.Load(); snap != nil && time.Since(snap.fetchedAt) < c.ttl {
		return snap.data
	}

	data, err := load(ctx)
	if err != nil {
		c.metrics.RecordCacheRefresh(name, false)
		if snap := entry.snap.Load(); snap != nil {
			c.logger.Debug("dataset refresh failed, serving last known snapshot",
				"cache", name,
				"error", err,
			)
			return snap.data
		}
		c.logger.Debug("dataset refresh failed with no snapshot, serving defaults",
			"cache", name,
			"error", err,
		)
		return fallback
	}

	entry.snap.Store(&snapshot[T]{data: data, fetchedAt: time.Now()})
	c.metrics.RecordCacheRefresh(name, true)
	return data
}

func (c *Caches) loadParams(ctx context.Context) (decision.Params, error) {
	kv, err := c.store.ConfigEntries(ctx)
	if err != nil {
		return decision.Params{}, err
	}
	return decision.ParamsFromKV(kv), nil
}

func (c *Caches) loadDeclineCodes(ctx context.Context) (map[string]decision.RetryableCode, error) {
	rows, err := c.store.DeclineCodes(ctx)
	if err != nil {
		return nil, err
	}
	return decision.BuildCodeMap(rows), nil
}

func (c *Caches) loadRoutes(ctx context.Context) ([]decision.RouteScore, error) {
	rows, err := c.store.RouteScores(ctx)
	if err != nil {
		return nil, err
	}
	return decision.RankRoutes(rows), nil
}

func (c *Caches) loadRules(ctx context.Context) ([]rules.Rule, error) {
	rows, err := c.store.ListRules(ctx, store.RuleQuery{ActiveOnly: true, Limit: ruleListLimit})
	if err != nil {
		return nil, err
	}
	out := make([]rules.Rule, 0, len(rows))
	for _, r := range rows {
		out = append(out, rules.Rule{
			ID:            r.ID,
			Name:          r.Name,
			Type:          r.RuleType,
			Expression:    r.ConditionExpression,
			ActionSummary: r.ActionSummary,
			Priority:      r.Priority,
			Active:        r.Active,
			UpdatedAt:     r.UpdatedAt,
		})
	}
	return out, nil
}

func (c *Caches) loadRecommendations(ctx context.Context) ([]store.Recommendation, error) {
	return c.store.Recommendations(ctx, recommendationWindow, recommendationLimit)
}
