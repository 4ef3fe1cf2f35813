package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"meridian-hq/vega/pkg/decision"
)

// MemoryStore is an in-memory Store used in tests and local
// development. It mirrors the SQLite backend's semantics, including the
// idempotent assignment insert.
type MemoryStore struct {
	mu sync.RWMutex

	config       map[string]string
	declineCodes map[string]declineCodeRow
	routes       map[string]routeRow
	rules        map[string]Rule
	recs         []Recommendation
	experiments  map[string]Experiment
	assignments  map[string]Assignment // key: experimentID + "\x00" + subjectKey
	features     []OnlineFeature

	nextAssignmentID int64

	// Fail makes every read return an error; used to exercise the cache
	// fallback paths.
	Fail bool
}

type declineCodeRow struct {
	code   decision.RetryableCode
	active bool
}

type routeRow struct {
	route  decision.RouteScore
	active bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		config:       make(map[string]string),
		declineCodes: make(map[string]declineCodeRow),
		routes:       make(map[string]routeRow),
		rules:        make(map[string]Rule),
		experiments:  make(map[string]Experiment),
		assignments:  make(map[string]Assignment),
	}
}

func (m *MemoryStore) failErr() error {
	if m.Fail {
		return fmt.Errorf("store unavailable")
	}
	return nil
}

func (m *MemoryStore) ConfigEntries(ctx context.Context) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failErr(); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(m.config))
	for k, v := range m.config {
		out[k] = v
	}
	return out, nil
}

func (m *MemoryStore) DeclineCodes(ctx context.Context) ([]decision.RetryableCode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failErr(); err != nil {
		return nil, err
	}
	var out []decision.RetryableCode
	for _, row := range m.declineCodes {
		if row.active {
			out = append(out, row.code)
		}
	}
	return out, nil
}

func (m *MemoryStore) RouteScores(ctx context.Context) ([]decision.RouteScore, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failErr(); err != nil {
		return nil, err
	}
	var out []decision.RouteScore
	for _, row := range m.routes {
		if row.active {
			out = append(out, row.route)
		}
	}
	return out, nil
}

func (m *MemoryStore) ListRules(ctx context.Context, q RuleQuery) ([]Rule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failErr(); err != nil {
		return nil, err
	}
	limit := q.Limit
	if limit <= 0 {
		limit = defaultRuleLimit
	}
	var out []Rule
	for _, r := range m.rules {
		if q.RuleType != "" && r.RuleType != q.RuleType {
			continue
		}
		if q.ActiveOnly && !r.Active {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) Recommendations(ctx context.Context, window time.Duration, limit int) ([]Recommendation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failErr(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}
	cutoff := time.Now().Add(-window)
	var out []Recommendation
	for _, r := range m.recs {
		if r.Status == "active" && !r.CreatedAt.Before(cutoff) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Confidence > out[j].Confidence })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) SetConfigEntry(ctx context.Context, key, value, description string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failErr(); err != nil {
		return err
	}
	m.config[strings.TrimSpace(key)] = strings.TrimSpace(value)
	return nil
}

func (m *MemoryStore) UpsertDeclineCode(ctx context.Context, code decision.RetryableCode, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failErr(); err != nil {
		return err
	}
	code.Code = strings.ToLower(strings.TrimSpace(code.Code))
	m.declineCodes[code.Code] = declineCodeRow{code: code, active: active}
	return nil
}

func (m *MemoryStore) UpsertRouteScore(ctx context.Context, route decision.RouteScore, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failErr(); err != nil {
		return err
	}
	m.routes[route.RouteName] = routeRow{route: route, active: active}
	return nil
}

// AddRecommendation seeds a recommendation row (test helper).
func (m *MemoryStore) AddRecommendation(r Recommendation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.Status == "" {
		r.Status = "active"
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	m.recs = append(m.recs, r)
}

func (m *MemoryStore) GetRule(ctx context.Context, id string) (*Rule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failErr(); err != nil {
		return nil, err
	}
	r, ok := m.rules[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}

func (m *MemoryStore) CreateRule(ctx context.Context, r *Rule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failErr(); err != nil {
		return err
	}
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	now := time.Now()
	r.CreatedAt = now
	r.UpdatedAt = now
	m.rules[r.ID] = *r
	return nil
}

func (m *MemoryStore) UpdateRule(ctx context.Context, id string, upd RuleUpdate) (*Rule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failErr(); err != nil {
		return nil, err
	}
	r, ok := m.rules[id]
	if !ok {
		return nil, ErrNotFound
	}
	if upd.Name != nil {
		r.Name = *upd.Name
	}
	if upd.RuleType != nil {
		r.RuleType = *upd.RuleType
	}
	if upd.ConditionExpression != nil {
		r.ConditionExpression = *upd.ConditionExpression
	}
	if upd.ActionSummary != nil {
		r.ActionSummary = *upd.ActionSummary
	}
	if upd.Priority != nil {
		r.Priority = *upd.Priority
	}
	if upd.Active != nil {
		r.Active = *upd.Active
	}
	r.UpdatedAt = time.Now()
	m.rules[id] = r
	return &r, nil
}

func (m *MemoryStore) DeleteRule(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failErr(); err != nil {
		return err
	}
	if _, ok := m.rules[id]; !ok {
		return ErrNotFound
	}
	delete(m.rules, id)
	return nil
}

func (m *MemoryStore) CreateExperiment(ctx context.Context, e *Experiment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failErr(); err != nil {
		return err
	}
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Status == "" {
		e.Status = ExperimentDraft
	}
	e.CreatedAt = time.Now()
	m.experiments[e.ID] = *e
	return nil
}

func (m *MemoryStore) GetExperiment(ctx context.Context, id string) (*Experiment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failErr(); err != nil {
		return nil, err
	}
	e, ok := m.experiments[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &e, nil
}

func (m *MemoryStore) ListExperiments(ctx context.Context, limit int) ([]Experiment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failErr(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}
	var out []Experiment
	for _, e := range m.experiments {
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) SetExperimentStatus(ctx context.Context, id, status string) (*Experiment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failErr(); err != nil {
		return nil, err
	}
	e, ok := m.experiments[id]
	if !ok {
		return nil, ErrNotFound
	}
	now := time.Now()
	e.Status = status
	if status == ExperimentRunning && e.StartedAt == nil {
		e.StartedAt = &now
	}
	if status == ExperimentStopped {
		e.EndedAt = &now
	}
	m.experiments[id] = e
	return &e, nil
}

func assignmentKey(experimentID, subjectKey string) string {
	return experimentID + "\x00" + subjectKey
}

func (m *MemoryStore) GetAssignment(ctx context.Context, experimentID, subjectKey string) (*Assignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failErr(); err != nil {
		return nil, err
	}
	a, ok := m.assignments[assignmentKey(experimentID, subjectKey)]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (m *MemoryStore) PutAssignment(ctx context.Context, a Assignment) (*Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failErr(); err != nil {
		return nil, err
	}
	key := assignmentKey(a.ExperimentID, a.SubjectKey)
	if existing, ok := m.assignments[key]; ok {
		// Duplicate insert resolves to the stored row.
		return &existing, nil
	}
	m.nextAssignmentID++
	a.ID = m.nextAssignmentID
	a.CreatedAt = time.Now()
	m.assignments[key] = a
	return &a, nil
}

func (m *MemoryStore) ListAssignments(ctx context.Context, experimentID string, limit int) ([]Assignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failErr(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 200
	}
	var out []Assignment
	for _, a := range m.assignments {
		if a.ExperimentID == experimentID {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) WriteFeatures(ctx context.Context, entityID, source, featureSet string, features map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failErr(); err != nil {
		return err
	}
	now := time.Now()
	for name, value := range features {
		if value == nil {
			continue
		}
		f := OnlineFeature{
			ID:          uuid.New().String()[:16],
			Source:      source,
			FeatureSet:  featureSet,
			FeatureName: name,
			EntityID:    entityID,
			CreatedAt:   now,
		}
		switch v := value.(type) {
		case float64:
			f.Value = &v
		case int:
			fv := float64(v)
			f.Value = &fv
		case int64:
			fv := float64(v)
			f.Value = &fv
		case bool:
			fv := 0.0
			if v {
				fv = 1.0
			}
			f.Value = &fv
		default:
			s := fmt.Sprint(v)
			f.ValueStr = &s
		}
		m.features = append(m.features, f)
	}
	return nil
}

func (m *MemoryStore) FeaturesByEntity(ctx context.Context, entityID string, limit int) ([]OnlineFeature, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failErr(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10
	}
	var out []OnlineFeature
	for i := len(m.features) - 1; i >= 0 && len(out) < limit; i-- {
		if m.features[i].EntityID == entityID {
			out = append(out, m.features[i])
		}
	}
	return out, nil
}

func (m *MemoryStore) Ping(ctx context.Context) error {
	return m.failErr()
}

func (m *MemoryStore) Close() error { return nil }
