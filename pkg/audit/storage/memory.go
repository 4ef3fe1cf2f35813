package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"meridian-hq/vega/pkg/audit"
	"meridian-hq/vega/pkg/experiment"
)

// MemoryStorage is an in-memory audit backend for tests.
type MemoryStorage struct {
	mu        sync.RWMutex
	decisions map[string]*audit.DecisionLog
	outcomes  []*audit.Outcome

	// Fail makes every operation return an error.
	Fail bool
}

// NewMemoryStorage creates an empty in-memory audit backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		decisions: make(map[string]*audit.DecisionLog),
	}
}

func (m *MemoryStorage) failErr(op string) error {
	if m.Fail {
		return audit.NewStorageError("memory", op, fmt.Errorf("storage unavailable"))
	}
	return nil
}

func (m *MemoryStorage) StoreDecision(ctx context.Context, log *audit.DecisionLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failErr("store_decision"); err != nil {
		return err
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now()
	}
	cp := *log
	m.decisions[log.AuditID] = &cp
	return nil
}

func (m *MemoryStorage) StoreOutcome(ctx context.Context, o *audit.Outcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failErr("store_outcome"); err != nil {
		return err
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now()
	}
	cp := *o
	m.outcomes = append(m.outcomes, &cp)
	return nil
}

func (m *MemoryStorage) GetDecision(ctx context.Context, auditID string) (*audit.DecisionLog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failErr("get_decision"); err != nil {
		return nil, err
	}
	log, ok := m.decisions[auditID]
	if !ok {
		return nil, audit.ErrNotFound
	}
	cp := *log
	return &cp, nil
}

func (m *MemoryStorage) ListDecisions(ctx context.Context, q audit.DecisionQuery) ([]*audit.DecisionLog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failErr("list_decisions"); err != nil {
		return nil, err
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	var out []*audit.DecisionLog
	for _, log := range m.decisions {
		if q.DecisionType != "" && log.DecisionType != q.DecisionType {
			continue
		}
		if q.ExperimentID != "" && log.ExperimentID != q.ExperimentID {
			continue
		}
		if !q.Since.IsZero() && log.CreatedAt.Before(q.Since) {
			continue
		}
		cp := *log
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStorage) OutcomesByAudit(ctx context.Context, auditID string) ([]*audit.Outcome, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failErr("outcomes_by_audit"); err != nil {
		return nil, err
	}
	var out []*audit.Outcome
	for _, o := range m.outcomes {
		if o.AuditID == auditID {
			cp := *o
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MemoryStorage) DecisionCountsByVariant(ctx context.Context, experimentID string) (map[string]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failErr("decision_counts"); err != nil {
		return nil, err
	}
	out := make(map[string]int)
	for _, log := range m.decisions {
		if log.ExperimentID == experimentID && log.Variant != "" {
			out[log.Variant]++
		}
	}
	return out, nil
}

func (m *MemoryStorage) OutcomesByVariant(ctx context.Context, experimentID string) (map[string][]experiment.OutcomeSample, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failErr("outcomes_by_variant"); err != nil {
		return nil, err
	}
	out := make(map[string][]experiment.OutcomeSample)
	for _, o := range m.outcomes {
		log, ok := m.decisions[o.AuditID]
		if !ok || log.ExperimentID != experimentID || log.Variant == "" {
			continue
		}
		out[log.Variant] = append(out[log.Variant], experiment.OutcomeSample{
			Outcome:   o.Outcome,
			LatencyMS: o.LatencyMS,
		})
	}
	return out, nil
}

func (m *MemoryStorage) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failErr("delete_before"); err != nil {
		return 0, err
	}
	var deleted int64
	for id, log := range m.decisions {
		if log.CreatedAt.Before(cutoff) {
			delete(m.decisions, id)
			deleted++
		}
	}
	kept := m.outcomes[:0]
	for _, o := range m.outcomes {
		if !o.CreatedAt.Before(cutoff) {
			kept = append(kept, o)
		}
	}
	m.outcomes = kept
	return deleted, nil
}

func (m *MemoryStorage) CountDecisions(ctx context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failErr("count_decisions"); err != nil {
		return 0, err
	}
	return int64(len(m.decisions)), nil
}

func (m *MemoryStorage) DeleteOldestDecisions(ctx context.Context, keep int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failErr("delete_oldest"); err != nil {
		return 0, err
	}
	excess := int64(len(m.decisions)) - keep
	if excess <= 0 {
		return 0, nil
	}
	all := make([]*audit.DecisionLog, 0, len(m.decisions))
	for _, log := range m.decisions {
		all = append(all, log)
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })

	var deleted int64
	alive := func(id string) bool { _, ok := m.decisions[id]; return ok }
	for _, log := range all[:excess] {
		delete(m.decisions, log.AuditID)
		deleted++
	}
	kept := m.outcomes[:0]
	for _, o := range m.outcomes {
		if alive(o.AuditID) {
			kept = append(kept, o)
		}
	}
	m.outcomes = kept
	return deleted, nil
}

func (m *MemoryStorage) Ping(ctx context.Context) error {
	return m.failErr("ping")
}

func (m *MemoryStorage) Close() error { return nil }
