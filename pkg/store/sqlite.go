package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"meridian-hq/vega/pkg/decision"
)

const defaultRuleLimit = 200

// SQLiteConfig configures the SQLite configuration store.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// SQLiteStore implements Store using SQLite. It opens the database in
// WAL mode with a single writer connection, the same arrangement the
// rest of the system uses for durable single-instance state.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore opens (creating if needed) the configuration store.
func NewSQLiteStore(cfg SQLiteConfig) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d&_synchronous=NORMAL",
		cfg.Path, int(cfg.BusyTimeout.Milliseconds()))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &SQLiteStore{db: db}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// Ping verifies the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return s.db.Close()
}

// -- Cached dataset reads ---------------------------------------------------

// ConfigEntries returns all decision parameter rows as a key-value map.
func (s *SQLiteStore) ConfigEntries(ctx context.Context) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM decision_config`)
	if err != nil {
		return nil, fmt.Errorf("failed to read decision config: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("failed to scan config row: %w", err)
		}
		k = strings.TrimSpace(k)
		v = strings.TrimSpace(v)
		if k != "" && v != "" {
			out[k] = v
		}
	}
	return out, rows.Err()
}

// DeclineCodes returns all active retryable decline code rows.
func (s *SQLiteStore) DeclineCodes(ctx context.Context) ([]decision.RetryableCode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT code, label, category, default_backoff_seconds, max_attempts
		FROM retryable_decline_codes WHERE is_active = 1`)
	if err != nil {
		return nil, fmt.Errorf("failed to read decline codes: %w", err)
	}
	defer rows.Close()

	var out []decision.RetryableCode
	for rows.Next() {
		var c decision.RetryableCode
		if err := rows.Scan(&c.Code, &c.Label, &c.Category, &c.DefaultBackoffSeconds, &c.MaxAttempts); err != nil {
			return nil, fmt.Errorf("failed to scan decline code row: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// RouteScores returns all active route performance rows.
func (s *SQLiteStore) RouteScores(ctx context.Context) ([]decision.RouteScore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT route_name, approval_rate_pct, avg_latency_ms, cost_score
		FROM route_performance WHERE is_active = 1
		ORDER BY approval_rate_pct DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to read route performance: %w", err)
	}
	defer rows.Close()

	var out []decision.RouteScore
	for rows.Next() {
		var r decision.RouteScore
		if err := rows.Scan(&r.RouteName, &r.ApprovalRatePct, &r.AvgLatencyMS, &r.CostScore); err != nil {
			return nil, fmt.Errorf("failed to scan route row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListRules returns rules matching the query, priority-ordered.
func (s *SQLiteStore) ListRules(ctx context.Context, q RuleQuery) ([]Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit := q.Limit
	if limit <= 0 {
		limit = defaultRuleLimit
	}

	query := `
		SELECT id, name, rule_type, COALESCE(condition_expression, ''), action_summary,
		       priority, is_active, created_at, updated_at
		FROM approval_rules`
	var args []any
	var where []string
	if q.RuleType != "" {
		where = append(where, "rule_type = ?")
		args = append(args, q.RuleType)
	}
	if q.ActiveOnly {
		where = append(where, "is_active = 1")
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY priority ASC, updated_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	defer rows.Close()

	var out []Rule
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// Recommendations returns active recommendations created within the
// window, most confident first.
func (s *SQLiteStore) Recommendations(ctx context.Context, window time.Duration, limit int) ([]Recommendation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}
	cutoff := time.Now().Add(-window).Unix()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, recommendation_type, COALESCE(segment, ''), action_summary,
		       expected_impact_pct, confidence, status, created_at
		FROM approval_recommendations
		WHERE status = 'active' AND created_at >= ?
		ORDER BY confidence DESC LIMIT ?`, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read recommendations: %w", err)
	}
	defer rows.Close()

	var out []Recommendation
	for rows.Next() {
		var r Recommendation
		var created int64
		if err := rows.Scan(&r.ID, &r.RecommendationType, &r.Segment, &r.ActionSummary,
			&r.ExpectedImpactPct, &r.Confidence, &r.Status, &created); err != nil {
			return nil, fmt.Errorf("failed to scan recommendation row: %w", err)
		}
		r.CreatedAt = time.Unix(created, 0)
		out = append(out, r)
	}
	return out, rows.Err()
}

// -- Operator-facing configuration writes ----------------------------------

// SetConfigEntry upserts a single decision parameter row.
func (s *SQLiteStore) SetConfigEntry(ctx context.Context, key, value, description string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("config key cannot be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO decision_config (key, value, description, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET
			value = excluded.value,
			description = excluded.description,
			updated_at = excluded.updated_at`,
		key, value, description, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to set config entry: %w", err)
	}
	return nil
}

// UpsertDeclineCode upserts a retryable decline code row. The code is
// normalized to lower case on write so reads never need to.
func (s *SQLiteStore) UpsertDeclineCode(ctx context.Context, code decision.RetryableCode, active bool) error {
	normalized := strings.ToLower(strings.TrimSpace(code.Code))
	if normalized == "" {
		return fmt.Errorf("decline code cannot be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO retryable_decline_codes
			(code, label, category, default_backoff_seconds, max_attempts, is_active, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (code) DO UPDATE SET
			label = excluded.label,
			category = excluded.category,
			default_backoff_seconds = excluded.default_backoff_seconds,
			max_attempts = excluded.max_attempts,
			is_active = excluded.is_active,
			updated_at = excluded.updated_at`,
		normalized, code.Label, code.Category, code.DefaultBackoffSeconds,
		code.MaxAttempts, boolToInt(active), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to upsert decline code: %w", err)
	}
	return nil
}

// UpsertRouteScore upserts a route performance row.
func (s *SQLiteStore) UpsertRouteScore(ctx context.Context, route decision.RouteScore, active bool) error {
	if strings.TrimSpace(route.RouteName) == "" {
		return fmt.Errorf("route name cannot be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO route_performance
			(route_name, approval_rate_pct, avg_latency_ms, cost_score, is_active, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (route_name) DO UPDATE SET
			approval_rate_pct = excluded.approval_rate_pct,
			avg_latency_ms = excluded.avg_latency_ms,
			cost_score = excluded.cost_score,
			is_active = excluded.is_active,
			updated_at = excluded.updated_at`,
		route.RouteName, route.ApprovalRatePct, route.AvgLatencyMS, route.CostScore,
		boolToInt(active), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to upsert route score: %w", err)
	}
	return nil
}

// -- Rule CRUD --------------------------------------------------------------

// GetRule returns a rule by id, or ErrNotFound.
func (s *SQLiteStore) GetRule(ctx context.Context, id string) (*Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, rule_type, COALESCE(condition_expression, ''), action_summary,
		       priority, is_active, created_at, updated_at
		FROM approval_rules WHERE id = ?`, id)
	r, err := scanRule(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return r, err
}

// CreateRule inserts a new rule, generating an id when absent.
func (s *SQLiteStore) CreateRule(ctx context.Context, r *Rule) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	now := time.Now()
	r.CreatedAt = now
	r.UpdatedAt = now

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO approval_rules
			(id, name, rule_type, condition_expression, action_summary, priority, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Name, r.RuleType, nullIfEmpty(r.ConditionExpression), r.ActionSummary,
		r.Priority, boolToInt(r.Active), now.Unix(), now.Unix())
	if err != nil {
		return fmt.Errorf("failed to create rule: %w", err)
	}
	return nil
}

// UpdateRule applies a partial update and returns the updated rule.
func (s *SQLiteStore) UpdateRule(ctx context.Context, id string, upd RuleUpdate) (*Rule, error) {
	current, err := s.GetRule(ctx, id)
	if err != nil {
		return nil, err
	}

	if upd.Name != nil {
		current.Name = *upd.Name
	}
	if upd.RuleType != nil {
		current.RuleType = *upd.RuleType
	}
	if upd.ConditionExpression != nil {
		current.ConditionExpression = *upd.ConditionExpression
	}
	if upd.ActionSummary != nil {
		current.ActionSummary = *upd.ActionSummary
	}
	if upd.Priority != nil {
		current.Priority = *upd.Priority
	}
	if upd.Active != nil {
		current.Active = *upd.Active
	}
	current.UpdatedAt = time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx, `
		UPDATE approval_rules
		SET name = ?, rule_type = ?, condition_expression = ?, action_summary = ?,
		    priority = ?, is_active = ?, updated_at = ?
		WHERE id = ?`,
		current.Name, current.RuleType, nullIfEmpty(current.ConditionExpression),
		current.ActionSummary, current.Priority, boolToInt(current.Active),
		current.UpdatedAt.Unix(), id)
	if err != nil {
		return nil, fmt.Errorf("failed to update rule: %w", err)
	}
	return current, nil
}

// DeleteRule removes a rule by id.
func (s *SQLiteStore) DeleteRule(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM approval_rules WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// -- Experiments ------------------------------------------------------------

// CreateExperiment inserts a new experiment in draft status.
func (s *SQLiteStore) CreateExperiment(ctx context.Context, e *Experiment) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Status == "" {
		e.Status = ExperimentDraft
	}
	e.CreatedAt = time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO experiments (id, name, description, status, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		e.ID, e.Name, nullIfEmpty(e.Description), e.Status, e.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to create experiment: %w", err)
	}
	return nil
}

// GetExperiment returns an experiment by id, or ErrNotFound.
func (s *SQLiteStore) GetExperiment(ctx context.Context, id string) (*Experiment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getExperimentLocked(ctx, id)
}

func (s *SQLiteStore) getExperimentLocked(ctx context.Context, id string) (*Experiment, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, COALESCE(description, ''), status, created_at, started_at, ended_at
		FROM experiments WHERE id = ?`, id)

	var e Experiment
	var created int64
	var started, ended sql.NullInt64
	err := row.Scan(&e.ID, &e.Name, &e.Description, &e.Status, &created, &started, &ended)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read experiment: %w", err)
	}
	e.CreatedAt = time.Unix(created, 0)
	if started.Valid {
		t := time.Unix(started.Int64, 0)
		e.StartedAt = &t
	}
	if ended.Valid {
		t := time.Unix(ended.Int64, 0)
		e.EndedAt = &t
	}
	return &e, nil
}

// ListExperiments returns experiments, newest first.
func (s *SQLiteStore) ListExperiments(ctx context.Context, limit int) ([]Experiment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, COALESCE(description, ''), status, created_at, started_at, ended_at
		FROM experiments ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list experiments: %w", err)
	}
	defer rows.Close()

	var out []Experiment
	for rows.Next() {
		var e Experiment
		var created int64
		var started, ended sql.NullInt64
		if err := rows.Scan(&e.ID, &e.Name, &e.Description, &e.Status, &created, &started, &ended); err != nil {
			return nil, fmt.Errorf("failed to scan experiment row: %w", err)
		}
		e.CreatedAt = time.Unix(created, 0)
		if started.Valid {
			t := time.Unix(started.Int64, 0)
			e.StartedAt = &t
		}
		if ended.Valid {
			t := time.Unix(ended.Int64, 0)
			e.EndedAt = &t
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// SetExperimentStatus transitions an experiment and stamps the
// started/ended timestamps on the first transition into running/stopped.
func (s *SQLiteStore) SetExperimentStatus(ctx context.Context, id, status string) (*Experiment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.getExperimentLocked(ctx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	e.Status = status
	if status == ExperimentRunning && e.StartedAt == nil {
		e.StartedAt = &now
	}
	if status == ExperimentStopped {
		e.EndedAt = &now
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE experiments SET status = ?, started_at = ?, ended_at = ? WHERE id = ?`,
		e.Status, nullTime(e.StartedAt), nullTime(e.EndedAt), id)
	if err != nil {
		return nil, fmt.Errorf("failed to update experiment status: %w", err)
	}
	return e, nil
}

// GetAssignment returns the stored assignment for the pair, or
// ErrNotFound.
func (s *SQLiteStore) GetAssignment(ctx context.Context, experimentID, subjectKey string) (*Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getAssignmentLocked(ctx, experimentID, subjectKey)
}

func (s *SQLiteStore) getAssignmentLocked(ctx context.Context, experimentID, subjectKey string) (*Assignment, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, experiment_id, subject_key, variant, created_at
		FROM experiment_assignments
		WHERE experiment_id = ? AND subject_key = ?`, experimentID, subjectKey)

	var a Assignment
	var created int64
	err := row.Scan(&a.ID, &a.ExperimentID, &a.SubjectKey, &a.Variant, &created)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read assignment: %w", err)
	}
	a.CreatedAt = time.Unix(created, 0)
	return &a, nil
}

// PutAssignment inserts the assignment if the pair is unassigned and
// returns the stored row either way. A concurrent duplicate insert is a
// conflict-resolved read, not an error.
func (s *SQLiteStore) PutAssignment(ctx context.Context, a Assignment) (*Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO experiment_assignments (experiment_id, subject_key, variant, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (experiment_id, subject_key) DO NOTHING`,
		a.ExperimentID, a.SubjectKey, a.Variant, time.Now().Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to insert assignment: %w", err)
	}
	return s.getAssignmentLocked(ctx, a.ExperimentID, a.SubjectKey)
}

// ListAssignments returns assignments for an experiment, newest first.
func (s *SQLiteStore) ListAssignments(ctx context.Context, experimentID string, limit int) ([]Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 200
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, experiment_id, subject_key, variant, created_at
		FROM experiment_assignments
		WHERE experiment_id = ?
		ORDER BY created_at DESC, id DESC LIMIT ?`, experimentID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	defer rows.Close()

	var out []Assignment
	for rows.Next() {
		var a Assignment
		var created int64
		if err := rows.Scan(&a.ID, &a.ExperimentID, &a.SubjectKey, &a.Variant, &created); err != nil {
			return nil, fmt.Errorf("failed to scan assignment row: %w", err)
		}
		a.CreatedAt = time.Unix(created, 0)
		out = append(out, a)
	}
	return out, rows.Err()
}

// -- Online features --------------------------------------------------------

// WriteFeatures appends one row per feature value. Numeric values land
// in feature_value, everything else stringified in feature_value_str.
func (s *SQLiteStore) WriteFeatures(ctx context.Context, entityID, source, featureSet string, features map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().Unix()
	for name, value := range features {
		if value == nil {
			continue
		}
		var num sql.NullFloat64
		var str sql.NullString
		switch v := value.(type) {
		case float64:
			num = sql.NullFloat64{Float64: v, Valid: true}
		case float32:
			num = sql.NullFloat64{Float64: float64(v), Valid: true}
		case int:
			num = sql.NullFloat64{Float64: float64(v), Valid: true}
		case int64:
			num = sql.NullFloat64{Float64: float64(v), Valid: true}
		case bool:
			f := 0.0
			if v {
				f = 1.0
			}
			num = sql.NullFloat64{Float64: f, Valid: true}
		default:
			str = sql.NullString{String: fmt.Sprint(v), Valid: true}
		}

		_, err := s.db.ExecContext(ctx, `
			INSERT INTO online_features
				(id, source, feature_set, feature_name, feature_value, feature_value_str, entity_id, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			uuid.New().String()[:16], source, featureSet, name, num, str, entityID, now)
		if err != nil {
			return fmt.Errorf("failed to write feature %q: %w", name, err)
		}
	}
	return nil
}

// FeaturesByEntity returns the most recent feature rows for an entity.
func (s *SQLiteStore) FeaturesByEntity(ctx context.Context, entityID string, limit int) ([]OnlineFeature, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source, feature_set, feature_name, feature_value, feature_value_str, entity_id, created_at
		FROM online_features
		WHERE entity_id = ?
		ORDER BY created_at DESC, id DESC LIMIT ?`, entityID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read features: %w", err)
	}
	defer rows.Close()

	var out []OnlineFeature
	for rows.Next() {
		var f OnlineFeature
		var num sql.NullFloat64
		var str sql.NullString
		var created int64
		if err := rows.Scan(&f.ID, &f.Source, &f.FeatureSet, &f.FeatureName, &num, &str, &f.EntityID, &created); err != nil {
			return nil, fmt.Errorf("failed to scan feature row: %w", err)
		}
		if num.Valid {
			f.Value = &num.Float64
		}
		if str.Valid {
			f.ValueStr = &str.String
		}
		f.CreatedAt = time.Unix(created, 0)
		out = append(out, f)
	}
	return out, rows.Err()
}

// -- helpers ----------------------------------------------------------------

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRule(row rowScanner) (*Rule, error) {
	var r Rule
	var active int
	var created, updated int64
	err := row.Scan(&r.ID, &r.Name, &r.RuleType, &r.ConditionExpression, &r.ActionSummary,
		&r.Priority, &active, &created, &updated)
	if err != nil {
		return nil, err
	}
	r.Active = active != 0
	r.CreatedAt = time.Unix(created, 0)
	r.UpdatedAt = time.Unix(updated, 0)
	return &r, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Unix()
}
