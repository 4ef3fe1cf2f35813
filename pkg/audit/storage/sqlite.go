package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"meridian-hq/vega/pkg/audit"
	"meridian-hq/vega/pkg/experiment"
)

// SQLiteConfig contains configuration for the SQLite audit backend.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int

	// WALMode enables Write-Ahead Logging mode for better concurrency.
	// Default: true
	WALMode bool

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/audit.db",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStorage implements the audit Storage interface using SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteStorage creates a new SQLite audit backend, initializing the
// schema and enabling WAL mode if configured.
func NewSQLiteStorage(config *SQLiteConfig) (*SQLiteStorage, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}

	logger := slog.Default().With("component", "audit.storage.sqlite")

	db, err := sql.Open("sqlite3", config.Path)
	if err != nil {
		return nil, audit.NewStorageError("sqlite", "open", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)

	s := &SQLiteStorage{
		db:     db,
		config: config,
		logger: logger,
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite audit storage initialized",
		"path", config.Path,
		"wal_mode", config.WALMode,
		"max_open_conns", config.MaxOpenConns,
	)

	return s, nil
}

// initialize sets up the database schema and enables WAL mode.
func (s *SQLiteStorage) initialize() error {
	if s.config.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return audit.NewStorageError("sqlite", "enable_wal", err)
		}
	}

	busyTimeoutMs := s.config.BusyTimeout.Milliseconds()
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", busyTimeoutMs)); err != nil {
		return audit.NewStorageError("sqlite", "set_busy_timeout", err)
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return audit.NewStorageError("sqlite", "create_schema", err)
	}

	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return audit.NewStorageError("sqlite", "insert_schema_version", err)
	}

	var version int
	err := s.db.QueryRow(GetSchemaVersion).Scan(&version)
	if err != nil && err != sql.ErrNoRows {
		return audit.NewStorageError("sqlite", "get_schema_version", err)
	}
	if version != SchemaVersion {
		return audit.NewStorageError("sqlite", "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}

	return nil
}

// StoreDecision persists a decision log row.
func (s *SQLiteStorage) StoreDecision(ctx context.Context, log *audit.DecisionLog) error {
	request, _ := json.Marshal(log.Request)
	response, _ := json.Marshal(log.Response)

	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now()
	}

	var experimentID, variant any
	if log.ExperimentID != "" {
		experimentID = log.ExperimentID
	}
	if log.Variant != "" {
		variant = log.Variant
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO decision_logs (audit_id, decision_type, experiment_id, variant, request, response, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, log.AuditID, log.DecisionType, experimentID, variant, string(request), string(response), log.CreatedAt)
	if err != nil {
		return audit.NewStorageError("sqlite", "store_decision", err)
	}
	return nil
}

// StoreOutcome appends an outcome row.
func (s *SQLiteStorage) StoreOutcome(ctx context.Context, o *audit.Outcome) error {
	extra, _ := json.Marshal(o.Extra)
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now()
	}

	var latency any
	if o.LatencyMS != nil {
		latency = *o.LatencyMS
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO decision_outcomes (id, audit_id, decision_type, outcome, code, reason, latency_ms, extra, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, o.ID, o.AuditID, o.DecisionType, o.Outcome, emptyToNull(o.Code), emptyToNull(o.Reason),
		latency, string(extra), o.CreatedAt)
	if err != nil {
		return audit.NewStorageError("sqlite", "store_outcome", err)
	}
	return nil
}

// GetDecision retrieves a decision log by audit id.
func (s *SQLiteStorage) GetDecision(ctx context.Context, auditID string) (*audit.DecisionLog, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT audit_id, decision_type, COALESCE(experiment_id, ''), COALESCE(variant, ''), request, response, created_at
		FROM decision_logs WHERE audit_id = ?
	`, auditID)

	log, err := scanDecision(row)
	if err == sql.ErrNoRows {
		return nil, audit.ErrNotFound
	}
	if err != nil {
		return nil, audit.NewStorageError("sqlite", "get_decision", err)
	}
	return log, nil
}

// ListDecisions retrieves decision logs matching the query filters,
// most recent first.
func (s *SQLiteStorage) ListDecisions(ctx context.Context, q audit.DecisionQuery) ([]*audit.DecisionLog, error) {
	query := `
		SELECT audit_id, decision_type, COALESCE(experiment_id, ''), COALESCE(variant, ''), request, response, created_at
		FROM decision_logs WHERE 1=1
	`
	var args []any
	if q.DecisionType != "" {
		query += " AND decision_type = ?"
		args = append(args, q.DecisionType)
	}
	if q.ExperimentID != "" {
		query += " AND experiment_id = ?"
		args = append(args, q.ExperimentID)
	}
	if !q.Since.IsZero() {
		query += " AND created_at >= ?"
		args = append(args, q.Since)
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	query += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, audit.NewStorageError("sqlite", "list_decisions", err)
	}
	defer rows.Close()

	var out []*audit.DecisionLog
	for rows.Next() {
		log, err := scanDecision(rows)
		if err != nil {
			return nil, audit.NewStorageError("sqlite", "scan_decision", err)
		}
		out = append(out, log)
	}
	return out, rows.Err()
}

// OutcomesByAudit retrieves all outcomes for a decision, oldest first.
func (s *SQLiteStorage) OutcomesByAudit(ctx context.Context, auditID string) ([]*audit.Outcome, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, audit_id, decision_type, outcome, COALESCE(code, ''), COALESCE(reason, ''), latency_ms, extra, created_at
		FROM decision_outcomes WHERE audit_id = ? ORDER BY created_at ASC
	`, auditID)
	if err != nil {
		return nil, audit.NewStorageError("sqlite", "outcomes_by_audit", err)
	}
	defer rows.Close()

	var out []*audit.Outcome
	for rows.Next() {
		o := &audit.Outcome{}
		var latency sql.NullFloat64
		var extra string
		if err := rows.Scan(&o.ID, &o.AuditID, &o.DecisionType, &o.Outcome, &o.Code, &o.Reason,
			&latency, &extra, &o.CreatedAt); err != nil {
			return nil, audit.NewStorageError("sqlite", "scan_outcome", err)
		}
		if latency.Valid {
			v := latency.Float64
			o.LatencyMS = &v
		}
		if extra != "" && extra != "null" {
			_ = json.Unmarshal([]byte(extra), &o.Extra)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// DecisionCountsByVariant counts decision logs per variant for an
// experiment.
func (s *SQLiteStorage) DecisionCountsByVariant(ctx context.Context, experimentID string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT variant, COUNT(*) FROM decision_logs
		WHERE experiment_id = ? AND variant IS NOT NULL
		GROUP BY variant
	`, experimentID)
	if err != nil {
		return nil, audit.NewStorageError("sqlite", "decision_counts", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var variant string
		var count int
		if err := rows.Scan(&variant, &count); err != nil {
			return nil, audit.NewStorageError("sqlite", "scan_count", err)
		}
		out[variant] = count
	}
	return out, rows.Err()
}

// OutcomesByVariant joins outcomes to decision logs and groups them by
// the variant recorded at decision time.
func (s *SQLiteStorage) OutcomesByVariant(ctx context.Context, experimentID string) (map[string][]experiment.OutcomeSample, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT l.variant, o.outcome, o.latency_ms
		FROM decision_outcomes o
		JOIN decision_logs l ON l.audit_id = o.audit_id
		WHERE l.experiment_id = ? AND l.variant IS NOT NULL
	`, experimentID)
	if err != nil {
		return nil, audit.NewStorageError("sqlite", "outcomes_by_variant", err)
	}
	defer rows.Close()

	out := make(map[string][]experiment.OutcomeSample)
	for rows.Next() {
		var variant, outcome string
		var latency sql.NullFloat64
		if err := rows.Scan(&variant, &outcome, &latency); err != nil {
			return nil, audit.NewStorageError("sqlite", "scan_sample", err)
		}
		sample := experiment.OutcomeSample{Outcome: outcome}
		if latency.Valid {
			v := latency.Float64
			sample.LatencyMS = &v
		}
		out[variant] = append(out[variant], sample)
	}
	return out, rows.Err()
}

// DeleteBefore removes decision logs and outcomes older than the
// cutoff, returning the number of decision rows deleted.
func (s *SQLiteStorage) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM decision_outcomes WHERE created_at < ?`, cutoff); err != nil {
		return 0, audit.NewStorageError("sqlite", "delete_outcomes", err)
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM decision_logs WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, audit.NewStorageError("sqlite", "delete_decisions", err)
	}
	deleted, _ := res.RowsAffected()
	return deleted, nil
}

// CountDecisions returns the number of stored decision logs.
func (s *SQLiteStorage) CountDecisions(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM decision_logs`).Scan(&count)
	if err != nil {
		return 0, audit.NewStorageError("sqlite", "count_decisions", err)
	}
	return count, nil
}

// DeleteOldestDecisions trims the decision log table down to keep
// rows, deleting the oldest first along with their outcomes.
func (s *SQLiteStorage) DeleteOldestDecisions(ctx context.Context, keep int64) (int64, error) {
	count, err := s.CountDecisions(ctx)
	if err != nil {
		return 0, err
	}
	excess := count - keep
	if excess <= 0 {
		return 0, nil
	}
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM decision_logs WHERE audit_id IN (
			SELECT audit_id FROM decision_logs
			ORDER BY created_at ASC
			LIMIT ?
		)
	`, excess)
	if err != nil {
		return 0, audit.NewStorageError("sqlite", "delete_oldest", err)
	}
	deleted, _ := res.RowsAffected()

	// Orphaned outcomes go with their decisions.
	if _, err := s.db.ExecContext(ctx, `
		DELETE FROM decision_outcomes WHERE audit_id NOT IN (SELECT audit_id FROM decision_logs)
	`); err != nil {
		return deleted, audit.NewStorageError("sqlite", "delete_orphan_outcomes", err)
	}
	return deleted, nil
}

// Ping verifies the database connection.
func (s *SQLiteStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDecision(row rowScanner) (*audit.DecisionLog, error) {
	log := &audit.DecisionLog{}
	var request, response string
	if err := row.Scan(&log.AuditID, &log.DecisionType, &log.ExperimentID, &log.Variant,
		&request, &response, &log.CreatedAt); err != nil {
		return nil, err
	}
	_ = json.Unmarshal([]byte(request), &log.Request)
	_ = json.Unmarshal([]byte(response), &log.Response)
	return log, nil
}

func emptyToNull(s string) any {
	if s == "" {
		return nil
	}
	return s
}
