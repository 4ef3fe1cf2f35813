package storage

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema contains the SQL statements to create the audit database schema.
const Schema = `
-- Decision logs: one row per decision, immutable after insert
CREATE TABLE IF NOT EXISTS decision_logs (
    audit_id TEXT PRIMARY KEY,
    decision_type TEXT NOT NULL,

    -- Experiment provenance (nullable when no experiment was active)
    experiment_id TEXT,
    variant TEXT,

    -- Full request/response pair as JSON
    request TEXT NOT NULL,
    response TEXT NOT NULL,

    created_at TIMESTAMP NOT NULL
);

-- Outcomes: append-only feedback rows attached by audit id
CREATE TABLE IF NOT EXISTS decision_outcomes (
    id TEXT PRIMARY KEY,
    audit_id TEXT NOT NULL,
    decision_type TEXT NOT NULL,
    outcome TEXT NOT NULL,
    code TEXT,
    reason TEXT,
    latency_ms REAL,
    extra TEXT,
    created_at TIMESTAMP NOT NULL
);

-- Indexes for common query patterns
CREATE INDEX IF NOT EXISTS idx_decision_logs_type ON decision_logs(decision_type);
CREATE INDEX IF NOT EXISTS idx_decision_logs_experiment ON decision_logs(experiment_id);
CREATE INDEX IF NOT EXISTS idx_decision_logs_created ON decision_logs(created_at);
CREATE INDEX IF NOT EXISTS idx_decision_outcomes_audit ON decision_outcomes(audit_id);
CREATE INDEX IF NOT EXISTS idx_decision_outcomes_created ON decision_outcomes(created_at);

-- Schema version tracking
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY
);
`

// InsertSchemaVersion inserts the schema version if not present.
const InsertSchemaVersion = `INSERT OR IGNORE INTO schema_version (version) VALUES (?)`

// GetSchemaVersion retrieves the current schema version.
const GetSchemaVersion = `SELECT version FROM schema_version LIMIT 1`
