package store

// schemaSQL creates the configuration and experiment tables. All writes
// are row-level upserts or appends; the engine never migrates schemas
// beyond this initial creation.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS decision_config (
	key         TEXT PRIMARY KEY,
	value       TEXT NOT NULL,
	description TEXT,
	updated_at  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS retryable_decline_codes (
	code                    TEXT PRIMARY KEY,
	label                   TEXT NOT NULL DEFAULT '',
	category                TEXT NOT NULL DEFAULT 'soft',
	default_backoff_seconds INTEGER NOT NULL DEFAULT 900,
	max_attempts            INTEGER NOT NULL DEFAULT 3,
	is_active               INTEGER NOT NULL DEFAULT 1,
	updated_at              INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS route_performance (
	route_name        TEXT PRIMARY KEY,
	approval_rate_pct REAL NOT NULL DEFAULT 50.0,
	avg_latency_ms    REAL NOT NULL DEFAULT 500.0,
	cost_score        REAL NOT NULL DEFAULT 0.5,
	is_active         INTEGER NOT NULL DEFAULT 1,
	updated_at        INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS approval_rules (
	id                   TEXT PRIMARY KEY,
	name                 TEXT NOT NULL,
	rule_type            TEXT NOT NULL,
	condition_expression TEXT,
	action_summary       TEXT NOT NULL,
	priority             INTEGER NOT NULL DEFAULT 100,
	is_active            INTEGER NOT NULL DEFAULT 1,
	created_at           INTEGER NOT NULL,
	updated_at           INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_rules_type ON approval_rules(rule_type, is_active);

CREATE TABLE IF NOT EXISTS approval_recommendations (
	id                  TEXT PRIMARY KEY,
	recommendation_type TEXT NOT NULL,
	segment             TEXT,
	action_summary      TEXT NOT NULL,
	expected_impact_pct REAL NOT NULL DEFAULT 0,
	confidence          REAL NOT NULL DEFAULT 0,
	status              TEXT NOT NULL DEFAULT 'active',
	created_at          INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_recs_created ON approval_recommendations(created_at);

CREATE TABLE IF NOT EXISTS experiments (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	description TEXT,
	status      TEXT NOT NULL DEFAULT 'draft',
	created_at  INTEGER NOT NULL,
	started_at  INTEGER,
	ended_at    INTEGER
);

CREATE TABLE IF NOT EXISTS experiment_assignments (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	experiment_id TEXT NOT NULL,
	subject_key   TEXT NOT NULL,
	variant       TEXT NOT NULL,
	created_at    INTEGER NOT NULL,
	UNIQUE (experiment_id, subject_key)
);
CREATE INDEX IF NOT EXISTS idx_assignments_experiment ON experiment_assignments(experiment_id);

CREATE TABLE IF NOT EXISTS online_features (
	id                TEXT PRIMARY KEY,
	source            TEXT NOT NULL,
	feature_set       TEXT NOT NULL,
	feature_name      TEXT NOT NULL,
	feature_value     REAL,
	feature_value_str TEXT,
	entity_id         TEXT NOT NULL,
	created_at        INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_features_entity ON online_features(entity_id, created_at);
`
