package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database connection
type DB struct {
	*sql.DB
}

// New creates a new SQLite database connection
func New(dataSourceName string) (*DB, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return &DB{db}, nil
}

// RunMigrations creates the coordination schema.
func (db *DB) RunMigrations() error {
	migration := `
-- Raw coordination events, written by ingestion collaborators.
-- processed_at transitions NULL -> timestamp exactly once.
CREATE TABLE IF NOT EXISTS coordination_events (
    id TEXT PRIMARY KEY,
    project_id TEXT NOT NULL,
    event_type TEXT NOT NULL CHECK(event_type IN (
        'standup-missed', 'question-unanswered', 'question-answered',
        'action-interaction', 'snooze-expired', 'blocker-persisted'
    )),
    target_user_id TEXT NOT NULL,
    related_entity_id TEXT,
    severity TEXT NOT NULL CHECK(severity IN ('LOW', 'MEDIUM', 'HIGH')),
    metadata TEXT,
    occurred_at TIMESTAMP NOT NULL,
    processed_at TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_events_project ON coordination_events(project_id);
CREATE INDEX IF NOT EXISTS idx_events_unprocessed
    ON coordination_events(occurred_at) WHERE processed_at IS NULL;

-- Escalation triggers. The partial unique index is what makes
-- check-then-insert safe under concurrent processors: among non-RESOLVED
-- rows a (project_id, dedup_key) pair exists at most once.
CREATE TABLE IF NOT EXISTS coordination_triggers (
    id TEXT PRIMARY KEY,
    project_id TEXT NOT NULL,
    target_user_id TEXT NOT NULL,
    related_entity_id TEXT,
    severity TEXT NOT NULL CHECK(severity IN ('LOW', 'MEDIUM', 'HIGH')),
    rule_id TEXT NOT NULL,
    escalation_level INTEGER NOT NULL CHECK(escalation_level >= 1),
    dedup_key TEXT NOT NULL,
    status TEXT NOT NULL CHECK(status IN ('PENDING', 'SENT', 'RESOLVED')),
    created_at TIMESTAMP NOT NULL,
    resolved_at TIMESTAMP
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_triggers_live_dedup
    ON coordination_triggers(project_id, dedup_key) WHERE status != 'RESOLVED';
CREATE INDEX IF NOT EXISTS idx_triggers_entity
    ON coordination_triggers(project_id, related_entity_id);
CREATE INDEX IF NOT EXISTS idx_triggers_status ON coordination_triggers(status);
`

	_, err := db.Exec(migration)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}
