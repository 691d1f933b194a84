package store

import (
	"fmt"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "entity_state: mutable runtime state per memory-bearing entity",
		SQL: `
CREATE TABLE entity_state (
    entity_id      TEXT PRIMARY KEY,
    kind           TEXT NOT NULL CHECK (kind IN ('location', 'artifact', 'npc')),
    state_json     TEXT NOT NULL,
    last_tick      INTEGER,
    saved_at       INTEGER NOT NULL
);
`,
	},
	{
		Version:     2,
		Description: "trigger_log: append-only affordance trigger snapshots",
		SQL: `
CREATE TABLE trigger_log (
    id                INTEGER PRIMARY KEY,
    trigger_id        TEXT NOT NULL UNIQUE,
    entity_id         TEXT NOT NULL,
    actor_id          TEXT NOT NULL,
    affordance_key    TEXT NOT NULL,
    computed_affinity REAL NOT NULL,
    threshold_label   TEXT NOT NULL,
    snapshot_json     TEXT NOT NULL,
    created_at        INTEGER NOT NULL
);

CREATE INDEX idx_trigger_entity  ON trigger_log(entity_id);
CREATE INDEX idx_trigger_created ON trigger_log(created_at DESC);
`,
	},
	{
		Version:     3,
		Description: "institution_state: mutable runtime state per institution",
		SQL: `
CREATE TABLE institution_state (
    institution_id  TEXT PRIMARY KEY,
    state_json      TEXT NOT NULL,
    last_computed   INTEGER,
    saved_at        INTEGER NOT NULL
);
`,
	},
}

func (db *DB) migrate() error {
	// Create schema_versions table if it doesn't exist
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_versions (
			version     INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at  INTEGER NOT NULL DEFAULT (strftime('%s', 'now') * 1000)
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}

	for _, m := range migrations {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM schema_versions WHERE version = ?", m.Version).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.Version, err)
		}
		if count > 0 {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_versions (version, description) VALUES (?, ?)",
			m.Version, m.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}

// SchemaVersion returns the current schema version.
func (db *DB) SchemaVersion() (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_versions").Scan(&version)
	return version, err
}
