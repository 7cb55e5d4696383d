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
		Description: "notes: per-user note records",
		SQL: `
CREATE TABLE notes (
    user_id    TEXT NOT NULL,
    id         TEXT NOT NULL,
    space      TEXT NOT NULL DEFAULT 'main',
    intent     TEXT NOT NULL CHECK (intent IN ('thinking', 'planning', 'building', 'writing', 'shared')),
    content    TEXT NOT NULL,

    -- Lifecycle: only the terminal flag is stored. warming/alive/cooling
    -- are derived from created_at at read time.
    archived   INTEGER NOT NULL DEFAULT 0,
    summary    TEXT,

    -- Seconds since epoch, float precision (the wire format).
    created_at REAL NOT NULL,
    updated_at REAL NOT NULL,

    PRIMARY KEY (user_id, id)
);

CREATE INDEX idx_notes_user_created ON notes(user_id, created_at);
`,
	},
	{
		Version:     2,
		Description: "stats: advisory aggregate counters",
		SQL: `
CREATE TABLE stats (
    key   TEXT PRIMARY KEY,
    value INTEGER NOT NULL DEFAULT 0
);
`,
	},
	{
		Version:     3,
		Description: "users: identity sync at the auth boundary",
		SQL: `
CREATE TABLE users (
    id         TEXT PRIMARY KEY,
    email      TEXT,
    name       TEXT,
    picture    TEXT,
    created_at INTEGER NOT NULL
);

CREATE INDEX idx_users_created ON users(created_at DESC);
`,
	},
	{
		Version:     4,
		Description: "system_settings: branding key/value store",
		SQL: `
CREATE TABLE system_settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
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
