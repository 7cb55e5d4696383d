package store

import (
	"database/sql"
	"fmt"
)

// Counter keys fed by the aggregate sink and read by the admin API.
const (
	StatTotalNotes    = "total_notes"
	StatArchivedNotes = "archived_notes"
)

// IncrementStat adds delta to a counter, creating it if missing.
func (db *DB) IncrementStat(key string, delta int) error {
	_, err := db.Exec(`
		INSERT INTO stats (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = value + excluded.value
	`, key, delta)
	if err != nil {
		return fmt.Errorf("increment stat %s: %w", key, err)
	}
	return nil
}

// GetStat returns a counter value, or 0 if the key has never been written.
func (db *DB) GetStat(key string) (int64, error) {
	var value int64
	err := db.QueryRow("SELECT value FROM stats WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get stat %s: %w", key, err)
	}
	return value, nil
}
