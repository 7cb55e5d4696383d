package store

import (
	"fmt"
)

// Settings keys accepted by the admin API. Anything else is rejected at
// the route layer rather than landing in the table.
var KnownSettings = []string{"site_title", "logo_url", "favicon_url"}

// SetSetting writes a branding key/value pair.
func (db *DB) SetSetting(key, value string) error {
	_, err := db.Exec(`
		INSERT INTO system_settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	return nil
}

// AllSettings returns every setting as a flat map.
func (db *DB) AllSettings() (map[string]string, error) {
	rows, err := db.Query("SELECT key, value FROM system_settings")
	if err != nil {
		return nil, fmt.Errorf("all settings: %w", err)
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		settings[k] = v
	}
	return settings, rows.Err()
}
