package store

import (
	"database/sql"
	"fmt"

	"github.com/durablenotes/durablenotes/internal/note"
)

// UpsertNote writes a note row, replacing any existing row with the same
// (user_id, id). The actor owns its user's rows exclusively, so a replace
// here is always the actor's own last write.
func (db *DB) UpsertNote(n *note.Note) error {
	archived := 0
	if n.Archived {
		archived = 1
	}
	_, err := db.Exec(`
		INSERT INTO notes (user_id, id, space, intent, content, archived, summary, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, NULLIF(?, ''), ?, ?)
		ON CONFLICT(user_id, id) DO UPDATE SET
			space = excluded.space,
			intent = excluded.intent,
			content = excluded.content,
			archived = excluded.archived,
			summary = excluded.summary,
			updated_at = excluded.updated_at
	`, n.UserID, n.ID, n.Space, string(n.Intent), n.Content, archived, n.Summary, n.CreatedAt, n.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert note %s: %w", n.ID, err)
	}
	return nil
}

// LoadNotes returns all notes owned by a user, ordered by created_at ASC.
// Status is left unset; derivation happens in the actor.
func (db *DB) LoadNotes(userID string) ([]note.Note, error) {
	rows, err := db.Query(`
		SELECT user_id, id, space, intent, content, archived, summary, created_at, updated_at
		FROM notes WHERE user_id = ?
		ORDER BY created_at ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("load notes for %s: %w", userID, err)
	}
	defer rows.Close()

	var notes []note.Note
	for rows.Next() {
		var n note.Note
		var intent string
		var archived int
		var summary sql.NullString
		if err := rows.Scan(&n.UserID, &n.ID, &n.Space, &intent, &n.Content,
			&archived, &summary, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		n.Intent = note.Intent(intent)
		n.Archived = archived != 0
		n.Summary = summary.String
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

// CountNotes returns the number of note rows for a user.
func (db *DB) CountNotes(userID string) (int, error) {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM notes WHERE user_id = ?", userID).Scan(&count)
	return count, err
}
