package aggregate

import (
	"testing"

	"github.com/durablenotes/durablenotes/internal/store"
)

func TestStoreSinkCounts(t *testing.T) {
	db, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	sink := NewStoreSink(db)
	sink.Notify("u1", Delta{NotesCreated: 1})
	sink.Notify("u1", Delta{NotesCreated: 1})
	sink.Notify("u2", Delta{NotesArchived: 1})
	sink.Close() // drains the queue

	created, err := db.GetStat(store.StatTotalNotes)
	if err != nil {
		t.Fatalf("GetStat: %v", err)
	}
	if created != 2 {
		t.Errorf("total_notes = %d, want 2", created)
	}

	archived, err := db.GetStat(store.StatArchivedNotes)
	if err != nil {
		t.Fatalf("GetStat: %v", err)
	}
	if archived != 1 {
		t.Errorf("archived_notes = %d, want 1", archived)
	}
}

func TestNotifyAfterCloseIsDropped(t *testing.T) {
	db, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	sink := NewStoreSink(db)
	sink.Notify("u1", Delta{NotesCreated: 1})
	sink.Close()

	// A straggler delta after shutdown must be dropped, not panic.
	sink.Notify("u1", Delta{NotesCreated: 1})

	created, err := db.GetStat(store.StatTotalNotes)
	if err != nil {
		t.Fatalf("GetStat: %v", err)
	}
	if created != 1 {
		t.Errorf("total_notes = %d, want 1", created)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	db, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	sink := NewStoreSink(db)
	sink.Close()
	sink.Close()
}
