// Package aggregate is the best-effort side channel feeding admin
// statistics. Notifications never block and never fail the actor
// operation that produced them; the counters are advisory, not
// correctness-critical, so transient failures are logged and dropped.
package aggregate

import (
	"log"
	"sync"

	"github.com/durablenotes/durablenotes/internal/store"
)

// Delta is one notification's worth of counter movement.
type Delta struct {
	NotesCreated  int `json:"notesCreated,omitempty"`
	NotesArchived int `json:"notesArchived,omitempty"`
}

// Sink receives note-count deltas from actors.
type Sink interface {
	Notify(userID string, d Delta)
}

type event struct {
	userID string
	delta  Delta
}

// StoreSink writes deltas to the stats table through a single consumer
// goroutine behind a buffered channel. Notify is non-blocking: if the
// buffer is full the event is dropped with a log line.
type StoreSink struct {
	db *store.DB

	mu     sync.Mutex // guards admission against Close
	closed bool
	ch     chan event

	closeOnce sync.Once
	done      chan struct{}
}

// NewStoreSink creates and starts a store-backed sink.
func NewStoreSink(db *store.DB) *StoreSink {
	s := &StoreSink{
		db:   db,
		ch:   make(chan event, 256),
		done: make(chan struct{}),
	}
	go s.consume()
	return s
}

// Notify enqueues a delta. Never blocks. Deltas arriving after Close
// are dropped like any other overflow.
func (s *StoreSink) Notify(userID string, d Delta) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		log.Printf("aggregate: sink closed, dropping delta for %s", userID)
		return
	}
	select {
	case s.ch <- event{userID: userID, delta: d}:
	default:
		log.Printf("aggregate: buffer full, dropping delta for %s", userID)
	}
}

// Close stops the consumer after draining queued events.
func (s *StoreSink) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.ch)
		s.mu.Unlock()
		<-s.done
	})
}

func (s *StoreSink) consume() {
	defer close(s.done)
	for ev := range s.ch {
		s.apply(ev)
	}
}

func (s *StoreSink) apply(ev event) {
	if ev.delta.NotesCreated != 0 {
		if err := s.db.IncrementStat(store.StatTotalNotes, ev.delta.NotesCreated); err != nil {
			log.Printf("aggregate: %v", err)
		}
	}
	if ev.delta.NotesArchived != 0 {
		if err := s.db.IncrementStat(store.StatArchivedNotes, ev.delta.NotesArchived); err != nil {
			log.Printf("aggregate: %v", err)
		}
	}
}

// Nop is a Sink that discards everything. Used where stats are disabled
// and in tests that don't care about counters.
type Nop struct{}

func (Nop) Notify(string, Delta) {}
