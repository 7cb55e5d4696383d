// Package actor implements the per-user note lifecycle core: one
// single-writer actor per user identity, resolved through a Directory
// that guarantees at most one live instance per identity.
package actor

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/durablenotes/durablenotes/internal/aggregate"
	"github.com/durablenotes/durablenotes/internal/note"
)

// Store is the durable layer an actor persists through. The rows for an
// actor's user are exclusively owned by that actor; nothing else writes
// them.
type Store interface {
	LoadNotes(userID string) ([]note.Note, error)
	UpsertNote(n *note.Note) error
}

// errStopped is returned by submit when the actor has been evicted.
// The Directory retries against a fresh instance; callers never see it.
var errStopped = errors.New("actor stopped")

type request struct {
	run  func()
	done chan struct{}
}

// Actor owns every note for exactly one user and executes operations
// strictly serially through a single consumer goroutine. Mutations follow
// write-then-acknowledge: the store commit happens first, and in-memory
// state changes only after it succeeds.
type Actor struct {
	userID string
	store  Store
	sink   aggregate.Sink
	now    func() float64
	th     note.Thresholds

	// Owned by the consumer goroutine; never touched from outside an op.
	notes map[string]*note.Note

	mu      sync.Mutex // guards admission against stop
	stopped bool
	reqCh   chan request
	done    chan struct{}

	lastUsed atomic.Int64 // unix nanos of the most recent submit
}

// start loads the user's persisted notes and begins the serial loop.
// The actor is not reachable until the load has completed, so a recreated
// actor can never run ahead of durable state.
func start(userID string, st Store, sink aggregate.Sink, now func() float64, th note.Thresholds) (*Actor, error) {
	persisted, err := st.LoadNotes(userID)
	if err != nil {
		return nil, err
	}

	a := &Actor{
		userID: userID,
		store:  st,
		sink:   sink,
		now:    now,
		th:     th,
		notes:  make(map[string]*note.Note, len(persisted)),
		reqCh:  make(chan request, 32),
		done:   make(chan struct{}),
	}
	for i := range persisted {
		n := persisted[i]
		a.notes[n.ID] = &n
	}
	a.touch()

	go a.loop()
	return a, nil
}

func (a *Actor) loop() {
	defer close(a.done)
	for req := range a.reqCh {
		req.run()
		close(req.done)
	}
}

// submit enqueues an operation and waits for it. Once admitted, the
// operation runs to completion even if the caller's context expires; the
// abandoned caller just stops waiting for the result.
func (a *Actor) submit(ctx context.Context, run func()) error {
	a.touch()

	req := request{run: run, done: make(chan struct{})}

	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		return errStopped
	}
	select {
	case a.reqCh <- req:
		a.mu.Unlock()
	case <-ctx.Done():
		a.mu.Unlock()
		return ctx.Err()
	}

	select {
	case <-req.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// beginStop closes admissions without waiting for the drain. Admitted
// operations still run to completion; a.done closes once they have.
func (a *Actor) beginStop() {
	a.mu.Lock()
	if !a.stopped {
		a.stopped = true
		close(a.reqCh)
	}
	a.mu.Unlock()
}

// stop closes the queue and waits for admitted operations to drain.
func (a *Actor) stop() {
	a.beginStop()
	<-a.done
}

func (a *Actor) stopping() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stopped
}

func (a *Actor) touch() {
	a.lastUsed.Store(time.Now().UnixNano())
}

func (a *Actor) idleFor() time.Duration {
	return time.Duration(time.Now().UnixNano() - a.lastUsed.Load())
}

// CreateRequest carries the compose payload.
type CreateRequest struct {
	Space   string
	Content string
	Intent  note.Intent

	// ClientID, when set, becomes the note's id so a retried create is
	// idempotent: a second create with the same ClientID returns the
	// existing note unchanged.
	ClientID string
}

// Create makes a new warming note and reports +1 created to the sink.
func (a *Actor) Create(ctx context.Context, req CreateRequest) (note.Note, error) {
	var out note.Note
	var opErr error
	err := a.submit(ctx, func() {
		out, opErr = a.create(req)
	})
	if err != nil {
		return note.Note{}, err
	}
	return out, opErr
}

func (a *Actor) create(req CreateRequest) (note.Note, error) {
	if req.ClientID != "" {
		if existing, ok := a.notes[req.ClientID]; ok {
			// Idempotent retry: hand back the original untouched.
			return a.snapshot(existing), nil
		}
	}

	id := req.ClientID
	if id == "" {
		id = uuid.NewString()
	}
	space := req.Space
	if space == "" {
		space = "main"
	}

	now := a.now()
	n := note.Note{
		ID:        id,
		Content:   req.Content,
		Intent:    req.Intent,
		Space:     space,
		UserID:    a.userID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := a.store.UpsertNote(&n); err != nil {
		return note.Note{}, err
	}
	a.notes[id] = &n
	a.sink.Notify(a.userID, aggregate.Delta{NotesCreated: 1})

	return a.snapshot(&n), nil
}

// List returns the user's notes, optionally filtered to one space,
// status freshly derived, ordered by createdAt ascending.
func (a *Actor) List(ctx context.Context, space string) ([]note.Note, error) {
	var out []note.Note
	err := a.submit(ctx, func() {
		out = a.list(space)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (a *Actor) list(space string) []note.Note {
	out := make([]note.Note, 0, len(a.notes))
	for _, n := range a.notes {
		if space != "" && n.Space != space {
			continue
		}
		out = append(out, a.snapshot(n))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt < out[j].CreatedAt
	})
	return out
}

// Update replaces a note's content. Archived notes are immutable.
func (a *Actor) Update(ctx context.Context, id, content string) (note.Note, error) {
	var out note.Note
	var opErr error
	err := a.submit(ctx, func() {
		out, opErr = a.update(id, content)
	})
	if err != nil {
		return note.Note{}, err
	}
	return out, opErr
}

func (a *Actor) update(id, content string) (note.Note, error) {
	n, ok := a.notes[id]
	if !ok {
		return note.Note{}, note.ErrNotFound
	}
	if n.Archived {
		return note.Note{}, note.ErrArchived
	}

	updated := *n
	updated.Content = content
	updated.UpdatedAt = a.now()

	if err := a.store.UpsertNote(&updated); err != nil {
		return note.Note{}, err
	}
	*n = updated

	return a.snapshot(n), nil
}

// Archive moves a note to its terminal state. Archiving an already
// archived note is a no-op success returning it unchanged, and the sink
// is only notified on the actual transition.
func (a *Actor) Archive(ctx context.Context, id, summary string) (note.Note, error) {
	var out note.Note
	var opErr error
	err := a.submit(ctx, func() {
		out, opErr = a.archive(id, summary)
	})
	if err != nil {
		return note.Note{}, err
	}
	return out, opErr
}

func (a *Actor) archive(id, summary string) (note.Note, error) {
	n, ok := a.notes[id]
	if !ok {
		return note.Note{}, note.ErrNotFound
	}
	if n.Archived {
		return a.snapshot(n), nil
	}

	archived := *n
	archived.Archived = true
	if summary != "" {
		archived.Summary = summary
	}
	archived.UpdatedAt = a.now()

	if err := a.store.UpsertNote(&archived); err != nil {
		return note.Note{}, err
	}
	*n = archived
	a.sink.Notify(a.userID, aggregate.Delta{NotesArchived: 1})

	return a.snapshot(n), nil
}

// snapshot copies a note with its status derived as of now.
func (a *Actor) snapshot(n *note.Note) note.Note {
	out := *n
	out.Refresh(a.now(), a.th)
	return out
}
