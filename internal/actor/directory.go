package actor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/durablenotes/durablenotes/internal/aggregate"
	"github.com/durablenotes/durablenotes/internal/note"
)

// Directory maps a user identity to its single live actor, creating it
// lazily from durable state. Concurrent resolves for the same new
// identity share one initialization; the losers wait for the winner
// rather than surfacing a race. Idle actors are evicted by a janitor and
// transparently recreated on the next operation.
type Directory struct {
	store Store
	sink  aggregate.Sink
	now   func() float64
	th    note.Thresholds

	idleAfter time.Duration

	mu     sync.Mutex
	actors map[string]*slot
	closed bool

	janitorStop chan struct{}
	janitorDone chan struct{}
}

// slot is the dedup point for concurrent first access: whoever installs
// the slot initializes the actor; everyone else waits on ready.
type slot struct {
	ready chan struct{}
	actor *Actor
	err   error
}

// Options tune a Directory. Zero values fall back to defaults.
type Options struct {
	Thresholds note.Thresholds
	IdleAfter  time.Duration // evict actors idle this long; 0 = 15m
	Now        func() float64
}

// NewDirectory creates a Directory and starts its eviction janitor.
func NewDirectory(st Store, sink aggregate.Sink, opts Options) *Directory {
	if opts.Now == nil {
		opts.Now = note.Now
	}
	if opts.IdleAfter == 0 {
		opts.IdleAfter = 15 * time.Minute
	}
	if opts.Thresholds == (note.Thresholds{}) {
		opts.Thresholds = note.DefaultThresholds()
	}
	if sink == nil {
		sink = aggregate.Nop{}
	}

	d := &Directory{
		store:       st,
		sink:        sink,
		now:         opts.Now,
		th:          opts.Thresholds,
		idleAfter:   opts.IdleAfter,
		actors:      make(map[string]*slot),
		janitorStop: make(chan struct{}),
		janitorDone: make(chan struct{}),
	}
	go d.janitor()
	return d
}

// Create routes a compose to the user's actor.
func (d *Directory) Create(ctx context.Context, userID string, req CreateRequest) (note.Note, error) {
	var out note.Note
	err := d.with(ctx, userID, func(a *Actor) error {
		var err error
		out, err = a.Create(ctx, req)
		return err
	})
	return out, err
}

// List routes a list to the user's actor.
func (d *Directory) List(ctx context.Context, userID, space string) ([]note.Note, error) {
	var out []note.Note
	err := d.with(ctx, userID, func(a *Actor) error {
		var err error
		out, err = a.List(ctx, space)
		return err
	})
	return out, err
}

// Update routes a content edit to the user's actor.
func (d *Directory) Update(ctx context.Context, userID, id, content string) (note.Note, error) {
	var out note.Note
	err := d.with(ctx, userID, func(a *Actor) error {
		var err error
		out, err = a.Update(ctx, id, content)
		return err
	})
	return out, err
}

// Archive routes an archive to the user's actor.
func (d *Directory) Archive(ctx context.Context, userID, id, summary string) (note.Note, error) {
	var out note.Note
	err := d.with(ctx, userID, func(a *Actor) error {
		var err error
		out, err = a.Archive(ctx, id, summary)
		return err
	})
	return out, err
}

// with runs fn against the user's live actor, retrying if the actor was
// evicted between resolve and use. Eviction is never caller-visible.
func (d *Directory) with(ctx context.Context, userID string, fn func(*Actor) error) error {
	for {
		a, err := d.resolve(ctx, userID)
		if err != nil {
			return err
		}
		err = fn(a)
		if errors.Is(err, errStopped) {
			continue
		}
		return err
	}
}

// resolve returns the single live actor for userID, initializing it from
// durable state on first access. A failed initialization is removed so
// the next resolve can retry. If the resident actor is draining toward
// eviction, resolve waits for the drain to finish before starting a
// replacement, so the replacement always loads every committed write.
func (d *Directory) resolve(ctx context.Context, userID string) (*Actor, error) {
	for {
		d.mu.Lock()
		if d.closed {
			d.mu.Unlock()
			return nil, errors.New("directory closed")
		}
		s, ok := d.actors[userID]
		if !ok {
			s = &slot{ready: make(chan struct{})}
			d.actors[userID] = s
			d.mu.Unlock()

			a, err := start(userID, d.store, d.sink, d.now, d.th)
			s.actor, s.err = a, err
			close(s.ready)

			if err != nil {
				d.mu.Lock()
				if d.actors[userID] == s {
					delete(d.actors, userID)
				}
				d.mu.Unlock()
				return nil, err
			}
			return a, nil
		}
		d.mu.Unlock()

		select {
		case <-s.ready:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if s.err != nil {
			return nil, s.err
		}
		if !s.actor.stopping() {
			s.actor.touch()
			return s.actor, nil
		}

		// The resident actor is shutting down. Wait for its admitted
		// operations to commit, drop the dead slot, and go around.
		select {
		case <-s.actor.done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		d.mu.Lock()
		if d.actors[userID] == s {
			delete(d.actors, userID)
		}
		d.mu.Unlock()
	}
}

// janitor periodically evicts actors that have been idle past the
// configured window. They come back from durable state on demand.
func (d *Directory) janitor() {
	defer close(d.janitorDone)

	interval := d.idleAfter / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			d.evictIdle()
		case <-d.janitorStop:
			return
		}
	}
}

func (d *Directory) evictIdle() {
	type victim struct {
		userID string
		s      *slot
	}
	var victims []victim

	d.mu.Lock()
	for userID, s := range d.actors {
		select {
		case <-s.ready:
		default:
			continue // still initializing
		}
		if s.err != nil || s.actor.stopping() {
			continue
		}
		if s.actor.idleFor() >= d.idleAfter {
			// Close admissions under the directory lock. The slot stays
			// in the map until the drain completes, so a concurrent
			// resolve cannot start a replacement that misses admitted
			// writes still in the old actor's queue.
			s.actor.beginStop()
			victims = append(victims, victim{userID, s})
		}
	}
	d.mu.Unlock()

	// Wait for the drains outside the lock, then drop the dead slots.
	for _, v := range victims {
		<-v.s.actor.done
		d.mu.Lock()
		if d.actors[v.userID] == v.s {
			delete(d.actors, v.userID)
		}
		d.mu.Unlock()
	}
}

// ActiveActors returns how many actors are currently resident.
func (d *Directory) ActiveActors() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.actors)
}

// Close stops the janitor and every live actor, draining their queues.
func (d *Directory) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	slots := make([]*slot, 0, len(d.actors))
	for _, s := range d.actors {
		slots = append(slots, s)
	}
	d.actors = make(map[string]*slot)
	d.mu.Unlock()

	close(d.janitorStop)
	<-d.janitorDone

	for _, s := range slots {
		<-s.ready
		if s.err == nil {
			s.actor.stop()
		}
	}
}
