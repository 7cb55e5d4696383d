// Package space holds the per-user registry of named note partitions.
// Spaces are a client convenience: a grouping tag with no lifecycle of
// its own, kept for the session and never durably synced.
package space

import (
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Space is a named partition notes are tagged with.
type Space struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Icon  string `json:"icon,omitempty"`
}

// DefaultID is the implicit space every user starts with.
const DefaultID = "main"

// Registry tracks spaces per user. Safe for concurrent use.
type Registry struct {
	mu     sync.Mutex
	byUser map[string][]Space
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byUser: make(map[string][]Space)}
}

// List returns a user's spaces, seeding the default on first access.
func (r *Registry) List(userID string) []Space {
	r.mu.Lock()
	defer r.mu.Unlock()

	spaces := r.ensure(userID)
	out := make([]Space, len(spaces))
	copy(out, spaces)
	return out
}

// Add registers a new space for a user and returns it. An empty label
// is rejected by returning the zero Space and false.
func (r *Registry) Add(userID, label, icon string) (Space, bool) {
	label = strings.TrimSpace(label)
	if label == "" {
		return Space{}, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	spaces := r.ensure(userID)
	s := Space{ID: uuid.NewString(), Label: label, Icon: icon}
	r.byUser[userID] = append(spaces, s)
	return s, true
}

// ensure seeds the default space. Caller holds r.mu.
func (r *Registry) ensure(userID string) []Space {
	spaces, ok := r.byUser[userID]
	if !ok {
		spaces = []Space{{ID: DefaultID, Label: "Main"}}
		r.byUser[userID] = spaces
	}
	return spaces
}
