package note

import (
	"errors"
	"time"
)

// Status is a note's lifecycle state. Only Archived is ever persisted;
// the other three are derived from elapsed time at read time.
type Status string

const (
	StatusWarming  Status = "warming"
	StatusAlive    Status = "alive"
	StatusCooling  Status = "cooling"
	StatusArchived Status = "archived"
)

// Intent is a free-form classification tag with no behavioral effect.
type Intent string

const (
	IntentThinking Intent = "thinking"
	IntentPlanning Intent = "planning"
	IntentBuilding Intent = "building"
	IntentWriting  Intent = "writing"
	IntentShared   Intent = "shared"
)

// ValidIntent reports whether s is one of the known intent tags.
func ValidIntent(s string) bool {
	switch Intent(s) {
	case IntentThinking, IntentPlanning, IntentBuilding, IntentWriting, IntentShared:
		return true
	}
	return false
}

var (
	// ErrNotFound means the operation referenced a nonexistent note id.
	ErrNotFound = errors.New("note not found")
	// ErrArchived means a mutation was attempted on a terminal note.
	ErrArchived = errors.New("note is archived")
)

// Note is a single thought record owned by one user.
// Timestamps are seconds since epoch (float precision, the wire format
// the clients already speak).
type Note struct {
	ID        string  `json:"id"`
	Content   string  `json:"content"`
	Intent    Intent  `json:"intent"`
	Space     string  `json:"space"`
	Status    Status  `json:"status"`
	Summary   string  `json:"summary,omitempty"`
	UserID    string  `json:"userId"`
	CreatedAt float64 `json:"createdAt"`
	UpdatedAt float64 `json:"updatedAt"`

	// Archived is the only persisted piece of lifecycle state.
	// Status above is filled in from DeriveStatus before a note leaves
	// the actor.
	Archived bool `json:"-"`
}

// Thresholds hold the decay boundaries for derived status.
// Warming applies below T1, alive in [T1, T2), cooling beyond.
type Thresholds struct {
	T1 time.Duration
	T2 time.Duration
}

// DefaultThresholds: a note warms for an hour and stays alive for a day.
// Presentational, not correctness-critical; any 0 < T1 < T2 is valid.
func DefaultThresholds() Thresholds {
	return Thresholds{T1: time.Hour, T2: 24 * time.Hour}
}

// DeriveStatus computes the lifecycle status of a note at time now
// (seconds since epoch). Archived is sticky and wins unconditionally.
func (n *Note) DeriveStatus(now float64, th Thresholds) Status {
	if n.Archived {
		return StatusArchived
	}
	age := now - n.CreatedAt
	switch {
	case age < th.T1.Seconds():
		return StatusWarming
	case age < th.T2.Seconds():
		return StatusAlive
	default:
		return StatusCooling
	}
}

// Refresh sets n.Status to its derived value as of now.
func (n *Note) Refresh(now float64, th Thresholds) {
	n.Status = n.DeriveStatus(now, th)
}

// Now returns the current time as float seconds since epoch.
func Now() float64 {
	return float64(time.Now().UnixMicro()) / 1e6
}
