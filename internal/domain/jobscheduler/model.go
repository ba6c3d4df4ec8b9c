// Package jobscheduler models the dispatch ledger of scraping work units.
package jobscheduler

import (
	"fmt"
	"time"
)

type DispatchStatus string

const (
	StatusSent      DispatchStatus = "sent"
	StatusCompleted DispatchStatus = "completed"
	StatusFailed    DispatchStatus = "failed"
)

func (s DispatchStatus) Valid() bool {
	switch s {
	case StatusSent, StatusCompleted, StatusFailed:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further events are expected for the dispatch.
func (s DispatchStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Supersedes reports whether s may replace prev on the same dispatch.
// A late sent never rewinds a finished dispatch.
func (s DispatchStatus) Supersedes(prev DispatchStatus) bool {
	return s != StatusSent || !prev.Terminal()
}

// DispatchEvent is one state change of a dispatched scraping unit.
// MatchID is zero for jobs that are not tied to a match.
type DispatchEvent struct {
	DispatchID   string
	JobName      string
	JobPath      string
	MatchID      int64
	Status       DispatchStatus
	Payload      map[string]any
	ErrorMessage string
	OccurredAt   time.Time
	TraceID      string
	SpanID       string
}

// Validate checks the fields every ledger backend relies on.
func (e DispatchEvent) Validate() error {
	if e.DispatchID == "" {
		return fmt.Errorf("dispatch id is required")
	}
	if !e.Status.Valid() {
		return fmt.Errorf("invalid dispatch status %q", e.Status)
	}
	return nil
}
