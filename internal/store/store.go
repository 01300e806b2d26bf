// ABOUTME: EventStore interface and data types for the record event ledger
// ABOUTME: Defines RecordEvent, list parameters, and pagination results

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested event does not exist
var ErrNotFound = errors.New("not found")

// ErrInvalidCursor is returned when a pagination cursor cannot be decoded
var ErrInvalidCursor = errors.New("invalid cursor")

// RecordEvent is one persisted notification from the record store.
type RecordEvent struct {
	ID        string // uuid assigned by the ledger
	RunID     string // identifies the gateway process that emitted the event
	Seq       uint64 // store sequence number, restarts at 1 for every run
	Kind      string // record_added, record_edited, record_deleted
	Actor     string // identity that performed the mutation
	RecordID  uint64
	Text      string // post-image for add/edit, pre-image for delete
	Completed bool
	Timestamp time.Time
}

// ListEventsParams filters and paginates ledger reads.
type ListEventsParams struct {
	Actor  string     // optional: only events by this identity
	Kind   string     // optional: only events of this kind
	Since  *time.Time // optional: events at or after this time
	Until  *time.Time // optional: events at or before this time
	Limit  int        // 1-500, defaults to 50
	Cursor string     // opaque cursor from a previous result
}

// ListEventsResult is one page of ledger events in append order.
type ListEventsResult struct {
	Events     []RecordEvent
	NextCursor string
	HasMore    bool
}

// EventStore persists record events.
type EventStore interface {
	SaveEvent(ctx context.Context, event *RecordEvent) error
	GetEvent(ctx context.Context, id string) (*RecordEvent, error)
	ListEvents(ctx context.Context, params ListEventsParams) (*ListEventsResult, error)

	// Close releases any resources held by the store
	Close() error
}

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// normalizeLimit applies the default and cap to a requested page size.
func normalizeLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}
