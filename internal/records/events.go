// ABOUTME: Notification types emitted by the record store on add, edit, and delete
// ABOUTME: Notifiers are invoked synchronously while the store holds its write lock

package records

import (
	"sync"
	"time"
)

// EventKind names the mutation that produced an Event.
type EventKind string

const (
	EventRecordAdded   EventKind = "record_added"
	EventRecordEdited  EventKind = "record_edited"
	EventRecordDeleted EventKind = "record_deleted"
)

// Event is a notification about a record mutation.
// Record holds the post-image for add and edit, and the pre-deletion
// snapshot for delete.
type Event struct {
	Seq      uint64 // strictly increasing per store, starting at 1
	Kind     EventKind
	Actor    Identity
	RecordID uint64
	Record   Record
	At       time.Time
}

// Notifier observes store mutations. Notify runs under the store's write lock
// and must not call back into the store.
//
// Every mutation, and every read queued behind it, waits for all notifiers to
// return. A notifier doing I/O, such as the SQLite event ledger with its
// five-second write timeout, bounds store latency by its own; on a slow disk
// the whole store stalls. Notifiers that can afford to lose or reorder
// events should hand them off to a goroutine instead.
type Notifier interface {
	Notify(Event)
}

// NotifierFunc adapts a plain function to the Notifier interface.
type NotifierFunc func(Event)

// Notify calls f(ev).
func (f NotifierFunc) Notify(ev Event) {
	f(ev)
}

// EventLog is a Notifier that keeps every event in memory, in emission order.
// Useful for tests and for embedding the store without a ledger.
type EventLog struct {
	mu     sync.Mutex
	events []Event
}

// Notify appends ev to the log.
func (l *EventLog) Notify(ev Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

// Events returns a copy of the recorded events.
func (l *EventLog) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}
