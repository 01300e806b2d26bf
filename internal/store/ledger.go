// ABOUTME: Ledger adapts the record store's notifications into persisted RecordEvents
// ABOUTME: Each gateway run gets its own run id so restarted sequences stay distinguishable

package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/2389/todo-gateway/internal/records"
)

const ledgerWriteTimeout = 5 * time.Second

// Ledger is a records.Notifier that writes every event to an EventStore.
// Write failures are logged and do not affect the record store.
type Ledger struct {
	store  EventStore
	runID  string
	logger *slog.Logger
}

var _ records.Notifier = (*Ledger)(nil)

// NewLedger creates a ledger writing to s. Pass nil logger for default.
func NewLedger(s EventStore, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{
		store:  s,
		runID:  uuid.New().String(),
		logger: logger.With("component", "ledger"),
	}
}

// RunID identifies this process's events in the ledger.
func (l *Ledger) RunID() string {
	return l.runID
}

// Notify persists ev.
func (l *Ledger) Notify(ev records.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), ledgerWriteTimeout)
	defer cancel()

	if err := l.store.SaveEvent(ctx, FromRecordEvent(l.runID, ev)); err != nil {
		l.logger.Error("failed to persist record event",
			"error", err,
			"seq", ev.Seq,
			"kind", ev.Kind,
			"actor", ev.Actor,
		)
	}
}

// FromRecordEvent converts a store notification into its ledger row.
func FromRecordEvent(runID string, ev records.Event) *RecordEvent {
	return &RecordEvent{
		ID:        uuid.New().String(),
		RunID:     runID,
		Seq:       ev.Seq,
		Kind:      string(ev.Kind),
		Actor:     string(ev.Actor),
		RecordID:  ev.RecordID,
		Text:      ev.Record.Text,
		Completed: ev.Record.Completed,
		Timestamp: ev.At,
	}
}
