// Package store persists the record event ledger using SQLite.
//
// # Architecture
//
// Record state lives in memory in the records package. This package keeps an
// append-only audit trail of every mutation the record store reports:
//
//   - EventStore: append, lookup, and paginated listing of RecordEvents
//   - SQLiteStore: modernc.org/sqlite implementation
//   - MockStore: in-memory implementation for tests
//   - Ledger: records.Notifier that writes each notification to an EventStore
//
// # Sequences
//
// Sequence numbers come from the record store and restart at 1 when the
// gateway restarts. Each Ledger stamps its events with a per-process run id,
// so (run_id, seq) is unique while position gives global append order.
//
// # Pagination
//
// ListEvents returns events in append order. When more results exist the
// result carries an opaque NextCursor to pass back on the next call.
//
//	res, err := s.ListEvents(ctx, store.ListEventsParams{Actor: "bob", Limit: 20})
//
// # SQLite Configuration
//
// File-backed databases use WAL mode with a busy timeout. ":memory:" opens a
// private database on a single connection, which suits tests.
package store
