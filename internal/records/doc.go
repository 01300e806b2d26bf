// Package records implements the per-user todo record store.
//
// # Model
//
// Every caller Identity owns an independent collection of Records keyed by a
// dense, append-only id. A collection also carries a count: the next id to
// assign and the logical size of the collection. Deleting a record clears its
// slot but never decrements the count, so ids are never reused.
//
// One identity, the owner, may read any collection and change the store's
// settings (owner, page limit, per-user counts).
//
// # Range Reads
//
// MyRecords and RecordsByUser validate, in order:
//
//  1. start < end (ErrInvalidRange)
//  2. end <= count (ErrRangeExceedsCollection)
//  3. end-start <= page limit (ErrPageTooLarge)
//
// Step 3 also caps every span at MaxPageSpan, whatever the page limit says.
//
// For RecordsByUser the count in step 2 is the caller's own count unless the
// store was built with Options.BoundAdminReadsByTarget.
//
// # Notifications
//
// AddRecord, EditRecord, and DeleteRecord emit an Event to every Notifier
// while the write lock is held, so observers see events in mutation order. A
// slow notifier therefore delays every other mutation.
//
// # Usage
//
//	s, err := records.New(records.Options{Owner: "alice", PageLimit: 15})
//	id := s.AddRecord("alice", "Buy milk")
//	rec, err := s.RecordByID("alice", id)
package records
