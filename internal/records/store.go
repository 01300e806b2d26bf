// ABOUTME: In-memory per-user record store with owner-gated administration
// ABOUTME: Enforces ownership checks, id bookkeeping, and page-size limits

package records

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// MaxPageSpan caps the span of one range read regardless of the configured
// page limit, since the limit and the counts are owner-settable to any value.
const MaxPageSpan = 10_000

// Identity names a caller. The zero identity is the empty (or all-blank) string.
type Identity string

// IsZero reports whether i is the null identity.
func (i Identity) IsZero() bool {
	return strings.TrimSpace(string(i)) == ""
}

// Record is a single todo item. An empty Text means the slot is absent or deleted.
type Record struct {
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

// Exists reports whether the record holds data.
func (r Record) Exists() bool {
	return r.Text != ""
}

// collection is one user's records plus the next id to assign.
// count may disagree with the populated slots after SetCollectionCount.
type collection struct {
	records map[uint64]Record
	count   uint64
}

// Options configures a Store.
type Options struct {
	// Owner is the initial administrator identity. Required.
	Owner Identity

	// PageLimit bounds how many records one range read may return.
	PageLimit uint64

	// BoundAdminReadsByTarget makes RecordsByUser check end against the target
	// user's count. When false, end is checked against the caller's own count.
	BoundAdminReadsByTarget bool

	// Notifiers receive every mutation event in order.
	Notifiers []Notifier

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Now defaults to time.Now.
	Now func() time.Time
}

// Store holds every user's collection and the administrative settings.
// All methods are safe for concurrent use; mutations are serialized.
type Store struct {
	mu          sync.RWMutex
	owner       Identity
	pageLimit   uint64
	collections map[Identity]*collection
	notifiers   []Notifier
	seq         uint64

	boundByTarget bool
	logger        *slog.Logger
	now           func() time.Time
}

// New creates a store owned by opts.Owner.
func New(opts Options) (*Store, error) {
	if opts.Owner.IsZero() {
		return nil, fmt.Errorf("owner: %w", ErrInvalidArgument)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Store{
		owner:         opts.Owner,
		pageLimit:     opts.PageLimit,
		collections:   make(map[Identity]*collection),
		notifiers:     append([]Notifier(nil), opts.Notifiers...),
		boundByTarget: opts.BoundAdminReadsByTarget,
		logger:        logger.With("component", "records"),
		now:           now,
	}, nil
}

// AddNotifier registers n to receive subsequent events.
func (s *Store) AddNotifier(n Notifier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifiers = append(s.notifiers, n)
}

// Owner returns the current administrator identity.
func (s *Store) Owner() Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.owner
}

// IsOwner reports whether id is the current administrator.
func (s *Store) IsOwner(id Identity) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return id == s.owner
}

// SetOwner replaces the administrator. Only the current owner may call it.
func (s *Store) SetOwner(caller, newOwner Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireOwnerLocked(caller); err != nil {
		return err
	}
	if newOwner.IsZero() {
		return fmt.Errorf("new owner: %w", ErrInvalidArgument)
	}
	s.owner = newOwner
	s.logger.Info("owner changed", "from", caller, "to", newOwner)
	return nil
}

// PageLimit returns the maximum span of one range read.
func (s *Store) PageLimit() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pageLimit
}

// SetPageLimit replaces the page-size limit. Owner only; any value is accepted.
func (s *Store) SetPageLimit(caller Identity, n uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireOwnerLocked(caller); err != nil {
		return err
	}
	s.pageLimit = n
	s.logger.Info("page limit changed", "page_limit", n)
	return nil
}

// CollectionCount returns the stored count for user. Owner only.
func (s *Store) CollectionCount(caller, user Identity) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.requireOwnerLocked(caller); err != nil {
		return 0, err
	}
	return s.countLocked(user), nil
}

// SetCollectionCount overwrites user's count regardless of which slots are
// populated. Owner only; intended for administrative resets.
func (s *Store) SetCollectionCount(caller, user Identity, n uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireOwnerLocked(caller); err != nil {
		return err
	}
	s.collectionLocked(user).count = n
	s.logger.Info("collection count overridden", "user", user, "count", n)
	return nil
}

// AddRecord appends {text, false} to the caller's collection and returns its id.
func (s *Store) AddRecord(caller Identity, text string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.collectionLocked(caller)
	id := c.count
	rec := Record{Text: text}
	c.records[id] = rec
	c.count++

	s.logger.Debug("record added", "user", caller, "id", id)
	s.emitLocked(EventRecordAdded, caller, id, rec)
	return id
}

// EditRecord overwrites both fields of an existing record in the caller's collection.
func (s *Store) EditRecord(caller Identity, id uint64, text string, completed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[caller]
	if !ok || !c.records[id].Exists() {
		return fmt.Errorf("edit record %d: %w", id, ErrNotFound)
	}
	rec := Record{Text: text, Completed: completed}
	c.records[id] = rec

	s.logger.Debug("record edited", "user", caller, "id", id, "completed", completed)
	s.emitLocked(EventRecordEdited, caller, id, rec)
	return nil
}

// DeleteRecord clears an existing record in the caller's collection.
// The count is left unchanged so ids are never reused.
func (s *Store) DeleteRecord(caller Identity, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[caller]
	if !ok || !c.records[id].Exists() {
		return fmt.Errorf("delete record %d: %w", id, ErrNotFound)
	}
	prev := c.records[id]
	delete(c.records, id)

	s.logger.Debug("record deleted", "user", caller, "id", id)
	s.emitLocked(EventRecordDeleted, caller, id, prev)
	return nil
}

// RecordByID returns the caller's record at id. Ids outside [0, count) and
// deleted ids yield the zero Record; callers detect absence via empty Text.
func (s *Store) RecordByID(caller Identity, id uint64) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[caller]
	if !ok || c.count == 0 {
		return Record{}, ErrEmptyCollection
	}
	if id >= c.count {
		return Record{}, nil
	}
	return c.records[id], nil
}

// MyRecords returns the caller's records in [start, end) and the caller's count.
func (s *Store) MyRecords(caller Identity, start, end uint64) ([]Record, uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkRangeLocked(start, end, s.countLocked(caller)); err != nil {
		return nil, 0, err
	}
	recs, count := s.rangeLocked(caller, start, end)
	return recs, count, nil
}

// RecordsByUser returns user's records in [start, end) and user's count. Owner only.
//
// By default end is bounded by the caller's own count, not user's. Set
// Options.BoundAdminReadsByTarget to bound by the target collection instead.
func (s *Store) RecordsByUser(caller Identity, start, end uint64, user Identity) ([]Record, uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.requireOwnerLocked(caller); err != nil {
		return nil, 0, err
	}
	bound := s.countLocked(caller)
	if s.boundByTarget {
		bound = s.countLocked(user)
	}
	if err := s.checkRangeLocked(start, end, bound); err != nil {
		return nil, 0, err
	}
	recs, count := s.rangeLocked(user, start, end)
	return recs, count, nil
}

func (s *Store) checkRangeLocked(start, end, count uint64) error {
	if start >= end {
		return fmt.Errorf("[%d, %d): %w", start, end, ErrInvalidRange)
	}
	if end > count {
		return fmt.Errorf("end %d beyond count %d: %w", end, count, ErrRangeExceedsCollection)
	}
	if limit := min(s.pageLimit, MaxPageSpan); end-start > limit {
		return fmt.Errorf("span %d over limit %d: %w", end-start, limit, ErrPageTooLarge)
	}
	return nil
}

// rangeLocked copies records [start, end) of user. Bounds must already be checked.
func (s *Store) rangeLocked(user Identity, start, end uint64) ([]Record, uint64) {
	out := make([]Record, end-start)
	c, ok := s.collections[user]
	if !ok {
		return out, 0
	}
	for i := start; i < end; i++ {
		out[i-start] = c.records[i]
	}
	return out, c.count
}

func (s *Store) requireOwnerLocked(caller Identity) error {
	if caller != s.owner {
		return ErrUnauthorized
	}
	return nil
}

func (s *Store) countLocked(user Identity) uint64 {
	if c, ok := s.collections[user]; ok {
		return c.count
	}
	return 0
}

// collectionLocked returns user's collection, creating it on first access.
func (s *Store) collectionLocked(user Identity) *collection {
	c, ok := s.collections[user]
	if !ok {
		c = &collection{records: make(map[uint64]Record)}
		s.collections[user] = c
	}
	return c
}

func (s *Store) emitLocked(kind EventKind, actor Identity, id uint64, rec Record) {
	s.seq++
	ev := Event{
		Seq:      s.seq,
		Kind:     kind,
		Actor:    actor,
		RecordID: id,
		Record:   rec,
		At:       s.now(),
	}
	for _, n := range s.notifiers {
		n.Notify(ev)
	}
}
