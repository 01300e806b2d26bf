// ABOUTME: Tests for the record store lifecycle and owner-gated operations
// ABOUTME: Covers add/edit/delete bookkeeping, ownership checks, and notifications

package records

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	owner Identity = "alice"
	bob   Identity = "bob"
)

// newTestStore creates a store owned by alice with the given page limit.
func newTestStore(t *testing.T, pageLimit uint64) (*Store, *EventLog) {
	t.Helper()
	log := &EventLog{}
	s, err := New(Options{
		Owner:     owner,
		PageLimit: pageLimit,
		Notifiers: []Notifier{log},
		Now:       func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) },
	})
	require.NoError(t, err)
	return s, log
}

func TestNew_RejectsZeroOwner(t *testing.T) {
	for _, id := range []Identity{"", "   "} {
		_, err := New(Options{Owner: id, PageLimit: 10})
		assert.ErrorIs(t, err, ErrInvalidArgument, "owner %q", id)
	}
}

func TestScenario_BuyMilk(t *testing.T) {
	s, _ := newTestStore(t, 15)

	s.AddRecord(owner, "Buy milk")

	count, err := s.CollectionCount(owner, owner)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)

	rec, err := s.RecordByID(owner, 0)
	require.NoError(t, err)
	assert.Equal(t, Record{Text: "Buy milk", Completed: false}, rec)

	_, err = s.CollectionCount(bob, owner)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestAddRecord_IncrementsCountByOne(t *testing.T) {
	s, _ := newTestStore(t, 10)

	for i, user := range []Identity{owner, bob, bob, "carol"} {
		before, err := s.CollectionCount(owner, user)
		require.NoError(t, err)

		id := s.AddRecord(user, "task")
		assert.Equal(t, before, id, "iteration %d", i)

		after, err := s.CollectionCount(owner, user)
		require.NoError(t, err)
		assert.Equal(t, before+1, after)

		rec, err := s.RecordByID(user, id)
		require.NoError(t, err)
		assert.Equal(t, Record{Text: "task"}, rec)
	}
}

func TestAddRecord_AllowsEmptyText(t *testing.T) {
	s, _ := newTestStore(t, 10)

	id := s.AddRecord(bob, "")
	rec, err := s.RecordByID(bob, id)
	require.NoError(t, err)
	assert.False(t, rec.Exists())

	// An empty record is absent, so it cannot be edited.
	err = s.EditRecord(bob, id, "now set", false)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteRecord_KeepsCount(t *testing.T) {
	s, _ := newTestStore(t, 10)
	s.AddRecord(bob, "one")
	s.AddRecord(bob, "two")

	require.NoError(t, s.DeleteRecord(bob, 0))

	rec, err := s.RecordByID(bob, 0)
	require.NoError(t, err)
	assert.Equal(t, "", rec.Text)

	count, err := s.CollectionCount(owner, bob)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), count)

	// Ids are never reused.
	assert.Equal(t, uint64(2), s.AddRecord(bob, "three"))
}

func TestDeleteRecord_NotFound(t *testing.T) {
	s, _ := newTestStore(t, 10)

	assert.ErrorIs(t, s.DeleteRecord(bob, 0), ErrNotFound)

	s.AddRecord(bob, "one")
	require.NoError(t, s.DeleteRecord(bob, 0))
	assert.ErrorIs(t, s.DeleteRecord(bob, 0), ErrNotFound, "double delete")
	assert.ErrorIs(t, s.DeleteRecord(bob, 7), ErrNotFound)
}

func TestEditRecord(t *testing.T) {
	s, _ := newTestStore(t, 10)
	s.AddRecord(bob, "draft")

	require.NoError(t, s.EditRecord(bob, 0, "final", true))

	rec, err := s.RecordByID(bob, 0)
	require.NoError(t, err)
	assert.Equal(t, Record{Text: "final", Completed: true}, rec)
}

func TestEditRecord_NonexistentAlwaysNotFound(t *testing.T) {
	s, _ := newTestStore(t, 10)
	s.AddRecord(bob, "only")
	require.NoError(t, s.DeleteRecord(bob, 0))
	s.AddRecord(bob, "kept")

	tests := []struct {
		name      string
		id        uint64
		text      string
		completed bool
	}{
		{"deleted id", 0, "x", false},
		{"deleted id completed", 0, "x", true},
		{"beyond count", 5, "x", false},
		{"empty text", 9, "", false},
		{"empty text completed", 0, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.EditRecord(bob, tt.id, tt.text, tt.completed)
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}

	// Other users' collections are never touched.
	assert.ErrorIs(t, s.EditRecord(owner, 1, "steal", false), ErrNotFound)
	rec, err := s.RecordByID(bob, 1)
	require.NoError(t, err)
	assert.Equal(t, "kept", rec.Text)
}

func TestRecordByID_EmptyCollection(t *testing.T) {
	s, _ := newTestStore(t, 10)

	_, err := s.RecordByID(bob, 0)
	assert.ErrorIs(t, err, ErrEmptyCollection)

	s.AddRecord(bob, "one")
	require.NoError(t, s.SetCollectionCount(owner, bob, 0))
	_, err = s.RecordByID(bob, 0)
	assert.ErrorIs(t, err, ErrEmptyCollection)
}

func TestRecordByID_OutOfRangeReturnsZero(t *testing.T) {
	s, _ := newTestStore(t, 10)
	s.AddRecord(bob, "one")

	rec, err := s.RecordByID(bob, 1)
	require.NoError(t, err)
	assert.Equal(t, Record{}, rec)
}

func TestOwnerOnlyOperations(t *testing.T) {
	s, _ := newTestStore(t, 10)
	s.AddRecord(bob, "one")

	ops := map[string]func(caller Identity) error{
		"SetOwner": func(c Identity) error { return s.SetOwner(c, c) },
		"SetPageLimit": func(c Identity) error {
			return s.SetPageLimit(c, 10)
		},
		"CollectionCount": func(c Identity) error {
			_, err := s.CollectionCount(c, bob)
			return err
		},
		"SetCollectionCount": func(c Identity) error {
			return s.SetCollectionCount(c, bob, 1)
		},
		"RecordsByUser": func(c Identity) error {
			_, _, err := s.RecordsByUser(c, 0, 1, bob)
			return err
		},
	}

	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			for _, caller := range []Identity{bob, "", "ALICE"} {
				assert.ErrorIs(t, op(caller), ErrUnauthorized, "caller %q", caller)
			}
		})
	}

	// Non-owner failures leave settings untouched.
	assert.Equal(t, owner, s.Owner())
	assert.Equal(t, uint64(10), s.PageLimit())
}

func TestSetOwner(t *testing.T) {
	s, _ := newTestStore(t, 10)

	require.NoError(t, s.SetOwner(owner, bob))
	assert.Equal(t, bob, s.Owner())
	assert.True(t, s.IsOwner(bob))

	// The previous owner loses access.
	assert.ErrorIs(t, s.SetPageLimit(owner, 3), ErrUnauthorized)
	require.NoError(t, s.SetPageLimit(bob, 3))
	assert.Equal(t, uint64(3), s.PageLimit())
}

func TestSetOwner_ZeroIdentityRejected(t *testing.T) {
	s, _ := newTestStore(t, 10)

	err := s.SetOwner(owner, "")
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.Equal(t, owner, s.Owner())
}

func TestSetOwner_UnauthorizedCheckedBeforeArgument(t *testing.T) {
	s, _ := newTestStore(t, 10)
	assert.ErrorIs(t, s.SetOwner(bob, ""), ErrUnauthorized)
}

func TestSetPageLimit_AcceptsZero(t *testing.T) {
	s, _ := newTestStore(t, 10)
	s.AddRecord(owner, "one")

	require.NoError(t, s.SetPageLimit(owner, 0))
	_, _, err := s.MyRecords(owner, 0, 1)
	assert.ErrorIs(t, err, ErrPageTooLarge)
}

func TestSetCollectionCount_Desynchronizes(t *testing.T) {
	s, _ := newTestStore(t, 10)
	s.AddRecord(bob, "one")

	require.NoError(t, s.SetCollectionCount(owner, bob, 5))

	recs, count, err := s.MyRecords(bob, 0, 5)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), count)
	assert.Equal(t, []Record{{Text: "one"}, {}, {}, {}, {}}, recs)

	// The next append lands at the overridden count.
	assert.Equal(t, uint64(5), s.AddRecord(bob, "six"))
}

func TestNotifications(t *testing.T) {
	s, log := newTestStore(t, 10)

	s.AddRecord(bob, "draft")
	require.NoError(t, s.EditRecord(bob, 0, "final", true))
	require.NoError(t, s.DeleteRecord(bob, 0))

	// Failed operations emit nothing.
	assert.Error(t, s.DeleteRecord(bob, 0))
	assert.Error(t, s.EditRecord(bob, 0, "x", false))

	events := log.Events()
	require.Len(t, events, 3)

	assert.Equal(t, EventRecordAdded, events[0].Kind)
	assert.Equal(t, Record{Text: "draft"}, events[0].Record)

	assert.Equal(t, EventRecordEdited, events[1].Kind)
	assert.Equal(t, Record{Text: "final", Completed: true}, events[1].Record)

	assert.Equal(t, EventRecordDeleted, events[2].Kind)
	assert.Equal(t, Record{Text: "final", Completed: true}, events[2].Record, "delete carries the pre-image")

	for i, ev := range events {
		assert.Equal(t, uint64(i+1), ev.Seq)
		assert.Equal(t, bob, ev.Actor)
		assert.Equal(t, uint64(0), ev.RecordID)
		assert.False(t, ev.At.IsZero())
	}
}

func TestNotifications_StateVisibleToObserver(t *testing.T) {
	s, _ := newTestStore(t, 10)

	var seen []uint64
	s.AddNotifier(NotifierFunc(func(ev Event) {
		// Notifiers run under the write lock, so read the store's state
		// through the event rather than calling back in.
		seen = append(seen, ev.RecordID)
	}))

	s.AddRecord(bob, "a")
	s.AddRecord(bob, "b")
	assert.Equal(t, []uint64{0, 1}, seen)
}

func TestErrorCodeRoundTrip(t *testing.T) {
	for _, err := range []error{
		ErrUnauthorized, ErrInvalidArgument, ErrEmptyCollection, ErrNotFound,
		ErrInvalidRange, ErrRangeExceedsCollection, ErrPageTooLarge,
	} {
		code := ErrorCode(err)
		require.NotEmpty(t, code)
		assert.Equal(t, err, ErrorFromCode(code))
	}
	assert.Empty(t, ErrorCode(assert.AnError))
	assert.Nil(t, ErrorFromCode("bogus"))
}

func TestConcurrentAdds_SerializeIDsAndEvents(t *testing.T) {
	s, log := newTestStore(t, 10)

	const workers, perWorker = 20, 25
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				s.AddRecord(bob, "x")
			}
		}()
	}
	wg.Wait()

	count, err := s.CollectionCount(owner, bob)
	require.NoError(t, err)
	assert.Equal(t, uint64(workers*perWorker), count)

	events := log.Events()
	require.Len(t, events, workers*perWorker)
	for i, ev := range events {
		assert.Equal(t, uint64(i+1), ev.Seq)
		assert.Equal(t, uint64(i), ev.RecordID, "ids are assigned in event order")
	}
}
