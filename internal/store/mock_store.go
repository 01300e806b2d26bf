// ABOUTME: Mock EventStore implementation for testing
// ABOUTME: Allows tests to run without SQLite

package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MockStore is an in-memory EventStore implementation for testing.
type MockStore struct {
	mu     sync.RWMutex
	events []RecordEvent // append order; index+1 is the position
	byID   map[string]int
	closed bool
}

var _ EventStore = (*MockStore)(nil)

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		byID: make(map[string]int),
	}
}

// SaveEvent appends an event.
func (m *MockStore) SaveEvent(ctx context.Context, event *RecordEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	m.byID[event.ID] = len(m.events)
	m.events = append(m.events, *event)
	return nil
}

// GetEvent retrieves an event by ID.
func (m *MockStore) GetEvent(ctx context.Context, id string) (*RecordEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	idx, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	e := m.events[idx]
	return &e, nil
}

// ListEvents mirrors SQLiteStore.ListEvents, including cursor format.
func (m *MockStore) ListEvents(ctx context.Context, p ListEventsParams) (*ListEventsResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p.Limit = normalizeLimit(p.Limit)

	var after int64
	if p.Cursor != "" {
		var err error
		after, err = decodeCursor(p.Cursor)
		if err != nil {
			return nil, err
		}
	}

	result := &ListEventsResult{}
	for i := int(after); i < len(m.events); i++ {
		e := m.events[i]
		if p.Actor != "" && e.Actor != p.Actor {
			continue
		}
		if p.Kind != "" && e.Kind != p.Kind {
			continue
		}
		if p.Since != nil && e.Timestamp.Before(*p.Since) {
			continue
		}
		if p.Until != nil && e.Timestamp.After(*p.Until) {
			continue
		}
		if len(result.Events) == p.Limit {
			result.HasMore = true
			break
		}
		result.Events = append(result.Events, e)
		result.NextCursor = encodeCursor(int64(i + 1))
	}
	if !result.HasMore {
		result.NextCursor = ""
	}
	return result, nil
}

// Close marks the store closed.
func (m *MockStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Len returns the number of stored events.
func (m *MockStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.events)
}
