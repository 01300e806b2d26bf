// ABOUTME: In-memory fan-out of record store notifications to live subscribers
// ABOUTME: Subscribers follow one actor's events, or every event with an all-actors scope

package feed

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/2389/todo-gateway/internal/records"
)

const (
	// DefaultBufferSize is the channel buffer for each subscriber.
	DefaultBufferSize = 64

	// AllActors is how a request names the all-actors scope. It is only a
	// label: an identity spelled "*" subscribes to its own events like any other.
	AllActors = "*"
)

// Scope selects the events a subscription receives.
type Scope struct {
	// Actor is the identity whose events are delivered. Ignored when All is set.
	Actor string
	// All delivers every actor's events. The gateway only grants it to the owner.
	All bool
}

// ActorScope follows a single actor's events.
func ActorScope(actor string) Scope {
	return Scope{Actor: actor}
}

// EveryActor follows every actor's events.
func EveryActor() Scope {
	return Scope{All: true}
}

// String returns the actor, or AllActors for the all-actors scope.
func (s Scope) String() string {
	if s.All {
		return AllActors
	}
	return s.Actor
}

// Broadcaster provides in-memory pub/sub for record events. It implements
// records.Notifier so it can be attached directly to a records.Store.
type Broadcaster struct {
	mu         sync.RWMutex
	actors     map[string]map[string]chan records.Event // actor -> subID -> ch
	everyone   map[string]chan records.Event            // subID -> ch
	scopes     map[string]Scope                         // subID -> scope
	bufferSize int
	closed     bool
	done       chan struct{}
	logger     *slog.Logger
}

var _ records.Notifier = (*Broadcaster)(nil)

// NewBroadcaster creates a broadcaster. bufferSize <= 0 selects
// DefaultBufferSize. Pass nil logger for default.
func NewBroadcaster(bufferSize int, logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Broadcaster{
		actors:     make(map[string]map[string]chan records.Event),
		everyone:   make(map[string]chan records.Event),
		scopes:     make(map[string]Scope),
		bufferSize: bufferSize,
		done:       make(chan struct{}),
		logger:     logger.With("component", "feed"),
	}
}

// Subscribe registers a subscriber for the events selected by scope. The
// subscription is removed and its channel closed when ctx is cancelled or the
// broadcaster is closed.
func (b *Broadcaster) Subscribe(ctx context.Context, scope Scope) (<-chan records.Event, string) {
	subID := uuid.New().String()
	ch := make(chan records.Event, b.bufferSize)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch, subID
	}
	if scope.All {
		b.everyone[subID] = ch
	} else {
		if _, ok := b.actors[scope.Actor]; !ok {
			b.actors[scope.Actor] = make(map[string]chan records.Event)
		}
		b.actors[scope.Actor][subID] = ch
	}
	b.scopes[subID] = scope
	b.mu.Unlock()

	b.logger.Debug("subscriber added", "scope", scope.String(), "all", scope.All, "sub_id", subID)

	go func() {
		select {
		case <-ctx.Done():
			b.Unsubscribe(subID)
		case <-b.done:
		}
	}()

	return ch, subID
}

// Notify publishes ev to subscribers of its actor and to all-actors subscribers.
func (b *Broadcaster) Notify(ev records.Event) {
	b.Publish(string(ev.Actor), ev)
}

// Publish sends ev to subscribers of actor and to all-actors subscribers.
// Non-blocking: events are dropped for subscribers whose channels are full.
func (b *Broadcaster) Publish(actor string, ev records.Event) {
	// The read lock is held across the sends so Unsubscribe cannot close a
	// channel mid-send. Sends never block.
	b.mu.RLock()
	defer b.mu.RUnlock()

	b.sendLocked(b.actors[actor], ev)
	b.sendLocked(b.everyone, ev)
}

func (b *Broadcaster) sendLocked(subs map[string]chan records.Event, ev records.Event) {
	for subID, ch := range subs {
		select {
		case ch <- ev:
		default:
			b.logger.Debug("dropped event for slow subscriber",
				"actor", ev.Actor,
				"sub_id", subID,
				"seq", ev.Seq)
		}
	}
}

// Unsubscribe removes a subscription and closes its channel. Unknown ids are
// ignored.
func (b *Broadcaster) Unsubscribe(subID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	scope, ok := b.scopes[subID]
	if !ok {
		return
	}
	delete(b.scopes, subID)

	if scope.All {
		close(b.everyone[subID])
		delete(b.everyone, subID)
	} else {
		subs := b.actors[scope.Actor]
		close(subs[subID])
		delete(subs, subID)
		if len(subs) == 0 {
			delete(b.actors, scope.Actor)
		}
	}

	b.logger.Debug("subscriber removed", "scope", scope.String(), "sub_id", subID)
}

// Subscribers returns the number of live subscriptions.
func (b *Broadcaster) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.scopes)
}

// Close shuts down the broadcaster and closes all subscriber channels.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	close(b.done)

	for actor, subs := range b.actors {
		for _, ch := range subs {
			close(ch)
		}
		delete(b.actors, actor)
	}
	for subID, ch := range b.everyone {
		close(ch)
		delete(b.everyone, subID)
	}
	clear(b.scopes)

	b.logger.Debug("broadcaster closed")
}
