// ABOUTME: HTTP endpoints for record events: live SSE feed and ledger history
// ABOUTME: Applies the same owner-or-self visibility rule as the gRPC service

package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/2389/todo-gateway/internal/auth"
	"github.com/2389/todo-gateway/internal/client"
	"github.com/2389/todo-gateway/internal/records"
	"github.com/2389/todo-gateway/internal/store"
)

// sseKeepaliveInterval is how often an idle event stream sends a comment line.
const sseKeepaliveInterval = 15 * time.Second

// EventResponse is the JSON form of a live or persisted record event.
type EventResponse struct {
	ID       string         `json:"id,omitempty"`
	RunID    string         `json:"run_id,omitempty"`
	Seq      uint64         `json:"seq"`
	Kind     string         `json:"kind"`
	Actor    string         `json:"actor"`
	RecordID uint64         `json:"record_id"`
	Record   records.Record `json:"record"`
	At       time.Time      `json:"at"`
}

// EventHistoryResponse is the JSON response for GET /api/events/history.
type EventHistoryResponse struct {
	Events     []EventResponse `json:"events"`
	NextCursor string          `json:"next_cursor,omitempty"`
	HasMore    bool            `json:"has_more"`
}

// SubscribedEvent is the first SSE event on every stream.
type SubscribedEvent struct {
	SubscriptionID string `json:"subscription_id"`
	Actor          string `json:"actor"`
}

func liveEventResponse(ev records.Event) EventResponse {
	return EventResponse{
		Seq:      ev.Seq,
		Kind:     string(ev.Kind),
		Actor:    string(ev.Actor),
		RecordID: ev.RecordID,
		Record:   ev.Record,
		At:       ev.At,
	}
}

func ledgerEventResponse(e store.RecordEvent) EventResponse {
	return EventResponse{
		ID:       e.ID,
		RunID:    e.RunID,
		Seq:      e.Seq,
		Kind:     e.Kind,
		Actor:    e.Actor,
		RecordID: e.RecordID,
		Record:   records.Record{Text: e.Text, Completed: e.Completed},
		At:       e.Timestamp,
	}
}

// handleEventStream handles GET /api/events?actor=X as Server-Sent Events.
//
// The stream opens with a "subscribed" event, then sends one event per store
// mutation named by its kind (record_added, record_edited, record_deleted).
// Ownership is checked once, when the stream starts.
func (g *Gateway) handleEventStream(w http.ResponseWriter, r *http.Request) {
	caller := auth.IdentityFromContext(r.Context())
	scope, err := client.ResolveEventScope(g.records, caller, r.URL.Query().Get("actor"))
	if err != nil {
		g.sendStoreError(w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		g.sendJSONError(w, http.StatusInternalServerError, "internal", "streaming not supported")
		return
	}

	ctx := r.Context()
	events, subID := g.broadcaster.Subscribe(ctx, scope)
	defer g.broadcaster.Unsubscribe(subID)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	g.writeSSEEvent(w, "subscribed", SubscribedEvent{SubscriptionID: subID, Actor: scope.String()})
	flusher.Flush()

	g.logger.Debug("event stream opened", "caller", caller, "scope", scope.String(), "subscription_id", subID)

	keepalive := time.NewTicker(sseKeepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case <-ctx.Done():
			g.logger.Debug("event stream closed by client", "subscription_id", subID)
			return
		case <-keepalive.C:
			_, _ = fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		case ev, ok := <-events:
			if !ok {
				return
			}
			g.writeSSEEvent(w, string(ev.Kind), liveEventResponse(ev))
			flusher.Flush()
		}
	}
}

// writeSSEEvent writes a single SSE event with a JSON payload.
func (g *Gateway) writeSSEEvent(w http.ResponseWriter, event string, data any) {
	dataJSON, err := json.Marshal(data)
	if err != nil {
		g.logger.Error("failed to marshal SSE data", "error", err)
		return
	}
	_, _ = fmt.Fprintf(w, "event: %s\n", event)
	_, _ = fmt.Fprintf(w, "data: %s\n\n", dataJSON)
}

// handleEventHistory handles GET /api/events/history?actor=X&kind=K&limit=N&cursor=C.
func (g *Gateway) handleEventHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	scope, err := client.ResolveEventScope(g.records, auth.IdentityFromContext(r.Context()), q.Get("actor"))
	if err != nil {
		g.sendStoreError(w, err)
		return
	}

	params := store.ListEventsParams{
		Actor:  client.HistoryActor(scope),
		Kind:   q.Get("kind"),
		Cursor: q.Get("cursor"),
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			g.sendJSONError(w, http.StatusBadRequest, "invalid_argument", "limit must be a non-negative integer")
			return
		}
		params.Limit = n
	}

	result, err := g.events.ListEvents(r.Context(), params)
	if errors.Is(err, store.ErrInvalidCursor) {
		g.sendJSONError(w, http.StatusBadRequest, "invalid_argument", err.Error())
		return
	}
	if err != nil {
		g.logger.Error("failed to list events", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal", "failed to list events")
		return
	}

	resp := EventHistoryResponse{
		Events:     make([]EventResponse, 0, len(result.Events)),
		NextCursor: result.NextCursor,
		HasMore:    result.HasMore,
	}
	for _, e := range result.Events {
		resp.Events = append(resp.Events, ledgerEventResponse(e))
	}
	g.writeJSON(w, http.StatusOK, resp)
}
