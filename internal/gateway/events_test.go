// ABOUTME: Tests for the SSE event feed and ledger history endpoints
// ABOUTME: Verifies per-actor scoping, owner all-actors access, and cursor paging

package gateway

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/todo-gateway/internal/auth"
	"github.com/2389/todo-gateway/internal/records"
)

type sseEvent struct {
	name string
	data string
}

// sseStream reads events from an open /api/events response.
type sseStream struct {
	resp   *http.Response
	reader *bufio.Reader
}

// openStream connects to /api/events as identity and waits for the
// subscribed event so that later mutations are guaranteed to be delivered.
func openStream(t *testing.T, srv *httptest.Server, identity, actor string) *sseStream {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	u := srv.URL + "/api/events"
	if actor != "" {
		u += "?actor=" + url.QueryEscape(actor)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	require.NoError(t, err)
	req.Header.Set(auth.IdentityHeader, identity)

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	s := &sseStream{resp: resp, reader: bufio.NewReader(resp.Body)}
	if resp.StatusCode != http.StatusOK {
		return s
	}
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	first := s.next(t)
	require.Equal(t, "subscribed", first.name)
	return s
}

// next returns the next event, skipping keepalive comments.
func (s *sseStream) next(t *testing.T) sseEvent {
	t.Helper()

	type result struct {
		ev  sseEvent
		err error
	}
	done := make(chan result, 1)
	go func() {
		var ev sseEvent
		for {
			line, err := s.reader.ReadString('\n')
			if err != nil {
				done <- result{err: err}
				return
			}
			line = strings.TrimRight(line, "\n")
			switch {
			case line == "":
				if ev.name != "" {
					done <- result{ev: ev}
					return
				}
			case strings.HasPrefix(line, ":"):
			case strings.HasPrefix(line, "event: "):
				ev.name = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				ev.data = strings.TrimPrefix(line, "data: ")
			}
		}
	}()

	select {
	case r := <-done:
		require.NoError(t, r.err)
		return r.ev
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for SSE event")
		return sseEvent{}
	}
}

func (s *sseStream) nextRecordEvent(t *testing.T) EventResponse {
	t.Helper()
	ev := s.next(t)
	var resp EventResponse
	require.NoError(t, json.Unmarshal([]byte(ev.data), &resp))
	assert.Equal(t, ev.name, resp.Kind)
	return resp
}

func TestEventStream_OwnActorOnly(t *testing.T) {
	gw := newTestGateway(t)
	srv := httptest.NewServer(gw.Handler())
	t.Cleanup(srv.Close)

	bob := openStream(t, srv, "bob", "")

	gw.Records().AddRecord("carol", "not for bob")
	gw.Records().AddRecord("bob", "for bob")

	ev := bob.nextRecordEvent(t)
	assert.Equal(t, "bob", ev.Actor)
	assert.Equal(t, string(records.EventRecordAdded), ev.Kind)
	assert.Equal(t, records.Record{Text: "for bob"}, ev.Record)
	assert.Equal(t, uint64(2), ev.Seq)

	require.NoError(t, gw.Records().DeleteRecord("bob", 0))
	ev = bob.nextRecordEvent(t)
	assert.Equal(t, string(records.EventRecordDeleted), ev.Kind)
	assert.Equal(t, "for bob", ev.Record.Text, "delete carries the pre-deletion snapshot")
}

func TestEventStream_OwnerSeesEveryone(t *testing.T) {
	gw := newTestGateway(t)
	srv := httptest.NewServer(gw.Handler())
	t.Cleanup(srv.Close)

	all := openStream(t, srv, "alice", "")
	onlyCarol := openStream(t, srv, "alice", "carol")

	gw.Records().AddRecord("bob", "b")
	gw.Records().AddRecord("carol", "c")

	assert.Equal(t, "bob", all.nextRecordEvent(t).Actor)
	assert.Equal(t, "carol", all.nextRecordEvent(t).Actor)
	assert.Equal(t, "carol", onlyCarol.nextRecordEvent(t).Actor)
}

func TestEventStream_StarIdentityIsNotEveryone(t *testing.T) {
	gw := newTestGateway(t)
	srv := httptest.NewServer(gw.Handler())
	t.Cleanup(srv.Close)

	star := openStream(t, srv, "*", "")

	gw.Records().AddRecord("bob", "not for star")
	gw.Records().AddRecord("*", "for star")

	ev := star.nextRecordEvent(t)
	assert.Equal(t, "*", ev.Actor)
	assert.Equal(t, "for star", ev.Record.Text)

	rec := apiCall(t, gw, http.MethodGet, "/api/events/history", "*", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	history := decodeBody[EventHistoryResponse](t, rec)
	require.Len(t, history.Events, 1)
	assert.Equal(t, "*", history.Events[0].Actor)

	rec = apiCall(t, gw, http.MethodGet, "/api/events/history?actor=bob", "*", nil)
	requireAPIError(t, rec, http.StatusForbidden, "unauthorized")
}

func TestEventStream_Unauthorized(t *testing.T) {
	gw := newTestGateway(t)
	srv := httptest.NewServer(gw.Handler())
	t.Cleanup(srv.Close)

	s := openStream(t, srv, "bob", "carol")
	assert.Equal(t, http.StatusForbidden, s.resp.StatusCode)

	var body ErrorResponse
	require.NoError(t, json.NewDecoder(s.reader).Decode(&body))
	assert.Equal(t, "unauthorized", body.Code)
}

func TestEventStream_EndsOnShutdown(t *testing.T) {
	gw, err := New(testConfig(t), testLogger())
	require.NoError(t, err)
	srv := httptest.NewServer(gw.Handler())
	t.Cleanup(srv.Close)

	s := openStream(t, srv, "bob", "")
	require.NoError(t, gw.Shutdown(context.Background()))

	_, err = s.reader.ReadString('\n')
	for err == nil {
		_, err = s.reader.ReadString('\n')
	}
}

func TestEventHistory(t *testing.T) {
	gw := newTestGateway(t)

	gw.Records().AddRecord("bob", "b0")
	gw.Records().AddRecord("carol", "c0")
	require.NoError(t, gw.Records().EditRecord("bob", 0, "b0!", true))

	rec := apiCall(t, gw, http.MethodGet, "/api/events/history", "bob", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	own := decodeBody[EventHistoryResponse](t, rec)
	require.Len(t, own.Events, 2)
	assert.Equal(t, string(records.EventRecordEdited), own.Events[1].Kind)
	assert.Equal(t, records.Record{Text: "b0!", Completed: true}, own.Events[1].Record)
	assert.NotEmpty(t, own.Events[0].ID)
	assert.NotEmpty(t, own.Events[0].RunID)

	rec = apiCall(t, gw, http.MethodGet, "/api/events/history?actor=carol", "bob", nil)
	requireAPIError(t, rec, http.StatusForbidden, "unauthorized")

	rec = apiCall(t, gw, http.MethodGet, "/api/events/history?limit=2", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decodeBody[EventHistoryResponse](t, rec)
	require.Len(t, page.Events, 2)
	require.True(t, page.HasMore)

	rec = apiCall(t, gw, http.MethodGet, "/api/events/history?limit=2&cursor="+url.QueryEscape(page.NextCursor), "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rest := decodeBody[EventHistoryResponse](t, rec)
	require.Len(t, rest.Events, 1)
	assert.Equal(t, uint64(3), rest.Events[0].Seq)
	assert.False(t, rest.HasMore)

	rec = apiCall(t, gw, http.MethodGet, "/api/events/history?kind=record_added", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[EventHistoryResponse](t, rec).Events, 2)

	rec = apiCall(t, gw, http.MethodGet, "/api/events/history?cursor=bogus", "alice", nil)
	requireAPIError(t, rec, http.StatusBadRequest, "invalid_argument")

	rec = apiCall(t, gw, http.MethodGet, "/api/events/history?limit=-5", "alice", nil)
	requireAPIError(t, rec, http.StatusBadRequest, "invalid_argument")
}
