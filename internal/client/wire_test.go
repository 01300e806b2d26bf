// ABOUTME: Tests for Struct encoding helpers and event visibility rules
// ABOUTME: Focuses on uint64 precision and owner versus user event scoping

package client

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/2389/todo-gateway/internal/feed"
	"github.com/2389/todo-gateway/internal/records"
)

func TestParseUint64Value(t *testing.T) {
	tests := []struct {
		name    string
		in      *structpb.Value
		want    uint64
		wantErr bool
	}{
		{"decimal string", structpb.NewStringValue("42"), 42, false},
		{"max uint64 string", structpb.NewStringValue("18446744073709551615"), math.MaxUint64, false},
		{"integral number", structpb.NewNumberValue(7), 7, false},
		{"largest exact number", structpb.NewNumberValue(1 << 53), 1 << 53, false},
		{"negative string", structpb.NewStringValue("-1"), 0, true},
		{"negative number", structpb.NewNumberValue(-3), 0, true},
		{"fractional number", structpb.NewNumberValue(1.5), 0, true},
		{"number beyond exact range", structpb.NewNumberValue(1 << 60), 0, true},
		{"garbage", structpb.NewStringValue("ten"), 0, true},
		{"bool", structpb.NewBoolValue(true), 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseUint64Value(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUint64Value_KeepsPrecision(t *testing.T) {
	got, err := ParseUint64Value(uint64Value(math.MaxUint64 - 1))
	require.NoError(t, err)
	assert.Equal(t, uint64(math.MaxUint64-1), got)
}

func TestRangeResponse_Decode(t *testing.T) {
	in := []records.Record{{Text: "a"}, {}, {Text: "c", Completed: true}}
	recs, count, err := decodeRange(rangeResponse(in, 9))
	require.NoError(t, err)
	assert.Equal(t, uint64(9), count)
	assert.Equal(t, in, recs)
}

func TestEventFromStruct(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 5, time.UTC)
	ev := records.Event{
		Seq:      4,
		Kind:     records.EventRecordEdited,
		Actor:    "bob",
		RecordID: 2,
		Record:   records.Record{Text: "done", Completed: true},
		At:       at,
	}

	got, err := EventFromStruct(eventStruct(ev))
	require.NoError(t, err)
	assert.Equal(t, EventView{
		Seq:      4,
		Kind:     string(records.EventRecordEdited),
		Actor:    "bob",
		RecordID: 2,
		Record:   records.Record{Text: "done", Completed: true},
		At:       at,
	}, got)

	_, err = EventFromStruct(&structpb.Struct{})
	assert.Error(t, err)
}

func TestResolveEventScope(t *testing.T) {
	rs, err := records.New(records.Options{Owner: "alice", PageLimit: 5})
	require.NoError(t, err)

	tests := []struct {
		name      string
		caller    records.Identity
		requested string
		want      feed.Scope
		wantErr   error
	}{
		{"owner default is everyone", "alice", "", feed.EveryActor(), nil},
		{"owner names a user", "alice", "bob", feed.ActorScope("bob"), nil},
		{"owner asks for everyone", "alice", feed.AllActors, feed.EveryActor(), nil},
		{"user default is self", "bob", "", feed.ActorScope("bob"), nil},
		{"user names self", "bob", "bob", feed.ActorScope("bob"), nil},
		{"user names another", "bob", "carol", feed.Scope{}, records.ErrUnauthorized},
		{"user asks for everyone", "bob", feed.AllActors, feed.Scope{}, records.ErrUnauthorized},
		{"star user default is self", "*", "", feed.ActorScope("*"), nil},
		{"star user names self", "*", "*", feed.ActorScope("*"), nil},
		{"star user names another", "*", "bob", feed.Scope{}, records.ErrUnauthorized},
		{"no identity", "", "", feed.Scope{}, records.ErrUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveEventScope(rs, tt.caller, tt.requested)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHistoryActor(t *testing.T) {
	assert.Empty(t, HistoryActor(feed.EveryActor()))
	assert.Equal(t, "*", HistoryActor(feed.ActorScope("*")))
	assert.Equal(t, "bob", HistoryActor(feed.ActorScope("bob")))
}
