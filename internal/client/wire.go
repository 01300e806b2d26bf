// ABOUTME: Struct field helpers for RecordService request and response messages
// ABOUTME: uint64 values travel as decimal strings, as in the proto3 JSON mapping

package client

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/2389/todo-gateway/internal/records"
	"github.com/2389/todo-gateway/internal/store"
)

// maxExactFloat is the largest integer a float64 holds exactly.
const maxExactFloat = 1 << 53

func stringField(in *structpb.Struct, name string) string {
	return in.GetFields()[name].GetStringValue()
}

func boolField(in *structpb.Struct, name string) bool {
	return in.GetFields()[name].GetBoolValue()
}

// uint64Field reads a required unsigned integer field.
func uint64Field(in *structpb.Struct, name string) (uint64, error) {
	v, ok := in.GetFields()[name]
	if !ok {
		return 0, status.Errorf(codes.InvalidArgument, "%s required", name)
	}
	n, err := ParseUint64Value(v)
	if err != nil {
		return 0, status.Errorf(codes.InvalidArgument, "%s: %v", name, err)
	}
	return n, nil
}

// ParseUint64Value accepts a decimal string or an exact non-negative number.
func ParseUint64Value(v *structpb.Value) (uint64, error) {
	switch k := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		return strconv.ParseUint(k.StringValue, 10, 64)
	case *structpb.Value_NumberValue:
		f := k.NumberValue
		if f < 0 || f != math.Trunc(f) || f > maxExactFloat {
			return 0, fmt.Errorf("%v is not an exact unsigned integer", f)
		}
		return uint64(f), nil
	default:
		return 0, fmt.Errorf("expected string or number")
	}
}

func uint64Value(n uint64) *structpb.Value {
	return structpb.NewStringValue(strconv.FormatUint(n, 10))
}

func recordValue(r records.Record) *structpb.Value {
	return structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
		"text":      structpb.NewStringValue(r.Text),
		"completed": structpb.NewBoolValue(r.Completed),
	}})
}

// RecordFromValue decodes a record produced by the service.
func RecordFromValue(v *structpb.Value) records.Record {
	f := v.GetStructValue()
	return records.Record{
		Text:      stringField(f, "text"),
		Completed: boolField(f, "completed"),
	}
}

func rangeResponse(recs []records.Record, count uint64) *structpb.Struct {
	vals := make([]*structpb.Value, len(recs))
	for i, r := range recs {
		vals[i] = recordValue(r)
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"records": structpb.NewListValue(&structpb.ListValue{Values: vals}),
		"count":   uint64Value(count),
	}}
}

func emptyResponse() *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{}}
}

// eventStruct encodes a live store notification.
func eventStruct(ev records.Event) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"seq":       uint64Value(ev.Seq),
		"kind":      structpb.NewStringValue(string(ev.Kind)),
		"actor":     structpb.NewStringValue(string(ev.Actor)),
		"record_id": uint64Value(ev.RecordID),
		"record":    recordValue(ev.Record),
		"at":        structpb.NewStringValue(ev.At.UTC().Format(time.RFC3339Nano)),
	}}
}

// ledgerEventStruct encodes a persisted ledger event.
func ledgerEventStruct(e store.RecordEvent) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"id":        structpb.NewStringValue(e.ID),
		"run_id":    structpb.NewStringValue(e.RunID),
		"seq":       uint64Value(e.Seq),
		"kind":      structpb.NewStringValue(e.Kind),
		"actor":     structpb.NewStringValue(e.Actor),
		"record_id": uint64Value(e.RecordID),
		"record":    recordValue(records.Record{Text: e.Text, Completed: e.Completed}),
		"at":        structpb.NewStringValue(e.Timestamp.UTC().Format(time.RFC3339Nano)),
	}}
}

// EventView is the decoded form of a streamed or listed event.
type EventView struct {
	ID       string // empty for live events
	RunID    string // empty for live events
	Seq      uint64
	Kind     string
	Actor    string
	RecordID uint64
	Record   records.Record
	At       time.Time
}

// EventFromStruct decodes an event produced by StreamEvents or ListEvents.
func EventFromStruct(in *structpb.Struct) (EventView, error) {
	seq, err := uint64Field(in, "seq")
	if err != nil {
		return EventView{}, err
	}
	id, err := uint64Field(in, "record_id")
	if err != nil {
		return EventView{}, err
	}
	at, err := time.Parse(time.RFC3339Nano, stringField(in, "at"))
	if err != nil {
		return EventView{}, fmt.Errorf("parsing event time: %w", err)
	}
	return EventView{
		ID:       stringField(in, "id"),
		RunID:    stringField(in, "run_id"),
		Seq:      seq,
		Kind:     stringField(in, "kind"),
		Actor:    stringField(in, "actor"),
		RecordID: id,
		Record:   RecordFromValue(in.GetFields()["record"]),
		At:       at,
	}, nil
}
