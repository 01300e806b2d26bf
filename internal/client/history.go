// ABOUTME: RecordService handler for reading the persisted event ledger
// ABOUTME: Implements ListEvents with actor scoping and cursor pagination

package client

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/2389/todo-gateway/internal/store"
)

// ListEvents returns one page of ledger events visible to the caller.
func (s *RecordService) ListEvents(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	caller, err := callerFrom(ctx)
	if err != nil {
		return nil, err
	}
	if s.events == nil {
		return nil, status.Error(codes.Unavailable, "event ledger not enabled")
	}

	scope, err := ResolveEventScope(s.records, caller, stringField(req, "actor"))
	if err != nil {
		return nil, toStatus(err)
	}

	params := store.ListEventsParams{
		Actor:  HistoryActor(scope),
		Kind:   stringField(req, "kind"),
		Cursor: stringField(req, "cursor"),
	}
	if v, ok := req.GetFields()["limit"]; ok {
		n, err := ParseUint64Value(v)
		if err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "limit: %v", err)
		}
		params.Limit = int(min(n, 1<<20))
	}

	result, err := s.events.ListEvents(ctx, params)
	if errors.Is(err, store.ErrInvalidCursor) {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if err != nil {
		s.logger.Error("failed to list events", "error", err)
		return nil, status.Error(codes.Internal, "failed to list events")
	}

	vals := make([]*structpb.Value, len(result.Events))
	for i, e := range result.Events {
		vals[i] = structpb.NewStructValue(ledgerEventStruct(e))
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"events":      structpb.NewListValue(&structpb.ListValue{Values: vals}),
		"next_cursor": structpb.NewStringValue(result.NextCursor),
		"has_more":    structpb.NewBoolValue(result.HasMore),
	}}, nil
}
