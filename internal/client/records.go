// ABOUTME: RecordService handlers for the caller's own record lifecycle
// ABOUTME: Implements AddRecord, EditRecord, DeleteRecord, GetRecord, and MyRecords

package client

import (
	"context"
	"strings"

	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/2389/todo-gateway/internal/dedupe"
	"github.com/2389/todo-gateway/internal/records"
)

// AddRecord appends a record to the caller's collection and returns its id.
// A repeated idempotency-key from the same caller returns the original id.
func (s *RecordService) AddRecord(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	caller, err := callerFrom(ctx)
	if err != nil {
		return nil, err
	}
	text := stringField(req, "text")

	id, replayed := AddIdempotent(s.records, s.idempotency, caller, text, idempotencyKey(ctx))
	if replayed {
		s.logger.Debug("idempotent add replayed", "caller", caller, "id", id)
	}

	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"id":       uint64Value(id),
		"replayed": structpb.NewBoolValue(replayed),
	}}, nil
}

// AddIdempotent adds text for caller, deduplicating on key when cache is set
// and key is non-empty. It reports whether the id came from an earlier call.
func AddIdempotent(rs *records.Store, cache *dedupe.Cache[uint64], caller records.Identity, text, key string) (uint64, bool) {
	if cache == nil || key == "" {
		return rs.AddRecord(caller, text), false
	}
	id, loaded, _ := cache.GetOrCompute(dedupe.ScopedKey(string(caller), key), func() (uint64, error) {
		return rs.AddRecord(caller, text), nil
	})
	return id, loaded
}

func idempotencyKey(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if vals := md.Get(IdempotencyKeyMetadata); len(vals) > 0 {
		return strings.TrimSpace(vals[0])
	}
	return ""
}

// EditRecord overwrites an existing record in the caller's collection.
func (s *RecordService) EditRecord(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	caller, err := callerFrom(ctx)
	if err != nil {
		return nil, err
	}
	id, err := uint64Field(req, "id")
	if err != nil {
		return nil, err
	}
	if err := s.records.EditRecord(caller, id, stringField(req, "text"), boolField(req, "completed")); err != nil {
		return nil, toStatus(err)
	}
	return emptyResponse(), nil
}

// DeleteRecord clears an existing record in the caller's collection.
func (s *RecordService) DeleteRecord(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	caller, err := callerFrom(ctx)
	if err != nil {
		return nil, err
	}
	id, err := uint64Field(req, "id")
	if err != nil {
		return nil, err
	}
	if err := s.records.DeleteRecord(caller, id); err != nil {
		return nil, toStatus(err)
	}
	return emptyResponse(), nil
}

// GetRecord returns one record from the caller's collection.
func (s *RecordService) GetRecord(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	caller, err := callerFrom(ctx)
	if err != nil {
		return nil, err
	}
	id, err := uint64Field(req, "id")
	if err != nil {
		return nil, err
	}
	rec, err := s.records.RecordByID(caller, id)
	if err != nil {
		return nil, toStatus(err)
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"record": recordValue(rec),
	}}, nil
}

// MyRecords returns the caller's records in [start, end).
func (s *RecordService) MyRecords(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	caller, err := callerFrom(ctx)
	if err != nil {
		return nil, err
	}
	start, end, err := rangeFields(req)
	if err != nil {
		return nil, err
	}
	recs, count, err := s.records.MyRecords(caller, start, end)
	if err != nil {
		return nil, toStatus(err)
	}
	return rangeResponse(recs, count), nil
}

func rangeFields(req *structpb.Struct) (start, end uint64, err error) {
	if start, err = uint64Field(req, "start"); err != nil {
		return 0, 0, err
	}
	if end, err = uint64Field(req, "end"); err != nil {
		return 0, 0, err
	}
	return start, end, nil
}
