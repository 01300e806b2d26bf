// ABOUTME: RecordService handlers for owner-only administration and public settings
// ABOUTME: Ownership is enforced by the record store; these handlers only translate

package client

import (
	"context"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/2389/todo-gateway/internal/records"
)

// RecordsByUser returns another user's records in [start, end). Owner only.
func (s *RecordService) RecordsByUser(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	caller, err := callerFrom(ctx)
	if err != nil {
		return nil, err
	}
	if !s.records.IsOwner(caller) {
		return nil, toStatus(records.ErrUnauthorized)
	}
	start, end, err := rangeFields(req)
	if err != nil {
		return nil, err
	}
	recs, count, err := s.records.RecordsByUser(caller, start, end, records.Identity(stringField(req, "user")))
	if err != nil {
		return nil, toStatus(err)
	}
	return rangeResponse(recs, count), nil
}

// CollectionCount returns a user's stored count. Owner only.
func (s *RecordService) CollectionCount(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	caller, err := callerFrom(ctx)
	if err != nil {
		return nil, err
	}
	n, err := s.records.CollectionCount(caller, records.Identity(stringField(req, "user")))
	if err != nil {
		return nil, toStatus(err)
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{"count": uint64Value(n)}}, nil
}

// SetCollectionCount overwrites a user's stored count. Owner only.
func (s *RecordService) SetCollectionCount(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	caller, err := callerFrom(ctx)
	if err != nil {
		return nil, err
	}
	if !s.records.IsOwner(caller) {
		return nil, toStatus(records.ErrUnauthorized)
	}
	n, err := uint64Field(req, "count")
	if err != nil {
		return nil, err
	}
	if err := s.records.SetCollectionCount(caller, records.Identity(stringField(req, "user")), n); err != nil {
		return nil, toStatus(err)
	}
	return emptyResponse(), nil
}

// GetOwner returns the current owner identity.
func (s *RecordService) GetOwner(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"owner": structpb.NewStringValue(string(s.records.Owner())),
	}}, nil
}

// SetOwner transfers ownership. Owner only.
func (s *RecordService) SetOwner(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	caller, err := callerFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.records.SetOwner(caller, records.Identity(stringField(req, "owner"))); err != nil {
		return nil, toStatus(err)
	}
	return emptyResponse(), nil
}

// GetPageLimit returns the current page-size limit.
func (s *RecordService) GetPageLimit(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"page_limit": uint64Value(s.records.PageLimit()),
	}}, nil
}

// SetPageLimit replaces the page-size limit. Owner only.
func (s *RecordService) SetPageLimit(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	caller, err := callerFrom(ctx)
	if err != nil {
		return nil, err
	}
	if !s.records.IsOwner(caller) {
		return nil, toStatus(records.ErrUnauthorized)
	}
	n, err := uint64Field(req, "page_limit")
	if err != nil {
		return nil, err
	}
	if err := s.records.SetPageLimit(caller, n); err != nil {
		return nil, toStatus(err)
	}
	return emptyResponse(), nil
}
