// ABOUTME: Me RPC handler for retrieving the authenticated caller's identity
// ABOUTME: Reports whether the caller is currently the record store owner

package client

import (
	"context"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/2389/todo-gateway/internal/auth"
)

// Me returns the caller's identity, auth method, and owner status.
func (s *RecordService) Me(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	caller, err := callerFrom(ctx)
	if err != nil {
		return nil, err
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"identity": structpb.NewStringValue(string(caller)),
		"method":   structpb.NewStringValue(auth.MustFromContext(ctx).Method),
		"is_owner": structpb.NewBoolValue(s.records.IsOwner(caller)),
	}}, nil
}
