// ABOUTME: RecordService handler for live event streaming
// ABOUTME: Implements StreamEvents on top of the feed broadcaster

package client

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// StreamEvents pushes record events to the caller as they happen. Users
// receive their own events; the owner receives every actor's events unless
// the request names one actor. The stream ends when the client disconnects
// or the broadcaster is closed.
func (s *RecordService) StreamEvents(req *structpb.Struct, stream EventSender) error {
	ctx := stream.Context()
	caller, err := callerFrom(ctx)
	if err != nil {
		return err
	}
	if s.broadcaster == nil {
		return status.Error(codes.Unavailable, "event streaming not enabled")
	}

	scope, err := ResolveEventScope(s.records, caller, stringField(req, "actor"))
	if err != nil {
		return toStatus(err)
	}

	events, subID := s.broadcaster.Subscribe(ctx, scope)
	defer s.broadcaster.Unsubscribe(subID)

	if err := stream.SendHeader(metadata.Pairs(SubscriptionHeader, subID)); err != nil {
		return err
	}
	s.logger.Debug("event stream opened", "caller", caller, "scope", scope.String(), "sub_id", subID)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := stream.Send(eventStruct(ev)); err != nil {
				return err
			}
		}
	}
}
