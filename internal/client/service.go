// ABOUTME: RecordService gRPC service declaration and server type
// ABOUTME: Messages are google.protobuf.Struct values so no generated code is required

package client

import (
	"context"
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/2389/todo-gateway/internal/auth"
	"github.com/2389/todo-gateway/internal/dedupe"
	"github.com/2389/todo-gateway/internal/feed"
	"github.com/2389/todo-gateway/internal/records"
	"github.com/2389/todo-gateway/internal/store"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "todo.RecordService"

// IdempotencyKeyMetadata is the metadata key that makes AddRecord retry-safe.
const IdempotencyKeyMetadata = "idempotency-key"

// RecordServiceServer is the server API for todo.RecordService.
type RecordServiceServer interface {
	AddRecord(context.Context, *structpb.Struct) (*structpb.Struct, error)
	EditRecord(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteRecord(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetRecord(context.Context, *structpb.Struct) (*structpb.Struct, error)
	MyRecords(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RecordsByUser(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CollectionCount(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SetCollectionCount(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetOwner(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SetOwner(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetPageLimit(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SetPageLimit(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Me(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListEvents(context.Context, *structpb.Struct) (*structpb.Struct, error)
	StreamEvents(*structpb.Struct, EventSender) error
}

// EventSender is the server side of a StreamEvents call.
type EventSender interface {
	Send(*structpb.Struct) error
	SendHeader(metadata.MD) error
	Context() context.Context
}

// SubscriptionHeader carries the feed subscription id. StreamEvents sends it
// once the subscription is live, so a client that has read the header will
// not miss later events.
const SubscriptionHeader = "x-subscription-id"

// unaryMethod adapts a RecordServiceServer method to a grpc.MethodDesc.
func unaryMethod(name string, call func(RecordServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(RecordServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + ServiceName + "/" + name,
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(RecordServiceServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

type eventSender struct {
	grpc.ServerStream
}

func (s *eventSender) Send(m *structpb.Struct) error {
	return s.ServerStream.SendMsg(m)
}

func streamEventsHandler(srv any, stream grpc.ServerStream) error {
	in := new(structpb.Struct)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(RecordServiceServer).StreamEvents(in, &eventSender{stream})
}

// ServiceDesc describes todo.RecordService for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RecordServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod("AddRecord", RecordServiceServer.AddRecord),
		unaryMethod("EditRecord", RecordServiceServer.EditRecord),
		unaryMethod("DeleteRecord", RecordServiceServer.DeleteRecord),
		unaryMethod("GetRecord", RecordServiceServer.GetRecord),
		unaryMethod("MyRecords", RecordServiceServer.MyRecords),
		unaryMethod("RecordsByUser", RecordServiceServer.RecordsByUser),
		unaryMethod("CollectionCount", RecordServiceServer.CollectionCount),
		unaryMethod("SetCollectionCount", RecordServiceServer.SetCollectionCount),
		unaryMethod("GetOwner", RecordServiceServer.GetOwner),
		unaryMethod("SetOwner", RecordServiceServer.SetOwner),
		unaryMethod("GetPageLimit", RecordServiceServer.GetPageLimit),
		unaryMethod("SetPageLimit", RecordServiceServer.SetPageLimit),
		unaryMethod("Me", RecordServiceServer.Me),
		unaryMethod("ListEvents", RecordServiceServer.ListEvents),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "StreamEvents",
			Handler:       streamEventsHandler,
			ServerStreams: true,
		},
	},
	Metadata: "todo/records.proto",
}

// RegisterRecordServiceServer registers srv with s.
func RegisterRecordServiceServer(s grpc.ServiceRegistrar, srv RecordServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// RecordService implements the RecordService gRPC service on top of a
// records.Store. The authenticated identity from the auth interceptors is
// passed to the store as the caller of every operation.
type RecordService struct {
	records     *records.Store
	events      store.EventStore
	broadcaster *feed.Broadcaster
	idempotency *dedupe.Cache[uint64]
	logger      *slog.Logger
}

var _ RecordServiceServer = (*RecordService)(nil)

// NewRecordService creates a RecordService. Pass nil logger for default.
func NewRecordService(rs *records.Store, logger *slog.Logger) *RecordService {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecordService{
		records: rs,
		logger:  logger.With("component", "record-service"),
	}
}

// SetEventStore enables ListEvents over the persisted ledger.
func (s *RecordService) SetEventStore(es store.EventStore) {
	s.events = es
}

// SetBroadcaster enables StreamEvents.
func (s *RecordService) SetBroadcaster(b *feed.Broadcaster) {
	s.broadcaster = b
}

// SetIdempotencyCache enables idempotency-key handling for AddRecord.
func (s *RecordService) SetIdempotencyCache(c *dedupe.Cache[uint64]) {
	s.idempotency = c
}

// callerFrom returns the authenticated identity or an Unauthenticated status.
func callerFrom(ctx context.Context) (records.Identity, error) {
	id := auth.IdentityFromContext(ctx)
	if id.IsZero() {
		return "", status.Error(codes.Unauthenticated, "authentication required")
	}
	return id, nil
}
