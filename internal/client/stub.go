// ABOUTME: Typed Go client for todo.RecordService used by todo-admin and tests
// ABOUTME: Decodes Struct responses and maps status errors back to record store sentinels

package client

import (
	"context"
	"errors"
	"io"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/2389/todo-gateway/internal/records"
)

// RecordClient calls todo.RecordService over a gRPC connection.
type RecordClient struct {
	cc grpc.ClientConnInterface
}

// NewRecordClient wraps cc.
func NewRecordClient(cc grpc.ClientConnInterface) *RecordClient {
	return &RecordClient{cc: cc}
}

func (c *RecordClient) invoke(ctx context.Context, method string, fields map[string]*structpb.Value) (*structpb.Struct, error) {
	in := &structpb.Struct{Fields: fields}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out); err != nil {
		return nil, FromStatus(err)
	}
	return out, nil
}

// Add appends text to the caller's collection. A non-empty idempotencyKey
// makes retries return the original id; replayed reports that case.
func (c *RecordClient) Add(ctx context.Context, text, idempotencyKey string) (id uint64, replayed bool, err error) {
	if idempotencyKey != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, IdempotencyKeyMetadata, idempotencyKey)
	}
	out, err := c.invoke(ctx, "AddRecord", map[string]*structpb.Value{
		"text": structpb.NewStringValue(text),
	})
	if err != nil {
		return 0, false, err
	}
	id, err = uint64Field(out, "id")
	return id, boolField(out, "replayed"), err
}

// Edit overwrites record id in the caller's collection.
func (c *RecordClient) Edit(ctx context.Context, id uint64, text string, completed bool) error {
	_, err := c.invoke(ctx, "EditRecord", map[string]*structpb.Value{
		"id":        uint64Value(id),
		"text":      structpb.NewStringValue(text),
		"completed": structpb.NewBoolValue(completed),
	})
	return err
}

// Delete clears record id in the caller's collection.
func (c *RecordClient) Delete(ctx context.Context, id uint64) error {
	_, err := c.invoke(ctx, "DeleteRecord", map[string]*structpb.Value{"id": uint64Value(id)})
	return err
}

// Get returns record id from the caller's collection.
func (c *RecordClient) Get(ctx context.Context, id uint64) (records.Record, error) {
	out, err := c.invoke(ctx, "GetRecord", map[string]*structpb.Value{"id": uint64Value(id)})
	if err != nil {
		return records.Record{}, err
	}
	return RecordFromValue(out.GetFields()["record"]), nil
}

// Mine returns the caller's records in [start, end) and the caller's count.
func (c *RecordClient) Mine(ctx context.Context, start, end uint64) ([]records.Record, uint64, error) {
	out, err := c.invoke(ctx, "MyRecords", map[string]*structpb.Value{
		"start": uint64Value(start),
		"end":   uint64Value(end),
	})
	if err != nil {
		return nil, 0, err
	}
	return decodeRange(out)
}

// ByUser returns user's records in [start, end) and user's count. Owner only.
func (c *RecordClient) ByUser(ctx context.Context, user string, start, end uint64) ([]records.Record, uint64, error) {
	out, err := c.invoke(ctx, "RecordsByUser", map[string]*structpb.Value{
		"user":  structpb.NewStringValue(user),
		"start": uint64Value(start),
		"end":   uint64Value(end),
	})
	if err != nil {
		return nil, 0, err
	}
	return decodeRange(out)
}

func decodeRange(out *structpb.Struct) ([]records.Record, uint64, error) {
	count, err := uint64Field(out, "count")
	if err != nil {
		return nil, 0, err
	}
	vals := out.GetFields()["records"].GetListValue().GetValues()
	recs := make([]records.Record, len(vals))
	for i, v := range vals {
		recs[i] = RecordFromValue(v)
	}
	return recs, count, nil
}

// Count returns user's stored count. Owner only.
func (c *RecordClient) Count(ctx context.Context, user string) (uint64, error) {
	out, err := c.invoke(ctx, "CollectionCount", map[string]*structpb.Value{"user": structpb.NewStringValue(user)})
	if err != nil {
		return 0, err
	}
	return uint64Field(out, "count")
}

// SetCount overwrites user's stored count. Owner only.
func (c *RecordClient) SetCount(ctx context.Context, user string, n uint64) error {
	_, err := c.invoke(ctx, "SetCollectionCount", map[string]*structpb.Value{
		"user":  structpb.NewStringValue(user),
		"count": uint64Value(n),
	})
	return err
}

// Owner returns the current owner identity.
func (c *RecordClient) Owner(ctx context.Context) (string, error) {
	out, err := c.invoke(ctx, "GetOwner", nil)
	if err != nil {
		return "", err
	}
	return stringField(out, "owner"), nil
}

// SetOwner transfers ownership. Owner only.
func (c *RecordClient) SetOwner(ctx context.Context, owner string) error {
	_, err := c.invoke(ctx, "SetOwner", map[string]*structpb.Value{"owner": structpb.NewStringValue(owner)})
	return err
}

// PageLimit returns the page-size limit.
func (c *RecordClient) PageLimit(ctx context.Context) (uint64, error) {
	out, err := c.invoke(ctx, "GetPageLimit", nil)
	if err != nil {
		return 0, err
	}
	return uint64Field(out, "page_limit")
}

// SetPageLimit replaces the page-size limit. Owner only.
func (c *RecordClient) SetPageLimit(ctx context.Context, n uint64) error {
	_, err := c.invoke(ctx, "SetPageLimit", map[string]*structpb.Value{"page_limit": uint64Value(n)})
	return err
}

// MeInfo describes the authenticated caller.
type MeInfo struct {
	Identity string
	Method   string
	IsOwner  bool
}

// Me returns the caller's identity as the gateway sees it.
func (c *RecordClient) Me(ctx context.Context) (MeInfo, error) {
	out, err := c.invoke(ctx, "Me", nil)
	if err != nil {
		return MeInfo{}, err
	}
	return MeInfo{
		Identity: stringField(out, "identity"),
		Method:   stringField(out, "method"),
		IsOwner:  boolField(out, "is_owner"),
	}, nil
}

// EventQuery filters a ListEvents call. Zero values mean "any".
type EventQuery struct {
	Actor  string
	Kind   string
	Limit  uint64
	Cursor string
}

// EventPage is one page of ledger events.
type EventPage struct {
	Events     []EventView
	NextCursor string
	HasMore    bool
}

// Events reads the persisted event ledger.
func (c *RecordClient) Events(ctx context.Context, q EventQuery) (EventPage, error) {
	fields := map[string]*structpb.Value{
		"actor":  structpb.NewStringValue(q.Actor),
		"kind":   structpb.NewStringValue(q.Kind),
		"cursor": structpb.NewStringValue(q.Cursor),
	}
	if q.Limit > 0 {
		fields["limit"] = uint64Value(q.Limit)
	}
	out, err := c.invoke(ctx, "ListEvents", fields)
	if err != nil {
		return EventPage{}, err
	}

	page := EventPage{
		NextCursor: stringField(out, "next_cursor"),
		HasMore:    boolField(out, "has_more"),
	}
	for _, v := range out.GetFields()["events"].GetListValue().GetValues() {
		ev, err := EventFromStruct(v.GetStructValue())
		if err != nil {
			return EventPage{}, err
		}
		page.Events = append(page.Events, ev)
	}
	return page, nil
}

// EventStream receives live events from StreamEvents.
type EventStream struct {
	stream grpc.ClientStream
}

// Stream subscribes to live events. An empty actor means the caller's own
// events, or every actor's when the caller is the owner. Stream returns once
// the server has confirmed the subscription.
func (c *RecordClient) Stream(ctx context.Context, actor string) (*EventStream, error) {
	stream, err := c.cc.NewStream(ctx, &ServiceDesc.Streams[0], "/"+ServiceName+"/StreamEvents")
	if err != nil {
		return nil, FromStatus(err)
	}
	req := &structpb.Struct{Fields: map[string]*structpb.Value{"actor": structpb.NewStringValue(actor)}}
	if err := stream.SendMsg(req); err != nil {
		return nil, FromStatus(err)
	}
	if err := stream.CloseSend(); err != nil {
		return nil, FromStatus(err)
	}
	md, err := stream.Header()
	if err != nil {
		return nil, FromStatus(err)
	}
	if len(md.Get(SubscriptionHeader)) == 0 {
		// Trailers-only response: the call was rejected before subscribing.
		if err := stream.RecvMsg(new(structpb.Struct)); err != nil && !errors.Is(err, io.EOF) {
			return nil, FromStatus(err)
		}
		return nil, errors.New("event stream closed before subscribing")
	}
	return &EventStream{stream: stream}, nil
}

// Recv blocks for the next event. It returns io.EOF when the server ends the stream.
func (s *EventStream) Recv() (EventView, error) {
	out := new(structpb.Struct)
	if err := s.stream.RecvMsg(out); err != nil {
		if errors.Is(err, io.EOF) {
			return EventView{}, io.EOF
		}
		return EventView{}, FromStatus(err)
	}
	return EventFromStruct(out)
}
