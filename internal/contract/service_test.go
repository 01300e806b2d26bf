// ABOUTME: Contract tests for the RecordService surface and its wire error codes
// ABOUTME: Fails when an RPC is renamed or removed, or when an error code changes

package contract

import (
	"fmt"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"

	"github.com/2389/todo-gateway/internal/client"
	"github.com/2389/todo-gateway/internal/records"
)

// expectedMethods is the unary surface of todo.RecordService. Clients built
// against an older gateway must keep working, so entries are only ever added.
var expectedMethods = []string{
	"AddRecord",
	"EditRecord",
	"DeleteRecord",
	"GetRecord",
	"MyRecords",
	"RecordsByUser",
	"CollectionCount",
	"SetCollectionCount",
	"GetOwner",
	"SetOwner",
	"GetPageLimit",
	"SetPageLimit",
	"Me",
	"ListEvents",
}

var expectedStreams = []string{"StreamEvents"}

func TestServiceSurface(t *testing.T) {
	desc := client.ServiceDesc
	assert.Equal(t, "todo.RecordService", desc.ServiceName)
	assert.Equal(t, "todo/records.proto", desc.Metadata)

	actualMethods := make(map[string]bool)
	for _, m := range desc.Methods {
		actualMethods[m.MethodName] = true
	}
	actualStreams := make(map[string]bool)
	for _, s := range desc.Streams {
		actualStreams[s.StreamName] = true
		assert.True(t, s.ServerStreams, "stream %s should be server-streaming", s.StreamName)
		assert.False(t, s.ClientStreams, "stream %s should not be client-streaming", s.StreamName)
	}

	for _, method := range expectedMethods {
		assert.True(t, actualMethods[method],
			"method %s should exist", fmt.Sprintf("/%s/%s", desc.ServiceName, method))
	}
	for _, stream := range expectedStreams {
		assert.True(t, actualStreams[stream],
			"stream %s should exist", fmt.Sprintf("/%s/%s", desc.ServiceName, stream))
	}

	// Report any extra endpoints not in contract (informational, not failure)
	for method := range actualMethods {
		if !slices.Contains(expectedMethods, method) {
			t.Logf("INFO: extra method %s/%s not in contract (consider adding)", desc.ServiceName, method)
		}
	}
	for stream := range actualStreams {
		if !slices.Contains(expectedStreams, stream) {
			t.Logf("INFO: extra stream %s/%s not in contract (consider adding)", desc.ServiceName, stream)
		}
	}
}

// TestErrorCodes pins the string code and gRPC status of every store error.
// Both appear on the wire: the code in ErrorInfo details and HTTP bodies.
func TestErrorCodes(t *testing.T) {
	tests := []struct {
		err      error
		code     string
		grpcCode codes.Code
	}{
		{records.ErrUnauthorized, "unauthorized", codes.PermissionDenied},
		{records.ErrInvalidArgument, "invalid_argument", codes.InvalidArgument},
		{records.ErrEmptyCollection, "empty_collection", codes.FailedPrecondition},
		{records.ErrNotFound, "not_found", codes.NotFound},
		{records.ErrInvalidRange, "invalid_range", codes.InvalidArgument},
		{records.ErrRangeExceedsCollection, "range_exceeds_collection", codes.OutOfRange},
		{records.ErrPageTooLarge, "page_too_large", codes.InvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.code, records.ErrorCode(tt.err))
			assert.Equal(t, tt.err, records.ErrorFromCode(tt.code))
			assert.Equal(t, tt.grpcCode, client.GRPCCode(tt.err))
		})
	}
}

// TestEventKinds pins the event kind names shared by the feed, the ledger,
// and the SSE event names.
func TestEventKinds(t *testing.T) {
	assert.Equal(t, records.EventKind("record_added"), records.EventRecordAdded)
	assert.Equal(t, records.EventKind("record_edited"), records.EventRecordEdited)
	assert.Equal(t, records.EventKind("record_deleted"), records.EventRecordDeleted)
}
