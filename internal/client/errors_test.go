// ABOUTME: Tests for record error to gRPC status mapping
// ABOUTME: Covers codes, ErrorInfo details, and sentinel recovery on the client side

package client

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/2389/todo-gateway/internal/records"
)

func TestGRPCCode(t *testing.T) {
	tests := []struct {
		err  error
		want codes.Code
	}{
		{records.ErrUnauthorized, codes.PermissionDenied},
		{records.ErrInvalidArgument, codes.InvalidArgument},
		{records.ErrEmptyCollection, codes.FailedPrecondition},
		{records.ErrNotFound, codes.NotFound},
		{records.ErrInvalidRange, codes.InvalidArgument},
		{records.ErrRangeExceedsCollection, codes.OutOfRange},
		{records.ErrPageTooLarge, codes.InvalidArgument},
		{fmt.Errorf("edit record 3: %w", records.ErrNotFound), codes.NotFound},
		{errors.New("other"), codes.Internal},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, GRPCCode(tt.err))
		})
	}
}

func TestToStatus_AttachesErrorInfo(t *testing.T) {
	err := toStatus(fmt.Errorf("span 9 over limit 2: %w", records.ErrPageTooLarge))

	st, ok := status.FromError(err)
	require.True(t, ok)
	assert.Equal(t, codes.InvalidArgument, st.Code())
	assert.Contains(t, st.Message(), "span 9 over limit 2")

	require.Len(t, st.Details(), 1)
	info, ok := st.Details()[0].(*errdetails.ErrorInfo)
	require.True(t, ok)
	assert.Equal(t, ErrorDomain, info.GetDomain())
	assert.Equal(t, records.ErrorCode(records.ErrPageTooLarge), info.GetReason())
}

func TestToStatus_PassThrough(t *testing.T) {
	assert.NoError(t, toStatus(nil))

	orig := status.Error(codes.Unavailable, "down")
	assert.Equal(t, orig, toStatus(orig))

	assert.Equal(t, codes.Internal, status.Code(toStatus(errors.New("boom"))))
}

func TestFromStatus_RoundTrip(t *testing.T) {
	for _, sentinel := range []error{
		records.ErrUnauthorized,
		records.ErrInvalidArgument,
		records.ErrEmptyCollection,
		records.ErrNotFound,
		records.ErrInvalidRange,
		records.ErrRangeExceedsCollection,
		records.ErrPageTooLarge,
	} {
		t.Run(sentinel.Error(), func(t *testing.T) {
			err := FromStatus(toStatus(fmt.Errorf("ctx: %w", sentinel)))
			assert.ErrorIs(t, err, sentinel)
			assert.Equal(t, "ctx: "+sentinel.Error(), err.Error())
		})
	}
}

func TestFromStatus_Unrecognized(t *testing.T) {
	plain := errors.New("not a status")
	assert.Equal(t, plain, FromStatus(plain))

	noDetails := status.Error(codes.NotFound, "gone")
	assert.Equal(t, noDetails, FromStatus(noDetails))

	st, err := status.New(codes.NotFound, "foreign").WithDetails(&errdetails.ErrorInfo{Domain: "elsewhere", Reason: "not_found"})
	require.NoError(t, err)
	foreign := st.Err()
	assert.NotErrorIs(t, FromStatus(foreign), records.ErrNotFound)
}
