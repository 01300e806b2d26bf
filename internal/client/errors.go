// ABOUTME: Mapping between record store errors and gRPC statuses
// ABOUTME: The stable error code rides in an ErrorInfo detail so clients can recover the sentinel

package client

import (
	"errors"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/2389/todo-gateway/internal/records"
)

// ErrorDomain identifies ErrorInfo details produced by this service.
const ErrorDomain = "todo-gateway"

// GRPCCode returns the status code for a record store error.
func GRPCCode(err error) codes.Code {
	switch {
	case errors.Is(err, records.ErrUnauthorized):
		return codes.PermissionDenied
	case errors.Is(err, records.ErrInvalidArgument),
		errors.Is(err, records.ErrInvalidRange),
		errors.Is(err, records.ErrPageTooLarge):
		return codes.InvalidArgument
	case errors.Is(err, records.ErrEmptyCollection):
		return codes.FailedPrecondition
	case errors.Is(err, records.ErrNotFound):
		return codes.NotFound
	case errors.Is(err, records.ErrRangeExceedsCollection):
		return codes.OutOfRange
	default:
		return codes.Internal
	}
}

// toStatus converts a store error into a gRPC status error.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	code := records.ErrorCode(err)
	if code == "" {
		return status.Error(codes.Internal, err.Error())
	}
	st := status.New(GRPCCode(err), err.Error())
	if withInfo, derr := st.WithDetails(&errdetails.ErrorInfo{Reason: code, Domain: ErrorDomain}); derr == nil {
		st = withInfo
	}
	return st.Err()
}

// FromStatus recovers the record store sentinel from a status error returned
// by RecordService, wrapped with the server's message. Other errors are
// returned unchanged.
func FromStatus(err error) error {
	st, ok := status.FromError(err)
	if !ok || st == nil {
		return err
	}
	for _, d := range st.Details() {
		info, ok := d.(*errdetails.ErrorInfo)
		if !ok || info.GetDomain() != ErrorDomain {
			continue
		}
		if sentinel := records.ErrorFromCode(info.GetReason()); sentinel != nil {
			return &remoteError{msg: st.Message(), sentinel: sentinel}
		}
	}
	return err
}

// remoteError keeps the server's message while matching the sentinel.
type remoteError struct {
	msg      string
	sentinel error
}

func (e *remoteError) Error() string { return e.msg }
func (e *remoteError) Unwrap() error { return e.sentinel }
