// ABOUTME: Sentinel errors returned by the record store
// ABOUTME: Every failure is a precondition rejection with no side effects

package records

import "errors"

var (
	// ErrUnauthorized is returned when the caller is not the owner for an owner-only operation.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidArgument is returned for malformed input such as the zero identity.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrEmptyCollection is returned when the caller's collection count is zero.
	ErrEmptyCollection = errors.New("empty collection")

	// ErrNotFound is returned when a record id is absent or was deleted.
	ErrNotFound = errors.New("record not found")

	// ErrInvalidRange is returned when a range read has start >= end.
	ErrInvalidRange = errors.New("invalid range")

	// ErrRangeExceedsCollection is returned when a range read ends beyond the collection count.
	ErrRangeExceedsCollection = errors.New("range exceeds collection")

	// ErrPageTooLarge is returned when a range read spans more records than the page limit.
	ErrPageTooLarge = errors.New("page too large")
)

// ErrorCode returns the stable wire code for a store error, or "" if err is
// not one of the store's sentinels.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, ErrEmptyCollection):
		return "empty_collection"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidRange):
		return "invalid_range"
	case errors.Is(err, ErrRangeExceedsCollection):
		return "range_exceeds_collection"
	case errors.Is(err, ErrPageTooLarge):
		return "page_too_large"
	default:
		return ""
	}
}

// ErrorFromCode maps a wire code back to its sentinel. Unknown codes return nil.
func ErrorFromCode(code string) error {
	switch code {
	case "unauthorized":
		return ErrUnauthorized
	case "invalid_argument":
		return ErrInvalidArgument
	case "empty_collection":
		return ErrEmptyCollection
	case "not_found":
		return ErrNotFound
	case "invalid_range":
		return ErrInvalidRange
	case "range_exceeds_collection":
		return ErrRangeExceedsCollection
	case "page_too_large":
		return ErrPageTooLarge
	default:
		return nil
	}
}
