package models

import "errors"

// Recoverable cycle error kinds. Adapters wrap their failures with one of these.
var (
	ErrFeedTransient = errors.New("feed transient error")
	ErrFeedTimeout   = errors.New("feed fetch timed out")
	ErrMissingField  = errors.New("missing expected field")
)

// ErrorKind returns a short label for metrics and logs.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrFeedTimeout):
		return "timeout"
	case errors.Is(err, ErrMissingField):
		return "missing_field"
	case errors.Is(err, ErrFeedTransient):
		return "transient"
	default:
		return "unknown"
	}
}
