package usecase

import "fmt"

type ErrorCode string

const (
	ErrorInvalidInput    ErrorCode = "INVALID_INPUT"
	ErrorUpstreamConfig  ErrorCode = "UPSTREAM_CONFIG_ERROR"
	ErrorUpstreamRequest ErrorCode = "UPSTREAM_REQUEST_ERROR"
	ErrorInternal        ErrorCode = "INTERNAL_ERROR"
)

// Error is returned by every service in this package. Status is the upstream
// HTTP status for ErrorUpstreamRequest and 0 when the call never got an
// answer. Detail is either a json.RawMessage or a string.
type Error struct {
	Code   ErrorCode
	Reason string
	Status int
	Detail any
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("usecase: %s (%s)", e.Code, e.Reason)
	}
	return fmt.Sprintf("usecase: %s (%s): %v", e.Code, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newError(code ErrorCode, reason string, err error) *Error {
	return &Error{Code: code, Reason: reason, Err: err}
}
