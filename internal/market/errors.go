package market

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures surfaced to callers of the service.
type ErrorKind string

const (
	KindValidation       ErrorKind = "validation"
	KindNotFound         ErrorKind = "not_found"
	KindInvalidParameter ErrorKind = "invalid_parameter"
	KindUpstream         ErrorKind = "upstream_failure"
	KindUnexpected       ErrorKind = "unexpected"
)

// ErrMarketNotFound is returned by repositories for unknown ids.
var ErrMarketNotFound = errors.New("market not found")

// Error is a classified service error. Message is safe to show to clients;
// Err carries the underlying cause for logs.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func validationError(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func wrapError(kind ErrorKind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of a service error, or KindUnexpected for anything
// unclassified.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnexpected
}

// PublicMessage is the client-facing text for err. Unexpected failures never
// leak their cause.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindUnexpected {
		return e.Message
	}
	return "internal error"
}
