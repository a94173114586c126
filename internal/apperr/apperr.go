// Package apperr defines the error kinds that domain logic reports to the
// HTTP layer.  Handlers switch on Kind to choose a status code; they never
// inspect persistence errors directly.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind int

const (
	KindInternal        Kind = iota // persistence failure or unexpected error
	KindValidation                  // payload failed field rules; Fields is populated
	KindInvalidInput                // a single field check failed (title, rating, ...)
	KindMalformedID                 // identifier cannot be parsed
	KindNotFound                    // identifier parsed but nothing matched
	KindForbidden                   // authenticated but not allowed
	KindUnauthenticated             // no or invalid credentials
	KindConflict                    // uniqueness violation
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindInvalidInput:
		return "invalid_input"
	case KindMalformedID:
		return "malformed_id"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// Error is the concrete error returned by the service layer.
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, msg string) *Error { return &Error{Kind: kind, Message: msg} }

func Validation(msg string, fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: msg, Fields: fields}
}

func InvalidInput(msg string) *Error { return New(KindInvalidInput, msg) }
func MalformedID(msg string) *Error  { return New(KindMalformedID, msg) }
func NotFound(msg string) *Error     { return New(KindNotFound, msg) }
func Forbidden(msg string) *Error    { return New(KindForbidden, msg) }
func Conflict(msg string) *Error     { return New(KindConflict, msg) }

func Unauthenticated(msg string) *Error { return New(KindUnauthenticated, msg) }

// Internal wraps a cause that must not reach the client.
func Internal(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}

// KindOf reports the kind of err; anything that is not an *Error is internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
