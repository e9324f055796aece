// Package apperr defines the error taxonomy that crosses the service
// boundary. Every error returned to a client carries a stable
// machine-readable kind; raw store errors never leave the process.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation   Kind = "validation_error"
	KindConflict     Kind = "conflict"
	KindNotFound     Kind = "not_found"
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
	KindInternal     Kind = "internal_error"
)

type Error struct {
	Kind    Kind
	Message string
	Details any
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Validation(msg string) *Error   { return New(KindValidation, msg) }
func Conflict(msg string) *Error     { return New(KindConflict, msg) }
func NotFound(msg string) *Error     { return New(KindNotFound, msg) }
func Unauthorized(msg string) *Error { return New(KindUnauthorized, msg) }
func Forbidden(msg string) *Error    { return New(KindForbidden, msg) }

// Internal wraps an unexpected failure. The cause stays server-side; only
// the generic message is serialized for the client.
func Internal(msg string, cause error) *Error {
	return &Error{Kind: KindInternal, Message: msg, cause: cause}
}

// WithDetails attaches structured details (e.g. field errors) to e.
func (e *Error) WithDetails(d any) *Error {
	e.Details = d
	return e
}

// KindOf reports the kind of err, or KindInternal for anything outside the
// taxonomy.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
