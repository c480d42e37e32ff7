package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
)

// Kind classifies an error for the HTTP layer.
type Kind string

const (
	KindValidation     Kind = "validation"
	KindAuthentication Kind = "authentication"
	KindAuthorization  Kind = "authorization"
	KindNotFound       Kind = "not_found"
	KindConflict       Kind = "conflict"
	KindRateLimited    Kind = "rate_limited"
	KindUpstream       Kind = "upstream"
	KindInternal       Kind = "internal"
)

// Error is the single error type surfaced by services and handlers.
//
// Operational errors are expected failures whose Message is safe to show to
// the caller. Anything else is treated as a programming or infrastructure
// fault and must never leak its details in production.
type Error struct {
	Kind        Kind
	Message     string
	Status      int
	Field       string
	Operational bool
	Err         error
	Stack       []byte
}

func (e *Error) Error() string {
	if e.Err != nil {
		if e.Message == "" {
			return e.Err.Error()
		}
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// WithStatus returns a copy of e answering with a different HTTP status.
func (e *Error) WithStatus(status int) *Error {
	cp := *e
	cp.Status = status
	return &cp
}

// Wrap returns a copy of e that records err as its cause.
func (e *Error) Wrap(err error) *Error {
	cp := *e
	cp.Err = err
	return &cp
}

func operational(kind Kind, status int, message string) *Error {
	return &Error{
		Kind:        kind,
		Message:     message,
		Status:      status,
		Operational: true,
	}
}

// Validation reports bad input shape or a violated constraint.
func Validation(format string, args ...any) *Error {
	return operational(KindValidation, http.StatusBadRequest, fmt.Sprintf(format, args...))
}

// Authentication reports a missing, invalid, expired or stale credential.
func Authentication(message string) *Error {
	return operational(KindAuthentication, http.StatusUnauthorized, message)
}

// Forbidden reports an authenticated caller without the required role.
func Forbidden(message string) *Error {
	return operational(KindAuthorization, http.StatusForbidden, message)
}

// NotFound reports an absent resource.
func NotFound(format string, args ...any) *Error {
	return operational(KindNotFound, http.StatusNotFound, fmt.Sprintf(format, args...))
}

// Conflict reports a uniqueness violation on field.
func Conflict(field, message string) *Error {
	e := operational(KindConflict, http.StatusBadRequest, message)
	e.Field = field
	return e
}

// RateLimited reports a caller over its request budget.
func RateLimited(message string) *Error {
	return operational(KindRateLimited, http.StatusTooManyRequests, message)
}

// Upstream reports a failed call to an external collaborator (mail, payments).
// The message is shown to the caller; err is only logged.
func Upstream(message string, err error) *Error {
	e := operational(KindUpstream, http.StatusInternalServerError, message)
	e.Err = err
	return e
}

// Internal wraps an unexpected error. It is never operational.
func Internal(err error) *Error {
	return &Error{
		Kind:   KindInternal,
		Status: http.StatusInternalServerError,
		Err:    err,
		Stack:  debug.Stack(),
	}
}

// From converts any error into an *Error, wrapping unknown errors as Internal.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}

// KindOf returns the Kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
