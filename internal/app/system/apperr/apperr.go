// Package apperr defines the error kinds that action handlers return.
//
// Every kind renders to a human-readable message in the response envelope;
// Kind is the parallel machine-readable tag.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an application error.
type Kind string

const (
	KindValidation    Kind = "validation"
	KindNotFound      Kind = "not_found"
	KindAuthorization Kind = "authorization"
	KindConflict      Kind = "conflict"
	KindExpired       Kind = "expired"
	KindUpstream      Kind = "upstream"
	KindInternal      Kind = "internal"
)

// Error is a user-facing error. Data, when set, is returned alongside the
// message (used for non-fatal conflict payloads the client acts on).
type Error struct {
	Kind    Kind
	Message string
	Data    any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches an *Error of the same kind. An empty target message matches
// any message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

func newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Validation reports malformed or missing input.
func Validation(format string, args ...any) *Error { return newf(KindValidation, format, args...) }

// NotFound reports a referenced entity that does not exist.
func NotFound(format string, args ...any) *Error { return newf(KindNotFound, format, args...) }

// Authorization reports an authenticated caller that is not permitted.
func Authorization(format string, args ...any) *Error {
	return newf(KindAuthorization, format, args...)
}

// Conflict reports a violated state-machine precondition.
func Conflict(format string, args ...any) *Error { return newf(KindConflict, format, args...) }

// Expired reports a time-bound resource that has lapsed.
func Expired(format string, args ...any) *Error { return newf(KindExpired, format, args...) }

// Upstream wraps a failure of the external metadata source.
func Upstream(err error, format string, args ...any) *Error {
	e := newf(KindUpstream, format, args...)
	e.Err = err
	return e
}

// WithData attaches a payload to the error and returns it.
func (e *Error) WithData(data any) *Error {
	e.Data = data
	return e
}

// As returns the *Error in err's chain, if any.
func As(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// KindOf returns the kind of err, or KindInternal for anything that is not
// an *Error.
func KindOf(err error) Kind {
	if ae, ok := As(err); ok {
		return ae.Kind
	}
	return KindInternal
}
