// Package apperr defines the stable, machine-readable failure kinds that
// cross the core boundary. Callers branch on the kind, never on internal
// error types.
package apperr

import (
	"errors"
	"fmt"
)

// Kind is a stable error code suitable for API responses.
type Kind string

const (
	// KindNotFound means geocoding or parcel lookup produced nothing usable.
	KindNotFound Kind = "NOT_FOUND"
	// KindInvalidInput means a request failed validation before any
	// computation ran.
	KindInvalidInput Kind = "INVALID_INPUT"
	// KindInvalidSetbacks means the requested setbacks collapse the
	// buildable envelope to a non-positive dimension.
	KindInvalidSetbacks Kind = "INVALID_SETBACKS"
	// KindUpstreamUnavailable means a single external source failed. Inside
	// the resolver this degrades to an empty contribution; it escalates only
	// when no usable attribute set can be merged at all.
	KindUpstreamUnavailable Kind = "UPSTREAM_UNAVAILABLE"
	// KindParcelNotFound means the mass solver was invoked on a parcel that
	// has no resolved area or use zone.
	KindParcelNotFound Kind = "PARCEL_NOT_FOUND"
)

// Error carries a kind plus a human-readable message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates an Error with the given kind and message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap attaches a kind and message to an underlying error.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of the first *Error in the chain, or "" if none.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}

// MessageOf returns the human message of the first *Error in the chain,
// falling back to err.Error().
func MessageOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Message
	}
	if err != nil {
		return err.Error()
	}
	return ""
}
