// Package coreerr defines the closed error taxonomy used across the
// availability and booking core. Every component returns one of these
// kinds rather than an ad-hoc error string, so the HTTP layer can map
// failures to status codes without inspecting message text.
package coreerr

import (
	"errors"
	"fmt"
)

// Kind identifies the category of failure.
type Kind string

const (
	BadInput Kind = "BAD_INPUT"
	NotFound Kind = "NOT_FOUND"
	Overlap  Kind = "OVERLAP"
	SlotTaken Kind = "SLOT_TAKEN"
	Busy     Kind = "BUSY"
	Deadline Kind = "DEADLINE"
	Infra    Kind = "INFRA"
	Internal Kind = "INTERNAL"
)

// Error wraps a Kind with a human message and an optional underlying cause.
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

// New builds an Error with no underlying cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf builds an Error with a formatted message.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a Kind and message to an underlying error.
func Wrap(kind Kind, err error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// As extracts a *Error from err, if present anywhere in its chain.
func As(err error) (*Error, bool) {
	var ce *Error
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// KindOf returns the Kind of err if it is (or wraps) an *Error, else Internal.
func KindOf(err error) Kind {
	if ce, ok := As(err); ok {
		return ce.Kind
	}
	return Internal
}
