// Package apperror defines the error taxonomy surfaced across the core:
// client input errors, resource errors, capacity errors and internal
// errors. Transport code maps a Kind to an HTTP status; the core never
// formats HTTP itself.
package apperror

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the transport boundary to map to a status code.
type Kind int

const (
	Internal Kind = iota
	SourceNotFound
	SourceUnsupported
	SourceCorrupt
	BadRequest
	ResourceExhausted
)

func (k Kind) String() string {
	switch k {
	case SourceNotFound:
		return "source_not_found"
	case SourceUnsupported:
		return "source_unsupported"
	case SourceCorrupt:
		return "source_corrupt"
	case BadRequest:
		return "bad_request"
	case ResourceExhausted:
		return "resource_exhausted"
	default:
		return "internal"
	}
}

// Error wraps an underlying error with a Kind and the operation in which it occurred.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error with the given kind, operation label and cause.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Wrap is a convenience for New when the cause is already formatted.
func Wrap(kind Kind, op, msg string) *Error {
	return New(kind, op, errors.New(msg))
}

// KindOf extracts the Kind from err if it (or a wrapped cause) is an *Error.
// Unrecognized errors are treated as Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}
