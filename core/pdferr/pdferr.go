// Package pdferr defines the error taxonomy shared by every pdfcore
// package: a small set of Kinds, not an error value per failure site, so
// callers can branch with errors.Is/errors.As instead of string matching.
package pdferr

import (
	"fmt"

	"golang.org/x/xerrors"
)

// Kind classifies why an operation failed.
type Kind int

const (
	// MalformedSource indicates a lexer failure, unexpected token, bad
	// xref, or bad stream length encountered while parsing a source buffer.
	MalformedSource Kind = iota
	// BrokenReference indicates a reference resolved to an empty or
	// mistyped registry slot.
	BrokenReference
	// FilterError indicates a decode or encode failure in the stream
	// filter pipeline.
	FilterError
	// PlaceholderError indicates a signature placeholder was not found,
	// or the signature exceeded the reserved capacity.
	PlaceholderError
	// InvariantViolation indicates an internal bug, such as attempting
	// to write a free registry slot. Callers should treat it as fatal.
	InvariantViolation
)

func (k Kind) String() string {
	switch k {
	case MalformedSource:
		return "malformed source"
	case BrokenReference:
		return "broken reference"
	case FilterError:
		return "filter error"
	case PlaceholderError:
		return "placeholder error"
	case InvariantViolation:
		return "invariant violation"
	default:
		return "unknown error"
	}
}

// Error is the concrete error type returned across pdfcore's public API.
// It always carries a Kind for programmatic branching in addition to a
// human-readable Message.
type Error struct {
	Kind    Kind
	Message string
	// Offset is the byte offset in the source buffer where the problem
	// was observed. Negative means not applicable.
	Offset int64
	// Filter names the stream filter involved, for Kind == FilterError.
	Filter string
	// Required and Available are populated for Kind == PlaceholderError
	// when a signature exceeds its reserved placeholder width.
	Required, Available int

	cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.Offset >= 0 {
		msg = fmt.Sprintf("%s (offset %d)", msg, e.Offset)
	}
	if e.cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.cause)
	}
	return msg
}

// Unwrap exposes the wrapped cause to errors.Is/errors.As and xerrors.
func (e *Error) Unwrap() error { return e.cause }

// Is reports whether target is an *Error with the same Kind, letting
// callers write errors.Is(err, &pdferr.Error{Kind: pdferr.BrokenReference})
// style checks instead of comparing pointers.
func (e *Error) Is(target error) bool {
	var other *Error
	if xerrors.As(target, &other) {
		return other.Kind == e.Kind
	}
	return false
}

func newErr(kind Kind, offset int64, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Offset: offset}
}

// Malformed builds a MalformedSource error carrying the byte offset at
// which the lexer or xref parser gave up.
func Malformed(offset int64, format string, args ...interface{}) *Error {
	return newErr(MalformedSource, offset, format, args...)
}

// Broken builds a BrokenReference error.
func Broken(format string, args ...interface{}) *Error {
	return newErr(BrokenReference, -1, format, args...)
}

// Filter builds a FilterError for the named filter.
func Filter(filterName string, format string, args ...interface{}) *Error {
	e := newErr(FilterError, -1, format, args...)
	e.Filter = filterName
	return e
}

// Placeholder builds a PlaceholderError.
func Placeholder(format string, args ...interface{}) *Error {
	return newErr(PlaceholderError, -1, format, args...)
}

// PlaceholderTooSmall builds the specific PlaceholderError raised when a
// signature blob does not fit in its reserved Contents placeholder.
func PlaceholderTooSmall(required, available int) *Error {
	e := newErr(PlaceholderError, -1, "signature exceeds reserved placeholder capacity")
	e.Required = required
	e.Available = available
	return e
}

// Invariant builds an InvariantViolation error. Callers should treat
// these as fatal bugs, not recoverable conditions.
func Invariant(format string, args ...interface{}) *Error {
	return newErr(InvariantViolation, -1, format, args...)
}

// Wrap attaches cause to err's chain, in the manner of xerrors.Errorf's
// %w but operating on an already-built *Error so the Kind survives.
func Wrap(err *Error, cause error) *Error {
	err.cause = cause
	return err
}

// Wrapf wraps cause with a MalformedSource error built from format/args,
// mirroring the teacher corpus's xerrors-based Wrapf helpers.
func Wrapf(cause error, format string, args ...interface{}) *Error {
	e := newErr(MalformedSource, -1, format, args...)
	e.cause = cause
	return e
}
