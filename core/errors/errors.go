// Package errors provides the error taxonomy shared by the GEDCOM engine and
// the date system.
//
// Input noise (a malformed line, an unreadable date) is absorbed by the
// pipeline and never surfaces here. The types below describe the failures
// that do reach a caller: structural I/O failures and domain-invariant
// violations such as rendering an out-of-range month.
package errors

import (
	"errors"
	"fmt"
)

// Sentinels matched with errors.Is.
var (
	// ErrNotFound: an unregistered calendar id or ordinal, a missing person.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput: text or values that break a domain rule.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnsupported: arithmetic the value cannot support.
	ErrUnsupported = errors.New("unsupported")
)

// causeOr returns cause when set and base otherwise, so typed errors match
// their sentinel unless they wrap something more specific.
func causeOr(cause, base error) error {
	if cause != nil {
		return cause
	}
	return base
}

// NotFoundError is a failed registry or collection lookup.
type NotFoundError struct {
	Resource string // "calendar", "person", "source"
	ID       string
	Err      error
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return e.Resource + " not found"
	}
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

func (e *NotFoundError) Unwrap() error { return causeOr(e.Err, ErrNotFound) }

// ValidationError is a value that violates a domain invariant, such as a
// month outside its calendar or a UID of the wrong size.
type ValidationError struct {
	Field   string
	Value   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return causeOr(e.Err, ErrInvalidInput) }

// IOError is a file or database operation that failed.
type IOError struct {
	Operation string // "open", "read", "write", "create"
	Path      string
	Err       error
}

func (e *IOError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("failed to %s: %v", e.Operation, e.Err)
	}
	return fmt.Sprintf("failed to %s %s: %v", e.Operation, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// ParseError is text that could not be read as a GEDCOM line, a date or a
// UID.
type ParseError struct {
	Format  string // "GEDCOM line", "date", "UID"
	Line    int    // 1-based; 0 when the text is not from a file
	Input   string
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	switch {
	case e.Line > 0:
		return fmt.Sprintf("failed to parse %s at line %d: %s", e.Format, e.Line, e.Message)
	case e.Input != "":
		return fmt.Sprintf("failed to parse %s %q: %s", e.Format, e.Input, e.Message)
	default:
		return fmt.Sprintf("failed to parse %s: %s", e.Format, e.Message)
	}
}

func (e *ParseError) Unwrap() error { return causeOr(e.Err, ErrInvalidInput) }

// UnsupportedError is an operation the value cannot support, such as
// calendar arithmetic on a partial date.
type UnsupportedError struct {
	Feature string
	Reason  string
	Err     error
}

func (e *UnsupportedError) Error() string {
	if e.Reason == "" {
		return "unsupported " + e.Feature
	}
	return fmt.Sprintf("unsupported %s: %s", e.Feature, e.Reason)
}

func (e *UnsupportedError) Unwrap() error { return causeOr(e.Err, ErrUnsupported) }

// NewNotFound reports a missing resource.
func NewNotFound(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// NewValidation reports a value that breaks a rule on field.
func NewValidation(field, value, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// NewIO reports a failed operation on path.
func NewIO(operation, path string, err error) *IOError {
	return &IOError{Operation: operation, Path: path, Err: err}
}

// NewParse reports input that format could not read. Set Line or Err on the
// result when they are known.
func NewParse(format, input, message string) *ParseError {
	return &ParseError{Format: format, Input: input, Message: message}
}

// NewUnsupported reports an unsupported feature.
func NewUnsupported(feature, reason string) *UnsupportedError {
	return &UnsupportedError{Feature: feature, Reason: reason}
}

// Wrap adds context to err. A nil err stays nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf is Wrap with a formatted message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}
