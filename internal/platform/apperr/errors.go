// Package apperr defines the error kinds shared by the learning core and the
// HTTP boundary. Kinds are matched with errors.Is.
package apperr

import (
	"errors"
	"fmt"
)

// Base kinds.
var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrValidation   = errors.New("validation failed")
	ErrConflict     = errors.New("conflict")
)

// Error carries the domain and operation that produced a failure.
type Error struct {
	Domain  string // e.g. "catalog", "grading"
	Op      string
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

func (e *Error) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is reports whether target matches the kind or the wrapped error.
func (e *Error) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	return e.Err != nil && errors.Is(e.Err, target)
}

// New creates an Error of the given kind.
func New(domain, op string, kind error, message string) *Error {
	return &Error{Domain: domain, Op: op, Kind: kind, Message: message}
}

// NotFound reports a missing entity, e.g. NotFound("catalog", "GetLesson", "lesson").
func NotFound(domain, op, entity string) *Error {
	return New(domain, op, ErrNotFound, entity+" not found")
}

// Validation reports a client error.
func Validation(domain, op, message string) *Error {
	return New(domain, op, ErrValidation, message)
}

// Unauthorized reports a missing identity.
func Unauthorized(domain, op string) *Error {
	return New(domain, op, ErrUnauthorized, "authentication required")
}

func IsNotFound(err error) bool     { return errors.Is(err, ErrNotFound) }
func IsUnauthorized(err error) bool { return errors.Is(err, ErrUnauthorized) }
func IsForbidden(err error) bool    { return errors.Is(err, ErrForbidden) }
func IsValidation(err error) bool   { return errors.Is(err, ErrValidation) }

// Message returns the human readable message of an *Error, or err.Error().
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
