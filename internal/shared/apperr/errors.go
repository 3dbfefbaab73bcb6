// Package apperr defines the error taxonomy shared by every service. Services
// return one of the sentinel kinds (optionally wrapped with a user-facing
// message) and the HTTP layer maps the kind to a status code.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthenticated      = errors.New("unauthenticated")
	ErrForbidden            = errors.New("forbidden")
	ErrNotFound             = errors.New("not found")
	ErrInvalidState         = errors.New("invalid state")
	ErrConflict             = errors.New("conflict")
	ErrValidation           = errors.New("validation error")
	ErrUnsupportedMediaType = errors.New("unsupported media type")
	ErrPayloadTooLarge      = errors.New("payload too large")
	ErrInternal             = errors.New("internal error")
)

// Error carries a kind plus a message that is safe to show to the caller.
type Error struct {
	Kind    error
	Msg     string
	Details any
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return e.Kind.Error() + ": " + e.Msg
}

func (e *Error) Unwrap() error { return e.Kind }

// New returns an error of the given kind with a caller-facing message.
func New(kind error, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

// Newf is New with formatting.
func Newf(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// WithDetails attaches structured details (for example per-field validation issues).
func WithDetails(kind error, msg string, details any) error {
	return &Error{Kind: kind, Msg: msg, Details: details}
}

// Internal wraps an unexpected failure. The cause is kept for logs only.
func Internal(op string, cause error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrInternal, cause)
}

// Message returns the caller-facing message of err, or fallback when err
// carries none.
func Message(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) && e.Msg != "" {
		return e.Msg
	}
	return fallback
}

// DetailsOf returns the structured details attached to err, if any.
func DetailsOf(err error) any {
	var e *Error
	if errors.As(err, &e) {
		return e.Details
	}
	return nil
}
