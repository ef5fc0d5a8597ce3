// Package apperr defines the error taxonomy shared by the core packages.
// Services and the token layer return *Error values tagged with a Kind; the
// HTTP boundary maps each Kind to a status code through a single table.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the transport boundary.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindAuthentication
	KindTokenExpired
	KindAuthorization
	KindNotFound
	KindRateLimit
	KindConfiguration
)

var kindNames = map[Kind]string{
	KindInternal:       "internal_error",
	KindValidation:     "validation_error",
	KindConflict:       "conflict",
	KindAuthentication: "unauthorized",
	KindTokenExpired:   "token_expired",
	KindAuthorization:  "forbidden",
	KindNotFound:       "not_found",
	KindRateLimit:      "too_many_requests",
	KindConfiguration:  "configuration_error",
}

// String returns the wire code of the kind (e.g. "not_found").
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return kindNames[KindInternal]
}

// Error is a classified error. Message is safe to show to a client; Err holds
// the underlying cause for logs only.
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates an error of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Wrap attaches a kind and client-safe message to cause.
func Wrap(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Err: cause}
}

// Validation builds a validation error carrying per-field detail.
func Validation(fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: "validation failed", Fields: fields}
}

// Internal wraps an unexpected failure. The message never carries detail.
func Internal(cause error) *Error {
	return &Error{Kind: KindInternal, Message: "internal server error", Err: cause}
}

// KindOf reports the kind of err. Errors that are not *Error are internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
