package domain

import (
	"errors"
	"fmt"
)

// Error taxonomy. Every failure surfaced by the client unwraps to one of these.
var (
	ErrValidation = errors.New("validation failed")
	ErrAuth       = errors.New("authentication failed")
	ErrNetwork    = errors.New("network error")
	ErrNotFound   = errors.New("not found")
)

// Session and view-state errors.
var (
	ErrNoSession     = errors.New("no active session")
	ErrLoadInFlight  = errors.New("load already in progress")
	ErrTogglePending = errors.New("toggle already pending")
	ErrViewClosed    = errors.New("view closed")
)

// ValidationError is a client-side, pre-network rejection naming the first failing field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s is invalid", e.Field)
	}
	return e.Message
}

// Is lets errors.Is(err, ErrValidation) match.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError creates a ValidationError for field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// AuthError carries a form-level, human-readable login/register failure.
type AuthError struct {
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	return e.Message
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrAuth) match.
func (e *AuthError) Is(target error) bool {
	return target == ErrAuth
}

// FieldOf returns the failing field of a validation error, or "".
func FieldOf(err error) string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Field
	}
	return ""
}
