package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors used across all layers.
var (
	// ErrNotFound means the target record no longer exists, either locally
	// or on the registry server.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized means the session credential is missing, invalid, or
	// expired. Observing it anywhere forces a logout.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrUnavailable means a network or server fault. Retryable by user
	// action, never automatically.
	ErrUnavailable = errors.New("registry unavailable")

	// ErrRejected means the registry server refused the payload
	// (server-side validation, e.g. a duplicate unique field).
	ErrRejected = errors.New("rejected by registry")

	// ErrConflict means a local uniqueness violation (duplicate
	// populationId) detected before any network call.
	ErrConflict = errors.New("conflict")

	// ErrValidation means local field checks failed; the request never
	// reached the network.
	ErrValidation = errors.New("validation error")
)

// FieldError describes a validation error for a specific field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError contains a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation: %s — %s", e.Errors[0].Field, e.Errors[0].Message)
	}
	return fmt.Sprintf("validation: %d errors", len(e.Errors))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError creates a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Errors: []FieldError{{Field: field, Message: message}},
	}
}

// NewValidationErrors creates a ValidationError from multiple field errors.
func NewValidationErrors(errs []FieldError) *ValidationError {
	return &ValidationError{Errors: errs}
}
