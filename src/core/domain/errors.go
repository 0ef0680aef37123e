package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by services, stores and the HTTP layer.
// Grading and transition problems are never errors; see Session.
var (
	// ErrNotFound is returned when a session or profile does not exist.
	ErrNotFound = errors.New("resource not found")

	// ErrAlreadyExists is returned when registering a profile that is already present.
	ErrAlreadyExists = errors.New("resource already exists")

	// ErrInvalidInput is returned when request validation fails.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized is returned when a player identity is required but missing.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden is returned when a player touches a session hosted for someone else.
	ErrForbidden = errors.New("forbidden")

	// ErrConflict is returned when a profile write lost every compare-and-swap attempt.
	ErrConflict = errors.New("conflict")
)

// DomainError wraps a base error with additional context.
type DomainError struct {
	// Base is the underlying sentinel (e.g., ErrNotFound)
	Base error

	// Message provides human-readable context
	Message string

	// Field indicates which field caused the error (for validation errors)
	Field string
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field: %s)", e.Base.Error(), e.Message, e.Field)
	}
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Base.Error(), e.Message)
	}
	return e.Base.Error()
}

// Unwrap returns the base error for errors.Is/As support.
func (e *DomainError) Unwrap() error {
	return e.Base
}

// NewNotFoundError creates a not found error naming the missing resource.
func NewNotFoundError(resource string) *DomainError {
	return &DomainError{Base: ErrNotFound, Message: resource}
}

// NewAlreadyExistsError creates an already-exists error naming the resource.
func NewAlreadyExistsError(resource string) *DomainError {
	return &DomainError{Base: ErrAlreadyExists, Message: resource}
}

// NewValidationError creates a validation error for a specific field.
func NewValidationError(field, message string) *DomainError {
	return &DomainError{Base: ErrInvalidInput, Message: message, Field: field}
}

// NewConflictError creates a conflict error with context.
func NewConflictError(message string) *DomainError {
	return &DomainError{Base: ErrConflict, Message: message}
}

// NewForbiddenError creates a forbidden error with context.
func NewForbiddenError(message string) *DomainError {
	return &DomainError{Base: ErrForbidden, Message: message}
}

// NewUnauthorizedError creates an unauthorized error with context.
func NewUnauthorizedError(message string) *DomainError {
	return &DomainError{Base: ErrUnauthorized, Message: message}
}

// IsNotFound reports whether err is a missing session or profile.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists reports whether err is a duplicate profile.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidationError reports whether err is an invalid request field.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsConflict reports whether err is a lost race on concurrently updated state.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsForbidden reports whether err is an access to another player's session.
func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden)
}

// IsUnauthorized reports whether err is a request without a player id.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}
