// Package apperr defines the error taxonomy shared by the persistence core.
// Handlers dispatch on these sentinels with errors.Is to pick a response code.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound marks a tenant or entity that does not exist or is not active.
	ErrNotFound = errors.New("not found")

	// ErrValidation marks malformed input; never retried.
	ErrValidation = errors.New("validation failed")

	// ErrConflict marks a write against a stale entity version.
	ErrConflict = errors.New("version conflict")

	// ErrConnection marks an unreachable store; retryable by the caller.
	ErrConnection = errors.New("store unreachable")

	// ErrNotification marks a failed event fan-out. Always logged and
	// swallowed: the originating mutation has already committed.
	ErrNotification = errors.New("notification failed")
)

// NotFoundf wraps ErrNotFound with context.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrNotFound)
}

// Validationf wraps ErrValidation with context.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrValidation)
}

// Conflictf wraps ErrConflict with context.
func Conflictf(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrConflict)
}

// Connectionf wraps ErrConnection with context.
func Connectionf(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrConnection)
}

// Code returns a short machine-readable code for an error, used in batch
// item results and JSON error payloads.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrValidation):
		return "validation_error"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrConnection):
		return "connection_error"
	case errors.Is(err, ErrNotification):
		return "notification_error"
	default:
		return "internal_error"
	}
}
