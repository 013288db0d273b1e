// Package apperror defines the domain errors shared by services and handlers.
//
// Services return these; handlers translate them into HTTP status codes in
// exactly one place (handler.writeError). Every constructor wraps a sentinel
// so callers can test the category with errors.Is.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("validation error")
	ErrConflict        = errors.New("conflict")
	ErrForbidden       = errors.New("forbidden")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrUpstream        = errors.New("upstream error")

	// ErrQuotaExceeded is a Forbidden error; errors.Is matches both.
	ErrQuotaExceeded = fmt.Errorf("quota exceeded: %w", ErrForbidden)
)

type AppError struct {
	Err     error  // actual error
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

// UserNotFound is returned when an identity is known to the provider but has
// no row in the local user directory yet.
func UserNotFound(externalID string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: "User not found",
		Field:   externalID,
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Unauthenticated means no identity was attached to the request.
func Unauthenticated() *AppError {
	return &AppError{
		Err:     ErrUnauthenticated,
		Message: "Unauthorized",
	}
}

// QuotaExceeded names the monthly limit the caller has used up.
func QuotaExceeded(limit int) *AppError {
	return &AppError{
		Err: ErrQuotaExceeded,
		Message: fmt.Sprintf(
			"You've reached your monthly limit of %d solutions. Upgrade your plan to solve more problems.",
			limit,
		),
	}
}

// Upstream wraps a failure of an external collaborator (the AI provider).
// The cause is kept for logs; the message stays generic.
func Upstream(message string, cause error) *AppError {
	return &AppError{
		Err:     fmt.Errorf("%w: %w", ErrUpstream, cause),
		Message: message,
	}
}

// IsQuotaExceeded reports whether err is a quota rejection.
func IsQuotaExceeded(err error) bool {
	return errors.Is(err, ErrQuotaExceeded)
}
