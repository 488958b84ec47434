// Package apperror defines the error categories the API distinguishes.
//
// Stores and services return *AppError values wrapping one of the sentinels
// below. The handler layer maps the sentinel to an HTTP status and sends
// Message as the response "detail", so Message must be safe to show a user.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation failed")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrUnavailable  = errors.New("unavailable")
)

type AppError struct {
	Err     error  // sentinel, possibly joined with a cause
	Message string // shown to the client
	Field   string // request field at fault, validation only
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound reports a missing record, e.g. NotFound("project", id).
func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s %s not found", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// Conflict reports a unique constraint hit, e.g. a second membership row for
// the same (project, user).
func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s %s already exists", resource, id),
	}
}

// Forbidden means the caller is known but may not do this.
func Forbidden(message string) *AppError {
	return &AppError{Err: ErrForbidden, Message: message}
}

// Unauthorized means the caller did not prove who they are.
func Unauthorized(message string) *AppError {
	return &AppError{Err: ErrUnauthorized, Message: message}
}

// Unavailable wraps a failure of a dependency the request cannot proceed
// without (database, GitHub, Clerk). cause is kept for logging and errors.Is
// but never shown to the client.
func Unavailable(message string, cause error) *AppError {
	return &AppError{
		Err:     errors.Join(ErrUnavailable, cause),
		Message: message,
	}
}
