package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrValidation  = errors.New("validation error")
	ErrUnavailable = errors.New("unavailable")
)

type AppError struct {
	Err     error  // sentinel classifying the error
	Message string // safe to show to clients
	Field   string // optional: request field causing the error
	Cause   error  // optional: underlying failure, never shown to clients
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// Unavailable wraps a storage or broker failure. The message names the
// operation that failed; the cause is kept for logs only.
func Unavailable(operation string, cause error) *AppError {
	return &AppError{
		Err:     ErrUnavailable,
		Message: "failed to " + operation,
		Cause:   cause,
	}
}
