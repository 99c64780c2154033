// Package apperrors provides structured errors that carry the HTTP status a
// handler should answer with.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType is the category of a failure.
type ErrorType string

const (
	TypeValidation      ErrorType = "validation"
	TypeUnauthenticated ErrorType = "unauthenticated"
	TypeForbidden       ErrorType = "forbidden"
	TypeNotFound        ErrorType = "not_found"
	TypeConflict        ErrorType = "conflict"
	TypeRateLimited     ErrorType = "rate_limited"
	TypeExternal        ErrorType = "external"
	TypeInternal        ErrorType = "internal"
)

// Error is a failure with a type, a client-facing message and an optional cause.
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]any
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// HTTPStatus returns the status code for the error type.
func (e *Error) HTTPStatus() int {
	switch e.Type {
	case TypeValidation:
		return http.StatusBadRequest
	case TypeUnauthenticated:
		return http.StatusUnauthorized
	case TypeForbidden:
		return http.StatusForbidden
	case TypeNotFound:
		return http.StatusNotFound
	case TypeConflict:
		return http.StatusConflict
	case TypeRateLimited:
		return http.StatusTooManyRequests
	default:
		// external failures are reported as 500 as well; the message tells them apart.
		return http.StatusInternalServerError
	}
}

func newError(t ErrorType, message string, cause error) *Error {
	return &Error{Type: t, Message: message, Cause: cause, Context: make(map[string]any)}
}

// Validation creates a malformed-input error (400).
func Validation(message string) *Error { return newError(TypeValidation, message, nil) }

// Unauthenticated creates a missing-credential error (401).
func Unauthenticated(message string) *Error { return newError(TypeUnauthenticated, message, nil) }

// Forbidden creates an invalid-credential or missing-permission error (403).
func Forbidden(message string) *Error { return newError(TypeForbidden, message, nil) }

// NotFound creates a missing-row error (404). Rows owned by another user are reported the same way.
func NotFound(message string) *Error { return newError(TypeNotFound, message, nil) }

// Conflict creates a duplicate-key error (409).
func Conflict(message string) *Error { return newError(TypeConflict, message, nil) }

// RateLimited creates a throttling error (429).
func RateLimited(message string) *Error { return newError(TypeRateLimited, message, nil) }

// External creates a third-party failure (500).
func External(message string, cause error) *Error { return newError(TypeExternal, message, cause) }

// Internal creates an unexpected failure (500).
func Internal(message string, cause error) *Error { return newError(TypeInternal, message, cause) }

// WithField attaches a context value (chainable).
func (e *Error) WithField(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// Response is the JSON envelope written for failures.
type Response struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ToResponse converts the error into its client envelope.
func (e *Error) ToResponse() Response {
	return Response{
		Success: false,
		Error:   http.StatusText(e.HTTPStatus()),
		Message: e.Message,
	}
}

// AsStructuredError returns err as an *Error, wrapping unknown errors as internal.
func AsStructuredError(err error) *Error {
	if err == nil {
		return nil
	}
	var structured *Error
	if errors.As(err, &structured) {
		return structured
	}
	return Internal("internal server error", err)
}

// IsType reports whether err is a structured error of type t.
func IsType(err error, t ErrorType) bool {
	var structured *Error
	return errors.As(err, &structured) && structured.Type == t
}
