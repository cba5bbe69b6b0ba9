// Package errors provides structured error handling with context propagation and HTTP status code mapping.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents the category of error for metrics and response formatting.
type ErrorType string

const (
	// TypeAuthentication indicates a bad or missing EventSub signature (HTTP 403)
	TypeAuthentication ErrorType = "authentication"
	// TypeFiltered indicates an event the relay deliberately ignores (HTTP 204)
	TypeFiltered ErrorType = "filtered"
	// TypeUpstreamToken indicates the stream lookup kept failing after a token refresh (HTTP 500)
	TypeUpstreamToken ErrorType = "upstream_token"
	// TypeInvalidStream indicates an empty or malformed stream lookup result (HTTP 400)
	TypeInvalidStream ErrorType = "invalid_stream"
	// TypeDispatch indicates a failed Discord delivery. Only ever logged.
	TypeDispatch ErrorType = "dispatch"
	// TypeValidation indicates invalid input (HTTP 400)
	TypeValidation ErrorType = "validation"
	// TypeNotFound indicates resource not found (HTTP 404)
	TypeNotFound ErrorType = "not_found"
	// TypeUnsupported indicates an operation the configured backend cannot perform (HTTP 501)
	TypeUnsupported ErrorType = "unsupported"
	// TypeInternal indicates server-side error (HTTP 500)
	TypeInternal ErrorType = "internal"
)

// Error represents a structured error with type, message, and context.
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]any
}

// Error implements the error interface.
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

// HTTPStatus returns the appropriate HTTP status code for this error type.
func (e *Error) HTTPStatus() int {
	switch e.Type {
	case TypeAuthentication:
		return http.StatusForbidden
	case TypeFiltered:
		return http.StatusNoContent
	case TypeInvalidStream, TypeValidation:
		return http.StatusBadRequest
	case TypeNotFound:
		return http.StatusNotFound
	case TypeUnsupported:
		return http.StatusNotImplemented
	case TypeDispatch:
		return http.StatusBadGateway
	case TypeUpstreamToken, TypeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func newError(t ErrorType, message string, cause error) *Error {
	return &Error{
		Type:    t,
		Message: message,
		Cause:   cause,
		Context: make(map[string]any),
	}
}

// AuthenticationError creates a new authentication failure (HTTP 403).
func AuthenticationError(message string) *Error {
	return newError(TypeAuthentication, message, nil)
}

// FilteredEvent marks an event that is acknowledged but ignored (HTTP 204).
func FilteredEvent(message string) *Error {
	return newError(TypeFiltered, message, nil)
}

// UpstreamTokenError creates a new upstream token failure (HTTP 500).
func UpstreamTokenError(message string, cause error) *Error {
	return newError(TypeUpstreamToken, message, cause)
}

// InvalidStreamError creates a new invalid stream data error (HTTP 400).
func InvalidStreamError(message string, cause error) *Error {
	return newError(TypeInvalidStream, message, cause)
}

// DispatchError creates a new announcement delivery error.
func DispatchError(message string, cause error) *Error {
	return newError(TypeDispatch, message, cause)
}

// ValidationError creates a new validation error (HTTP 400).
func ValidationError(message string) *Error {
	return newError(TypeValidation, message, nil)
}

// NotFoundError creates a new not-found error (HTTP 404).
func NotFoundError(message string) *Error {
	return newError(TypeNotFound, message, nil)
}

// UnsupportedError creates a new unsupported-operation error (HTTP 501).
func UnsupportedError(message string, cause error) *Error {
	return newError(TypeUnsupported, message, cause)
}

// InternalError creates a new internal error (HTTP 500).
func InternalError(message string, cause error) *Error {
	return newError(TypeInternal, message, cause)
}

// WithContext adds context fields to the error (chainable).
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// ErrorResponse represents the JSON structure sent to clients.
type ErrorResponse struct {
	Error   string         `json:"error"`
	Type    ErrorType      `json:"type"`
	Context map[string]any `json:"context,omitempty"`
}

// ToResponse converts an Error to an ErrorResponse for JSON serialization.
func (e *Error) ToResponse() ErrorResponse {
	return ErrorResponse{
		Error:   e.Message,
		Type:    e.Type,
		Context: e.Context,
	}
}

// AsStructuredError converts any error into a structured Error.
// If err is already an *Error, returns it unchanged.
// Otherwise wraps it as an internal error.
func AsStructuredError(err error) *Error {
	if err == nil {
		return nil
	}

	if structuredErr, ok := errors.AsType[*Error](err); ok {
		return structuredErr
	}

	return InternalError("internal server error", err)
}

// IsType reports whether err is a structured error of type t.
func IsType(err error, t ErrorType) bool {
	structuredErr, ok := errors.AsType[*Error](err)
	return ok && structuredErr.Type == t
}
