// Package apperr defines status-coded application errors.  The service
// layer raises these values and a single boundary handler in the router
// translates them into JSON responses.  Errors without a code are
// logged and surfaced as a bare 500 so internal detail never leaks.
package apperr

import (
	"errors"
	"net/http"
)

// Error carries an HTTP status code alongside a client-safe message.
type Error struct {
	Status  int
	Message string
	// Fields holds per-field validation messages when the error is a
	// validation failure; nil otherwise.
	Fields map[string]string
}

func (e *Error) Error() string { return e.Message }

// New builds a coded error with the given status and message.
func New(status int, message string) *Error {
	return &Error{Status: status, Message: message}
}

// Conflict builds a 409 error (duplicate email/number on create or update).
func Conflict(message string) *Error { return New(http.StatusConflict, message) }

// NotFound builds a 404 error.
func NotFound(message string) *Error { return New(http.StatusNotFound, message) }

// BadRequest builds a 400 error.
func BadRequest(message string) *Error { return New(http.StatusBadRequest, message) }

// Unauthorized builds a 401 error.
func Unauthorized(message string) *Error { return New(http.StatusUnauthorized, message) }

// Forbidden builds a 403 error.
func Forbidden(message string) *Error { return New(http.StatusForbidden, message) }

// Internal builds a 500 error with a client-safe message.
func Internal(message string) *Error { return New(http.StatusInternalServerError, message) }

// Validation builds a 400 error carrying a field->message map.  The
// map contains every failed field, not just the first one.
func Validation(fields map[string]string) *Error {
	return &Error{Status: http.StatusBadRequest, Message: "Request validation failed", Fields: fields}
}

// From extracts a coded error from err, or nil when err carries no code.
func From(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return nil
}
