// Package logos serves quotes over HTTP.
//
// The root package carries the request plumbing shared by every endpoint:
// context-held response state, structured JSON errors, canonical request
// logging, query binding and the sliding-window rate limiter. Handlers never
// write to the ResponseWriter directly; they record a body or an error with
// SetResponse or SetError and Handler renders it once the chain unwinds.
//
// Errors are rendered as {"error": {"type", "code", "message"}}. This differs
// from a flat {"error": "message"} body; clients written against the flat
// shape need to read error.message.
package logos

import (
	"net/http"
)

// APIError is the body of every non-2xx JSON response, nested under "error".
type APIError struct {
	Type    string       `json:"type"`
	Code    string       `json:"code,omitempty"`
	Message string       `json:"message"`
	Param   string       `json:"param,omitempty"`
	Errors  []FieldError `json:"errors,omitempty"`
	Status  int          `json:"-"`
}

// FieldError describes one invalid query parameter.
type FieldError struct {
	Param   string `json:"param"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// errorResponse nests the APIError under "error". Clients that expect
// {"error": "..."} with a plain string must read error.message instead.
type errorResponse struct {
	Error *APIError `json:"error"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}

// Is matches on Type and Code so errors.Is works against the sentinels
// below even after With has changed the message.
func (e *APIError) Is(target error) bool {
	if e == nil {
		return target == nil
	}
	t, ok := target.(*APIError)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Code == t.Code
}

// With returns a copy of the error with a custom message.
func (e *APIError) With(message string) *APIError {
	if e == nil {
		return nil
	}
	dup := *e
	dup.Message = message
	return &dup
}

// Predefined sentinel errors
var (
	ErrBadRequest       = &APIError{Type: "request_error", Code: "bad_request", Message: "Bad request", Status: http.StatusBadRequest}
	ErrNotFound         = &APIError{Type: "not_found", Code: "resource_not_found", Message: "Resource not found", Status: http.StatusNotFound}
	ErrMethodNotAllowed = &APIError{Type: "request_error", Code: "method_not_allowed", Message: "Method not allowed", Status: http.StatusMethodNotAllowed}
	ErrRateLimited      = &APIError{Type: "rate_limit_error", Code: "limit_exceeded", Message: "Too many requests", Status: http.StatusTooManyRequests}
	ErrInternal         = &APIError{Type: "internal_error", Code: "internal", Message: "Internal server error", Status: http.StatusInternalServerError}
)

// NewValidationError creates a validation error with multiple field errors.
func NewValidationError(errors []FieldError) *APIError {
	return &APIError{
		Type:    "validation_error",
		Code:    "invalid_request",
		Message: "Validation failed",
		Errors:  errors,
		Status:  http.StatusBadRequest,
	}
}
