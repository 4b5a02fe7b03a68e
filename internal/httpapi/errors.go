package httpapi

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError represents a non-2xx response from an external service.
// Callers should prefer the predicate functions (IsNotFound,
// IsValidationRejected, IsUnavailable) to inspect errors rather than
// asserting on this type directly.
type APIError struct {
	operation  string
	statusCode int
	body       string
}

func (e *APIError) Error() string {
	if e.body != "" {
		return fmt.Sprintf("%s: HTTP %d: %s", e.operation, e.statusCode, e.body)
	}
	return fmt.Sprintf("%s: HTTP %d", e.operation, e.statusCode)
}

// NewAPIError builds an APIError for the given operation, status, and
// response body.
func NewAPIError(operation string, statusCode int, body string) *APIError {
	return &APIError{operation: operation, statusCode: statusCode, body: body}
}

// StatusCode returns the HTTP status code from the response.
func (e *APIError) StatusCode() int { return e.statusCode }

// Body returns the raw response body, if any was captured.
func (e *APIError) Body() string { return e.body }

// Operation returns a short description of the API call that failed.
func (e *APIError) Operation() string { return e.operation }

// IsNotFound reports whether err is an API error with HTTP 404 status.
func IsNotFound(err error) bool { return HasStatusCode(err, http.StatusNotFound) }

// IsValidationRejected reports whether err is an API error with HTTP 422 status.
func IsValidationRejected(err error) bool {
	return HasStatusCode(err, http.StatusUnprocessableEntity)
}

// IsUnavailable reports whether err is an API error with HTTP 503 status.
func IsUnavailable(err error) bool {
	return HasStatusCode(err, http.StatusServiceUnavailable)
}

// HasStatusCode reports whether err is an API error whose HTTP status code matches.
func HasStatusCode(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.statusCode == code
}
