package tracker

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrSessionClosed is returned by Session operations after Close.
var ErrSessionClosed = errors.New("tracker: session closed")

// APIError represents a non-2xx HTTP response from the tracker.
// Callers should prefer the predicate functions (IsUnauthorized, IsForbidden)
// to inspect errors rather than asserting on this type directly.
type APIError struct {
	operation  string
	statusCode int
	message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: HTTP %d: %s", e.operation, e.statusCode, e.message)
}

func newAPIError(operation string, statusCode int, message string) *APIError {
	return &APIError{
		operation:  operation,
		statusCode: statusCode,
		message:    message,
	}
}

// StatusCode returns the HTTP status code from the response.
func (e *APIError) StatusCode() int { return e.statusCode }

// Message returns the response body or status text.
func (e *APIError) Message() string { return e.message }

// Operation returns a short description of the API call that failed.
func (e *APIError) Operation() string { return e.operation }

// IsUnauthorized reports whether err is an API error with HTTP 401 status.
func IsUnauthorized(err error) bool { return hasStatusCode(err, http.StatusUnauthorized) }

// IsForbidden reports whether err is an API error with HTTP 403 status.
func IsForbidden(err error) bool { return hasStatusCode(err, http.StatusForbidden) }

// hasStatusCode reports whether err is an API error whose HTTP status code matches.
func hasStatusCode(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.statusCode == code
}
