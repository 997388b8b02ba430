package copytrade

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrMalformedResponse wraps JSON decode failures and unexpected payload shapes
	ErrMalformedResponse = errors.New("malformed upstream response")
	// ErrNoProfile is returned when userinfo carries no profile claim
	ErrNoProfile = errors.New("userinfo has no profile claim")
)

// APIError is a non-success response from the platform or identity provider
type APIError struct {
	StatusCode int
	Endpoint   string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("copytrade: %s returned %d", e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("copytrade: %s returned %d: %s", e.Endpoint, e.StatusCode, e.Message)
}

// StatusOf returns the upstream status code carried by err, or 0
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// IsUnauthorized reports whether err is an upstream 401
func IsUnauthorized(err error) bool {
	return StatusOf(err) == http.StatusUnauthorized
}

// IsNotFound reports whether err is an upstream 404
func IsNotFound(err error) bool {
	return StatusOf(err) == http.StatusNotFound
}

// TokenError is an OAuth error body returned by the token endpoint
type TokenError struct {
	Code        string
	Description string
}

func (e *TokenError) Error() string {
	if e.Description != "" {
		return e.Description
	}
	if e.Code != "" {
		return e.Code
	}
	return "Unknown Error"
}
