package dblp

import (
	"errors"
	"fmt"
)

// Common errors returned by the DBLP client.
var (
	// ErrNotFound indicates DBLP has no record for the requested key.
	ErrNotFound = errors.New("not found in DBLP")

	// ErrRateLimited indicates DBLP asked us to slow down.
	ErrRateLimited = errors.New("DBLP rate limit exceeded")

	// ErrNetworkError indicates a network connectivity issue.
	ErrNetworkError = errors.New("network error communicating with DBLP")

	// ErrInvalidResponse indicates an unexpected API response.
	ErrInvalidResponse = errors.New("invalid response from DBLP")
)

// APIError represents a non-success HTTP status from DBLP.
type APIError struct {
	StatusCode int
	Message    string
	Key        string // For context in record lookups
}

func (e *APIError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("DBLP API error (status %d): %s (key: %s)", e.StatusCode, e.Message, e.Key)
	}
	return fmt.Sprintf("DBLP API error (status %d): %s", e.StatusCode, e.Message)
}

// IsNotFound returns true if the error indicates a record was not found.
func IsNotFound(err error) bool {
	if errors.Is(err, ErrNotFound) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 404
	}
	return false
}

// IsRateLimited returns true if the error indicates rate limiting.
func IsRateLimited(err error) bool {
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}
	return false
}
