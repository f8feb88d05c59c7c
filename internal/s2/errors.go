package s2

import (
	"errors"
	"fmt"
)

// Common errors returned by the Semantic Scholar client.
var (
	// ErrNotFound indicates the paper is not indexed.
	ErrNotFound = errors.New("not found in Semantic Scholar")

	// ErrAuthError indicates a rejected API key.
	ErrAuthError = errors.New("Semantic Scholar authentication error")

	// ErrRateLimited indicates the rate limit has been exceeded.
	ErrRateLimited = errors.New("Semantic Scholar rate limit exceeded")

	// ErrNetworkError indicates a network connectivity issue.
	ErrNetworkError = errors.New("network error communicating with Semantic Scholar")

	// ErrInvalidResponse indicates an unexpected API response.
	ErrInvalidResponse = errors.New("invalid response from Semantic Scholar")
)

// APIError represents a non-success HTTP status from the Graph API.
type APIError struct {
	StatusCode int
	Message    string
	PaperID    string // For context in lookups
}

func (e *APIError) Error() string {
	if e.PaperID != "" {
		return fmt.Sprintf("Semantic Scholar API error (status %d): %s (paper: %s)", e.StatusCode, e.Message, e.PaperID)
	}
	return fmt.Sprintf("Semantic Scholar API error (status %d): %s", e.StatusCode, e.Message)
}

// IsNotFound returns true if the error indicates a paper was not found.
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

// IsAuthError returns true if the error indicates an authentication problem.
func IsAuthError(err error) bool {
	if errors.Is(err, ErrAuthError) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 401 || apiErr.StatusCode == 403
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
