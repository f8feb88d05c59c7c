package arxiv

import (
	"errors"
	"fmt"
)

// Common errors returned by the arXiv client.
var (
	// ErrRateLimited indicates arXiv asked us to slow down.
	ErrRateLimited = errors.New("arXiv rate limit exceeded")

	// ErrNetworkError indicates a network connectivity issue.
	ErrNetworkError = errors.New("network error communicating with arXiv")

	// ErrInvalidResponse indicates a body that is not a valid Atom feed.
	ErrInvalidResponse = errors.New("invalid response from arXiv")
)

// APIError represents a non-success HTTP status from the arXiv API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("arXiv API error (status %d): %s", e.StatusCode, e.Message)
}

// IsRateLimited returns true if the error indicates rate limiting.
func IsRateLimited(err error) bool {
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429 || apiErr.StatusCode == 503
	}
	return false
}
