package api

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrServiceUnavailable marks connectivity failures and server-side errors
var ErrServiceUnavailable = errors.New("LLM service unavailable")

// APIError represents an error returned by the Ollama endpoint
type APIError struct {
	Message    string
	StatusCode int
	Retryable  bool
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API error: %s", e.Message)
}

// Unwrap lets errors.Is(err, ErrServiceUnavailable) match retryable failures
func (e *APIError) Unwrap() error {
	if e.Retryable {
		return ErrServiceUnavailable
	}
	return nil
}

// IsRetryable reports whether err is worth another attempt
func IsRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable
	}
	return false
}

func isStatusCodeRetryable(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests ||
		statusCode == http.StatusInternalServerError ||
		statusCode == http.StatusBadGateway ||
		statusCode == http.StatusServiceUnavailable ||
		statusCode == http.StatusGatewayTimeout
}
