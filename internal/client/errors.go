package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// APIError is an HTTP-level failure from a backend.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Message)
}

// ErrAuth marks authentication failures. These are never retried;
// the user has to log in again.
var ErrAuth = errors.New("authentication failed")

// IsRetryableAPIError reports whether the API error has a retryable status.
func IsRetryableAPIError(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 429, 502, 503, 504:
			return true
		}
	}
	return false
}

// IsRetryableError classifies an error as transient. Typed checks come
// first; string matching is a fallback for untyped errors out of
// third-party libraries.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrAuth) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	if IsRetryableAPIError(err) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range []string{
		"rate limit",
		"resource_exhausted",
		"connection refused",
		"connection reset",
		"eof",
		"no such host",
	} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}

	return false
}
