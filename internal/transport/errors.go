package transport

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// ErrNetworkExhausted indicates every attempt of a Send failed.
var ErrNetworkExhausted = errors.New("network exhausted")

// StatusError is an attempt that completed with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("HTTP %d: %s", e.StatusCode, truncate(e.Body, 200))
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

// ExhaustedError is returned by Send when no attempt succeeded. It matches
// ErrNetworkExhausted and unwraps to the last attempt's error.
type ExhaustedError struct {
	Attempts int
	Last     error
}

// Error implements the error interface.
func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s after %d attempts: %v", ErrNetworkExhausted, e.Attempts, e.Last)
}

// Unwrap exposes both the sentinel and the last attempt error.
func (e *ExhaustedError) Unwrap() []error {
	return []error{ErrNetworkExhausted, e.Last}
}

// IsSuccess reports whether status is in the 2xx range.
func IsSuccess(status int) bool {
	return status >= 200 && status < 300
}

// IsRetryableStatus reports whether Send retries a response with this
// status. Every non-2xx status is retried unless the request lists it as
// terminal.
func IsRetryableStatus(status int, terminal []int) bool {
	if IsSuccess(status) {
		return false
	}
	for _, t := range terminal {
		if t == status {
			return false
		}
	}
	return true
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
