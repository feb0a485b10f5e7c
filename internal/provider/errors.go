package provider

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// APIError is a structured provider error carrying retry metadata.
type APIError struct {
	StatusCode   int
	ErrorType    string
	Message      string
	RetryAfterMs int
}

// Error satisfies the error interface.
func (e *APIError) Error() string {
	if e.ErrorType != "" {
		return fmt.Sprintf("%s: %s", e.ErrorType, e.Message)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// IsRetryable reports whether the call may succeed on retry: rate
// limits, overload, and retryable mid-stream errors (StatusCode 0).
func (e *APIError) IsRetryable() bool {
	switch e.StatusCode {
	case 429, 503, 529:
		return true
	}
	switch e.ErrorType {
	case "rate_limit_error", "overloaded_error":
		return true
	}
	if e.StatusCode == 0 && e.ErrorType != "" {
		return e.ErrorType == "overloaded_error" || e.ErrorType == "api_error"
	}
	return false
}

// RetryDelay returns the server-requested backoff, zero when the
// server did not specify one.
func (e *APIError) RetryDelay() time.Duration {
	return time.Duration(e.RetryAfterMs) * time.Millisecond
}

// NewAPIError builds an APIError from HTTP response metadata.
func NewAPIError(statusCode int, errorType, message string, header http.Header) *APIError {
	return &APIError{
		StatusCode:   statusCode,
		ErrorType:    errorType,
		Message:      message,
		RetryAfterMs: parseRetryAfter(header),
	}
}

// parseRetryAfter reads retry-after-ms (milliseconds, Anthropic) or the
// standard Retry-After header (seconds or HTTP-date).
func parseRetryAfter(h http.Header) int {
	if h == nil {
		return 0
	}
	if ms := h.Get("retry-after-ms"); ms != "" {
		if v, err := strconv.Atoi(strings.TrimSpace(ms)); err == nil && v > 0 {
			return v
		}
	}
	ra := strings.TrimSpace(h.Get("Retry-After"))
	if ra == "" {
		return 0
	}
	if secs, err := strconv.Atoi(ra); err == nil && secs > 0 {
		return secs * 1000
	}
	if t, err := time.Parse(time.RFC1123, ra); err == nil {
		if ms := int(time.Until(t).Milliseconds()); ms > 0 {
			return ms
		}
	}
	return 0
}
