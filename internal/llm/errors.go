package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Error is the unified error surface returned by provider adapters and the client.
type Error interface {
	error
	Provider() string
	StatusCode() int
	Retryable() bool
	RetryAfter() *time.Duration
}

type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + strings.TrimSpace(e.Message)
}
func (e *ConfigurationError) Provider() string           { return "" }
func (e *ConfigurationError) StatusCode() int            { return 0 }
func (e *ConfigurationError) Retryable() bool            { return false }
func (e *ConfigurationError) RetryAfter() *time.Duration { return nil }

type apiError struct {
	provider   string
	statusCode int
	message    string
	retryable  bool
	retryAfter *time.Duration
}

func (e *apiError) Error() string {
	msg := strings.TrimSpace(e.message)
	if msg == "" {
		msg = "request failed"
	}
	return fmt.Sprintf("%s error (status=%d): %s", e.provider, e.statusCode, msg)
}
func (e *apiError) Provider() string           { return e.provider }
func (e *apiError) StatusCode() int            { return e.statusCode }
func (e *apiError) Retryable() bool            { return e.retryable }
func (e *apiError) RetryAfter() *time.Duration { return e.retryAfter }

type InvalidRequestError struct{ apiError }
type AuthenticationError struct{ apiError }
type NotFoundError struct{ apiError }
type RequestTimeoutError struct{ apiError }
type ContextLengthError struct{ apiError }
type RateLimitError struct{ apiError }
type ServerError struct{ apiError }
type UnknownHTTPError struct{ apiError }

// ErrorFromHTTPStatus maps an HTTP failure status to the unified hierarchy.
func ErrorFromHTTPStatus(provider string, statusCode int, message string, retryAfter *time.Duration) error {
	base := apiError{
		provider:   strings.TrimSpace(provider),
		statusCode: statusCode,
		message:    message,
		retryAfter: retryAfter,
	}
	switch statusCode {
	case 400, 422:
		if strings.Contains(strings.ToLower(message), "context length") {
			return &ContextLengthError{base}
		}
		return &InvalidRequestError{base}
	case 401, 403:
		return &AuthenticationError{base}
	case 404:
		return &NotFoundError{base}
	case 408:
		base.retryable = true
		return &RequestTimeoutError{base}
	case 413:
		return &ContextLengthError{base}
	case 429:
		base.retryable = true
		return &RateLimitError{base}
	case 500, 502, 503, 504:
		base.retryable = true
		return &ServerError{base}
	default:
		// Unknown statuses default to retryable.
		base.retryable = true
		return &UnknownHTTPError{base}
	}
}

// StreamError reports a failure that occurred mid-stream, after the HTTP
// exchange was already accepted. Never retried once partial data was delivered.
type StreamError struct {
	provider string
	message  string
}

func NewStreamError(provider, message string) *StreamError {
	return &StreamError{provider: strings.TrimSpace(provider), message: message}
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("%s stream error: %s", e.provider, strings.TrimSpace(e.message))
}
func (e *StreamError) Provider() string           { return e.provider }
func (e *StreamError) StatusCode() int            { return 0 }
func (e *StreamError) Retryable() bool            { return false }
func (e *StreamError) RetryAfter() *time.Duration { return nil }

// AbortError marks a caller-initiated cancellation.
type AbortError struct {
	provider string
	cause    error
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("%s request aborted: %v", e.provider, e.cause)
}
func (e *AbortError) Unwrap() error              { return e.cause }
func (e *AbortError) Provider() string           { return e.provider }
func (e *AbortError) StatusCode() int            { return 0 }
func (e *AbortError) Retryable() bool            { return false }
func (e *AbortError) RetryAfter() *time.Duration { return nil }

// WrapContextError converts context cancellation and deadline failures into
// the unified hierarchy; other errors pass through unchanged.
func WrapContextError(provider string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return &AbortError{provider: provider, cause: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &RequestTimeoutError{apiError{
			provider: provider,
			message:  "request deadline exceeded",
		}}
	}
	return err
}

// ParseRetryAfter parses a Retry-After header value: integer seconds or an
// HTTP-date.
func ParseRetryAfter(v string, now time.Time) *time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		d := time.Duration(secs) * time.Second
		return &d
	}
	if t, err := http.ParseTime(v); err == nil {
		d := t.Sub(now)
		if d < 0 {
			d = 0
		}
		return &d
	}
	return nil
}
