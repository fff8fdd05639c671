package oai

import (
	"fmt"
	"time"
)

// HTTPError represents an HTTP error response from the API. When the body
// carried the API's error envelope, ErrorType, Message, Param and Code are
// filled from it; otherwise Message holds the raw body, truncated.
type HTTPError struct {
	StatusCode int    // HTTP status code (e.g., 429, 503, 500)
	Status     string // Full status text (e.g., "429 Too Many Requests")
	ErrorType  string // API error type (e.g., "invalid_request_error")
	Message    string // Human-readable error message
	Param      string // Request parameter the error refers to, if any
	Code       string // API error code (e.g., "rate_limit_exceeded")

	// Delay the server asked for via the Retry-After header, if any.
	RetryAfterDelay time.Duration
}

func (e *HTTPError) Error() string {
	if e.ErrorType != "" && e.Message != "" {
		return fmt.Sprintf("%s: %s: %s", e.Status, e.ErrorType, e.Message)
	}
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Status, e.Message)
	}
	return e.Status
}

// HTTPStatus makes the error classifiable by the retry dispatcher.
func (e *HTTPError) HTTPStatus() int {
	return e.StatusCode
}

// RetryAfter reports the server-suggested retry delay, if the response
// carried one.
func (e *HTTPError) RetryAfter() (time.Duration, bool) {
	return e.RetryAfterDelay, e.RetryAfterDelay > 0
}

// DecodeError is a per-event failure: the frame's payload could not be
// parsed. It never terminates a stream; the decoder skips the event and
// continues with the next frame.
type DecodeError struct {
	Data []byte
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode event payload: %s", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// UnknownEventError is a per-event failure: the frame was well formed but
// its discriminant is not in the known set. Treated like DecodeError so
// servers can add event types without breaking older clients.
type UnknownEventError struct {
	Type string
	Data []byte
}

func (e *UnknownEventError) Error() string {
	return fmt.Sprintf("unknown event type %q", e.Type)
}
