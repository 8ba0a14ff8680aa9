package errors

import (
	goerrors "errors"
	"fmt"
)

// ErrorType classifies failures by how the crawl engine must react to them.
type ErrorType string

const (
	// ErrorTypeConfig covers missing or invalid credentials and settings.
	// Fatal, never retried.
	ErrorTypeConfig ErrorType = "config"

	// ErrorTypeCredentialsExpired means a response resolved to a login page.
	// Fatal for the run; the operator refreshes cookies and re-runs.
	ErrorTypeCredentialsExpired ErrorType = "credentials_expired"

	// ErrorTypeUserNotFound means the target user could not be resolved.
	ErrorTypeUserNotFound ErrorType = "user_not_found"

	// ErrorTypeTransport covers connection resets, timeouts and 5xx
	// responses. Retryable within one request's budget.
	ErrorTypeTransport ErrorType = "transport"

	// ErrorTypeTransportExhausted means every retry of one request failed.
	ErrorTypeTransportExhausted ErrorType = "transport_exhausted"

	// ErrorTypeMalformed means the body could not be parsed as expected.
	// Retrying cannot fix malformed content.
	ErrorTypeMalformed ErrorType = "malformed_response"

	// ErrorTypeBlocked means the server interposed an anti-bot challenge.
	// The orchestrator switches to the fallback channel on this signal.
	ErrorTypeBlocked ErrorType = "blocked"

	ErrorTypeUnknown ErrorType = "unknown"
)

// Error carries the failure class alongside the message and, for HTTP
// failures, the status code.
type Error struct {
	Type    ErrorType
	Message string
	Code    int
}

func (e *Error) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

// New creates a typed error.
func New(t ErrorType, msg string) *Error {
	return &Error{Type: t, Message: msg}
}

// Newf creates a typed error with a formatted message.
func Newf(t ErrorType, format string, args ...interface{}) *Error {
	return &Error{Type: t, Message: fmt.Sprintf(format, args...)}
}

// WithCode attaches an HTTP status code.
func (e *Error) WithCode(code int) *Error {
	e.Code = code
	return e
}

// IsRetryable reports whether an error type may succeed on a retry.
func IsRetryable(t ErrorType) bool {
	return t == ErrorTypeTransport
}

// IsType reports whether err is (or wraps) an *Error of the given type.
func IsType(err error, t ErrorType) bool {
	var e *Error
	if goerrors.As(err, &e) {
		return e.Type == t
	}
	return false
}

// TypeOf returns the error type of err, or ErrorTypeUnknown for untyped errors.
func TypeOf(err error) ErrorType {
	var e *Error
	if goerrors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeUnknown
}

// IsFatal reports whether the error must terminate the run immediately.
// Blocked is not fatal by itself: the orchestrator may still switch channels.
func IsFatal(err error) bool {
	switch TypeOf(err) {
	case ErrorTypeConfig, ErrorTypeCredentialsExpired, ErrorTypeUserNotFound:
		return true
	}
	return false
}
