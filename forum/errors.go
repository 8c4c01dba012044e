package forum

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes client errors.
type ErrorCode int

const (
	ErrorUnknown ErrorCode = iota

	// Protocol errors (from server frames)
	ErrorUnauthorized // auth_error frame
	ErrorServer       // error frame

	// Client-side errors
	ErrorNoToken
	ErrorConnection
	ErrorDisconnected
	ErrorTimeout
	ErrorInvalidConfig
	ErrorNotConnected
	ErrorInvalidMessage
	ErrorRateLimited
	ErrorSerialization
	ErrorGaveUp
)

// String returns the string representation of an ErrorCode.
func (e ErrorCode) String() string {
	switch e {
	case ErrorUnknown:
		return "unknown"
	case ErrorUnauthorized:
		return "unauthorized"
	case ErrorServer:
		return "server_error"
	case ErrorNoToken:
		return "no_token"
	case ErrorConnection:
		return "connection_error"
	case ErrorDisconnected:
		return "disconnected"
	case ErrorTimeout:
		return "timeout"
	case ErrorInvalidConfig:
		return "invalid_config"
	case ErrorNotConnected:
		return "not_connected"
	case ErrorInvalidMessage:
		return "invalid_message"
	case ErrorRateLimited:
		return "rate_limited"
	case ErrorSerialization:
		return "serialization_error"
	case ErrorGaveUp:
		return "gave_up"
	default:
		return fmt.Sprintf("unknown_code_%d", e)
	}
}

// ClientError is a structured error with code and context.
type ClientError struct {
	Code    ErrorCode
	Message string
	Wrapped error
}

// Error implements the error interface.
func (e *ClientError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("%s: %s (wrapped: %v)", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error for errors.Unwrap support.
func (e *ClientError) Unwrap() error {
	return e.Wrapped
}

// Is implements errors.Is comparison by code.
func (e *ClientError) Is(target error) bool {
	t, ok := target.(*ClientError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewError creates a ClientError with the given code and message.
func NewError(code ErrorCode, message string) *ClientError {
	return &ClientError{Code: code, Message: message}
}

// WrapError wraps an existing error with a ClientError.
func WrapError(code ErrorCode, message string, err error) *ClientError {
	return &ClientError{Code: code, Message: message, Wrapped: err}
}

// IsAuthError reports whether err is a server-side authentication rejection.
// Owners of a client should treat it as a forced logout.
func IsAuthError(err error) bool {
	var ce *ClientError
	return errors.As(err, &ce) && ce.Code == ErrorUnauthorized
}

// IsConnectionError reports whether err is connection related.
func IsConnectionError(err error) bool {
	var ce *ClientError
	if !errors.As(err, &ce) {
		return false
	}
	switch ce.Code {
	case ErrorConnection, ErrorDisconnected, ErrorTimeout, ErrorNotConnected:
		return true
	default:
		return false
	}
}
