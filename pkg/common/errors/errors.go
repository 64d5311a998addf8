// Package errors provides the structured error type shared by the forge
// packages. Every failure carries a Code so callers can branch on it without
// matching message text.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Error represents a structured error with code and context
type Error struct {
	Code    Code
	Domain  string
	Message string
	Cause   error
}

// New creates a new error with the given code, domain, message, and optional cause
func New(code Code, domain string, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Domain:  domain,
		Message: message,
		Cause:   cause,
	}
}

// Newf is New with a formatted message and no cause.
func Newf(code Code, domain string, format string, args ...interface{}) *Error {
	return New(code, domain, fmt.Sprintf(format, args...), nil)
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Domain, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Domain, e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target error
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Sentinel returns a code-only error usable as an errors.Is target.
func Sentinel(code Code) *Error {
	return &Error{Code: code}
}

// CodeOf returns the code of the first *Error in err's chain, or CodeUnknown.
func CodeOf(err error) Code {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// HasCode reports whether err carries the given code anywhere in its chain.
func HasCode(err error, code Code) bool {
	return stderrors.Is(err, Sentinel(code))
}

// IsRetryable reports whether a repair attempt may fix the failure.
// Only extraction and descriptor failures are terminal.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return !nonRetryable[CodeOf(err)]
}

// RetryableCode is IsRetryable for a bare code.
func RetryableCode(code Code) bool {
	return !nonRetryable[code]
}

// MessageOf returns the message of the first *Error in err's chain, falling
// back to err.Error().
func MessageOf(err error) string {
	var e *Error
	if stderrors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return err.Error()
}
