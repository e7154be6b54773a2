package params

import (
	"errors"
	"fmt"
)

// Error codes for parameter store failures.
const (
	ErrCodeNotInitialized     = "NOT_INITIALIZED"
	ErrCodeAlreadyInitialized = "ALREADY_INITIALIZED"
	ErrCodeInputMismatch      = "INPUT_MISMATCH"
	ErrCodeAuthFailed         = "AUTH_FAILED"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeReadOnly           = "READ_ONLY"
	ErrCodeInvalidMethod      = "INVALID_METHOD"
	ErrCodeStore              = "STORE_ERROR"
)

// Error is the structured error type for all parameter store operations.
//
// Key derivation, key unwrap, and record decryption failures all surface
// as AUTH_FAILED so callers cannot tell which step rejected the input.
type Error struct {
	Code    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error.
func NewError(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// NewErrorf creates a new Error with a formatted message.
func NewErrorf(code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithCause attaches an underlying cause.
func (e *Error) WithCause(err error) *Error {
	e.Cause = err
	return e
}

// IsCode reports whether err (or anything it wraps) is a parameter store
// Error carrying the given code.
func IsCode(err error, code string) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Code == code
}
