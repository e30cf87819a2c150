package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unified error code across the engine.
type ErrorCode string

const (
	// ErrGeneratorFailure wraps any error returned by the external text
	// generation capability. Always caught at the call site and converted
	// into degraded data.
	ErrGeneratorFailure ErrorCode = "GENERATOR_FAILURE"

	// ErrParseFailure marks free text that did not match the expected
	// structure. It is never propagated; extraction degrades to defaults.
	ErrParseFailure ErrorCode = "PARSE_FAILURE"

	// ErrNoAvailableAgent means routing exhausted its candidate set. It
	// terminates the current round, not the session.
	ErrNoAvailableAgent ErrorCode = "NO_AVAILABLE_AGENT"

	// ErrValidationInconclusive means cross-validation could not produce a
	// judgment (too few agents, or every validator call failed).
	ErrValidationInconclusive ErrorCode = "VALIDATION_INCONCLUSIVE"
)

// Error is a structured error with a code, message and optional cause.
type Error struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Retryable bool      `json:"retryable"`
	Cause     error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Cause }

// NewError creates a structured error without a cause.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WrapError creates a structured error wrapping a cause.
func WrapError(code ErrorCode, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause, Retryable: code == ErrGeneratorFailure}
}

// IsCode reports whether err carries the given code anywhere in its chain.
func IsCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}
