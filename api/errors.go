// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error types and error handling utilities for tickpipe.

package api

import "fmt"

// Common errors used across the library.
var (
	ErrRingFull           = fmt.Errorf("ring is full")
	ErrInvalidArgument    = fmt.Errorf("invalid argument")
	ErrPortClosed         = fmt.Errorf("port is closed")
	ErrPortNotInitialized = fmt.Errorf("port is not initialized")
	ErrNotSupported       = fmt.Errorf("operation not supported")
	ErrAlreadyRunning     = fmt.Errorf("already running")
)

// ErrorCode represents specific error conditions in the library.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	ErrCodeInvalidArgument
	ErrCodeNotSupported
	ErrCodeInternal
)

// Error represents a structured error with code and context.
type Error struct {
	Code    ErrorCode
	Message string
	Context map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if len(e.Context) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (context: %+v)", e.Message, e.Context)
}

// Unwrap maps codes onto the sentinel errors so errors.Is works.
func (e *Error) Unwrap() error {
	switch e.Code {
	case ErrCodeInvalidArgument:
		return ErrInvalidArgument
	case ErrCodeNotSupported:
		return ErrNotSupported
	default:
		return nil
	}
}

// NewError creates a new structured error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Context: make(map[string]any),
	}
}

// WithContext adds context information to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}
