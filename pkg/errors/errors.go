// Package errors provides structured error types for the gridseam engine.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the CLI and the compositing library
//   - Machine-readable error codes for programmatic handling
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Every failure in the compositing core maps to one of a small set of codes.
// Grid and layer failures are fatal by design: proceeding with a misaligned
// grid would produce a corrupted composite layer that is expensive to detect
// downstream, so nothing in this module retries or masks them.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeLayerLoad, "unable to find %s", path)
//	if errors.Is(err, errors.ErrCodeLayerLoad) {
//	    // Handle load failure
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeStore, origErr, "open store %s", path)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different failure categories.
const (
	// Grid and layer precondition failures
	ErrCodeGridMismatch  Code = "GRID_MISMATCH"
	ErrCodeLayerLoad     Code = "LAYER_LOAD"
	ErrCodeMaskBuild     Code = "MASK_BUILD"
	ErrCodeShapeMismatch Code = "SHAPE_MISMATCH"

	// Store contract violations
	ErrCodeStore         Code = "STORE_ERROR"
	ErrCodeStoreExists   Code = "STORE_EXISTS"
	ErrCodeLayerNotFound Code = "LAYER_NOT_FOUND"

	// Configuration validation failures
	ErrCodeInvalidConfig Code = "INVALID_CONFIG"

	// Internal errors
	ErrCodeInternal Code = "INTERNAL_ERROR"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
