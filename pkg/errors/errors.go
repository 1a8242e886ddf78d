// Package errors provides structured error types for the diagram editor.
//
// The core packages report failures with sentinel errors (see
// [github.com/checklistapp/diagram/pkg/diagram]). At the boundaries (CLI,
// HTTP host, persistence) those are converted into coded errors so callers
// can branch on a stable, machine-readable value:
//
//	err := errors.New(errors.ErrCodeInvalidInput, "invalid project id: %s", id)
//	if errors.Is(err, errors.ErrCodeInvalidInput) {
//	    // Handle validation error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodePersistence, origErr, "save %s", projectID)
//
// Use [FromCore] to classify an error coming out of the editor core.
package errors

import (
	"errors"
	"fmt"

	"github.com/checklistapp/diagram/pkg/diagram"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Editor constraint errors
	ErrCodeDuplicateID    Code = "DUPLICATE_ID"
	ErrCodeNotFound       Code = "NOT_FOUND"
	ErrCodeSourceDisabled Code = "SOURCE_DISABLED"
	ErrCodeSelfLoop       Code = "SELF_LOOP_REJECTED"
	ErrCodeDuplicate      Code = "DUPLICATE_CONNECTION"
	ErrCodeForbidden      Code = "FORBIDDEN"

	// Document and input errors
	ErrCodeMalformedDocument Code = "MALFORMED_DOCUMENT"
	ErrCodeInvalidInput      Code = "INVALID_INPUT"

	// Persistence errors
	ErrCodePersistence Code = "PERSISTENCE_FAILED"
	ErrCodeTimeout     Code = "TIMEOUT"

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

var coreCodes = []struct {
	sentinel error
	code     Code
}{
	{diagram.ErrDuplicateID, ErrCodeDuplicateID},
	{diagram.ErrInvalidID, ErrCodeInvalidInput},
	{diagram.ErrNotFound, ErrCodeNotFound},
	{diagram.ErrSourceDisabled, ErrCodeSourceDisabled},
	{diagram.ErrSelfLoop, ErrCodeSelfLoop},
	{diagram.ErrDuplicateConnection, ErrCodeDuplicate},
	{diagram.ErrDetachForbidden, ErrCodeForbidden},
	{diagram.ErrInvariant, ErrCodeInternal},
}

// FromCore converts an editor error into a coded [Error]. Errors that
// already carry a code are returned unchanged; unknown errors become
// INTERNAL_ERROR. A nil error returns nil.
func FromCore(err error) error {
	if err == nil {
		return nil
	}
	if GetCode(err) != "" {
		return err
	}
	for _, c := range coreCodes {
		if errors.Is(err, c.sentinel) {
			return &Error{Code: c.code, Message: err.Error(), Cause: err}
		}
	}
	return &Error{Code: ErrCodeInternal, Message: err.Error(), Cause: err}
}
