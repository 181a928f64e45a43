// Package domain provides the canonical value types shared by the pipeline
// engine: classified errors, step results, events, and audit metadata.
package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Classification is the category of a pipeline failure. The set is closed:
// every failure surfaced by the engine maps onto one of these three.
type Classification string

const (
	// ClassValidation indicates malformed or out-of-range input, detected
	// before any step runs.
	ClassValidation Classification = "validation"

	// ClassBusiness indicates a domain rule violation recognized by a step.
	ClassBusiness Classification = "business"

	// ClassSystem indicates an unexpected internal failure.
	ClassSystem Classification = "system"
)

// Error codes used by the convenience constructors.
const (
	CodeValidationFailed = "VALIDATION_FAILED"
	CodeBusinessRule     = "BUSINESS_RULE_VIOLATION"
	CodeSystemError      = "SYSTEM_ERROR"
)

// Error is a classified error carried from validation or a step to the
// caller. Cause, when set, is for local diagnostics only and is never part
// of the caller-visible message.
type Error struct {
	// Classification is the failure category.
	Classification Classification `json:"classification"`

	// Code is a machine-readable error code.
	Code string `json:"code"`

	// Message is the human-readable, caller-safe message.
	Message string `json:"message"`

	cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (%s): %s", e.Classification, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Classification, e.Message)
}

// Unwrap exposes the diagnostic cause to errors.Is/As chains.
func (e *Error) Unwrap() error {
	return e.cause
}

// HTTPStatusCode returns the HTTP status a transport layer should use for
// this error.
func (e *Error) HTTPStatusCode() int {
	switch e.Classification {
	case ClassValidation:
		return http.StatusBadRequest
	case ClassBusiness:
		return http.StatusUnprocessableEntity
	case ClassSystem:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// NewError creates a classified error.
func NewError(class Classification, code, message string) *Error {
	return &Error{
		Classification: class,
		Code:           code,
		Message:        message,
	}
}

// WithCode replaces the error code.
func (e *Error) WithCode(code string) *Error {
	e.Code = code
	return e
}

// WithCause attaches a diagnostic cause. The cause is available through
// Unwrap for logging but never included in Message.
func (e *Error) WithCause(cause error) *Error {
	e.cause = cause
	return e
}

// Convenience constructors for the three classifications.

// ErrValidation creates a validation error.
func ErrValidation(message string) *Error {
	return NewError(ClassValidation, CodeValidationFailed, message)
}

// ErrBusiness creates a business-rule error.
func ErrBusiness(message string) *Error {
	return NewError(ClassBusiness, CodeBusinessRule, message)
}

// ErrSystem creates a system error.
func ErrSystem(message string) *Error {
	return NewError(ClassSystem, CodeSystemError, message)
}

// AsClassified returns the classified error wrapped in err, if any.
func AsClassified(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
