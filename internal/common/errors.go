package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrInternal     = errors.New("internal error")
	ErrDatabase     = errors.New("database error")
	ErrValidation   = errors.New("validation failed")
)

// Extraction pipeline failures. Typed errors in the owning packages match these with errors.Is.
var (
	ErrDocumentUnreadable      = errors.New("document unreadable")
	ErrModelCallFailed         = errors.New("model call failed")
	ErrUnparsableReply         = errors.New("unparsable model reply")
	ErrDuplicateOrderReference = errors.New("duplicate order reference")
	ErrTooManyPages            = errors.New("document exceeds page limit")
)

// NewAppError wraps cause so errors.Is still matches the sentinel
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}
