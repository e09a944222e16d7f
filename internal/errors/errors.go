package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a category of SSO error.
type ErrorCode string

const (
	// ErrCodeMalformedToken indicates a token or identity payload that cannot be parsed.
	ErrCodeMalformedToken ErrorCode = "malformed_token"
	// ErrCodeExpiredSession indicates a session whose expiry has passed.
	ErrCodeExpiredSession ErrorCode = "expired_session"
	// ErrCodeStoreCorruption indicates a partial or unparsable persisted session record.
	ErrCodeStoreCorruption ErrorCode = "store_corruption"
	// ErrCodeRedirectUnavailable indicates configuration missing a URL required for redirects.
	// This is the only fatal code.
	ErrCodeRedirectUnavailable ErrorCode = "redirect_unavailable"
	// ErrCodeValidation indicates invalid input data.
	ErrCodeValidation ErrorCode = "validation"
	// ErrCodeInternal indicates an internal error (storage I/O and the like).
	ErrCodeInternal ErrorCode = "internal"
)

// AppError represents a structured application error with a code, message, and optional cause.
// It supports error wrapping and unwrapping for use with errors.Is and errors.As.
type AppError struct {
	// Code categorizes the error type
	Code ErrorCode
	// Message is a human-readable error message
	Message string
	// Cause is the underlying error that caused this error (optional)
	Cause error
	// Field is the specific field that caused the error (optional, for validation errors)
	Field string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause, enabling errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// MalformedToken creates a new MalformedToken error wrapping cause (which may be nil).
func MalformedToken(message string, cause error) *AppError {
	return &AppError{
		Code:    ErrCodeMalformedToken,
		Message: message,
		Cause:   cause,
	}
}

// ExpiredSession creates a new ExpiredSession error.
func ExpiredSession(message string) *AppError {
	return &AppError{
		Code:    ErrCodeExpiredSession,
		Message: message,
	}
}

// StoreCorruption creates a new StoreCorruption error wrapping cause (which may be nil).
func StoreCorruption(message string, cause error) *AppError {
	return &AppError{
		Code:    ErrCodeStoreCorruption,
		Message: message,
		Cause:   cause,
	}
}

// RedirectUnavailable creates a new RedirectUnavailable error for a configuration field.
func RedirectUnavailable(field, message string) *AppError {
	return &AppError{
		Code:    ErrCodeRedirectUnavailable,
		Message: message,
		Field:   field,
	}
}

// Validation creates a new Validation error.
func Validation(message string) *AppError {
	return &AppError{
		Code:    ErrCodeValidation,
		Message: message,
	}
}

// Validationf creates a new Validation error with formatted message.
func Validationf(format string, args ...any) *AppError {
	return &AppError{
		Code:    ErrCodeValidation,
		Message: fmt.Sprintf(format, args...),
	}
}

// ValidationField creates a new Validation error for a specific field.
func ValidationField(field, message string) *AppError {
	return &AppError{
		Code:    ErrCodeValidation,
		Message: message,
		Field:   field,
	}
}

// Wrap wraps an existing error with an AppError, preserving the cause.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an existing error with an AppError and formatted message.
func Wrapf(err error, code ErrorCode, format string, args ...any) *AppError {
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// isCode checks if an error has a specific error code.
func isCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// IsMalformedToken checks if an error is a MalformedToken error.
func IsMalformedToken(err error) bool {
	return isCode(err, ErrCodeMalformedToken)
}

// IsExpiredSession checks if an error is an ExpiredSession error.
func IsExpiredSession(err error) bool {
	return isCode(err, ErrCodeExpiredSession)
}

// IsStoreCorruption checks if an error is a StoreCorruption error.
func IsStoreCorruption(err error) bool {
	return isCode(err, ErrCodeStoreCorruption)
}

// IsRedirectUnavailable checks if an error is a RedirectUnavailable error.
func IsRedirectUnavailable(err error) bool {
	return isCode(err, ErrCodeRedirectUnavailable)
}

// IsValidation checks if an error is a Validation error.
func IsValidation(err error) bool {
	return isCode(err, ErrCodeValidation)
}

// IsInternal checks if an error is an Internal error.
func IsInternal(err error) bool {
	return isCode(err, ErrCodeInternal)
}

// IsRecoverable reports whether err belongs to the class that resolves into
// "send to login" rather than failing loudly.
func IsRecoverable(err error) bool {
	return err != nil && !IsRedirectUnavailable(err)
}

// GetCode returns the ErrorCode from an error, or empty string if not an AppError.
func GetCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// GetField returns the Field from an error, or empty string if not an AppError or no field set.
func GetField(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Field
	}
	return ""
}
