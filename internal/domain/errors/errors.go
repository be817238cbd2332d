// Package errors defines the application error kinds surfaced by every use case.
package errors

import (
	"net/http"

	"planhub/internal/errors"
)

// Kind classifies an AppError. Every use-case failure maps to exactly one kind.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindUnauthorized
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindUnauthorized:
		return "unauthorized"
	default:
		return "internal"
	}
}

// AppError defines the interface for application-specific errors
type AppError interface {
	error
	Kind() Kind        // Error classification
	HTTPCode() int     // HTTP status code for an upstream API layer
	ErrorCode() string // Business error code
	Message() string   // User-friendly error message
	Details() string   // Detailed error information (optional)
}

// BaseError is a basic error structure that implements the AppError interface
type BaseError struct {
	kind      Kind
	errorCode string
	message   string
	details   string
}

// NewBaseError creates a new base error
func NewBaseError(kind Kind, errorCode, message string) *BaseError {
	return &BaseError{
		kind:      kind,
		errorCode: errorCode,
		message:   message,
	}
}

// Error implements the error interface
func (e *BaseError) Error() string {
	if e.details == "" {
		return e.message
	}

	return e.message + ": " + e.details
}

// Is matches any BaseError with the same business code, so errors derived
// through WithDetails still satisfy errors.Is against the predefined value.
func (e *BaseError) Is(target error) bool {
	t, ok := target.(*BaseError)
	if !ok {
		return false
	}

	return t.errorCode == e.errorCode
}

// WrapMessage wraps the error with additional context message
func (e *BaseError) WrapMessage(message string) error {
	return errors.Wrap(e, message)
}

// Kind returns the error classification
func (e *BaseError) Kind() Kind {
	return e.kind
}

// HTTPCode returns the HTTP status code
func (e *BaseError) HTTPCode() int {
	return e.kind.httpCode()
}

// ErrorCode returns the business error code
func (e *BaseError) ErrorCode() string {
	return e.errorCode
}

// Message returns the user-friendly error message
func (e *BaseError) Message() string {
	return e.message
}

// Details returns detailed error information
func (e *BaseError) Details() string {
	return e.details
}

// WithDetails adds detailed error information
func (e *BaseError) WithDetails(details string) *BaseError {
	return &BaseError{
		kind:      e.kind,
		errorCode: e.errorCode,
		message:   e.message,
		details:   details,
	}
}

func (k Kind) httpCode() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// Predefined error types
var (
	// Validation
	ErrValidationFailed = NewBaseError(KindValidation, "VALIDATION_FAILED", "input validation failed")
	ErrInvalidPrice     = NewBaseError(KindValidation, "INVALID_PRICE", "price must be between 0 and 2147483647")
	ErrInvalidValidity  = NewBaseError(KindValidation, "INVALID_VALIDITY", "validity must be between 1 and 36500 days")
	ErrInvalidPassword  = NewBaseError(KindValidation, "INVALID_PASSWORD", "password is empty or too long")

	// Not found
	ErrPlanNotFound     = NewBaseError(KindNotFound, "PLAN_NOT_FOUND", "plan not found")
	ErrUserNotFound     = NewBaseError(KindNotFound, "USER_NOT_FOUND", "user not found")
	ErrUserPlanNotFound = NewBaseError(KindNotFound, "USER_PLAN_NOT_FOUND", "no active plan for user")

	// Conflict
	ErrUserAlreadyExists = NewBaseError(KindConflict, "USER_ALREADY_EXISTS", "email is already registered")
	ErrPlanInUse         = NewBaseError(KindConflict, "PLAN_IN_USE", "plan is referenced by purchases")

	// Unauthorized
	ErrInvalidCredentials = NewBaseError(KindUnauthorized, "INVALID_CREDENTIALS", "invalid email or password")

	// Internal
	ErrPasswordHashFailed = NewBaseError(KindInternal, "PASSWORD_HASH_FAILED", "password hashing failed")
)

// DatabaseExecuteError represents a database execution error, implementing the AppError interface
type DatabaseExecuteError struct {
	err     error
	details string
}

// NewDatabaseExecuteError creates a database-related error
func NewDatabaseExecuteError(err error, details string) AppError {
	return &DatabaseExecuteError{
		err:     err,
		details: details,
	}
}

// Error implements the error interface
func (e *DatabaseExecuteError) Error() string {
	return errors.Wrap(e.err, "database execution failed").Error()
}

// Unwrap exposes the store error for logging; callers classify through Kind.
func (e *DatabaseExecuteError) Unwrap() error {
	return e.err
}

func (e *DatabaseExecuteError) Kind() Kind        { return KindInternal }
func (e *DatabaseExecuteError) HTTPCode() int     { return http.StatusInternalServerError }
func (e *DatabaseExecuteError) ErrorCode() string { return "DATABASE_EXECUTE_FAILED" }
func (e *DatabaseExecuteError) Message() string   { return "database execution failed" }
func (e *DatabaseExecuteError) Details() string   { return e.details }
