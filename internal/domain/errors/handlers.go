package errors

import "planhub/internal/errors"

// KindOf returns the kind of the first AppError in err's chain.
// Errors that carry no AppError are internal.
func KindOf(err error) Kind {
	var appErr AppError
	if errors.As(err, &appErr) {
		return appErr.Kind()
	}

	return KindInternal
}

func IsValidation(err error) bool   { return err != nil && KindOf(err) == KindValidation }
func IsNotFound(err error) bool     { return err != nil && KindOf(err) == KindNotFound }
func IsConflict(err error) bool     { return err != nil && KindOf(err) == KindConflict }
func IsUnauthorized(err error) bool { return err != nil && KindOf(err) == KindUnauthorized }

// ErrorInfo contains detailed error information
type ErrorInfo struct {
	Code    string `json:"code"`              // Business error code, e.g., "PLAN_NOT_FOUND"
	Kind    string `json:"kind"`              // Error classification
	Message string `json:"message"`           // User-friendly error message
	Details string `json:"details,omitempty"` // Detailed error information (optional)
}

// Describe renders err into an ErrorInfo for transport layers.
func Describe(err error) *ErrorInfo {
	var appErr AppError
	if !errors.As(err, &appErr) {
		return &ErrorInfo{Code: "INTERNAL_ERROR", Kind: KindInternal.String(), Message: "internal error"}
	}

	return &ErrorInfo{
		Code:    appErr.ErrorCode(),
		Kind:    appErr.Kind().String(),
		Message: appErr.Message(),
		Details: appErr.Details(),
	}
}
