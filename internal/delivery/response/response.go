package response

import (
	"net/http"

	domainerrors "planhub/internal/domain/errors"
	"planhub/internal/errors"

	"github.com/labstack/echo/v4"
)

// Response unified API response structure
type Response struct {
	Success bool       `json:"success"`
	Code    int        `json:"code"`    // HTTP status code
	Message string     `json:"message"` // User-friendly message
	Data    any        `json:"data,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
}

// ErrorInfo detailed error information
type ErrorInfo struct {
	Code    string `json:"code"`              // Business error code, e.g., "USER_NOT_FOUND"
	Kind    string `json:"kind,omitempty"`    // Error classification
	Details string `json:"details,omitempty"` // Detailed error description
}

// Success successful response
func Success(c echo.Context, statusCode int, data any, message string) error {
	if message == "" {
		message = "Success"
	}

	return c.JSON(statusCode, Response{
		Success: true,
		Code:    statusCode,
		Message: message,
		Data:    data,
	})
}

// Error error response
func Error(c echo.Context, statusCode int, errorCode, message, details string) error {
	if message == "" {
		message = http.StatusText(statusCode)
	}

	return c.JSON(statusCode, Response{
		Success: false,
		Code:    statusCode,
		Message: message,
		Error: &ErrorInfo{
			Code:    errorCode,
			Details: details,
		},
	})
}

// FromError renders err by its application error kind. Errors without a
// kind are reported as internal and carry no details.
func FromError(c echo.Context, err error) error {
	info := domainerrors.Describe(err)
	status := http.StatusInternalServerError
	var appErr domainerrors.AppError
	if errors.As(err, &appErr) {
		status = appErr.HTTPCode()
	}
	if status >= http.StatusInternalServerError {
		info.Details = ""
	}

	return c.JSON(status, Response{
		Success: false,
		Code:    status,
		Message: info.Message,
		Error: &ErrorInfo{
			Code:    info.Code,
			Kind:    info.Kind,
			Details: info.Details,
		},
	})
}

// Conflict 409 error
func Conflict(c echo.Context, errorCode, message string) error {
	return Error(c, http.StatusConflict, errorCode, message, "")
}
