package errors

import (
	"database/sql"
	"net/http"
	"testing"

	"planhub/internal/errors"

	"github.com/stretchr/testify/assert"
)

func TestBaseError_IsMatchesByCode(t *testing.T) {
	detailed := ErrPlanNotFound.WithDetails("id=42")

	assert.ErrorIs(t, detailed, ErrPlanNotFound)
	assert.ErrorIs(t, errors.Wrap(detailed, "get plan"), ErrPlanNotFound)
	assert.NotErrorIs(t, detailed, ErrUserNotFound)
	assert.NotErrorIs(t, detailed, errors.New("plan not found"))

	assert.Equal(t, "plan not found: id=42", detailed.Error())
	assert.Empty(t, ErrPlanNotFound.Details(), "WithDetails must not mutate the predefined error")
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		want     Kind
		httpCode int
	}{
		{name: "validation", err: ErrInvalidPrice, want: KindValidation, httpCode: http.StatusBadRequest},
		{name: "wrapped not found", err: errors.Wrap(ErrUserNotFound, "load user"), want: KindNotFound, httpCode: http.StatusNotFound},
		{name: "conflict with details", err: ErrPlanInUse.WithDetails("3 purchases"), want: KindConflict, httpCode: http.StatusConflict},
		{name: "unauthorized", err: ErrInvalidCredentials, want: KindUnauthorized, httpCode: http.StatusUnauthorized},
		{name: "database", err: NewDatabaseExecuteError(sql.ErrConnDone, "insert plan"), want: KindInternal, httpCode: http.StatusInternalServerError},
		{name: "plain error", err: errors.New("boom"), want: KindInternal, httpCode: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))

			var appErr AppError
			if errors.As(tt.err, &appErr) {
				assert.Equal(t, tt.httpCode, appErr.HTTPCode())
			}
		})
	}

	assert.True(t, IsValidation(ErrInvalidValidity))
	assert.True(t, IsNotFound(ErrUserPlanNotFound))
	assert.True(t, IsConflict(ErrUserAlreadyExists))
	assert.True(t, IsUnauthorized(ErrInvalidCredentials))
	assert.False(t, IsNotFound(nil))
	assert.False(t, IsConflict(ErrPlanNotFound))
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorInfo
	}{
		{
			name: "base error with details",
			err:  errors.Wrap(ErrValidationFailed.WithDetails("name: required"), "create plan"),
			want: ErrorInfo{Code: "VALIDATION_FAILED", Kind: "validation", Message: "input validation failed", Details: "name: required"},
		},
		{
			name: "database error",
			err:  NewDatabaseExecuteError(sql.ErrTxDone, "commit"),
			want: ErrorInfo{Code: "DATABASE_EXECUTE_FAILED", Kind: "internal", Message: "database execution failed", Details: "commit"},
		},
		{
			name: "unclassified error",
			err:  errors.New("socket closed"),
			want: ErrorInfo{Code: "INTERNAL_ERROR", Kind: "internal", Message: "internal error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, &tt.want, Describe(tt.err))
		})
	}
}

func TestDatabaseExecuteError_Unwrap(t *testing.T) {
	err := NewDatabaseExecuteError(sql.ErrNoRows, "find plan")

	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.Contains(t, err.Error(), sql.ErrNoRows.Error())
}
