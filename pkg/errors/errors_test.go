package errors_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/medflow/medflow-timesheet/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotFoundMessage(t *testing.T) {
	err := errors.NotFoundMessage("No employee found for current user.")

	assert.Equal(t, "NOT_FOUND", err.Code)
	assert.Equal(t, http.StatusNotFound, err.StatusCode)
	assert.Equal(t, "No employee found for current user.", err.Message)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestAppError_SurvivesWrapping(t *testing.T) {
	wrapped := fmt.Errorf("build report: %w", errors.NotFound("employee"))

	var appErr *errors.AppError
	require.True(t, errors.As(wrapped, &appErr))
	assert.Equal(t, "employee not found", appErr.Message)
	assert.True(t, errors.Is(wrapped, errors.ErrNotFound))
}

func TestValidation_Details(t *testing.T) {
	err := errors.Validation(map[string]string{"max_week": "must be at most 52"})

	assert.Equal(t, http.StatusBadRequest, err.StatusCode)
	assert.Equal(t, "must be at most 52", err.Details["max_week"])
	assert.Equal(t, "validation failed: validation error", err.Error())
}

func TestTokenErrors(t *testing.T) {
	assert.Equal(t, http.StatusUnauthorized, errors.TokenInvalid().StatusCode)
	assert.Equal(t, "TOKEN_EXPIRED", errors.TokenExpired().Code)
	assert.True(t, errors.Is(errors.TokenExpired(), errors.ErrTokenExpired))
}
