package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConstructorsSetCategoryAndStatus(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		category ErrorCategory
		status   int
	}{
		{"validation", NewValidationError("bad input"), CategoryValidation, http.StatusBadRequest},
		{"not found", NewNotFoundError("no record"), CategoryNotFound, http.StatusNotFound},
		{"persistence", NewPersistenceError("write failed", errors.New("disk full")), CategoryPersistence, http.StatusInternalServerError},
		{"network", NewNetworkError("unreachable", nil), CategoryNetwork, http.StatusBadGateway},
		{"rate limit", NewRateLimitError("60"), CategoryRateLimit, http.StatusTooManyRequests},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.category, tt.err.Category)
			assert.Equal(t, tt.status, tt.err.HTTPStatus)
			assert.False(t, tt.err.Timestamp.IsZero())
		})
	}
}

func TestErrorMessageCarriesCode(t *testing.T) {
	err := NewNotFoundError("No score found for wallet")
	assert.Equal(t, "[NOT_FOUND] No score found for wallet", err.Error())

	err = NewValidationError("Invalid Stellar address format")
	assert.Equal(t, "[VALIDATION_ERROR] Invalid Stellar address format", err.Error())
}

func TestPersistenceErrorUnwrapsCause(t *testing.T) {
	cause := errors.New("database is locked")
	err := NewPersistenceError("upsert failed", cause)

	assert.ErrorIs(t, err, cause)
}

func TestToAppError(t *testing.T) {
	tests := []struct {
		name     string
		input    error
		category ErrorCategory
	}{
		{"passes through app errors", NewNotFoundError("missing"), CategoryNotFound},
		{"connection refused", errors.New("dial tcp: connection refused"), CategoryNetwork},
		{"timeout text", errors.New("i/o timeout"), CategoryTimeout},
		{"context deadline", fmt.Errorf("fetch: %w", context.DeadlineExceeded), CategoryTimeout},
		{"anything else", errors.New("boom"), CategoryInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appErr := ToAppError(tt.input)
			assert.Equal(t, tt.category, appErr.Category)
		})
	}

	assert.Nil(t, ToAppError(nil))
}

func TestIsRetryableError(t *testing.T) {
	assert.True(t, IsRetryableError(NewNetworkError("down", nil)))
	assert.True(t, IsRetryableError(NewTimeoutError("slow", nil)))
	assert.True(t, IsRetryableError(NewRateLimitError("30")))
	assert.False(t, IsRetryableError(NewValidationError("bad")))
	assert.False(t, IsRetryableError(NewPersistenceError("broken", nil)))
}
