package handler

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/sumire/repoboard/internal/domain"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", domain.ErrNotFound, http.StatusNotFound, "not_found"},
		{"wrapped not found", fmt.Errorf("load: %w", domain.ErrNotFound), http.StatusNotFound, "not_found"},
		{"unauthorized", domain.ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
		{"forbidden", domain.ErrForbidden, http.StatusForbidden, "forbidden"},
		{"invalid input", domain.ErrInvalidInput, http.StatusBadRequest, "invalid_input"},
		{"conflict", domain.ErrConflict, http.StatusConflict, "conflict"},
		{"state mismatch", domain.ErrStateMismatch, http.StatusBadRequest, "invalid_state"},
		{"no token", domain.ErrNoToken, http.StatusBadGateway, "no_token"},
		{"not connected", domain.ErrNotConnected, http.StatusConflict, "not_connected"},
		{"echo 404", echo.NewHTTPError(http.StatusNotFound, "route missing"), http.StatusNotFound, http.StatusText(http.StatusNotFound)},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, apiErr := mapError(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantCode, apiErr.Code)
		})
	}
}

func TestMapError_ProviderErrorDescriptionVerbatim(t *testing.T) {
	err := fmt.Errorf("exchange: %w", &domain.ProviderError{
		Code:        "bad_verification_code",
		Description: "The code passed is incorrect or expired.",
	})

	status, apiErr := mapError(err)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "oauth_error", apiErr.Code)
	assert.Equal(t, "The code passed is incorrect or expired.", apiErr.Message)
}

func TestMapError_ProviderErrorWithoutDescription(t *testing.T) {
	_, apiErr := mapError(&domain.ProviderError{Code: "access_denied"})
	assert.Equal(t, "access_denied", apiErr.Message)
}

func TestMapError_ValidationDetails(t *testing.T) {
	status, apiErr := mapError(&domain.ValidationError{Field: "email", Message: "must be a valid email"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "validation_error", apiErr.Code)
	if assert.Len(t, apiErr.Details, 1) {
		assert.Equal(t, "email", apiErr.Details[0].Field)
	}
}
