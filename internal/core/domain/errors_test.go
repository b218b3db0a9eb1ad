package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrors_Existence(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrNotFound", ErrNotFound},
		{"ErrInvalidInput", ErrInvalidInput},
		{"ErrUnknownPipeline", ErrUnknownPipeline},
		{"ErrDataUnavailable", ErrDataUnavailable},
		{"ErrRateLimited", ErrRateLimited},
		{"ErrAuthInvalid", ErrAuthInvalid},
		{"ErrUploadFailed", ErrUploadFailed},
		{"ErrStorageUnavailable", ErrStorageUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.err)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestValidationError_Error(t *testing.T) {
	err := NewValidationError("days", "days must be a positive integer, got %q", "abc")

	assert.Equal(t, `days must be a positive integer, got "abc"`, err.Error())
	assert.Equal(t, "days", err.Field)
}

func TestValidationError_UnwrapsToInvalidInput(t *testing.T) {
	err := fmt.Errorf("parse params: %w", NewValidationError("days", "bad"))

	assert.True(t, errors.Is(err, ErrInvalidInput))
	assert.True(t, IsValidation(err))
}

func TestIsValidation_OtherErrors(t *testing.T) {
	assert.False(t, IsValidation(nil))
	assert.False(t, IsValidation(ErrInvalidInput))
	assert.False(t, IsValidation(errors.New("boom")))
}
