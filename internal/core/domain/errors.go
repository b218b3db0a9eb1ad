package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnknownPipeline indicates a pipeline name outside members, channels and all.
	ErrUnknownPipeline = errors.New("unknown pipeline")

	// Source Errors.

	// ErrDataUnavailable indicates the source has no analytics file for a day yet.
	// Callers treat it as zero records, never as a failure.
	ErrDataUnavailable = errors.New("analytics data unavailable")

	// ErrRateLimited indicates the API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// ErrAuthInvalid indicates the authentication credentials are invalid.
	ErrAuthInvalid = errors.New("authentication invalid")

	// Load Errors.

	// ErrUploadFailed indicates a destination batch failed after all retries.
	ErrUploadFailed = errors.New("upload failed")

	// ErrStorageUnavailable indicates the blob store backend cannot be reached.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// ValidationError reports malformed or conflicting run parameters.
// It is raised before any I/O and maps to a 4xx outcome.
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError builds a ValidationError for field.
func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	}
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Unwrap lets errors.Is(err, ErrInvalidInput) match validation failures.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var vErr *ValidationError
	return errors.As(err, &vErr)
}
