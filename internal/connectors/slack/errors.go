package slack

import (
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/slackpanel/internal/core/domain"
)

// Slack error codes with special handling.
const (
	CodeRateLimited         = "ratelimited"
	CodeDataNotAvailable    = "data_not_available"
	CodeFileNotFound        = "file_not_found"
	CodeFileNotYetAvailable = "file_not_yet_available"
	CodeUserNotFound        = "user_not_found"
	CodeChannelNotFound     = "channel_not_found"
	CodeInvalidAuth         = "invalid_auth"
	CodeNotAuthed           = "not_authed"
	CodeTokenRevoked        = "token_revoked"
	CodeAccountInactive     = "account_inactive"
)

// emptyDataCodes are analytics errors that mean "no file for this day".
var emptyDataCodes = map[string]bool{
	CodeDataNotAvailable:    true,
	CodeFileNotFound:        true,
	CodeFileNotYetAvailable: true,
}

// RateLimitError is returned for HTTP 429 or a "ratelimited" error code.
type RateLimitError struct {
	Method     string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("slack: %s rate limited, retry after %s", e.Method, e.RetryAfter)
	}
	return fmt.Sprintf("slack: %s rate limited", e.Method)
}

// Unwrap lets errors.Is(err, domain.ErrRateLimited) match.
func (e *RateLimitError) Unwrap() error {
	return domain.ErrRateLimited
}

// APIError is a Slack response with ok=false or an unexpected HTTP status.
type APIError struct {
	Method     string
	StatusCode int
	Code       string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("slack: %s failed: %s", e.Method, e.Code)
	}
	return fmt.Sprintf("slack: %s failed with HTTP %d", e.Method, e.StatusCode)
}

// Unwrap maps well-known codes onto domain errors.
func (e *APIError) Unwrap() error {
	switch {
	case emptyDataCodes[e.Code]:
		return domain.ErrDataUnavailable
	case e.Code == CodeUserNotFound, e.Code == CodeChannelNotFound, e.StatusCode == 404:
		return domain.ErrNotFound
	case e.Code == CodeInvalidAuth, e.Code == CodeNotAuthed, e.Code == CodeTokenRevoked,
		e.Code == CodeAccountInactive, e.StatusCode == 401:
		return domain.ErrAuthInvalid
	}
	return nil
}

// IsRateLimited checks if the error indicates rate limiting.
func IsRateLimited(err error) bool {
	var rlErr *RateLimitError
	return errors.As(err, &rlErr)
}

// IsDataUnavailable checks if the error means the day has no analytics file.
func IsDataUnavailable(err error) bool {
	return errors.Is(err, domain.ErrDataUnavailable)
}

// IsNotFound checks if the error indicates a missing user or channel.
func IsNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}

// IsUnauthorized checks if the error indicates a bad or revoked token.
func IsUnauthorized(err error) bool {
	return errors.Is(err, domain.ErrAuthInvalid)
}
