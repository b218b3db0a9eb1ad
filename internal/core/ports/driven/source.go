package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/slackpanel/internal/core/domain"
)

// SourceClient is the boundary to the chat platform.
// Implementations handle pagination and rate limiting internally.
type SourceClient interface {
	// TestAuth validates the credential for role.
	// Used at startup, not on the hot path.
	TestAuth(ctx context.Context, role domain.CredentialRole) (*domain.Identity, error)

	// ListEntities returns the full directory for kind.
	// The first successful listing is cached for the life of the process.
	ListEntities(ctx context.Context, kind domain.EntityKind) ([]domain.Entity, error)

	// GetEntityDetail performs a deep lookup of one entity.
	// Rate limited independently from the bulk listing.
	GetEntityDetail(ctx context.Context, kind domain.EntityKind, id string) (domain.Detail, error)

	// FetchDailyAnalytics returns analytics records for every day in [start, end].
	// Days without data yield no records rather than an error.
	FetchDailyAnalytics(ctx context.Context, start, end time.Time, kind domain.EntityKind) ([]domain.Record, error)
}

// ProfileFieldLabeler is implemented by source clients that can name custom profile fields.
type ProfileFieldLabeler interface {
	ProfileFieldLabels(ctx context.Context) (map[string]string, error)
}
