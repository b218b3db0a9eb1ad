package driven

import (
	"context"

	"github.com/custodia-labs/slackpanel/internal/core/domain"
)

// RunStore keeps the history of pipeline run reports.
type RunStore interface {
	// SaveRun persists a finished run report.
	SaveRun(ctx context.Context, report *domain.RunReport) error

	// GetRun retrieves a run by ID.
	// Returns domain.ErrNotFound if it does not exist.
	GetRun(ctx context.Context, runID string) (*domain.RunReport, error)

	// ListRuns returns the most recent runs, newest first.
	ListRuns(ctx context.Context, limit int) ([]domain.RunReport, error)
}
