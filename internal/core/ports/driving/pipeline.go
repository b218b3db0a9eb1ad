package driving

import (
	"context"

	"github.com/custodia-labs/slackpanel/internal/core/domain"
)

// PipelineRunner executes extract/load runs.
type PipelineRunner interface {
	// Run executes pipeline ("members", "channels" or "all") with params.
	// The report is returned even when the run fails, with Status "error".
	Run(ctx context.Context, pipeline string, params domain.RunParams) (*domain.RunReport, error)
}
