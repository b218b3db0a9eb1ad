package driven

import "github.com/custodia-labs/slackpanel/internal/core/domain"

// RunObserver is notified of every finished run, e.g. to export counters.
type RunObserver interface {
	ObserveRun(report *domain.RunReport)
}
