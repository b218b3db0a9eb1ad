package driving

import "context"

// Scheduler runs the pipeline on its configured interval.
type Scheduler interface {
	// Start blocks until ctx is cancelled or Stop is called.
	Start(ctx context.Context) error

	// Stop ends the loop and waits for an in-flight run.
	Stop() error
}
