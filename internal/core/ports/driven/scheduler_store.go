package driven

import (
	"context"

	"github.com/custodia-labs/slackpanel/internal/core/domain"
)

// SchedulerStore persists scheduled task state and execution history across restarts.
type SchedulerStore interface {
	// GetTask returns the task, or nil and no error if it does not exist.
	GetTask(ctx context.Context, taskID string) (*domain.ScheduledTask, error)

	// ListTasks returns every task.
	ListTasks(ctx context.Context) ([]domain.ScheduledTask, error)

	// SaveTask creates or replaces a task by ID.
	SaveTask(ctx context.Context, task *domain.ScheduledTask) error

	// DeleteTask removes a task and its history.
	DeleteTask(ctx context.Context, taskID string) error

	// RecordResult appends one execution result.
	RecordResult(ctx context.Context, result *domain.TaskResult) error

	// GetTaskHistory returns up to limit results for a task, most recent first.
	GetTaskHistory(ctx context.Context, taskID string, limit int) ([]domain.TaskResult, error)

	// PruneHistory keeps only the newest keep results per task.
	PruneHistory(ctx context.Context, keep int) error
}
