package domain

import "time"

// TaskIDPipelineSync is the recurring extract and load run.
const TaskIDPipelineSync = "pipeline-sync"

// ScheduledTask is the persisted state of a recurring pipeline run.
type ScheduledTask struct {
	ID       string
	Name     string
	Interval time.Duration
	Enabled  bool

	// NextRun is zero until the first run has been scheduled.
	NextRun time.Time

	LastRun     time.Time
	LastSuccess time.Time

	// LastError is the error of the most recent run, cleared on success.
	LastError string
}

// Due reports whether the task should run at now.
func (t *ScheduledTask) Due(now time.Time) bool {
	return t.Enabled && !t.NextRun.After(now)
}

// TaskResult is one execution of a scheduled task.
type TaskResult struct {
	TaskID    string
	StartedAt time.Time
	EndedAt   time.Time
	Success   bool
	Error     string

	// ItemsProcessed is days extracted plus files uploaded.
	ItemsProcessed int
}

// SchedulerConfig enables the scheduler and configures its tasks.
type SchedulerConfig struct {
	Enabled     bool
	TaskConfigs map[string]TaskConfig
}

// TaskConfig configures one scheduled pipeline run.
type TaskConfig struct {
	Enabled  bool
	Interval time.Duration

	// Pipeline is "members", "channels" or "all". Empty means "all".
	Pipeline string

	// Days overrides the environment default window when positive.
	Days int
}

// Run returns the pipeline and parameters a scheduled run uses.
func (c TaskConfig) Run() (string, RunParams) {
	pipeline := c.Pipeline
	if pipeline == "" {
		pipeline = PipelineAll
	}
	var params RunParams
	if c.Days > 0 {
		params.Days = c.Days
	}
	return pipeline, params
}

// GetTaskConfig returns the configuration of taskID, or a zero TaskConfig.
func (c *SchedulerConfig) GetTaskConfig(taskID string) TaskConfig {
	if c.TaskConfigs == nil {
		return TaskConfig{}
	}
	return c.TaskConfigs[taskID]
}

// DefaultSchedulerConfig runs every entity-pipeline once a day over the
// default window. The scheduler itself is opt-in.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		TaskConfigs: map[string]TaskConfig{
			TaskIDPipelineSync: {
				Enabled:  true,
				Interval: 24 * time.Hour,
				Pipeline: PipelineAll,
			},
		},
	}
}
