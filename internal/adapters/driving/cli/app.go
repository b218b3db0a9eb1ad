package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/custodia-labs/slackpanel/internal/adapters/driven/config/file"
	"github.com/custodia-labs/slackpanel/internal/adapters/driven/storage/blob"
	"github.com/custodia-labs/slackpanel/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/slackpanel/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/slackpanel/internal/connectors/mixpanel"
	"github.com/custodia-labs/slackpanel/internal/connectors/slack"
	"github.com/custodia-labs/slackpanel/internal/core/domain"
	"github.com/custodia-labs/slackpanel/internal/core/ports/driven"
	"github.com/custodia-labs/slackpanel/internal/core/ports/driving"
	"github.com/custodia-labs/slackpanel/internal/core/services"
	"github.com/custodia-labs/slackpanel/internal/logger"
	"github.com/custodia-labs/slackpanel/internal/metrics"
)

// App is the set of services the commands drive.
type App struct {
	Config    *file.Config
	Runner    driving.PipelineRunner
	Runs      driven.RunStore
	Scheduler driving.Scheduler
	Gatherer  prometheus.Gatherer

	closers []func() error
}

// Close releases the database and other held resources.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// WireOptions alter how Wire builds the App.
type WireOptions struct {
	// Ephemeral keeps run history and scheduler state in memory.
	Ephemeral bool

	// SkipValidate skips the startup credential check.
	SkipValidate bool
}

// Wire builds every adapter and service from cfg.
func Wire(ctx context.Context, cfg *file.Config, opts WireOptions) (*App, error) {
	a := &App{Config: cfg}

	source := slack.NewClient(slack.Config{
		BotToken:   cfg.Slack.BotToken,
		UserToken:  cfg.Slack.UserToken,
		BaseURL:    cfg.Slack.BaseURL,
		Timeout:    cfg.Slack.Timeout.Duration,
		DetailRate: cfg.Slack.DetailRate,
		AnalyticsJitter: slack.Jitter{
			Min: cfg.Slack.AnalyticsJitterMin.Duration,
			Max: cfg.Slack.AnalyticsJitterMax.Duration,
		},
		RateLimitBackoff: cfg.Slack.RateLimitBackoff.Duration,
		RateLimitRetries: cfg.Slack.RateLimitRetries,
	})

	blobs, err := blob.New(ctx, blob.Config{
		Root:        cfg.Storage.Root,
		GCSBasePath: cfg.Storage.GCSBasePath,
	})
	if err != nil {
		return nil, fmt.Errorf("opening blob store: %w", err)
	}

	uploader := mixpanel.NewUploader(mixpanel.Config{
		ProjectID:     cfg.Mixpanel.ProjectID,
		Token:         cfg.Mixpanel.Token,
		ServiceUser:   cfg.Mixpanel.ServiceUser,
		ServiceSecret: cfg.Mixpanel.ServiceSecret,
		Region:        cfg.Mixpanel.Region,
		BaseURL:       cfg.Mixpanel.BaseURL,
		BatchSize:     cfg.Mixpanel.BatchSize,
		MaxBatchBytes: cfg.Mixpanel.MaxBatchBytes,
		Workers:       cfg.Mixpanel.Workers,
		Timeout:       cfg.Mixpanel.Timeout.Duration,
	}, blobs)

	var schedulerStore driven.SchedulerStore
	if opts.Ephemeral {
		a.Runs = memory.NewRunStore()
		schedulerStore = memory.NewSchedulerStore()
	} else {
		store, err := sqlite.NewStore(cfg.Storage.DataDir)
		if err != nil {
			return nil, fmt.Errorf("opening run history: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		a.Runs = store.RunStore()
		schedulerStore = store.SchedulerStore()
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	observer, err := metrics.New(registry)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("registering metrics: %w", err)
	}
	a.Gatherer = registry

	p := cfg.Pipeline
	extractor := services.NewExtractor(source, blobs, services.ExtractConfig{
		EmailDomain:    p.EmailDomain,
		MaxEnrichment:  p.MaxEnrichment,
		DayConcurrency: p.DayConcurrency,
		DetailJitter: services.Jitter{
			Min: p.DetailJitterMin.Duration,
			Max: p.DetailJitterMax.Duration,
		},
	})
	loader := services.NewLoader(source, blobs, uploader, services.LoadConfig{
		Attempts:      p.UploadAttempts,
		RetryStep:     p.UploadRetryStep.Duration,
		MemberPrefix:  p.MemberPrefix,
		ChannelPrefix: p.ChannelPrefix,
		GroupKey:      p.GroupKey,
		ManagerField:  p.ManagerField,
	})

	defaultDays := p.DefaultDays
	if defaultDays <= 0 {
		defaultDays = services.DefaultDaysFor(cfg.Environment)
	}
	orchestrator := services.NewOrchestrator(source, blobs, extractor, loader, a.Runs, observer,
		services.OrchestratorConfig{
			Window: services.WindowConfig{
				DefaultDays:  defaultDays,
				BackfillDays: p.BackfillDays,
				BackfillLead: p.BackfillLead,
			},
		})

	if !opts.SkipValidate {
		if err := orchestrator.Validate(ctx); err != nil {
			_ = a.Close()
			return nil, err
		}
	}
	a.Runner = orchestrator

	a.Scheduler = services.NewScheduler(schedulerConfig(cfg), schedulerStore, orchestrator)

	logger.Debug("wired: environment=%s window=%dd blob=%s", cfg.Environment, defaultDays, blobBackend(cfg))
	return a, nil
}

func schedulerConfig(cfg *file.Config) domain.SchedulerConfig {
	sc := domain.DefaultSchedulerConfig()
	sc.Enabled = cfg.Scheduler.Enabled

	task := sc.TaskConfigs[domain.TaskIDPipelineSync]
	if cfg.Scheduler.Interval.Duration > 0 {
		task.Interval = cfg.Scheduler.Interval.Duration
	}
	if cfg.Scheduler.Pipeline != "" {
		task.Pipeline = cfg.Scheduler.Pipeline
	}
	task.Days = cfg.Scheduler.Days
	sc.TaskConfigs[domain.TaskIDPipelineSync] = task
	return sc
}

func blobBackend(cfg *file.Config) string {
	if cfg.Storage.GCSBasePath != "" {
		return cfg.Storage.GCSBasePath
	}
	return cfg.Storage.Root
}
