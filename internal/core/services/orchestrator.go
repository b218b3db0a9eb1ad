package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/slackpanel/internal/core/domain"
	"github.com/custodia-labs/slackpanel/internal/core/ports/driven"
	"github.com/custodia-labs/slackpanel/internal/core/ports/driving"
	"github.com/custodia-labs/slackpanel/internal/logger"
)

// Ensure Orchestrator implements the interface.
var _ driving.PipelineRunner = (*Orchestrator)(nil)

// OrchestratorConfig configures the Orchestrator.
type OrchestratorConfig struct {
	Window WindowConfig

	// Now defaults to time.Now.
	Now func() time.Time
}

// Orchestrator sequences Extract then Load per entity-pipeline and assembles run reports.
type Orchestrator struct {
	source    driven.SourceClient
	blobs     driven.BlobStore
	extractor *Extractor
	loader    *Loader
	runs      driven.RunStore
	observer  driven.RunObserver
	config    OrchestratorConfig
}

// NewOrchestrator creates a pipeline orchestrator.
// The runs store and observer are optional and may be nil.
func NewOrchestrator(
	source driven.SourceClient,
	blobs driven.BlobStore,
	extractor *Extractor,
	loader *Loader,
	runs driven.RunStore,
	observer driven.RunObserver,
	config OrchestratorConfig,
) *Orchestrator {
	if config.Now == nil {
		config.Now = time.Now
	}
	return &Orchestrator{
		source:    source,
		blobs:     blobs,
		extractor: extractor,
		loader:    loader,
		runs:      runs,
		observer:  observer,
		config:    config,
	}
}

// Validate checks both source credentials. Called once at startup.
func (o *Orchestrator) Validate(ctx context.Context) error {
	var errs []error
	for _, role := range []domain.CredentialRole{domain.RoleBot, domain.RoleUser} {
		id, err := o.source.TestAuth(ctx, role)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s token: %w", role, err))
			continue
		}
		if id == nil || !id.OK {
			errs = append(errs, fmt.Errorf("%s token: %w", role, domain.ErrAuthInvalid))
			continue
		}
		logger.Info("%s token valid for %s (%s)", role, id.Team, id.TeamID)
	}
	return errors.Join(errs...)
}

// kindOutcome holds one entity-pipeline's results until the report is assembled.
type kindOutcome struct {
	extract *domain.ExtractResult
	load    *domain.LoadResult
}

// Run executes pipeline with params.
// Unknown pipelines and invalid windows fail before any I/O and return no report.
// Once started, the report is returned even when the run fails.
func (o *Orchestrator) Run(ctx context.Context, pipeline string, params domain.RunParams) (*domain.RunReport, error) {
	kinds, err := domain.ParsePipeline(pipeline)
	if err != nil {
		return nil, err
	}
	if params.ExtractOnly && params.LoadOnly {
		return nil, domain.NewValidationError("extractOnly", "extractOnly and loadOnly are mutually exclusive")
	}

	start := o.config.Now()
	window, err := ComputeDateRange(params, o.config.Window, start)
	if err != nil {
		return nil, err
	}

	report := &domain.RunReport{
		RunID:    uuid.New().String(),
		Pipeline: pipeline,
		Timing:   domain.Timing{Start: start},
		Params:   params,
		Window: domain.Window{
			Start: window.Start.Format(domain.DateLayout),
			End:   window.End.Format(domain.DateLayout),
			Days:  window.Len(),
		},
		Extract: map[domain.EntityKind]*domain.ExtractResult{},
		Load:    map[domain.EntityKind]*domain.LoadResult{},
	}

	logger.InfoFields("run started", logger.Fields{
		"run_id":   report.RunID,
		"pipeline": pipeline,
		"window":   window.String(),
	})

	outcomes := make([]kindOutcome, len(kinds))
	g, gctx := errgroup.WithContext(ctx)
	for i, kind := range kinds {
		g.Go(func() error {
			out, err := o.runKind(gctx, kind, window, params)
			outcomes[i] = out
			if err != nil {
				return fmt.Errorf("%s: %w", kind, err)
			}
			return nil
		})
	}
	runErr := g.Wait()

	for i, kind := range kinds {
		if outcomes[i].extract != nil {
			report.Extract[kind] = outcomes[i].extract
		}
		if outcomes[i].load != nil {
			report.Load[kind] = outcomes[i].load
		}
	}

	end := o.config.Now()
	report.Timing.End = end
	report.Timing.DurationMS = end.Sub(start).Milliseconds()
	report.Status = domain.RunStatusSuccess
	if runErr != nil {
		report.Status = domain.RunStatusError
		report.Error = runErr.Error()
	}

	o.finish(ctx, report)
	return report, runErr
}

// runKind runs extract then load for one kind, honouring extractOnly and loadOnly.
func (o *Orchestrator) runKind(ctx context.Context, kind domain.EntityKind, window domain.DateRange, params domain.RunParams) (kindOutcome, error) {
	var (
		out   kindOutcome
		files []string
	)

	if params.LoadOnly {
		existing, err := o.existingFiles(ctx, kind, window)
		if err != nil {
			return out, err
		}
		files = existing
	} else {
		res, err := o.extractor.Extract(ctx, kind, window.Start, window.End)
		if err != nil {
			return out, fmt.Errorf("extract: %w", err)
		}
		out.extract = res
		files = res.Files
	}

	if params.ExtractOnly {
		return out, nil
	}

	res, err := o.loader.Load(ctx, kind, files, LoadOptions{Cleanup: params.Cleanup})
	if err != nil {
		return out, fmt.Errorf("load: %w", err)
	}
	out.load = res
	return out, nil
}

// existingFiles lists the day files already persisted for kind in window.
func (o *Orchestrator) existingFiles(ctx context.Context, kind domain.EntityKind, window domain.DateRange) ([]string, error) {
	var files []string
	for _, day := range window.Days() {
		rel := domain.DayFilePath(kind, day)
		ok, err := o.blobs.Exists(ctx, rel)
		if err != nil {
			return nil, fmt.Errorf("check %s: %w", rel, errors.Join(domain.ErrStorageUnavailable, err))
		}
		if ok {
			files = append(files, o.blobs.ResolveFullPath(rel))
		}
	}
	return files, nil
}

// finish persists and publishes a completed report. Neither step fails the run.
func (o *Orchestrator) finish(ctx context.Context, report *domain.RunReport) {
	extracted, skipped, uploaded, failed := report.Totals()
	logger.InfoFields("run finished", logger.Fields{
		"run_id":      report.RunID,
		"pipeline":    report.Pipeline,
		"status":      report.Status,
		"duration_ms": report.Timing.DurationMS,
		"extracted":   extracted,
		"skipped":     skipped,
		"uploaded":    uploaded,
		"failed":      failed,
	})

	if o.observer != nil {
		o.observer.ObserveRun(report)
	}
	if o.runs != nil {
		if err := o.runs.SaveRun(context.WithoutCancel(ctx), report); err != nil {
			logger.Warn("save run %s: %v", report.RunID, err)
		}
	}
}
