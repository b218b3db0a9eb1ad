package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/custodia-labs/slackpanel/internal/core/domain"
	"github.com/custodia-labs/slackpanel/internal/core/ports/driven"
	"github.com/custodia-labs/slackpanel/internal/logger"
)

// Load defaults.
const (
	DefaultUploadAttempts  = 3
	DefaultUploadRetryStep = 2 * time.Second
)

// LoadConfig configures the Load stage.
type LoadConfig struct {
	// Attempts is the total number of tries per phase.
	Attempts int

	// RetryStep grows the delay linearly: attempt*RetryStep.
	RetryStep time.Duration

	// MemberPrefix and ChannelPrefix prefix lookup-derived display properties.
	MemberPrefix  string
	ChannelPrefix string

	// GroupKey is the destination group key for channel profiles.
	GroupKey string

	// ManagerField is the custom profile field holding a manager's member ID.
	ManagerField string
}

// LoadOptions are per-call Load options.
type LoadOptions struct {
	// Cleanup deletes the day files once both phases succeed.
	Cleanup bool
}

// Loader uploads day files to the destination.
type Loader struct {
	source   driven.SourceClient
	blobs    driven.BlobStore
	uploader driven.Uploader
	config   LoadConfig
}

// NewLoader creates a Load stage.
func NewLoader(source driven.SourceClient, blobs driven.BlobStore, uploader driven.Uploader, config LoadConfig) *Loader {
	if config.Attempts < 1 {
		config.Attempts = DefaultUploadAttempts
	}
	if config.RetryStep <= 0 {
		config.RetryStep = DefaultUploadRetryStep
	}
	if config.MemberPrefix == "" {
		config.MemberPrefix = "member"
	}
	if config.ChannelPrefix == "" {
		config.ChannelPrefix = "channel"
	}
	if config.GroupKey == "" {
		config.GroupKey = domain.KindChannels.IDField()
	}
	return &Loader{source: source, blobs: blobs, uploader: uploader, config: config}
}

// Load uploads events then profiles for files.
// Profiles are only uploaded once events succeed; cleanup requires both.
func (l *Loader) Load(ctx context.Context, kind domain.EntityKind, files []string, opts LoadOptions) (*domain.LoadResult, error) {
	result := &domain.LoadResult{}
	if len(files) == 0 {
		logger.Debug("no %s files to load", kind)
		result.Results.Events.Success = true
		result.Results.Profiles.Success = true
		return result, nil
	}

	logger.Section(fmt.Sprintf("Load %s", kind))

	heavy := l.heavyObjects(ctx, kind)
	transforms := TransformsFor(kind)
	n := len(files)

	events, err := l.uploadWithRetry(ctx, files, driven.UploadOptions{
		RecordType: domain.RecordTypeEvent,
		Transform:  transforms.Event,
		Heavy:      heavy,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		msg := err.Error()
		logger.WarnFields("event upload failed", logger.Fields{"pipeline": string(kind), "files": n, "error": msg})
		result.Failed = n * 2
		result.Results.Events = domain.PhaseResult{Error: msg}
		result.Results.Profiles = domain.PhaseResult{Error: "skipped: event upload failed"}
		return result, nil
	}
	result.Uploaded += n
	result.Results.Events = domain.PhaseResult{Success: true, Count: events.Records}

	profileOpts := driven.UploadOptions{
		RecordType: transforms.ProfileType,
		Transform:  transforms.Profile,
		Heavy:      heavy,
	}
	if transforms.ProfileType == domain.RecordTypeGroup {
		profileOpts.GroupKey = heavy.GroupKey
	}
	profiles, err := l.uploadWithRetry(ctx, files, profileOpts)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		msg := err.Error()
		logger.WarnFields("profile upload failed", logger.Fields{"pipeline": string(kind), "files": n, "error": msg})
		result.Failed += n
		result.Results.Profiles = domain.PhaseResult{Error: msg}
		return result, nil
	}
	result.Uploaded += n
	result.Results.Profiles = domain.PhaseResult{Success: true, Count: profiles.Records}

	if opts.Cleanup {
		for _, f := range files {
			l.blobs.Delete(ctx, f)
		}
		result.Cleaned = n
	}

	logger.InfoFields("load complete", logger.Fields{
		"pipeline": string(kind),
		"files":    n,
		"events":   events.Records,
		"profiles": profiles.Records,
		"cleaned":  result.Cleaned,
	})
	return result, nil
}

// heavyObjects builds the shared transform context once per Load call.
// A failed listing leaves the lookup empty; display fields are then omitted.
func (l *Loader) heavyObjects(ctx context.Context, kind domain.EntityKind) *domain.HeavyObjects {
	heavy := &domain.HeavyObjects{
		Kind:         kind,
		Lookup:       map[string]domain.Entity{},
		GroupKey:     l.config.GroupKey,
		ManagerField: l.config.ManagerField,
	}
	if kind == domain.KindChannels {
		heavy.DisplayPrefix = l.config.ChannelPrefix
	} else {
		heavy.DisplayPrefix = l.config.MemberPrefix
	}

	entities, err := l.source.ListEntities(ctx, kind)
	if err != nil {
		logger.Warn("list %s for lookup: %v", kind, err)
	}
	for _, e := range entities {
		heavy.Lookup[e.ID] = e
	}

	if kind == domain.KindMembers {
		if labeler, ok := l.source.(driven.ProfileFieldLabeler); ok {
			labels, err := labeler.ProfileFieldLabels(ctx)
			if err != nil {
				logger.Warn("profile field labels: %v", err)
			}
			heavy.FieldLabels = labels
		}
	}
	return heavy
}

// uploadWithRetry re-invokes the whole batch with linearly growing delays.
func (l *Loader) uploadWithRetry(ctx context.Context, files []string, opts driven.UploadOptions) (*driven.UploadResult, error) {
	var (
		result  *driven.UploadResult
		attempt int
	)
	op := func() error {
		attempt++
		r, err := l.uploader.Upload(ctx, files, opts)
		if err != nil {
			return err
		}
		result = r
		return nil
	}
	notify := func(err error, wait time.Duration) {
		logger.Warn("%s upload attempt %d/%d failed, retrying in %s: %v", opts.RecordType, attempt, l.config.Attempts, wait, err)
	}

	b := backoff.WithContext(backoff.WithMaxRetries(&linearBackOff{step: l.config.RetryStep}, uint64(l.config.Attempts-1)), ctx)
	if err := backoff.RetryNotify(op, b, notify); err != nil {
		return nil, errors.Join(domain.ErrUploadFailed, err)
	}
	return result, nil
}

// linearBackOff waits step, 2*step, 3*step, ...
type linearBackOff struct {
	step    time.Duration
	attempt int
}

func (b *linearBackOff) NextBackOff() time.Duration {
	b.attempt++
	return time.Duration(b.attempt) * b.step
}

func (b *linearBackOff) Reset() { b.attempt = 0 }
