package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/slackpanel/internal/core/domain"
	"github.com/custodia-labs/slackpanel/internal/core/ports/driven"
	"github.com/custodia-labs/slackpanel/internal/logger"
)

// ExtractConfig configures the Extract stage.
type ExtractConfig struct {
	// EmailDomain restricts member records to addresses ending in "@"+EmailDomain.
	// Empty disables the filter.
	EmailDomain string

	// MaxEnrichment caps detail lookups per Extract call.
	MaxEnrichment int

	// DayConcurrency bounds how many days are fetched at once. Values below 1 mean 1.
	DayConcurrency int

	// DetailJitter is applied before every detail lookup.
	DetailJitter Jitter
}

// Extractor pulls daily analytics into day files.
type Extractor struct {
	source driven.SourceClient
	blobs  driven.BlobStore
	config ExtractConfig

	// sleep and newRand are overridden in tests.
	sleep   Sleeper
	newRand func() *rand.Rand
}

// NewExtractor creates an Extract stage.
func NewExtractor(source driven.SourceClient, blobs driven.BlobStore, config ExtractConfig) *Extractor {
	if config.DayConcurrency < 1 {
		config.DayConcurrency = 1
	}
	return &Extractor{
		source: source,
		blobs:  blobs,
		config: config,
		sleep:  SleepContext,
		newRand: func() *rand.Rand {
			return rand.New(rand.NewSource(time.Now().UnixNano())) //nolint:gosec // selection, not security
		},
	}
}

// dayOutcome is the result slot for one day.
type dayOutcome int

const (
	dayEmpty dayOutcome = iota
	dayExtracted
	daySkipped
	dayFailed
)

type daySlot struct {
	outcome dayOutcome
	path    string
}

// Extract persists one day file per day in [start, end] for kind.
// Days whose file already exists are skipped without any network call.
// A failing day is logged and counted; only storage errors abort the range.
func (e *Extractor) Extract(ctx context.Context, kind domain.EntityKind, start, end time.Time) (*domain.ExtractResult, error) {
	days := domain.DateRange{Start: domain.Day(start), End: domain.Day(end)}.Days()
	cache := NewEnrichmentCache(e.source, kind, EnrichmentOptions{
		MaxEnrichment: e.config.MaxEnrichment,
		Jitter:        e.config.DetailJitter,
		Sleep:         e.sleep,
		Rand:          e.newRand(),
	})

	logger.Section(fmt.Sprintf("Extract %s", kind))

	slots := make([]daySlot, len(days))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.config.DayConcurrency)
	for i, day := range days {
		g.Go(func() error {
			slot, err := e.extractDay(gctx, kind, day, cache)
			if err != nil {
				return err
			}
			slots[i] = slot
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &domain.ExtractResult{Files: []string{}}
	for _, slot := range slots {
		switch slot.outcome {
		case dayExtracted:
			result.Extracted++
		case daySkipped:
			result.Skipped++
		case dayFailed:
			result.Failed++
		}
		if slot.path != "" {
			result.Files = append(result.Files, slot.path)
		}
	}

	stats := cache.Stats()
	logger.InfoFields("extract complete", logger.Fields{
		"pipeline":  string(kind),
		"extracted": result.Extracted,
		"skipped":   result.Skipped,
		"failed":    result.Failed,
		"files":     len(result.Files),
		"enriched":  stats.Cached,
	})
	return result, nil
}

// extractDay processes one day. Only storage errors are returned.
func (e *Extractor) extractDay(ctx context.Context, kind domain.EntityKind, day time.Time, cache *EnrichmentCache) (daySlot, error) {
	rel := domain.DayFilePath(kind, day)
	date := day.Format(domain.DateLayout)

	exists, err := e.blobs.Exists(ctx, rel)
	if err != nil {
		return daySlot{}, fmt.Errorf("check %s: %w", rel, errors.Join(domain.ErrStorageUnavailable, err))
	}
	if exists {
		logger.Debug("%s %s already extracted", kind, date)
		return daySlot{outcome: daySkipped, path: e.blobs.ResolveFullPath(rel)}, nil
	}

	records, err := e.source.FetchDailyAnalytics(ctx, day, day, kind)
	if err != nil {
		if ctx.Err() != nil {
			return daySlot{}, ctx.Err()
		}
		logger.WarnFields("day failed", logger.Fields{"pipeline": string(kind), "date": date, "error": err.Error()})
		return daySlot{outcome: dayFailed}, nil
	}
	if len(records) == 0 {
		logger.Debug("no %s analytics for %s", kind, date)
		return daySlot{outcome: dayEmpty}, nil
	}

	records = e.filter(kind, records)
	if len(records) == 0 {
		logger.Debug("no %s records left after filtering for %s", kind, date)
		return daySlot{outcome: dayEmpty}, nil
	}

	enriched := cache.Enrich(ctx, records)
	full, err := e.blobs.Write(ctx, rel, enriched)
	if err != nil {
		return daySlot{}, fmt.Errorf("write %s: %w", rel, errors.Join(domain.ErrStorageUnavailable, err))
	}
	logger.Debug("wrote %d %s records for %s", len(enriched), kind, date)
	return daySlot{outcome: dayExtracted, path: full}, nil
}

// filter applies the kind-specific record filter.
func (e *Extractor) filter(kind domain.EntityKind, records []domain.Record) []domain.Record {
	switch kind {
	case domain.KindMembers:
		if e.config.EmailDomain == "" {
			return records
		}
		suffix := "@" + e.config.EmailDomain
		return keep(records, func(r domain.Record) bool {
			return strings.HasSuffix(r.String("email_address"), suffix)
		})
	case domain.KindChannels:
		return keep(records, func(r domain.Record) bool {
			return r.EntityID(kind) != ""
		})
	default:
		return records
	}
}

func keep(records []domain.Record, fn func(domain.Record) bool) []domain.Record {
	out := records[:0:0]
	for _, r := range records {
		if fn(r) {
			out = append(out, r)
		}
	}
	return out
}
