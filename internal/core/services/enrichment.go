package services

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/custodia-labs/slackpanel/internal/core/domain"
	"github.com/custodia-labs/slackpanel/internal/core/ports/driven"
	"github.com/custodia-labs/slackpanel/internal/logger"
)

// enrichmentProgressEvery is how often fetch progress is logged.
const enrichmentProgressEvery = 250

// Sleeper pauses for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration)

// SleepContext is the production Sleeper.
func SleepContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// Jitter is a randomized delay window.
type Jitter struct {
	Min time.Duration
	Max time.Duration
}

// Pick returns a duration in [Min, Max).
func (j Jitter) Pick(rng *rand.Rand) time.Duration {
	if j.Max <= j.Min {
		return j.Min
	}
	return j.Min + time.Duration(rng.Int63n(int64(j.Max-j.Min)))
}

// EnrichmentStats counts cache activity for one Extract call.
type EnrichmentStats struct {
	Cached  int
	Fetched int
	Failed  int
	Skipped int
}

// EnrichmentCache memoizes entity detail lookups for one Extract call.
// The cap applies across every day the cache sees, not per day.
type EnrichmentCache struct {
	source driven.SourceClient
	kind   domain.EntityKind
	max    int
	jitter Jitter
	sleep  Sleeper

	mu      sync.Mutex
	rng     *rand.Rand
	entries map[string]domain.Detail
	stats   EnrichmentStats

	// fetchMu serializes detail lookups even when days run concurrently.
	fetchMu sync.Mutex
}

// EnrichmentOptions configures an EnrichmentCache.
type EnrichmentOptions struct {
	// MaxEnrichment is the hard ceiling on cached entities. Zero disables enrichment.
	MaxEnrichment int

	// Jitter is applied before every detail lookup, on top of any pacing
	// the source client does itself. A zero window skips the delay.
	Jitter Jitter

	// Sleep defaults to SleepContext.
	Sleep Sleeper

	// Rand defaults to a time-seeded source.
	Rand *rand.Rand
}

// NewEnrichmentCache creates a cache scoped to one Extract call for kind.
func NewEnrichmentCache(source driven.SourceClient, kind domain.EntityKind, opts EnrichmentOptions) *EnrichmentCache {
	if opts.Sleep == nil {
		opts.Sleep = SleepContext
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano())) //nolint:gosec // selection, not security
	}
	if opts.MaxEnrichment < 0 {
		opts.MaxEnrichment = 0
	}
	return &EnrichmentCache{
		source:  source,
		kind:    kind,
		max:     opts.MaxEnrichment,
		jitter:  opts.Jitter,
		sleep:   opts.Sleep,
		rng:     opts.Rand,
		entries: make(map[string]domain.Detail),
	}
}

// Enrich returns one EnrichedRecord per input record, in input order.
// Records whose entity was not selected carry a nil attachment.
func (c *EnrichmentCache) Enrich(ctx context.Context, records []domain.Record) []domain.EnrichedRecord {
	selected := c.selectUncached(uniqueIDs(records, c.kind))
	if len(selected) > 0 {
		c.fetch(ctx, selected)
	}
	return c.merge(records)
}

// Stats returns a snapshot of cache counters.
func (c *EnrichmentCache) Stats() EnrichmentStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Cached = len(c.entries)
	return s
}

// Len returns the number of cached entities, failures included.
func (c *EnrichmentCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// selectUncached partitions ids and picks a shuffled subset of the uncached
// ones that fits in the remaining budget.
func (c *EnrichmentCache) selectUncached(ids []string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var uncached []string
	for _, id := range ids {
		if _, ok := c.entries[id]; !ok {
			uncached = append(uncached, id)
		}
	}
	if len(uncached) == 0 {
		return nil
	}

	remaining := c.max - len(c.entries)
	if remaining <= 0 {
		c.stats.Skipped += len(uncached)
		logger.Debug("enrichment cap reached (%d), skipping %d %s", c.max, len(uncached), c.kind)
		return nil
	}

	c.rng.Shuffle(len(uncached), func(i, j int) {
		uncached[i], uncached[j] = uncached[j], uncached[i]
	})
	if len(uncached) > remaining {
		c.stats.Skipped += len(uncached) - remaining
		uncached = uncached[:remaining]
	}
	return uncached
}

// fetch looks up ids one at a time. A failed lookup is cached so it is
// never retried within the run.
func (c *EnrichmentCache) fetch(ctx context.Context, ids []string) {
	c.fetchMu.Lock()
	defer c.fetchMu.Unlock()

	for _, id := range ids {
		if !c.claim(id) {
			continue
		}

		// The slack client also holds lookups to its detail rate; this
		// delay only spreads them out further.
		if d := c.nextDelay(); d > 0 {
			c.sleep(ctx, d)
		}

		detail, err := c.source.GetEntityDetail(ctx, c.kind, id)
		if err != nil {
			logger.Debug("detail lookup failed for %s %s: %v", c.kind, id, err)
			detail = domain.NewDetailError(err)
		} else if detail == nil {
			detail = domain.Detail{}
		}

		c.mu.Lock()
		c.entries[id] = detail
		c.stats.Fetched++
		if detail.Failed() {
			c.stats.Failed++
		}
		fetched := c.stats.Fetched
		cached := len(c.entries)
		c.mu.Unlock()

		if fetched%enrichmentProgressEvery == 0 {
			logger.Info("enriched %d %s (%d cached, cap %d)", fetched, c.kind, cached, c.max)
		}
	}
}

// claim reports whether id still needs fetching and fits under the cap.
// A concurrent Enrich may have filled either while this call waited on fetchMu.
func (c *EnrichmentCache) claim(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[id]; ok {
		return false
	}
	if len(c.entries) >= c.max {
		c.stats.Skipped++
		return false
	}
	return true
}

func (c *EnrichmentCache) nextDelay() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.jitter.Pick(c.rng)
}

func (c *EnrichmentCache) merge(records []domain.Record) []domain.EnrichedRecord {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]domain.EnrichedRecord, len(records))
	for i, rec := range records {
		out[i] = domain.EnrichedRecord{Fields: rec}
		if detail, ok := c.entries[rec.EntityID(c.kind)]; ok {
			out[i].Enriched = detail
		}
	}
	return out
}

// uniqueIDs returns the distinct non-empty entity IDs of records in first-seen order.
func uniqueIDs(records []domain.Record, kind domain.EntityKind) []string {
	seen := make(map[string]struct{}, len(records))
	var ids []string
	for _, rec := range records {
		id := rec.EntityID(kind)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}
