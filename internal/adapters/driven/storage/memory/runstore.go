package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/slackpanel/internal/core/domain"
	"github.com/custodia-labs/slackpanel/internal/core/ports/driven"
)

// Ensure RunStore implements the interface.
var _ driven.RunStore = (*RunStore)(nil)

// RunStore is an in-memory implementation of driven.RunStore.
type RunStore struct {
	mu   sync.RWMutex
	runs map[string]domain.RunReport
}

// NewRunStore creates a new in-memory run store.
func NewRunStore() *RunStore {
	return &RunStore{
		runs: make(map[string]domain.RunReport),
	}
}

// SaveRun stores or replaces a run report.
func (s *RunStore) SaveRun(_ context.Context, report *domain.RunReport) error {
	if report == nil || report.RunID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[report.RunID] = *report
	return nil
}

// GetRun retrieves a run by ID.
func (s *RunStore) GetRun(_ context.Context, runID string) (*domain.RunReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	report, ok := s.runs[runID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &report, nil
}

// ListRuns returns up to limit runs, newest first. A non-positive limit returns all.
func (s *RunStore) ListRuns(_ context.Context, limit int) ([]domain.RunReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]domain.RunReport, 0, len(s.runs))
	for _, r := range s.runs {
		runs = append(runs, r)
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timing.Start.After(runs[j].Timing.Start)
	})
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}
