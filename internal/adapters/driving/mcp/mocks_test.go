package mcp

import (
	"context"

	"github.com/custodia-labs/slackpanel/internal/core/domain"
)

// mockRunner implements driving.PipelineRunner for testing.
type mockRunner struct {
	pipeline string
	params   domain.RunParams
	report   *domain.RunReport
	err      error
}

func (m *mockRunner) Run(_ context.Context, pipeline string, params domain.RunParams) (*domain.RunReport, error) {
	m.pipeline = pipeline
	m.params = params
	return m.report, m.err
}

// mockRunStore implements driven.RunStore for testing.
type mockRunStore struct {
	runs []domain.RunReport
	err  error
}

func (m *mockRunStore) SaveRun(_ context.Context, r *domain.RunReport) error {
	m.runs = append(m.runs, *r)
	return m.err
}

func (m *mockRunStore) GetRun(_ context.Context, id string) (*domain.RunReport, error) {
	if m.err != nil {
		return nil, m.err
	}
	for i := range m.runs {
		if m.runs[i].RunID == id {
			return &m.runs[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockRunStore) ListRuns(_ context.Context, limit int) ([]domain.RunReport, error) {
	if m.err != nil {
		return nil, m.err
	}
	if limit > 0 && len(m.runs) > limit {
		return m.runs[:limit], nil
	}
	return m.runs, nil
}

func sampleReport() *domain.RunReport {
	return &domain.RunReport{
		RunID:    "run-1",
		Status:   domain.RunStatusSuccess,
		Pipeline: domain.PipelineAll,
		Window:   domain.Window{Start: "2024-01-01", End: "2024-01-02", Days: 2},
		Extract: map[domain.EntityKind]*domain.ExtractResult{
			domain.KindMembers:  {Extracted: 2, Skipped: 1},
			domain.KindChannels: {Extracted: 1},
		},
		Load: map[domain.EntityKind]*domain.LoadResult{
			domain.KindMembers:  {Uploaded: 4},
			domain.KindChannels: {Uploaded: 1, Failed: 1},
		},
	}
}
