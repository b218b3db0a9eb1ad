package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/custodia-labs/slackpanel/internal/core/domain"
	"github.com/custodia-labs/slackpanel/internal/core/ports/driven"
)

// runStore implements driven.RunStore.
// The full report is kept as JSON; the indexed columns serve listing.
type runStore struct {
	store *Store
}

var _ driven.RunStore = (*runStore)(nil)

// SaveRun stores or replaces a run report.
func (s *runStore) SaveRun(ctx context.Context, report *domain.RunReport) error {
	if report == nil || report.RunID == "" {
		return domain.ErrInvalidInput
	}

	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encoding run report: %w", err)
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO runs (run_id, pipeline, status, started_at, ended_at, duration_ms, error, report)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			pipeline = excluded.pipeline,
			status = excluded.status,
			started_at = excluded.started_at,
			ended_at = excluded.ended_at,
			duration_ms = excluded.duration_ms,
			error = excluded.error,
			report = excluded.report
	`, report.RunID, report.Pipeline, report.Status,
		formatTime(report.Timing.Start),
		formatNullableTime(report.Timing.End),
		report.Timing.DurationMS,
		nullString(report.Error),
		string(data))
	if err != nil {
		return fmt.Errorf("saving run: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID.
func (s *runStore) GetRun(ctx context.Context, runID string) (*domain.RunReport, error) {
	var data string
	err := s.store.db.QueryRowContext(ctx, "SELECT report FROM runs WHERE run_id = ?", runID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying run: %w", err)
	}
	return decodeReport(data)
}

// ListRuns returns the most recent runs, newest first. A non-positive limit returns all.
func (s *runStore) ListRuns(ctx context.Context, limit int) ([]domain.RunReport, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.store.db.QueryContext(ctx,
		"SELECT report FROM runs ORDER BY started_at DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	runs := []domain.RunReport{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		report, err := decodeReport(data)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *report)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}
	return runs, nil
}

func decodeReport(data string) (*domain.RunReport, error) {
	var report domain.RunReport
	if err := json.Unmarshal([]byte(data), &report); err != nil {
		return nil, fmt.Errorf("decoding run report: %w", err)
	}
	return &report, nil
}
