package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/slackpanel/internal/core/domain"
)

func testReport(id string, start time.Time) *domain.RunReport {
	return &domain.RunReport{
		RunID:    id,
		Status:   domain.RunStatusSuccess,
		Pipeline: domain.PipelineAll,
		Timing:   domain.Timing{Start: start, End: start.Add(time.Minute), DurationMS: 60000},
		Params:   domain.RunParams{Days: 2},
		Window:   domain.Window{Start: "2024-01-01", End: "2024-01-02", Days: 2},
		Extract: map[domain.EntityKind]*domain.ExtractResult{
			domain.KindMembers: {Extracted: 2, Files: []string{"/data/members/2024-01-01-members.jsonl.gz"}},
		},
		Load: map[domain.EntityKind]*domain.LoadResult{
			domain.KindMembers: {Uploaded: 2, Results: domain.LoadPhases{
				Events:   domain.PhaseResult{Success: true, Count: 10},
				Profiles: domain.PhaseResult{Success: true, Count: 5},
			}},
		},
	}
}

func TestRunStore_SaveAndGet(t *testing.T) {
	runs := setupTestStore(t).RunStore()
	ctx := context.Background()
	start := time.Date(2024, 1, 3, 12, 0, 0, 0, time.UTC)

	require.NoError(t, runs.SaveRun(ctx, testReport("run-1", start)))

	got, err := runs.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, domain.PipelineAll, got.Pipeline)
	assert.Equal(t, 2, got.Params.Days)
	assert.True(t, got.Timing.Start.Equal(start))
	require.Contains(t, got.Extract, domain.KindMembers)
	assert.Equal(t, 2, got.Extract[domain.KindMembers].Extracted)
	assert.Equal(t, 10, got.Load[domain.KindMembers].Results.Events.Count)
}

func TestRunStore_SaveRun_Replace(t *testing.T) {
	runs := setupTestStore(t).RunStore()
	ctx := context.Background()

	r := testReport("run-1", time.Now())
	require.NoError(t, runs.SaveRun(ctx, r))
	r.Status = domain.RunStatusError
	r.Error = "boom"
	require.NoError(t, runs.SaveRun(ctx, r))

	got, err := runs.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusError, got.Status)
	assert.Equal(t, "boom", got.Error)

	all, err := runs.ListRuns(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestRunStore_GetRun_NotFound(t *testing.T) {
	_, err := setupTestStore(t).RunStore().GetRun(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRunStore_SaveRun_Invalid(t *testing.T) {
	runs := setupTestStore(t).RunStore()
	assert.ErrorIs(t, runs.SaveRun(context.Background(), nil), domain.ErrInvalidInput)
	assert.ErrorIs(t, runs.SaveRun(context.Background(), &domain.RunReport{}), domain.ErrInvalidInput)
}

func TestRunStore_ListRuns_NewestFirst(t *testing.T) {
	runs := setupTestStore(t).RunStore()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, runs.SaveRun(ctx, testReport("a", base)))
	require.NoError(t, runs.SaveRun(ctx, testReport("c", base.Add(2*time.Hour))))
	require.NoError(t, runs.SaveRun(ctx, testReport("b", base.Add(time.Hour+500*time.Millisecond))))

	got, err := runs.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "c", got[0].RunID)
	assert.Equal(t, "b", got[1].RunID)
}

func TestRunStore_ListRuns_Empty(t *testing.T) {
	got, err := setupTestStore(t).RunStore().ListRuns(context.Background(), 10)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
