package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/slackpanel/internal/core/domain"
)

type fakeRunStore struct {
	mu    sync.Mutex
	saved []*domain.RunReport
	err   error
}

func (s *fakeRunStore) SaveRun(_ context.Context, r *domain.RunReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, r)
	return s.err
}

func (s *fakeRunStore) GetRun(context.Context, string) (*domain.RunReport, error) {
	return nil, domain.ErrNotFound
}

func (s *fakeRunStore) ListRuns(context.Context, int) ([]domain.RunReport, error) {
	return nil, nil
}

type fakeObserver struct {
	reports []*domain.RunReport
}

func (o *fakeObserver) ObserveRun(r *domain.RunReport) { o.reports = append(o.reports, r) }

type orchestratorFixture struct {
	src      *fakeSource
	blobs    *fakeBlobStore
	uploader *fakeUploader
	runs     *fakeRunStore
	observer *fakeObserver
	orch     *Orchestrator
}

func newOrchestratorFixture(t *testing.T) *orchestratorFixture {
	t.Helper()
	f := &orchestratorFixture{
		src:      newFakeSource(),
		blobs:    newFakeBlobStore(),
		runs:     &fakeRunStore{},
		observer: &fakeObserver{},
	}
	f.uploader = newFakeUploader(f.blobs)

	for _, d := range []string{"2024-01-01", "2024-01-02", "2024-01-03"} {
		f.src.setDay(domain.KindMembers, d, member(d, "U1", "a@example.com"))
		f.src.setDay(domain.KindChannels, d, domain.Record{"date": d, "channel_id": "C1"})
	}

	ex := newTestExtractor(f.src, f.blobs, ExtractConfig{MaxEnrichment: 10})
	ld := newTestLoader(f.src, f.blobs, f.uploader)
	now := time.Date(2024, 1, 3, 12, 0, 0, 0, time.UTC)
	f.orch = NewOrchestrator(f.src, f.blobs, ex, ld, f.runs, f.observer, OrchestratorConfig{
		Window: WindowConfig{DefaultDays: 3},
		Now:    func() time.Time { return now },
	})
	return f
}

func TestOrchestrator_Run_Members(t *testing.T) {
	f := newOrchestratorFixture(t)

	report, err := f.orch.Run(context.Background(), "members", domain.RunParams{})
	require.NoError(t, err)

	assert.Equal(t, domain.RunStatusSuccess, report.Status)
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, "members", report.Pipeline)
	assert.Equal(t, domain.Window{Start: "2024-01-01", End: "2024-01-03", Days: 3}, report.Window)
	require.Contains(t, report.Extract, domain.KindMembers)
	assert.Equal(t, 3, report.Extract[domain.KindMembers].Extracted)
	require.Contains(t, report.Load, domain.KindMembers)
	assert.Equal(t, 6, report.Load[domain.KindMembers].Uploaded)
	assert.NotContains(t, report.Extract, domain.KindChannels)

	require.Len(t, f.runs.saved, 1)
	assert.Same(t, report, f.runs.saved[0])
	require.Len(t, f.observer.reports, 1)
}

func TestOrchestrator_Run_AllRunsBothKinds(t *testing.T) {
	f := newOrchestratorFixture(t)

	report, err := f.orch.Run(context.Background(), domain.PipelineAll, domain.RunParams{Days: 2})
	require.NoError(t, err)

	assert.Equal(t, 2, report.Extract[domain.KindMembers].Extracted)
	assert.Equal(t, 2, report.Extract[domain.KindChannels].Extracted)
	assert.Len(t, f.uploader.callsFor(domain.RecordTypeGroup), 1)
	assert.Len(t, f.uploader.callsFor(domain.RecordTypeUser), 1)
	assert.Len(t, f.uploader.callsFor(domain.RecordTypeEvent), 2)
}

func TestOrchestrator_Run_ExtractOnly(t *testing.T) {
	f := newOrchestratorFixture(t)

	report, err := f.orch.Run(context.Background(), "channels", domain.RunParams{ExtractOnly: true})
	require.NoError(t, err)

	assert.Equal(t, 3, report.Extract[domain.KindChannels].Extracted)
	assert.Empty(t, report.Load)
	assert.Empty(t, f.uploader.calls)
}

func TestOrchestrator_Run_LoadOnlyUsesExistingFiles(t *testing.T) {
	f := newOrchestratorFixture(t)
	seedMemberFiles(f.blobs, "2024-01-02")

	report, err := f.orch.Run(context.Background(), "members", domain.RunParams{LoadOnly: true, Cleanup: true})
	require.NoError(t, err)

	assert.Empty(t, report.Extract)
	assert.Zero(t, f.src.totalFetches())
	events := f.uploader.callsFor(domain.RecordTypeEvent)
	require.Len(t, events, 1)
	assert.Equal(t, []string{fakeBlobPrefix + "members/2024-01-02-members.jsonl.gz"}, events[0].files)
	assert.Equal(t, 1, report.Load[domain.KindMembers].Cleaned)
}

func TestOrchestrator_Run_UnknownPipeline(t *testing.T) {
	f := newOrchestratorFixture(t)

	report, err := f.orch.Run(context.Background(), "files", domain.RunParams{})
	assert.Nil(t, report)
	assert.ErrorIs(t, err, domain.ErrUnknownPipeline)
	assert.Empty(t, f.runs.saved)
}

func TestOrchestrator_Run_InvalidWindow(t *testing.T) {
	f := newOrchestratorFixture(t)

	_, err := f.orch.Run(context.Background(), "members", domain.RunParams{StartDate: "2024-02-01"})
	assert.True(t, domain.IsValidation(err))
	assert.Zero(t, f.src.totalFetches())
}

func TestOrchestrator_Run_FatalErrorStillReports(t *testing.T) {
	f := newOrchestratorFixture(t)
	f.blobs.existErr = errors.New("bucket unreachable")

	report, err := f.orch.Run(context.Background(), "members", domain.RunParams{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)

	require.NotNil(t, report)
	assert.Equal(t, domain.RunStatusError, report.Status)
	assert.Contains(t, report.Error, "bucket unreachable")
	assert.Len(t, f.runs.saved, 1)
}

func TestOrchestrator_Run_SaveFailureDoesNotFailRun(t *testing.T) {
	f := newOrchestratorFixture(t)
	f.runs.err = errors.New("database is locked")

	report, err := f.orch.Run(context.Background(), "members", domain.RunParams{ExtractOnly: true})
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusSuccess, report.Status)
}

func TestOrchestrator_Validate(t *testing.T) {
	f := newOrchestratorFixture(t)
	require.NoError(t, f.orch.Validate(context.Background()))

	f.src.authErr[domain.RoleUser] = errors.New("invalid_auth")
	f.src.identities[domain.RoleBot] = &domain.Identity{OK: false}

	err := f.orch.Validate(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrAuthInvalid)
	assert.Contains(t, err.Error(), "user token")
}
