package cli

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/slackpanel/internal/adapters/driven/config/file"
	"github.com/custodia-labs/slackpanel/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/slackpanel/internal/core/domain"
)

func testConfig(t *testing.T) *file.Config {
	t.Helper()
	conf := file.Default()
	dir := t.TempDir()
	conf.Storage.Root = filepath.Join(dir, "data")
	conf.Storage.DataDir = filepath.Join(dir, "db")
	return &conf
}

func TestWire_Ephemeral(t *testing.T) {
	a, err := Wire(context.Background(), testConfig(t), WireOptions{Ephemeral: true, SkipValidate: true})
	require.NoError(t, err)
	defer a.Close()

	assert.NotNil(t, a.Runner)
	assert.NotNil(t, a.Runs)
	assert.NotNil(t, a.Scheduler)
	assert.Empty(t, a.closers)

	families, err := a.Gatherer.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestWire_SQLiteHistory(t *testing.T) {
	conf := testConfig(t)

	a, err := Wire(context.Background(), conf, WireOptions{SkipValidate: true})
	require.NoError(t, err)
	assert.Len(t, a.closers, 1)
	assert.FileExists(t, filepath.Join(conf.Storage.DataDir, sqlite.DatabaseFile))
	assert.NoError(t, a.Close())
}

func TestWire_ValidationFailsWithoutTokens(t *testing.T) {
	_, err := Wire(context.Background(), testConfig(t), WireOptions{Ephemeral: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bot token")
	assert.Contains(t, err.Error(), "user token")
}

func TestWire_InvalidGCSPath(t *testing.T) {
	conf := testConfig(t)
	conf.Storage.GCSBasePath = "s3://bucket"

	_, err := Wire(context.Background(), conf, WireOptions{Ephemeral: true, SkipValidate: true})
	assert.ErrorContains(t, err, "opening blob store")
}

func TestWire_InvalidWindowIsRejected(t *testing.T) {
	a, err := Wire(context.Background(), testConfig(t), WireOptions{Ephemeral: true, SkipValidate: true})
	require.NoError(t, err)

	report, err := a.Runner.Run(context.Background(), "members", domain.RunParams{
		StartDate: "2024-02-01",
		EndDate:   "2024-01-01",
	})
	assert.Nil(t, report)
	assert.True(t, domain.IsValidation(err))
}

func TestSchedulerConfig(t *testing.T) {
	conf := testConfig(t)
	conf.Scheduler.Enabled = true
	conf.Scheduler.Interval = file.Duration{Duration: 6 * time.Hour}
	conf.Scheduler.Pipeline = "channels"
	conf.Scheduler.Days = 3

	sc := schedulerConfig(conf)
	assert.True(t, sc.Enabled)
	task := sc.GetTaskConfig(domain.TaskIDPipelineSync)
	assert.True(t, task.Enabled)
	assert.Equal(t, 6*time.Hour, task.Interval)

	pipeline, params := task.Run()
	assert.Equal(t, "channels", pipeline)
	assert.Equal(t, domain.RunParams{Days: 3}, params)
}

func TestSchedulerConfig_Defaults(t *testing.T) {
	sc := schedulerConfig(testConfig(t))
	task := sc.GetTaskConfig(domain.TaskIDPipelineSync)

	pipeline, params := task.Run()
	assert.Equal(t, domain.PipelineAll, pipeline)
	assert.Zero(t, params.Days)
	assert.Equal(t, 24*time.Hour, task.Interval)
}

func TestApp_CloseRunsClosersInReverse(t *testing.T) {
	var order []int
	a := &App{closers: []func() error{
		func() error { order = append(order, 1); return nil },
		func() error { order = append(order, 2); return nil },
	}}

	require.NoError(t, a.Close())
	assert.Equal(t, []int{2, 1}, order)
	assert.NoError(t, a.Close())
}
