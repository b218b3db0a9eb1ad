package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/custodia-labs/slackpanel/internal/adapters/driven/config/file"
	"github.com/custodia-labs/slackpanel/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/slackpanel/internal/core/domain"
)

// mockRunner implements driving.PipelineRunner for testing.
type mockRunner struct {
	calls    int
	pipeline string
	params   domain.RunParams
	report   *domain.RunReport
	err      error
}

func (m *mockRunner) Run(_ context.Context, pipeline string, params domain.RunParams) (*domain.RunReport, error) {
	m.calls++
	m.pipeline = pipeline
	m.params = params
	return m.report, m.err
}

func sampleReport() *domain.RunReport {
	return &domain.RunReport{
		RunID:    "run-1",
		Status:   domain.RunStatusSuccess,
		Pipeline: "members",
		Window:   domain.Window{Start: "2024-01-01", End: "2024-01-03", Days: 3},
		Timing:   domain.Timing{DurationMS: 1500},
		Extract: map[domain.EntityKind]*domain.ExtractResult{
			domain.KindMembers: {Extracted: 2, Skipped: 1},
		},
		Load: map[domain.EntityKind]*domain.LoadResult{
			domain.KindMembers: {
				Uploaded: 4,
				Results: domain.LoadPhases{
					Events:   domain.PhaseResult{Success: true, Count: 120},
					Profiles: domain.PhaseResult{Success: true, Count: 40},
				},
			},
		},
	}
}

// setupApp injects an App built around runner and returns its run store.
func setupApp(t *testing.T, runner *mockRunner) *memory.RunStore {
	t.Helper()

	runs := memory.NewRunStore()
	conf := file.Default()
	conf.Server.Host = "127.0.0.1"
	conf.Server.Port = 0

	old := app
	app = &App{Config: &conf, Runner: runner, Runs: runs}
	t.Cleanup(func() { app = old })
	return runs
}

// resetFlags restores every flag of cmd to its default between executions.
func resetFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	})
}

// execute runs the root command with args against a throwaway config path.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return executeContext(t, context.Background(), args...)
}

func executeContext(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()

	for _, c := range []*cobra.Command{runCmd, historyCmd, serveCmd, configInitCmd} {
		resetFlags(c)
	}
	if !hasFlag(args, "--config") {
		args = append(args, "--config", filepath.Join(t.TempDir(), "config.toml"))
	}

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.ExecuteContext(ctx)
	return buf.String(), err
}

func hasFlag(args []string, name string) bool {
	for _, a := range args {
		if a == name {
			return true
		}
	}
	return false
}
