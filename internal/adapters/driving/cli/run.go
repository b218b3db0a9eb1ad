package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/slackpanel/internal/core/domain"
	"github.com/custodia-labs/slackpanel/internal/core/services"
)

var runFlags struct {
	days        int
	startDate   string
	endDate     string
	backfill    bool
	extractOnly bool
	loadOnly    bool
	cleanup     bool
	output      string
}

var runCmd = &cobra.Command{
	Use:   "run <members|channels|all>",
	Short: "Run an extract and load pipeline",
	Long: `Extracts Slack analytics for a date window into day files and loads
them into Mixpanel.

Without window flags the environment default applies (2 days in dev,
7 in production). --backfill covers the full retention window.

Examples:
  slackpanel run all
  slackpanel run members --days 14
  slackpanel run channels --start-date 2024-01-01 --end-date 2024-01-31
  slackpanel run all --load-only --cleanup`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{string(domain.KindMembers), string(domain.KindChannels), domain.PipelineAll},
	RunE:      runPipeline,
}

func init() {
	f := runCmd.Flags()
	f.IntVar(&runFlags.days, "days", 0, "number of days ending today")
	f.StringVar(&runFlags.startDate, "start-date", "", "first day (YYYY-MM-DD)")
	f.StringVar(&runFlags.endDate, "end-date", "", "last day (YYYY-MM-DD), defaults to today")
	f.BoolVar(&runFlags.backfill, "backfill", false, "process the full backfill window")
	f.BoolVar(&runFlags.extractOnly, "extract-only", false, "write day files without uploading")
	f.BoolVar(&runFlags.loadOnly, "load-only", false, "upload existing day files only")
	f.BoolVar(&runFlags.cleanup, "cleanup", false, "delete day files after a successful upload")
	f.StringVarP(&runFlags.output, "output", "o", outputAuto, "output format: text or json (default: text on a terminal)")
	rootCmd.AddCommand(runCmd)
}

func runPipeline(cmd *cobra.Command, args []string) error {
	format, err := resolveOutput(cmd.OutOrStdout(), runFlags.output)
	if err != nil {
		return err
	}

	params, err := services.ParseParams(runParams(cmd))
	if err != nil {
		return err
	}

	a, err := appFor(cmd)
	if err != nil {
		return err
	}

	report, runErr := a.Runner.Run(cmd.Context(), args[0], params)
	if report == nil {
		return runErr
	}

	if format == outputJSON {
		if err := writeJSON(cmd.OutOrStdout(), report); err != nil {
			return err
		}
	} else {
		fmt.Fprint(cmd.OutOrStdout(), renderReport(report))
	}

	if runErr != nil {
		return fmt.Errorf("run %s failed: %w", report.RunID, runErr)
	}
	return nil
}

// runParams collects only the flags the user set, in the shape ParseParams accepts.
func runParams(cmd *cobra.Command) map[string]any {
	raw := map[string]any{}
	f := cmd.Flags()
	if f.Changed("days") {
		raw["days"] = runFlags.days
	}
	if f.Changed("start-date") {
		raw["start_date"] = runFlags.startDate
	}
	if f.Changed("end-date") {
		raw["end_date"] = runFlags.endDate
	}
	if f.Changed("backfill") {
		raw["backfill"] = runFlags.backfill
	}
	if f.Changed("extract-only") {
		raw["extractOnly"] = runFlags.extractOnly
	}
	if f.Changed("load-only") {
		raw["loadOnly"] = runFlags.loadOnly
	}
	if f.Changed("cleanup") {
		raw["cleanup"] = runFlags.cleanup
	}
	return raw
}
