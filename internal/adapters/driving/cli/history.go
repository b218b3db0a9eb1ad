package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/slackpanel/internal/core/domain"
)

var historyFlags struct {
	limit  int
	output string
}

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "Show recent pipeline runs",
	Long: `Lists recent pipeline runs, newest first.
If a run ID is provided, prints that run's full report.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyFlags.limit, "limit", "n", 20, "maximum number of runs to list")
	historyCmd.Flags().StringVarP(&historyFlags.output, "output", "o", outputAuto, "output format: text or json")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	format, err := resolveOutput(cmd.OutOrStdout(), historyFlags.output)
	if err != nil {
		return err
	}

	a, err := appFor(cmd)
	if err != nil {
		return err
	}
	if a.Runs == nil {
		return errors.New("run history not configured")
	}
	out := cmd.OutOrStdout()

	if len(args) == 1 {
		report, err := a.Runs.GetRun(cmd.Context(), args[0])
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("run %s not found", args[0])
		}
		if err != nil {
			return fmt.Errorf("getting run: %w", err)
		}
		if format == outputJSON {
			return writeJSON(out, report)
		}
		fmt.Fprint(out, renderReport(report))
		return nil
	}

	runs, err := a.Runs.ListRuns(cmd.Context(), historyFlags.limit)
	if err != nil {
		return fmt.Errorf("listing runs: %w", err)
	}
	if format == outputJSON {
		return writeJSON(out, runs)
	}
	if len(runs) == 0 {
		cmd.Println("No runs recorded.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RUN ID\tSTARTED\tPIPELINE\tSTATUS\tWINDOW\tEXTRACTED\tUPLOADED\tFAILED")
	for i := range runs {
		r := &runs[i]
		extracted, _, uploaded, failed := r.Totals()
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s..%s\t%d\t%d\t%d\n",
			r.RunID,
			r.Timing.Start.UTC().Format("2006-01-02 15:04"),
			r.Pipeline,
			r.Status,
			r.Window.Start, r.Window.End,
			extracted, uploaded, failed,
		)
	}
	return w.Flush()
}
