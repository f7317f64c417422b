package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/spf13/cobra"

	"citizenship-adjudicator/internal/jobs"
)

var inputColumn string

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run <case-list>",
	Short: "Adjudicate a list of cases and wait for the job to finish",
	Long: `Run reads case IDs from a file and processes them as one job:
- .csv files: the column named by --column (default "codigo")
- .json files: an array of IDs or {"cases": [...]}
- anything else: one ID per line, # starts a comment

Interrupting the command stops the job after the case in flight; the rows
already recorded stay in the result stores and the report.

Example:
  adjudicator run cases.csv
  adjudicator run cases.txt --config configs/config.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&inputColumn, "column", "", "CSV column holding the case IDs (overrides jobs.input_column)")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	column := cfg.Jobs.InputColumn
	if inputColumn != "" {
		column = inputColumn
	}

	ids, err := jobs.ReadCaseList(args[0], column)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	jobID, err := a.orch.Enqueue(ctx, ids)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Job %s started with %d cases\n", jobID, len(ids))

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			fmt.Fprintln(cmd.ErrOrStderr(), "Interrupt received, stopping after the current case...")
			_ = a.orch.Stop(jobID)
		case <-done:
		}
	}()

	view, err := a.orch.Wait(context.Background(), jobID)
	close(done)
	if err != nil {
		return err
	}

	printSummary(cmd.OutOrStdout(), view, cfg.Results.ReportPath)
	if view.Status == jobs.StatusError {
		return fmt.Errorf("job %s failed: %s", view.ID, view.Error)
	}
	return nil
}

func printSummary(w io.Writer, view jobs.JobView, reportPath string) {
	fmt.Fprintf(w, "Job %s: %s\n", view.ID, view.Status)
	fmt.Fprintf(w, "%s\n", view.Message)
	fmt.Fprintf(w, "Processed: %d of %d (%d ok, %d failed)\n",
		view.Summary.Processed, view.Summary.Total, view.Summary.Succeeded, view.Summary.Failed)

	if len(view.Summary.Decisions) > 0 {
		kinds := make([]string, 0, len(view.Summary.Decisions))
		for k := range view.Summary.Decisions {
			kinds = append(kinds, k)
		}
		sort.Strings(kinds)
		fmt.Fprintln(w, "Decisions:")
		for _, k := range kinds {
			fmt.Fprintf(w, "  %-34s %d\n", k, view.Summary.Decisions[k])
		}
	}
	if reportPath != "" {
		fmt.Fprintf(w, "Report: %s\n", reportPath)
	}
}
