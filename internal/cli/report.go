package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var reportOutput string

// reportCmd represents the report command
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Rebuild the consolidated CSV report from the result stores",
	Long: `Report reads every recorded row from the first configured result backend,
keeps the latest row per case, merges it over the existing report file and
replaces the file atomically.`,
	Args: cobra.NoArgs,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringVarP(&reportOutput, "output", "o", "", "report path (overrides results.report_path)")
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	path := cfg.Results.ReportPath
	if reportOutput != "" {
		path = reportOutput
	}

	a, err := newApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	n, err := a.reporter.WriteReport(cmd.Context(), path)
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d cases to %s\n", n, path)
	return nil
}
