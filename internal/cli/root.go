package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"citizenship-adjudicator/internal/common/config"
)

// Version is overridden at build time with -ldflags "-X ...cli.Version=...".
var Version = "dev"

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "adjudicator",
	Short: "Adjudicator - batch analysis of citizenship applications",
	Long: `Adjudicator gathers the evidence for each citizenship case, checks the
legal requirements for its case type, scores the supporting documents and
records a decision per case.

Cases are processed as supervised jobs: run a list from the command line or
serve the HTTP API and submit lists there. Every decision is appended to the
configured result stores and consolidated into a CSV report.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "adjudicator %s\n", Version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: configs/config.yaml under the project root)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(versionCmd)
}

func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if cfgFile != "" {
		cfg, err = config.LoadFromFile(cfgFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("config load failed: %w", err)
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	return cfg, nil
}
