// Package cmd contains all the CLI commands for the application,
// built using the Cobra library.
package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:   "gitlab-metrics",
	Short: "A CLI tool for collecting GitLab merge request metrics.",
	Long: `gitlab-metrics collects merge request counts per author per month for a
team of GitLab users over a date range, and exports the result as CSV,
an interactive HTML chart, or an XLSX spreadsheet.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	// Add a persistent flag for verbose output, available to all commands.
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose/debug logging")
}

// newLogger builds the CLI logger. Logs go to standard error and stay silent
// unless --verbose is set, keeping stdout clean for results.
func newLogger(cmd *cobra.Command) *zap.Logger {
	verbose, _ := cmd.InheritedFlags().GetBool("verbose")
	if !verbose {
		return zap.NewNop()
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
