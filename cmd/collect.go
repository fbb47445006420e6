// Package cmd contains all the CLI commands for the application,
// built using the Cobra library.
package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/teamlens/gitlab-metrics/internal/config"
	"github.com/teamlens/gitlab-metrics/internal/export"
	"github.com/teamlens/gitlab-metrics/internal/gateway"
	"github.com/teamlens/gitlab-metrics/internal/usecase"
)

const isoDateLayout = "2006-01-02"

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Collect merge request metrics and export them",
	Long: `Collects merged merge request counts for every user of the selected team
within the given date range and writes them to the chosen output format.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		logger := newLogger(cmd)
		defer logger.Sync()

		startStr, _ := cmd.Flags().GetString("start-date")
		endStr, _ := cmd.Flags().GetString("end-date")
		output, _ := cmd.Flags().GetString("output")
		format, _ := cmd.Flags().GetString("format")
		concurrent, _ := cmd.Flags().GetInt("concurrent")
		teamName, _ := cmd.Flags().GetString("team")

		start, err := time.Parse(isoDateLayout, startStr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid --start-date. Please use YYYY-MM-DD. Error: %v\n", err)
			os.Exit(1)
		}
		end, err := time.Parse(isoDateLayout, endStr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid --end-date. Please use YYYY-MM-DD. Error: %v\n", err)
			os.Exit(1)
		}
		if end.Before(start) {
			fmt.Fprintln(os.Stderr, "Error: --end-date is before --start-date.")
			os.Exit(1)
		}

		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if concurrent > 0 {
			cfg.ConcurrentRequests = concurrent
		}
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
			os.Exit(1)
		}

		team, err := cfg.Team(teamName)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		// Default output follows the format unless the user set a path.
		if !cmd.Flags().Changed("output") {
			output = "metrics." + format
		}

		// Inject dependencies and run the collection.
		client := gateway.NewClient(cfg.GitLabURL, cfg.AccessToken, int64(cfg.ConcurrentRequests), logger)
		collector := usecase.NewCollector(client, logger)

		authorStats, err := collector.Collect(ctx, team.Usernames, startStr, endStr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Data collection failed: %v\n", err)
			os.Exit(1)
		}

		switch strings.ToLower(format) {
		case "csv":
			err = export.WriteCSV(authorStats, output)
		case "html":
			err = export.WriteHTML(authorStats, output)
		case "xlsx":
			err = export.WriteXLSX(authorStats, output)
		default:
			fmt.Fprintf(os.Stderr, "Unknown format %q: expected csv, html or xlsx.\n", format)
			os.Exit(1)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Export failed: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Data exported successfully to %s\n", output)
	},
}

func init() {
	rootCmd.AddCommand(collectCmd)
	collectCmd.Flags().StringP("start-date", "s", "", "Start date (YYYY-MM-DD)")
	collectCmd.Flags().StringP("end-date", "e", "", "End date (YYYY-MM-DD)")
	collectCmd.MarkFlagRequired("start-date")
	collectCmd.MarkFlagRequired("end-date")
	collectCmd.Flags().StringP("output", "o", "metrics.csv", "Output file path")
	collectCmd.Flags().StringP("format", "f", "csv", "Export format (csv, html or xlsx)")
	collectCmd.Flags().StringP("team", "t", "", "Team name (defaults to the configured default team)")
	collectCmd.Flags().IntP("concurrent", "c", 0, "Maximum concurrent requests (overrides config)")
}
