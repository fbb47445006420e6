// Package cmd contains all the CLI commands for the application,
// built using the Cobra library.
package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/teamlens/gitlab-metrics/internal/config"
)

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Configure GitLab settings and teams",
	Long: `Creates or updates the configuration file: GitLab instance URL, access
token, request concurrency, and named teams of usernames. Without flags it
prints the current configuration.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if errors.Is(err, config.ErrNotConfigured) {
			cfg = &config.Config{ConcurrentRequests: config.DefaultConcurrentRequests}
			err = nil
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Configuration failed: %v\n", err)
			os.Exit(1)
		}

		changed := false

		if url, _ := cmd.Flags().GetString("gitlab-url"); url != "" {
			cfg.GitLabURL = url
			changed = true
		}
		if token, _ := cmd.Flags().GetString("token"); token != "" {
			cfg.AccessToken = token
			changed = true
		}
		if concurrent, _ := cmd.Flags().GetInt("concurrent"); concurrent > 0 {
			cfg.ConcurrentRequests = concurrent
			changed = true
		}

		if name, _ := cmd.Flags().GetString("add-team"); name != "" {
			usernamesStr, _ := cmd.Flags().GetString("usernames")
			markDefault, _ := cmd.Flags().GetBool("default")
			team := config.Team{
				Name:      name,
				Usernames: strings.Split(usernamesStr, ","),
			}
			if err := cfg.AddTeam(team, markDefault); err != nil {
				fmt.Fprintf(os.Stderr, "Configuration failed: %v\n", err)
				os.Exit(1)
			}
			changed = true
		}
		if name, _ := cmd.Flags().GetString("remove-team"); name != "" {
			if err := cfg.RemoveTeam(name); err != nil {
				fmt.Fprintf(os.Stderr, "Configuration failed: %v\n", err)
				os.Exit(1)
			}
			changed = true
		}
		if name, _ := cmd.Flags().GetString("default-team"); name != "" {
			if err := cfg.SetDefaultTeam(name); err != nil {
				fmt.Fprintf(os.Stderr, "Configuration failed: %v\n", err)
				os.Exit(1)
			}
			changed = true
		}

		if !changed {
			printConfig(cfg)
			return
		}

		path, err := config.Save(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Configuration failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Configuration saved successfully to %s\n", path)
	},
}

func printConfig(cfg *config.Config) {
	fmt.Printf("GitLab URL:          %s\n", orUnset(cfg.GitLabURL))
	fmt.Printf("Access token:        %s\n", maskToken(cfg.AccessToken))
	fmt.Printf("Concurrent requests: %d\n", cfg.ConcurrentRequests)
	if len(cfg.Teams) == 0 {
		fmt.Println("Teams:               (none)")
		return
	}
	fmt.Println("Teams:")
	for _, team := range cfg.Teams {
		marker := ""
		if team.Default {
			marker = " (default)"
		}
		fmt.Printf("  %s%s: %s\n", team.Name, marker, strings.Join(team.Usernames, ", "))
	}
}

func orUnset(value string) string {
	if value == "" {
		return "(unset)"
	}
	return value
}

func maskToken(token string) string {
	if token == "" {
		return "(unset)"
	}
	return strings.Repeat("*", len(token))
}

func init() {
	rootCmd.AddCommand(configureCmd)
	configureCmd.Flags().String("gitlab-url", "", "GitLab instance URL, e.g. https://gitlab.com")
	configureCmd.Flags().String("token", "", "GitLab access token")
	configureCmd.Flags().Int("concurrent", 0, "Maximum concurrent requests")
	configureCmd.Flags().String("add-team", "", "Add a team with the given name")
	configureCmd.Flags().String("usernames", "", "Comma-separated usernames for --add-team")
	configureCmd.Flags().Bool("default", false, "Mark the added team as the default")
	configureCmd.Flags().String("remove-team", "", "Remove the named team")
	configureCmd.Flags().String("default-team", "", "Set the named team as the default")
}
