// package main is the entry point for the team-flow tool
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/flowteam/flowctl/cmd/cliprompt"
	"github.com/flowteam/flowctl/cmd/configops"
	continuecmd "github.com/flowteam/flowctl/cmd/continue"
	"github.com/flowteam/flowctl/cmd/finish"
	"github.com/flowteam/flowctl/cmd/helpflow"
	"github.com/flowteam/flowctl/cmd/start"
	"github.com/flowteam/flowctl/cmd/team"
	"github.com/flowteam/flowctl/internal/logging"
	"github.com/spf13/cobra"
)

func main() {
	var logLevel string
	var logFormat string
	var checkConfig bool
	var setup bool
	var fixConfig bool

	rootCmd := &cobra.Command{
		Use:   "flowctl",
		Short: "A CLI tool that guides a team through a standardized Git/GitHub workflow",
		Long: `flowctl walks engineers through a standardized development lifecycle:
start new work, continue in-progress work, finish and open a pull request,
inspect what the team is doing, and recover when something breaks.`,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			logging.Setup(logLevel, logFormat)
		},
		RunE: func(cobraCmd *cobra.Command, _ []string) error {
			repoRoot, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to resolve working directory: %w", err)
			}
			switch {
			case checkConfig:
				return configops.CheckConfig(os.Stdout, filepath.Join(repoRoot, ".env"))
			case setup:
				return configops.Setup(os.Stdout, cliprompt.New())
			case fixConfig:
				return configops.FixConfig(os.Stdout, repoRoot)
			default:
				return cobraCmd.Help()
			}
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVarP(&logFormat, "log-format", "f", "text", "Log format (text, json)")
	rootCmd.Flags().BoolVar(&checkConfig, "check-config", false, "Validate configuration, print a report, and exit")
	rootCmd.Flags().BoolVar(&setup, "setup", false, "Interactive first-time setup, then exit")
	rootCmd.Flags().BoolVar(&fixConfig, "fix-config", false, "Best-effort configuration repair, then exit")

	rootCmd.AddCommand(start.NewStartCmd())
	rootCmd.AddCommand(continuecmd.NewContinueCmd())
	rootCmd.AddCommand(finish.NewFinishCmd())
	rootCmd.AddCommand(team.NewTeamCmd())
	rootCmd.AddCommand(helpflow.NewHelpFlowCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
