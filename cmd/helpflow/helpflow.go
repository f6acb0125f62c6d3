// Package helpflow implements the help-flow command: urgency-routed
// diagnosis and recovery.
package helpflow

import (
	"fmt"
	"os"

	"github.com/flowteam/flowctl/cmd/cliprompt"
	"github.com/flowteam/flowctl/cmd/resultprint"
	"github.com/flowteam/flowctl/internal/commands"
	"github.com/flowteam/flowctl/internal/orchestrator"
	"github.com/spf13/cobra"
)

// NewHelpFlowCmd creates and returns the help-flow command.
func NewHelpFlowCmd() *cobra.Command {
	builder := &commands.CommandBuilder{
		Use:   "help-flow",
		Short: "Get unstuck: diagnose the repository and walk through recovery",
		Long:  "Asks how urgent the trouble is, then routes to emergency recovery, a guided fix, or learning content. Destructive steps always ask first.",
	}
	return builder.Build(func(cobraCmd *cobra.Command, _ []string) error {
		return run(cobraCmd)
	})
}

func run(cobraCmd *cobra.Command) error {
	repoRoot, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to resolve working directory: %w", err)
	}

	prompter := cliprompt.New()
	app, err := commands.NewApp(cobraCmd.Context(), repoRoot, prompter)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer app.Handler.Shutdown()

	ctx, stop := app.Handler.InstallSignalHandling(cobraCmd.Context())
	defer stop()

	result, err := orchestrator.RunHelpFlow(ctx, app, prompter)
	if err != nil {
		app.Handler.Handle(ctx, "", err)
		return err
	}

	resultprint.Print(result)
	return nil
}
