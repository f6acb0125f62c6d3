// Package start implements the start command: begin a new unit of
// work on a fresh branch.
package start

import (
	"fmt"
	"os"

	"github.com/flowteam/flowctl/cmd/cliprompt"
	"github.com/flowteam/flowctl/cmd/resultprint"
	"github.com/flowteam/flowctl/internal/commands"
	"github.com/flowteam/flowctl/internal/orchestrator"
	"github.com/spf13/cobra"
)

// NewStartCmd creates and returns the start command.
func NewStartCmd() *cobra.Command {
	builder := &commands.CommandBuilder{
		Use:   "start",
		Short: "Begin a new unit of work on a fresh branch",
		Long:  "Walks through choosing a work type and issue, derives a branch name, and creates it.",
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

	result, err := orchestrator.RunStart(ctx, app, prompter)
	if err != nil {
		app.Handler.Handle(ctx, "", err)
		return err
	}

	resultprint.Print(result)
	return nil
}
