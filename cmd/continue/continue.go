// Package continuecmd implements the continue command: analyze the
// current work and act on the top-ranked recommendation.
package continuecmd

import (
	"fmt"
	"os"

	"github.com/flowteam/flowctl/cmd/cliprompt"
	"github.com/flowteam/flowctl/cmd/resultprint"
	"github.com/flowteam/flowctl/internal/commands"
	"github.com/flowteam/flowctl/internal/orchestrator"
	"github.com/spf13/cobra"
)

// NewContinueCmd creates and returns the continue command.
func NewContinueCmd() *cobra.Command {
	builder := &commands.CommandBuilder{
		Use:   "continue",
		Short: "Analyze in-progress work and act on the next recommended step",
		Long:  "Ranks what this branch needs next (commit, pull, push, sync, test, issue update) and walks through it.",
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

	result, err := orchestrator.RunContinue(ctx, app, prompter)
	if err != nil {
		app.Handler.Handle(ctx, "", err)
		return err
	}

	resultprint.Print(result)
	return nil
}
