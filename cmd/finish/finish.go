// Package finish implements the finish command: commit, push, and
// optionally open a pull request for the current branch.
package finish

import (
	"fmt"
	"os"

	"github.com/flowteam/flowctl/cmd/cliprompt"
	"github.com/flowteam/flowctl/cmd/resultprint"
	"github.com/flowteam/flowctl/internal/commands"
	"github.com/flowteam/flowctl/internal/orchestrator"
	"github.com/spf13/cobra"
)

// NewFinishCmd creates and returns the finish command.
func NewFinishCmd() *cobra.Command {
	builder := &commands.CommandBuilder{
		Use:   "finish",
		Short: "Wrap up the current branch: commit, push, and open a pull request",
		Long:  "Reviews changed files, composes a Conventional-Commits message, pushes, and optionally opens a PR. Refuses to run on the default branch.",
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

	result, err := orchestrator.RunFinish(ctx, app, prompter)
	if err != nil {
		app.Handler.Handle(ctx, "", err)
		return err
	}

	resultprint.Print(result)
	return nil
}
