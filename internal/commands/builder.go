package commands

import "github.com/spf13/cobra"

// CommandBuilder standardizes the shape of a phase subcommand.
type CommandBuilder struct {
	Use          string
	Short        string
	Long         string
	ExampleUsage []string
}

// Build constructs a Cobra command with no positional arguments
// (every phase subcommand takes none; all behavior is via prompts),
// wiring runFunc as RunE.
func (cb *CommandBuilder) Build(runFunc func(cmd *cobra.Command, args []string) error) *cobra.Command {
	cobraCmd := &cobra.Command{
		Use:          cb.Use,
		Short:        cb.Short,
		Long:         cb.Long,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE:         runFunc,
	}

	if len(cb.ExampleUsage) > 0 {
		examples := "\nExamples:\n"
		for _, example := range cb.ExampleUsage {
			examples += "  " + example + "\n"
		}
		cobraCmd.Long += examples
	}

	return cobraCmd
}
