package commands

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandBuilderBuild(t *testing.T) {
	builder := &CommandBuilder{
		Use:          "start",
		Short:        "Begin new work",
		Long:         "Long description.",
		ExampleUsage: []string{"flowctl start"},
	}

	var ran bool
	cmd := builder.Build(func(*cobra.Command, []string) error {
		ran = true
		return nil
	})

	assert.Equal(t, "start", cmd.Use)
	assert.True(t, cmd.SilenceUsage)
	assert.Contains(t, cmd.Long, "Examples:")
	assert.Contains(t, cmd.Long, "flowctl start")

	cmd.SetArgs([]string{})
	require.NoError(t, cmd.Execute())
	assert.True(t, ran)
}

func TestCommandBuilderRejectsPositionalArgs(t *testing.T) {
	builder := &CommandBuilder{Use: "team", Short: "x"}
	cmd := builder.Build(func(*cobra.Command, []string) error { return nil })
	cmd.SetArgs([]string{"unexpected"})

	err := cmd.Execute()
	require.Error(t, err)
}
