package cmd

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func subcommands(c *cobra.Command) []string {
	var names []string
	for _, sub := range c.Commands() {
		names = append(names, sub.Name())
	}
	return names
}

func TestCommandTree(t *testing.T) {
	assert.ElementsMatch(t, []string{"up", "down"}, subcommands(MigrateCmd()))
	assert.ElementsMatch(t, []string{"expire"}, subcommands(InsightsCmd()))
	assert.ElementsMatch(t, []string{"create"}, subcommands(UserCmd()))
}

func TestUserCreate_RequiresFlags(t *testing.T) {
	root := &cobra.Command{Use: "do"}
	root.AddCommand(UserCmd())

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"user", "create", "--email", "dana@example.com"})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag(s)")
}

func TestMigrate_RejectsArgs(t *testing.T) {
	root := &cobra.Command{Use: "do"}
	root.AddCommand(MigrateCmd())
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"migrate", "up", "extra"})

	assert.Error(t, root.Execute())
}
