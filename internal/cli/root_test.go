package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "extkit", cmd.Use)
	assert.Contains(t, cmd.Long, "owner wallet")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := [][]string{
		{"list"}, {"submit"}, {"reveal"}, {"status"}, {"stats"},
		{"import"}, {"serve"}, {"init"}, {"wallet", "init"}, {"wallet", "address"},
	}

	for _, path := range commands {
		t.Run(path[len(path)-1], func(t *testing.T) {
			subCmd, _, err := cmd.Find(path)
			require.NoError(t, err)
			require.NotNil(t, subCmd)
			assert.Equal(t, path[len(path)-1], subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	yesFlag := cmd.PersistentFlags().Lookup("yes")
	require.NotNil(t, yesFlag)
	assert.Equal(t, "y", yesFlag.Shorthand)

	require.NotNil(t, cmd.PersistentFlags().Lookup("config"))
}

func TestSubmitCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	submitCmd, _, err := cmd.Find([]string{"submit"})
	require.NoError(t, err)

	category := submitCmd.Flags().Lookup("category")
	require.NotNil(t, category)
	assert.Equal(t, "Payment", category.DefValue)

	name := submitCmd.Flags().Lookup("name")
	require.NotNil(t, name)
	assert.Equal(t, []string{"true"}, name.Annotations["cobra_annotation_bash_completion_one_required_flag"])
}

func TestListCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	listCmd, _, err := cmd.Find([]string{"list"})
	require.NoError(t, err)

	search := listCmd.Flags().Lookup("search")
	require.NotNil(t, search)
	assert.Equal(t, "s", search.Shorthand)

	category := listCmd.Flags().Lookup("category")
	require.NotNil(t, category)
	assert.Equal(t, "All", category.DefValue)
}

func TestFormatValidationIntegration(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"--format", "invalid", "status"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}
