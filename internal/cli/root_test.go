package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "agenda", cmd.Use)
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := [][]string{
		{"day"}, {"add"}, {"toggle"}, {"remove"}, {"month"}, {"upcoming"}, {"export"},
		{"finance", "summary"}, {"finance", "list"}, {"finance", "add"}, {"finance", "remove"},
		{"finance", "clear"}, {"finance", "history"},
		{"special", "list"}, {"special", "add"}, {"special", "remove"},
		{"watch"}, {"version"},
	}

	for _, path := range commands {
		t.Run(path[len(path)-1], func(t *testing.T) {
			subCmd, _, err := cmd.Find(path)
			require.NoError(t, err, "command %v should exist", path)
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

	assert.NotNil(t, cmd.PersistentFlags().Lookup("config"))
	assert.NotNil(t, cmd.PersistentFlags().Lookup("actor"))
}

func TestAddCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	addCmd, _, err := cmd.Find([]string{"add"})
	require.NoError(t, err)

	for _, name := range []string{"at", "period", "on", "repeat", "color"} {
		assert.NotNil(t, addCmd.Flags().Lookup(name), "flag --%s", name)
	}
	assert.Equal(t, "none", addCmd.Flags().Lookup("repeat").DefValue)
}

func TestFinanceClearRequiresConfirm(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"finance", "clear"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "confirm")
}
