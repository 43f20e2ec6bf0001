package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRootCmd_RegistersExpectedSubcommands(t *testing.T) {
	root := NewRootCmd()

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}

	assert.Contains(t, names, "serve")
	assert.Contains(t, names, "reindex")
	assert.Contains(t, names, "doctor")
	assert.Contains(t, names, "version")
}

func TestNewRootCmd_HasDebugAndConfigFlags(t *testing.T) {
	root := NewRootCmd()

	assert.NotNil(t, root.PersistentFlags().Lookup("debug"))
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
	assert.NotNil(t, root.PersistentFlags().Lookup("no-color"))
}

func TestNewRootCmd_FindsReindexWatchFlag(t *testing.T) {
	root := NewRootCmd()

	reindexCmd, _, err := root.Find([]string{"reindex"})
	require.NoError(t, err)
	assert.NotNil(t, reindexCmd.Flags().Lookup("watch"))
}
