package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmdTree(t *testing.T) {
	root := RootCmd()

	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"project", "index", "query", "serve", "mcp"} {
		assert.True(t, names[want], "missing %s command", want)
	}

	proj, _, err := root.Find([]string{"project"})
	require.NoError(t, err)
	sub := map[string]bool{}
	for _, c := range proj.Commands() {
		sub[c.Name()] = true
	}
	for _, want := range []string{"set", "list", "remove", "current"} {
		assert.True(t, sub[want], "missing project %s subcommand", want)
	}
}

func TestQueryFlags(t *testing.T) {
	root := RootCmd()
	cmd, _, err := root.Find([]string{"query"})
	require.NoError(t, err)

	for _, flag := range []string{"project", "index", "top-k", "threshold", "output", "raw"} {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "missing --%s", flag)
	}
}

func TestIndexFlags(t *testing.T) {
	root := RootCmd()
	cmd, _, err := root.Find([]string{"index"})
	require.NoError(t, err)

	for _, flag := range []string{"project", "name", "no-save"} {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "missing --%s", flag)
	}
}
