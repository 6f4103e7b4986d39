package cmd

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openredress/casetriage/pkg/buildinfo"
)

func TestNewRootCommand(t *testing.T) {
	cmd := NewRootCommand(testDeps())

	require.NotNil(t, cmd)
	assert.Equal(t, "casetriage", cmd.Use)

	expected := []string{"intake", "classify", "escalate", "case", "config", "auth", "version"}
	for _, name := range expected {
		assert.NotNil(t, findSubcommand(cmd, name), "missing subcommand %q", name)
	}

	assert.NotNil(t, cmd.PersistentFlags().Lookup("timeout"))
	assert.NotNil(t, cmd.PersistentFlags().Lookup("debug"))
}

func TestRootCommand_FlagOverrides(t *testing.T) {
	rootTimeout = 0
	rootDebug = false

	deps := testDeps()
	cmd := NewRootCommand(deps)

	_, err := executeCommand(t, cmd, "--debug", "--timeout", "5s", "config", "show")
	require.NoError(t, err)

	assert.True(t, deps.Config.Debug)
	assert.Equal(t, "5s", deps.Config.Timeout.String())
}

func TestVersionCommand(t *testing.T) {
	versionOutput = ""

	out, err := executeCommand(t, NewVersionCommand())
	require.NoError(t, err)
	assert.Contains(t, out, "casetriage")
	assert.Contains(t, out, buildinfo.Version)
}

func TestVersionCommand_JSONOutput(t *testing.T) {
	versionOutput = ""

	out, err := executeCommand(t, NewVersionCommand(), "--output", "json")
	require.NoError(t, err)

	var info buildinfo.Info
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, "casetriage-cli", info.ServiceName)
	assert.NotEmpty(t, info.GoVersion)
}
