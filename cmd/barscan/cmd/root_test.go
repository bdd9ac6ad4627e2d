package cmd

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs a fresh command tree with args and returns what it wrote.
func execute(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	root := NewRootCommand()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err = root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestRootCommand(t *testing.T) {
	root := NewRootCommand()
	assert.Equal(t, "barscan", root.Use)
	assert.NotEmpty(t, root.Short)
	assert.NotEmpty(t, root.Long)

	names := make([]string, 0, len(root.Commands()))
	for _, sub := range root.Commands() {
		names = append(names, sub.Name())
	}
	for _, want := range []string{"decode", "batch", "pdf", "serve", "formats", "config", "version", "bench"} {
		assert.Contains(t, names, want, "subcommand %q not registered", want)
	}
}

func TestRootCommandHelp(t *testing.T) {
	out, _, err := execute(t, "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "Usage:")
	assert.Contains(t, out, "Available Commands:")
	assert.Contains(t, out, "--log-level")
}

func TestRootCommandVersionFlag(t *testing.T) {
	out, _, err := execute(t, "--version")
	require.NoError(t, err)
	assert.Equal(t, "barscan dev\n", out)
}

func TestRootCommandUnknownCommand(t *testing.T) {
	_, _, err := execute(t, "scan-everything")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command")
}

func TestRootCommandInvalidFlag(t *testing.T) {
	_, _, err := execute(t, "--definitely-not-a-flag")
	require.Error(t, err)
}

func TestRootCommandInvalidLogLevel(t *testing.T) {
	_, _, err := execute(t, "--log-level", "loud", "formats")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestRootCommandsAreIndependent(t *testing.T) {
	_, _, err := execute(t, "--log-level", "loud", "formats")
	require.Error(t, err)

	out, _, err := execute(t, "formats")
	require.NoError(t, err)
	assert.Contains(t, out, "QR_CODE")
}

func TestVersionCommand(t *testing.T) {
	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "barscan dev")

	out, _, err = execute(t, "version", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"version": "dev"`)
	assert.Contains(t, out, `"go_version"`)
}
