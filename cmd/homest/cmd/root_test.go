package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/homest/internal/version"
)

// execute runs a fresh command tree with args inside an isolated working
// directory and home, returning stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", dir)

	return executeIn(t, args...)
}

// executeIn runs a fresh command tree in the current directory.
func executeIn(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	cmd := NewRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRootCommand(t *testing.T) {
	require.NotNil(t, rootCmd)
	assert.Equal(t, "homest", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
	assert.Same(t, rootCmd, GetRootCommand())
}

func TestRootCommandHelp(t *testing.T) {
	stdout, _, err := execute(t, "--help")
	require.NoError(t, err)

	assert.Contains(t, stdout, "planar homography")
	assert.Contains(t, stdout, "Available Commands:")
	assert.Contains(t, stdout, "Usage:")
}

func TestRootCommandVersion(t *testing.T) {
	stdout, _, err := execute(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, stdout, version.Version)
}

func TestRootCommandSubcommands(t *testing.T) {
	cmd := NewRootCommand()

	names := make([]string, 0, len(cmd.Commands()))
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	for _, expected := range []string{"estimate", "batch", "generate", "serve", "bench", "config"} {
		assert.Contains(t, names, expected, "Expected subcommand '%s' not found", expected)
	}
}

func TestRootCommandInvalidFlag(t *testing.T) {
	_, stderr, err := execute(t, "--definitely-not-a-flag")
	require.Error(t, err)
	assert.Contains(t, stderr+err.Error(), "unknown flag")
}

func TestRootCommandInvalidLogLevel(t *testing.T) {
	_, _, err := execute(t, "config", "validate", "--log-level", "chatty")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestRootCommandTreesAreIndependent(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)

	_, _, err := executeIn(t, "config", "validate", "--log-level", "debug")
	require.NoError(t, err)

	stdout, _, err := executeIn(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, stdout, "log_level: info")
}

func TestRootCommandLogsToStderr(t *testing.T) {
	stdout, stderr, err := execute(t, "generate", "--count", "10", "--seed", "3", "--output", "scene.json")
	require.NoError(t, err)

	assert.Empty(t, strings.TrimSpace(stdout))
	assert.Contains(t, stderr, `"msg":"Generated correspondence set"`)
}
