package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRootCommand_ShowsHelp(t *testing.T) {
	root := NewRootCommand(nil, "test-version")

	out, _, err := execute(root, "--help")

	require.NoError(t, err)
	assert.Contains(t, out, "Workflow Commands:")
	assert.Contains(t, out, "test")
	assert.Contains(t, out, "worktree")
	assert.Contains(t, out, "--config")
}

func TestNewRootCommand_Version(t *testing.T) {
	root := NewRootCommand(nil, "1.2.3")

	out, _, err := execute(root, "--version")

	require.NoError(t, err)
	assert.Contains(t, out, "1.2.3")
}

func TestNewRootCommand_PrintsConfigWarnings(t *testing.T) {
	c, _ := newTestContainer(t)
	c.AppConfig.Warnings = []string{"unknown key: claude.nonsense"}

	_, stderr, err := execute(NewRootCommand(c, "dev"), "model", "/commit")

	require.NoError(t, err)
	assert.Contains(t, stderr, "Warning: unknown key: claude.nonsense")
}
