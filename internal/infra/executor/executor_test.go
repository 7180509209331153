package executor

import (
	"context"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runoshun/adw/internal/domain"
)

func TestClient_Run(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("Skipping test on Windows")
	}

	client := NewClient()
	ctx := context.Background()

	t.Run("executes simple echo command", func(t *testing.T) {
		res, err := client.Run(ctx, domain.NewShellCommand("echo hello", ""))
		require.NoError(t, err)
		assert.Equal(t, "hello\n", res.Stdout)
		assert.Empty(t, res.Stderr)
		assert.Equal(t, 0, res.ExitCode)
	})

	t.Run("executes command in specified directory", func(t *testing.T) {
		dir := t.TempDir()
		res, err := client.Run(ctx, domain.NewShellCommand("pwd", dir))
		require.NoError(t, err)
		assert.Contains(t, strings.TrimSpace(res.Stdout), dir)
	})

	t.Run("returns error for non-existent command", func(t *testing.T) {
		res, err := client.Run(ctx, &domain.ExecCommand{Program: "nonexistent-command-xyz"})
		require.Error(t, err)
		assert.Nil(t, res)
	})

	t.Run("returns result and error for failing command", func(t *testing.T) {
		res, err := client.Run(ctx, domain.NewShellCommand("echo oops >&2; exit 3", ""))
		require.Error(t, err)
		require.NotNil(t, res)
		assert.Equal(t, 3, res.ExitCode)
		assert.Equal(t, "oops\n", res.Stderr)
	})

	t.Run("passes extra environment", func(t *testing.T) {
		cmd := domain.NewShellCommand("echo $ADW_TEST_VALUE", "")
		cmd.Env = []string{"ADW_TEST_VALUE=42"}
		res, err := client.Run(ctx, cmd)
		require.NoError(t, err)
		assert.Equal(t, "42\n", res.Stdout)
	})

	t.Run("honors context cancellation", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := client.Run(cctx, domain.NewShellCommand("sleep 5", ""))
		require.Error(t, err)
	})
}

func TestExecResult_Combined(t *testing.T) {
	assert.Equal(t, "out\nerr", (&domain.ExecResult{Stdout: "out", Stderr: "err"}).Combined())
	assert.Equal(t, "err", (&domain.ExecResult{Stderr: "err"}).Combined())
	assert.Equal(t, "", (*domain.ExecResult)(nil).Combined())
}
