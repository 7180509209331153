package cli

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/runoshun/adw/internal/domain"
)

func TestWorktreeCreate(t *testing.T) {
	c, deps := newTestContainer(t)

	out, _, err := execute(newWorktreeCommand(c), "create", "000a0000", "feature")
	require.NoError(t, err)
	assert.Equal(t, "Created worktree /repo/trees/000a0000 (backend 3110, frontend 3210)\n", out)

	out, _, err = execute(newWorktreeCommand(c), "create", "000a0000", "feature")
	require.NoError(t, err)
	assert.Contains(t, out, "Reusing worktree")
	assert.True(t, deps.worktrees.Existing["000a0000"])
}

func TestWorktreeRemove(t *testing.T) {
	c, deps := newTestContainer(t)
	deps.worktrees.Existing["a1b2c3d4"] = true

	out, _, err := execute(newWorktreeCommand(c), "remove", "a1b2c3d4")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed worktree /repo/trees/a1b2c3d4")

	_, _, err = execute(newWorktreeCommand(c), "rm", "a1b2c3d4")
	assert.ErrorIs(t, err, domain.ErrWorktreeNotFound)

	out, _, err = execute(newWorktreeCommand(c), "rm", "a1b2c3d4", "--ignore-missing")
	require.NoError(t, err)
	assert.Contains(t, out, "No worktree at")

	_, _, err = execute(newWorktreeCommand(c), "rm", "a1b2c3d4", "--force")
	assert.ErrorContains(t, err, "unknown flag: --force")
}

func TestWorktreeList(t *testing.T) {
	c, deps := newTestContainer(t)
	deps.worktrees.Infos = []domain.WorktreeInfo{
		{Path: "/repo/trees/a1b2c3d4", Head: "0123456789abcdef", Branch: "refs/heads/feature"},
		{Path: "/repo/trees/b2c3d4e5", Head: "fedcba9876543210", Detached: true},
	}

	t.Run("table", func(t *testing.T) {
		out, _, err := execute(newWorktreeCommand(c), "list")
		require.NoError(t, err)
		assert.Contains(t, out, "PATH")
		assert.Contains(t, out, "refs/heads/feature")
		assert.Contains(t, out, "(detached)")
		assert.Contains(t, out, "01234567")
		assert.NotContains(t, out, "0123456789abcdef")
	})

	t.Run("json", func(t *testing.T) {
		out, _, err := execute(newWorktreeCommand(c), "list", "-o", "json")
		require.NoError(t, err)
		var got []domain.WorktreeInfo
		require.NoError(t, json.Unmarshal([]byte(out), &got))
		assert.Equal(t, deps.worktrees.Infos, got)
	})

	t.Run("yaml", func(t *testing.T) {
		out, _, err := execute(newWorktreeCommand(c), "list", "-o", "yaml")
		require.NoError(t, err)
		var got []domain.WorktreeInfo
		require.NoError(t, yaml.Unmarshal([]byte(out), &got))
		assert.Equal(t, deps.worktrees.Infos, got)
	})

	t.Run("unknown format", func(t *testing.T) {
		_, _, err := execute(newWorktreeCommand(c), "list", "-o", "xml")
		assert.ErrorContains(t, err, "unknown output format")
	})
}

func TestWorktreeCleanup(t *testing.T) {
	t.Run("uses configured age", func(t *testing.T) {
		c, deps := newTestContainer(t)
		deps.worktrees.Cleaned = 2

		out, _, err := execute(newWorktreeCommand(c), "cleanup")

		require.NoError(t, err)
		assert.Equal(t, "Removed 2 worktree(s)\n", out)
		assert.Equal(t, domain.DefaultCleanupMaxAge, deps.worktrees.CleanupAge)
	})

	t.Run("zero max age", func(t *testing.T) {
		c, deps := newTestContainer(t)
		deps.worktrees.CleanupAge = time.Hour

		_, _, err := execute(newWorktreeCommand(c), "cleanup", "--max-age", "0")

		require.NoError(t, err)
		assert.Equal(t, time.Duration(0), deps.worktrees.CleanupAge)
	})

	t.Run("invalid max age", func(t *testing.T) {
		c, _ := newTestContainer(t)

		_, _, err := execute(newWorktreeCommand(c), "cleanup", "--max-age", "soon")

		assert.ErrorContains(t, err, "invalid --max-age")
	})

	t.Run("invalid schedule", func(t *testing.T) {
		c, _ := newTestContainer(t)

		_, _, err := execute(newWorktreeCommand(c), "cleanup", "--schedule", "every day")

		assert.ErrorContains(t, err, "invalid --schedule")
	})
}

func TestRunScheduled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	runs := make(chan struct{}, 1)
	var reported error

	go func() {
		<-runs
		cancel()
	}()

	err := runScheduled(ctx, "@every 1s", func(context.Context) error {
		select {
		case runs <- struct{}{}:
		default:
		}
		return errors.New("sweep failed")
	}, func(err error) { reported = err })

	require.NoError(t, err)
	assert.EqualError(t, reported, "sweep failed")
}

func TestWorktreePortsAndEnv(t *testing.T) {
	c, _ := newTestContainer(t)

	out, _, err := execute(newWorktreeCommand(c), "ports", "000a0000")
	require.NoError(t, err)
	assert.Equal(t, "PORT=3110\nVITE_PORT=3210\nDEV_SERVER_PORT=3210\n", out)

	out, _, err = execute(newWorktreeCommand(c), "env", "000a0000")
	require.NoError(t, err)
	assert.Contains(t, out, "PORT=3110\n")
	assert.Contains(t, out, "ADW_ID=000a0000\n")
	assert.Contains(t, out, "ADW_WORKTREE=/repo/trees/000a0000\n")

	_, _, err = execute(newWorktreeCommand(c), "ports", "nothex!")
	assert.ErrorIs(t, err, domain.ErrInvalidIdentifier)
}
