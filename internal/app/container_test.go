package app

import (
	"bytes"
	"os"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runoshun/adw/internal/domain"
	"github.com/runoshun/adw/internal/testutil"
)

func newTestContainer(t *testing.T, cfg *domain.Config, workDir string) (*Container, *testutil.MockGit, *testutil.MockWorktreeManager) {
	t.Helper()
	git := testutil.NewMockGit()
	worktrees := testutil.NewMockWorktreeManager()
	c := NewWithDeps(cfg, Paths{RepoRoot: "/repo", WorkDir: workDir}, Container{
		Git:       git,
		Worktrees: worktrees,
		State:     testutil.NewMockStateStore(),
	})
	return c, git, worktrees
}

func TestNewWithDeps_Defaults(t *testing.T) {
	c, _, _ := newTestContainer(t, domain.NewDefaultConfig(), "/repo")

	assert.NoError(t, c.Load("ignored.toml"), "already loaded")
	assert.NotNil(t, c.Clock)
	assert.NotNil(t, c.Logger)
	require.NotNil(t, c.Models)
	assert.True(t, c.Models.IsHeavy(domain.CommandResolveFailedTest))
	assert.NoError(t, c.Close())
}

func TestContainer_IssueRepo(t *testing.T) {
	cfg := domain.NewDefaultConfig()
	c, git, _ := newTestContainer(t, cfg, "/repo")

	repo, err := c.issueRepo()
	require.NoError(t, err)
	assert.Equal(t, "acme/widgets", repo)

	cfg.GitHub.Repo = "other/project"
	repo, err = c.issueRepo()
	require.NoError(t, err)
	assert.Equal(t, "other/project", repo)

	cfg.GitHub.Repo = ""
	git.Remote = ""
	_, err = c.issueRepo()
	assert.ErrorIs(t, err, domain.ErrNoRemote)
}

func TestContainer_RunEnv(t *testing.T) {
	c, _, worktrees := newTestContainer(t, domain.NewDefaultConfig(), "/repo")

	env, err := c.runEnv("a1b2c3d4")
	require.NoError(t, err)
	assert.Nil(t, env, "main checkout gets no worktree variables")

	c.Paths.WorkDir = worktrees.Path("a1b2c3d4")
	env, err = c.runEnv("a1b2c3d4")
	require.NoError(t, err)
	assert.Contains(t, env, "PORT=3109")
	assert.Contains(t, env, domain.EnvRunID+"=a1b2c3d4")
}

func TestContainer_TestWorkflowUseCase(t *testing.T) {
	cfg := domain.NewDefaultConfig()
	c, _, _ := newTestContainer(t, cfg, "/repo")

	_, err := c.TestWorkflowUseCase("a1b2c3d4")
	assert.ErrorIs(t, err, domain.ErrMissingConfig)

	cfg.Claude.APIKey = "sk-test"
	cfg.Metrics.Enabled = true
	uc, err := c.TestWorkflowUseCase("a1b2c3d4")
	require.NoError(t, err)
	assert.NotNil(t, uc)
}

func TestContainer_Load_MirrorsLogToConsole(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
	repoRoot := t.TempDir()
	cmd := exec.Command("git", "init")
	cmd.Dir = repoRoot
	require.NoError(t, cmd.Run())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	c, err := New(repoRoot)
	require.NoError(t, err)
	var console bytes.Buffer
	c.Stderr = &console

	require.NoError(t, c.Load(""))
	t.Cleanup(func() { _ = c.Close() })

	c.Logger.Info("a1b2c3d4", "workflow", "testing issue #42")

	assert.Contains(t, console.String(), "msg=\"testing issue #42\"")
	assert.Contains(t, console.String(), "run=a1b2c3d4")
	data, err := os.ReadFile(domain.RunLogPath(c.Paths.AgentsDir, "a1b2c3d4"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "testing issue #42")
}
