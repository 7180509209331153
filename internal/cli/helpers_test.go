package cli

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"

	"github.com/runoshun/adw/internal/app"
	"github.com/runoshun/adw/internal/domain"
	"github.com/runoshun/adw/internal/infra/parser"
	"github.com/runoshun/adw/internal/testutil"
)

// testDeps exposes the mocks behind a test container.
type testDeps struct {
	worktrees *testutil.MockWorktreeManager
	agent     *testutil.MockAgentExecutor
	commenter *testutil.MockCommenter
	git       *testutil.MockGit
	state     *testutil.MockStateStore
	loader    *testutil.MockConfigLoader
	sources   *testutil.MockConfigSources
}

// newTestContainer creates a loaded container backed by mocks.
func newTestContainer(t *testing.T) (*app.Container, *testDeps) {
	t.Helper()

	cfg := domain.NewDefaultConfig()
	cfg.Claude.APIKey = "test-key"
	root := t.TempDir()
	cfg.ResolvePaths(root)

	deps := &testDeps{
		worktrees: testutil.NewMockWorktreeManager(),
		agent:     &testutil.MockAgentExecutor{},
		commenter: &testutil.MockCommenter{},
		git:       testutil.NewMockGit(),
		state:     testutil.NewMockStateStore(),
		loader:    &testutil.MockConfigLoader{Config: cfg},
		sources:   &testutil.MockConfigSources{},
	}

	c := app.NewWithDeps(cfg, app.Paths{
		RepoRoot:  root,
		WorkDir:   root,
		TreesDir:  cfg.Project.TreesDir,
		AgentsDir: cfg.Project.AgentsDir,
	}, app.Container{
		Worktrees:     deps.worktrees,
		Agent:         deps.agent,
		Parser:        parser.New(),
		Commenter:     deps.commenter,
		Git:           deps.git,
		State:         deps.state,
		ConfigLoader:  deps.loader,
		ConfigSources: deps.sources,
	})
	return c, deps
}

// execute runs cmd with args and returns stdout, stderr and the error.
func execute(cmd *cobra.Command, args ...string) (string, string, error) {
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}
