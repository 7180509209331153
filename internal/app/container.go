// Package app provides the dependency injection container for the application.
package app

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/runoshun/adw/internal/domain"
	"github.com/runoshun/adw/internal/infra/agent"
	"github.com/runoshun/adw/internal/infra/config"
	"github.com/runoshun/adw/internal/infra/executor"
	"github.com/runoshun/adw/internal/infra/git"
	"github.com/runoshun/adw/internal/infra/github"
	"github.com/runoshun/adw/internal/infra/installer"
	"github.com/runoshun/adw/internal/infra/logging"
	"github.com/runoshun/adw/internal/infra/metrics"
	"github.com/runoshun/adw/internal/infra/parser"
	"github.com/runoshun/adw/internal/infra/statestore"
	"github.com/runoshun/adw/internal/infra/worktree"
	"github.com/runoshun/adw/internal/usecase"
)

// Paths holds the directories the application works in.
type Paths struct {
	RepoRoot  string // Main repository root
	WorkDir   string // Checkout the command was started in (may be a worktree)
	TreesDir  string // Root of run worktrees
	AgentsDir string // Run state, agent output and logs
}

// Container provides dependency injection for the application.
// It holds all port implementations and provides factory methods for use cases.
// Ports that depend on configuration are bound by Load.
type Container struct {
	// Ports (interfaces bound to implementations)
	Executor      domain.CommandExecutor
	Git           domain.Git
	WorktreeGit   domain.WorktreeGit
	Worktrees     domain.WorktreeManager
	Agent         domain.AgentExecutor
	Parser        domain.ResultParser
	Commenter     domain.IssueCommenter
	State         domain.StateStore
	Logger        domain.Logger
	Clock         domain.Clock
	ConfigLoader  domain.ConfigLoader
	ConfigSources domain.ConfigSources
	ConfigManager domain.ConfigManager
	Stderr        io.Writer // Console mirror of the run log

	// Pointer fields
	AppConfig *domain.Config
	Models    *domain.ModelSelector
	loader    *config.Loader
	closers   []io.Closer

	// Configuration
	Paths Paths
}

// New creates a new Container by detecting the git repository from the given directory.
func New(dir string) (*Container, error) {
	exec := executor.NewClient()
	gitClient, err := git.NewClient(dir, exec)
	if err != nil {
		return nil, err
	}
	loader := config.NewLoader(gitClient.RepoRoot())

	return &Container{
		Executor:      exec,
		Git:           gitClient,
		WorktreeGit:   gitClient,
		Parser:        parser.New(),
		Clock:         domain.RealClock{},
		ConfigLoader:  loader,
		ConfigSources: loader,
		ConfigManager: loader,
		Logger:        domain.NopLogger{},
		Stderr:        os.Stderr,
		loader:        loader,
		Paths: Paths{
			RepoRoot: gitClient.RepoRoot(),
			WorkDir:  gitClient.WorkingDir(),
		},
	}, nil
}

// NewWithDeps creates a new Container with custom dependencies for testing.
// The returned container is already loaded with cfg.
func NewWithDeps(cfg *domain.Config, paths Paths, deps Container) *Container {
	c := deps
	c.AppConfig = cfg
	c.Paths = paths
	if c.Clock == nil {
		c.Clock = domain.RealClock{}
	}
	if c.Logger == nil {
		c.Logger = domain.NopLogger{}
	}
	if c.Models == nil {
		c.Models = domain.NewModelSelector(cfg.Claude.HeavyCommands, cfg.Claude.FastCommands)
	}
	return &c
}

// Load reads the configuration and binds the ports that depend on it.
// configFile, when set, is read after the repository config and must exist.
func (c *Container) Load(configFile string) error {
	if c.AppConfig != nil {
		return nil
	}
	if configFile != "" {
		c.loader.WithFile(configFile)
	}
	cfg, err := c.loader.Load()
	if err != nil {
		return err
	}
	c.AppConfig = cfg
	c.Paths.TreesDir = cfg.Project.TreesDir
	c.Paths.AgentsDir = cfg.Project.AgentsDir

	level := logging.ParseLevel(cfg.Log.Level)
	fileLogger := logging.New(cfg.Project.AgentsDir, level)
	if c.Stderr != nil {
		fileLogger.WithConsole(c.Stderr)
	}
	c.Logger = fileLogger
	c.closers = append(c.closers, fileLogger)

	c.Models = domain.NewModelSelector(cfg.Claude.HeavyCommands, cfg.Claude.FastCommands)
	c.State = statestore.New(cfg.Project.AgentsDir)
	c.Worktrees = worktree.NewManager(worktree.Options{
		Git:       c.WorktreeGit,
		Installer: installer.NewClient(c.Executor, cfg.Worktree.InstallCommand),
		Clock:     c.Clock,
		Logger:    c.Logger,
		TreesDir:  cfg.Project.TreesDir,
		EnvFile:   envFilePath(cfg),
		Policy:    cfg.Ports,
	})
	return nil
}

// Close releases open log files.
func (c *Container) Close() error {
	var errs []error
	for _, cl := range c.closers {
		errs = append(errs, cl.Close())
	}
	c.closers = nil
	return errors.Join(errs...)
}

func envFilePath(cfg *domain.Config) string {
	if cfg.Project.EnvFile == "" {
		return ""
	}
	if filepath.IsAbs(cfg.Project.EnvFile) {
		return cfg.Project.EnvFile
	}
	return filepath.Join(cfg.Project.Root, cfg.Project.EnvFile)
}

// UseCase factory methods

// TestWorkflowUseCase returns a TestWorkflow bound to runID.
// It fails when the credentials or the issue repository cannot be resolved.
func (c *Container) TestWorkflowUseCase(runID string) (*usecase.TestWorkflow, error) {
	cfg := c.AppConfig
	if err := config.RequireWorkflow(cfg); err != nil {
		return nil, err
	}

	agentClient := c.Agent
	if agentClient == nil {
		env, err := c.runEnv(runID)
		if err != nil {
			return nil, err
		}
		agentClient = agent.NewClient(agent.Options{
			Executor:   c.Executor,
			Logger:     c.Logger,
			ClaudePath: cfg.Claude.Path,
			APIKey:     cfg.Claude.APIKey,
			AgentsDir:  cfg.Project.AgentsDir,
			WorkDir:    c.Paths.WorkDir,
			Env:        env,
			Timeout:    cfg.AgentTimeout(),
		})
	}

	commenter := c.Commenter
	if commenter == nil {
		repo, err := c.issueRepo()
		if err != nil {
			return nil, err
		}
		commenter = github.NewCommenter(c.Executor, repo, cfg.GitHub.Token)
	}

	var recorder domain.Metrics = domain.NopMetrics{}
	if cfg.Metrics.Enabled {
		recorder = metrics.NewRecorder(runID, domain.MetricsPath(cfg.Project.AgentsDir, runID))
	}

	return usecase.NewTestWorkflow(usecase.TestWorkflowDeps{
		Agent:     agentClient,
		Parser:    c.Parser,
		Commenter: commenter,
		Git:       c.Git,
		State:     c.State,
		Logger:    c.Logger,
		Metrics:   recorder,
		Clock:     c.Clock,
		Models:    c.Models,
	}, usecase.TestWorkflowSettings{
		ModelSet:    cfg.Claude.ModelSet,
		ForceModel:  domain.ModelName(cfg.Claude.ForceModel),
		WorkDir:     c.Paths.WorkDir,
		E2EGlob:     cfg.E2E.Glob,
		UnitRetries: cfg.Retries.Unit,
		E2ERetries:  cfg.Retries.E2E,
	}), nil
}

// runEnv returns the worktree variables when the command runs inside the
// run's own worktree.
func (c *Container) runEnv(runID string) ([]string, error) {
	if c.Worktrees == nil || c.Paths.WorkDir != c.Worktrees.Path(runID) {
		return nil, nil
	}
	return c.Worktrees.Env(runID)
}

// issueRepo resolves owner/name from config or the origin remote.
func (c *Container) issueRepo() (string, error) {
	if c.AppConfig.GitHub.Repo != "" {
		return c.AppConfig.GitHub.Repo, nil
	}
	remote, err := c.Git.RemoteURL("origin")
	if err != nil {
		return "", fmt.Errorf("resolve issue repository: %w", err)
	}
	return git.RepoSlug(remote)
}

// CreateWorktreeUseCase returns a new CreateWorktree use case.
func (c *Container) CreateWorktreeUseCase() *usecase.CreateWorktree {
	return usecase.NewCreateWorktree(c.Worktrees)
}

// RemoveWorktreeUseCase returns a new RemoveWorktree use case.
func (c *Container) RemoveWorktreeUseCase() *usecase.RemoveWorktree {
	return usecase.NewRemoveWorktree(c.Worktrees)
}

// ListWorktreesUseCase returns a new ListWorktrees use case.
func (c *Container) ListWorktreesUseCase() *usecase.ListWorktrees {
	return usecase.NewListWorktrees(c.Worktrees)
}

// CleanupWorktreesUseCase returns a new CleanupWorktrees use case.
func (c *Container) CleanupWorktreesUseCase() *usecase.CleanupWorktrees {
	return usecase.NewCleanupWorktrees(c.Worktrees, c.Logger)
}

// WorktreeEnvUseCase returns a new WorktreeEnv use case.
func (c *Container) WorktreeEnvUseCase() *usecase.WorktreeEnv {
	return usecase.NewWorktreeEnv(c.Worktrees, c.AppConfig.Ports)
}

// SelectModelUseCase returns a new SelectModel use case.
func (c *Container) SelectModelUseCase() *usecase.SelectModel {
	return usecase.NewSelectModel(c.Models)
}

// ShowConfigUseCase returns a new ShowConfig use case.
func (c *Container) ShowConfigUseCase() *usecase.ShowConfig {
	return usecase.NewShowConfig(c.ConfigSources, c.ConfigLoader)
}

// InitConfigUseCase returns a new InitConfig use case.
func (c *Container) InitConfigUseCase() *usecase.InitConfig {
	return usecase.NewInitConfig(c.ConfigManager)
}
