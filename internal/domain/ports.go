package domain

import (
	"context"
	"time"
)

// CommandExecutor runs external processes.
type CommandExecutor interface {
	// Run executes cmd and captures its output.
	// The result is non-nil whenever the process started; err is non-nil when
	// it could not start or exited with a non-zero status.
	Run(ctx context.Context, cmd *ExecCommand) (*ExecResult, error)
}

// AgentExecutor runs one agent slash command.
type AgentExecutor interface {
	// Execute runs the request. Agent-side failures are reported through
	// AgentResponse.Success; the error is reserved for context cancellation.
	Execute(ctx context.Context, req AgentRequest) (*AgentResponse, error)
}

// ResultParser extracts structured JSON from agent output.
type ResultParser interface {
	// ParseJSON decodes the JSON embedded in text into target.
	// Returns *ParseError when no valid JSON is found.
	ParseJSON(text string, target any) error
}

// IssueCommenter posts comments to the issue tracker.
type IssueCommenter interface {
	// PostComment adds a comment to the issue.
	PostComment(ctx context.Context, issue, body string) error
}

// Git provides the version-control operations the workflow needs.
type Git interface {
	// RepoRoot returns the main repository root.
	RepoRoot() string

	// CurrentBranch returns the checked-out branch name.
	CurrentBranch() (string, error)

	// BranchExists checks if a local branch exists.
	BranchExists(branch string) (bool, error)

	// RemoteURL returns the URL of the named remote.
	RemoteURL(remote string) (string, error)

	// Checkout switches to an existing branch.
	Checkout(ctx context.Context, branch string) error

	// CreateBranch creates and switches to a new branch.
	CreateBranch(ctx context.Context, branch string) error

	// CommitAll stages everything and commits. Returns false when there was
	// nothing to commit.
	CommitAll(ctx context.Context, message string) (bool, error)

	// Push pushes branch to origin and sets upstream.
	Push(ctx context.Context, branch string) error
}

// WorktreeGit is the subset of git used to manage worktrees.
type WorktreeGit interface {
	// AddWorktree checks out branch at path.
	AddWorktree(ctx context.Context, path, branch string) error

	// RemoveWorktree force-removes the worktree at path.
	RemoveWorktree(ctx context.Context, path string) error

	// ListWorktrees returns `git worktree list --porcelain` output.
	ListWorktrees(ctx context.Context) (string, error)
}

// WorktreeManager manages per-run worktrees.
type WorktreeManager interface {
	// Create returns the worktree for runID, creating it if needed.
	Create(ctx context.Context, runID, branch string) (*Worktree, error)

	// Remove deletes the worktree. Returns false if it did not exist.
	Remove(ctx context.Context, runID string) (bool, error)

	// List returns worktrees under the trees root.
	List(ctx context.Context) ([]WorktreeInfo, error)

	// Cleanup removes worktrees older than maxAge and returns how many.
	Cleanup(ctx context.Context, maxAge time.Duration) (int, error)

	// Path returns the worktree path for runID.
	Path(runID string) string

	// Env returns the environment for commands run inside the worktree.
	Env(runID string) ([]string, error)
}

// PackageInstaller installs project dependencies.
type PackageInstaller interface {
	// Install installs dependencies inside dir.
	Install(ctx context.Context, dir string) error
}

// StateStore persists run state.
type StateStore interface {
	// Load returns the state for runID, or ErrStateNotFound.
	Load(runID string) (*RunState, error)

	// Save writes the state.
	Save(state *RunState) error
}

// Logger writes run-scoped log entries.
type Logger interface {
	Info(runID, category, msg string)
	Debug(runID, category, msg string)
	Warn(runID, category, msg string)
	Error(runID, category, msg string)
}

// Clock provides time operations for testability.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

// RealClock implements Clock using the system clock.
type RealClock struct{}

// Now returns the current time.
func (RealClock) Now() time.Time {
	return time.Now()
}

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) Info(string, string, string)  {}
func (NopLogger) Debug(string, string, string) {}
func (NopLogger) Warn(string, string, string)  {}
func (NopLogger) Error(string, string, string) {}

// ConfigLoader loads the effective configuration.
type ConfigLoader interface {
	// Load merges defaults, config files and environment overrides.
	Load() (*Config, error)
}

// ConfigSources lists the configuration files the loader consults.
type ConfigSources interface {
	// Sources returns the files in precedence order, lowest first.
	Sources() []ConfigInfo
}

// Metrics records resolution loop activity.
type Metrics interface {
	// ObserveAttempt records one verification run and its counts.
	ObserveAttempt(tier Tier, passed, failed int)

	// ObserveRemediation records one remediation call.
	ObserveRemediation(tier Tier, resolved bool)

	// ObserveTier records how a tier finished.
	ObserveTier(tier Tier, state LoopState, elapsed time.Duration)

	// Flush persists the collected metrics.
	Flush() error
}

// NopMetrics discards everything.
type NopMetrics struct{}

func (NopMetrics) ObserveAttempt(Tier, int, int)              {}
func (NopMetrics) ObserveRemediation(Tier, bool)              {}
func (NopMetrics) ObserveTier(Tier, LoopState, time.Duration) {}
func (NopMetrics) Flush() error                               { return nil }

// ConfigManager writes starter configuration files.
type ConfigManager interface {
	// GetRepoConfigInfo returns information about the repository config file.
	GetRepoConfigInfo() ConfigInfo

	// GetGlobalConfigInfo returns information about the global config file.
	GetGlobalConfigInfo() ConfigInfo

	// InitRepoConfig writes cfg to the repository config file.
	InitRepoConfig(cfg *Config) error

	// InitGlobalConfig writes cfg to the global config file.
	InitGlobalConfig(cfg *Config) error
}
