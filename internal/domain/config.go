package domain

import (
	"fmt"
	"path/filepath"
	"time"
)

// Default workflow settings.
const (
	DefaultUnitRetries    = 4
	DefaultE2ERetries     = 2
	DefaultInstallCommand = "npm install"
	DefaultE2EGlob        = "e2e/*.spec.ts"
	DefaultCleanupMaxAge  = 24 * time.Hour
	DefaultClaudePath     = "claude"
	DefaultLogLevel       = "info"
)

// Config represents the application configuration.
// Secrets are never read from or written to TOML; they come from the
// environment at load time.
// Fields are ordered to minimize memory padding.
type Config struct {
	Warnings []string       `toml:"-"`
	Project  ProjectConfig  `toml:"project"`
	Claude   ClaudeConfig   `toml:"claude"`
	GitHub   GitHubConfig   `toml:"github"`
	Worktree WorktreeConfig `toml:"worktree"`
	E2E      E2EConfig      `toml:"e2e"`
	Log      LogConfig      `toml:"log"`
	Ports    PortPolicy     `toml:"ports"`
	Retries  RetryConfig    `toml:"retries"`
	Metrics  MetricsConfig  `toml:"metrics"`
}

// ProjectConfig holds [project] settings.
type ProjectConfig struct {
	Root      string `toml:"root,omitempty"`       // Repository root (detected when empty)
	TreesDir  string `toml:"trees_dir,omitempty"`  // Worktree root (default: <root>/trees)
	AgentsDir string `toml:"agents_dir,omitempty"` // Run state and logs (default: <root>/agents)
	EnvFile   string `toml:"env_file,omitempty"`   // Shared secrets copied into worktrees
}

// ClaudeConfig holds [claude] settings.
type ClaudeConfig struct {
	APIKey        string   `toml:"-"`
	Path          string   `toml:"path"`
	ModelSet      ModelSet `toml:"model_set,omitempty" validate:"omitempty,oneof=base heavy"`
	ForceModel    string   `toml:"force_model,omitempty"`
	HeavyCommands []string `toml:"heavy_commands,omitempty"`
	FastCommands  []string `toml:"fast_commands,omitempty"`
	TimeoutSec    int      `toml:"timeout_sec,omitempty" validate:"min=0"`
}

// GitHubConfig holds [github] settings.
type GitHubConfig struct {
	Token string `toml:"-"`
	Repo  string `toml:"repo,omitempty"` // owner/name, derived from origin when empty
}

// WorktreeConfig holds [worktree] settings.
type WorktreeConfig struct {
	InstallCommand string `toml:"install_command"`
	CleanupMaxAge  string `toml:"cleanup_max_age"`
}

// E2EConfig holds [e2e] settings.
type E2EConfig struct {
	Glob string `toml:"glob"`
}

// LogConfig holds logging settings from [log] section.
type LogConfig struct {
	Level string `toml:"level" validate:"oneof=debug info warn error"`
}

// RetryConfig holds the per-tier retry ceilings.
type RetryConfig struct {
	Unit int `toml:"unit" validate:"min=1"`
	E2E  int `toml:"e2e" validate:"min=1"`
}

// MetricsConfig holds [metrics] settings.
type MetricsConfig struct {
	Enabled bool `toml:"enabled"`
}

// NewDefaultConfig returns the configuration used when no file sets a value.
func NewDefaultConfig() *Config {
	return &Config{
		Claude: ClaudeConfig{
			Path: DefaultClaudePath,
		},
		Worktree: WorktreeConfig{
			InstallCommand: DefaultInstallCommand,
			CleanupMaxAge:  DefaultCleanupMaxAge.String(),
		},
		E2E:     E2EConfig{Glob: DefaultE2EGlob},
		Log:     LogConfig{Level: DefaultLogLevel},
		Ports:   DefaultPortPolicy(),
		Retries: RetryConfig{Unit: DefaultUnitRetries, E2E: DefaultE2ERetries},
		Project: ProjectConfig{EnvFile: DefaultEnvFileName},
	}
}

// ResolvePaths fills directory defaults relative to root.
func (c *Config) ResolvePaths(root string) {
	if c.Project.Root == "" {
		c.Project.Root = root
	}
	if c.Project.TreesDir == "" {
		c.Project.TreesDir = TreesDir(c.Project.Root)
	} else if !filepath.IsAbs(c.Project.TreesDir) {
		c.Project.TreesDir = filepath.Join(c.Project.Root, c.Project.TreesDir)
	}
	if c.Project.AgentsDir == "" {
		c.Project.AgentsDir = AgentsDir(c.Project.Root)
	} else if !filepath.IsAbs(c.Project.AgentsDir) {
		c.Project.AgentsDir = filepath.Join(c.Project.Root, c.Project.AgentsDir)
	}
}

// CleanupAge parses worktree.cleanup_max_age.
func (c *Config) CleanupAge() (time.Duration, error) {
	if c.Worktree.CleanupMaxAge == "" {
		return DefaultCleanupMaxAge, nil
	}
	d, err := time.ParseDuration(c.Worktree.CleanupMaxAge)
	if err != nil {
		return 0, fmt.Errorf("worktree.cleanup_max_age: %w", err)
	}
	return d, nil
}

// AgentTimeout returns the per-call agent timeout, zero meaning none.
func (c *Config) AgentTimeout() time.Duration {
	return time.Duration(c.Claude.TimeoutSec) * time.Second
}

// ConfigInfo describes one configuration file.
type ConfigInfo struct {
	Path    string
	Content string
	Exists  bool
}
