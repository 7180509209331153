package domain

import (
	"fmt"
	"path/filepath"
)

// File and directory names.
const (
	TreesDirName       = "trees"
	AgentsDirName      = "agents"
	PortsFileName      = ".ports.env"
	DefaultEnvFileName = ".env.local"
	StateFileName      = "adw_state.json"
	RawOutputFileName  = "raw_output.json"
	WorkflowName       = "adw_test"
	ConfigFileName     = "config.toml"
	RepoConfigFileName = ".adw.toml"
)

// Environment variables exported into a worktree.
const (
	EnvRunID    = "ADW_ID"
	EnvWorktree = "ADW_WORKTREE"
)

// TreesDir returns the root directory holding all run worktrees.
func TreesDir(projectRoot string) string {
	return filepath.Join(projectRoot, TreesDirName)
}

// WorktreePath returns the worktree path for a run.
func WorktreePath(treesDir, runID string) string {
	return filepath.Join(treesDir, runID)
}

// AgentsDir returns the directory holding run state and agent output.
func AgentsDir(projectRoot string) string {
	return filepath.Join(projectRoot, AgentsDirName)
}

// StatePath returns the path to a run's state file.
func StatePath(agentsDir, runID string) string {
	return filepath.Join(agentsDir, runID, StateFileName)
}

// AgentOutputPath returns where the raw output of one agent call is kept.
func AgentOutputPath(agentsDir, runID, agentName string) string {
	return filepath.Join(agentsDir, runID, agentName, RawOutputFileName)
}

// RunLogPath returns the path to the run log file.
func RunLogPath(agentsDir, runID string) string {
	return filepath.Join(agentsDir, runID, WorkflowName, "execution.log")
}

// GlobalLogPath returns the path to the global log file.
func GlobalLogPath(agentsDir string) string {
	return filepath.Join(agentsDir, "adw.log")
}

// MetricsPath returns the path of the run's metrics textfile.
func MetricsPath(agentsDir, runID string) string {
	return filepath.Join(agentsDir, runID, WorkflowName, "metrics.prom")
}

// TestBranchName returns the branch created when a run has none.
// Format: test-issue-<issue>-adw-<run>
func TestBranchName(issue, runID string) string {
	return fmt.Sprintf("test-issue-%s-adw-%s", issue, runID)
}

// ResolverAgentName names the agent fixing the idx-th failure of an attempt.
// Format: test_resolver_iter<N>_<idx> or e2e_test_resolver_iter<N>_<idx>
func ResolverAgentName(tier Tier, iteration, idx int) string {
	if tier == TierE2E {
		return fmt.Sprintf("e2e_test_resolver_iter%d_%d", iteration, idx)
	}
	return fmt.Sprintf("test_resolver_iter%d_%d", iteration, idx)
}

// FormatIssueMessage prefixes an issue comment with the run and agent.
// Format: <run>_<agent>[_<session>]: <message>
func FormatIssueMessage(runID, agentName, message, sessionID string) string {
	if sessionID != "" {
		return fmt.Sprintf("%s_%s_%s: %s", runID, agentName, sessionID, message)
	}
	return fmt.Sprintf("%s_%s: %s", runID, agentName, message)
}

// GlobalConfigDir returns the adw directory under the user's config home.
func GlobalConfigDir(configHome string) string {
	return filepath.Join(configHome, "adw")
}

// RepoConfigPath returns the repository-level config file path.
func RepoConfigPath(repoRoot string) string {
	return filepath.Join(repoRoot, RepoConfigFileName)
}
