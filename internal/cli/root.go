// Package cli provides the command-line interface for adw.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/runoshun/adw/internal/app"
)

// Command group IDs.
const (
	groupWorkflow = "workflow"
	groupWorktree = "worktree"
	groupSetup    = "setup"
)

// NewRootCommand creates the root command for adw.
// It receives the container for dependency injection and version for display.
func NewRootCommand(c *app.Container, version string) *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:   "adw",
		Short: "Agentic test-and-repair workflow",
		Long: `adw runs a project's test suites through a coding agent, asks the agent
to fix whatever fails, and re-runs until the suite is green or the retry
ceiling is reached. Progress is posted to the GitHub issue being worked on.

Each run can be isolated in its own git worktree with a dedicated port pair,
so several runs can work on the same repository side by side.`,
		Version: version,
		// SilenceUsage prevents usage from being printed on errors
		SilenceUsage: true,
		// SilenceErrors prevents Cobra from printing errors (we handle it in main)
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Skip if container is nil (e.g. in tests)
			if c == nil {
				return nil
			}
			if err := c.Load(configFile); err != nil {
				return err
			}
			for _, w := range c.AppConfig.Warnings {
				_, _ = fmt.Fprintln(cmd.ErrOrStderr(), styles.Warning.Render("Warning: "+w))
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&configFile, "config", "", "Read an additional config file after .adw.toml")

	// Define command groups
	root.AddGroup(
		&cobra.Group{ID: groupWorkflow, Title: "Workflow Commands:"},
		&cobra.Group{ID: groupWorktree, Title: "Worktree Commands:"},
		&cobra.Group{ID: groupSetup, Title: "Setup Commands:"},
	)

	testCmd := newTestCommand(c)
	testCmd.GroupID = groupWorkflow

	worktreeCmd := newWorktreeCommand(c)
	worktreeCmd.GroupID = groupWorktree

	modelCmd := newModelCommand(c)
	modelCmd.GroupID = groupSetup

	configCmd := newConfigCommand(c)
	configCmd.GroupID = groupSetup

	root.AddCommand(
		testCmd,
		worktreeCmd,
		modelCmd,
		configCmd,
	)

	return root
}
