package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/runoshun/adw/internal/app"
	"github.com/runoshun/adw/internal/domain"
	"github.com/runoshun/adw/internal/usecase"
)

// Output formats for list commands.
const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

// newWorktreeCommand creates the worktree command.
func newWorktreeCommand(c *app.Container) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "worktree",
		Aliases: []string{"wt"},
		Short:   "Manage per-run worktrees",
		Long: `Manage the isolated git worktrees used by workflow runs.

Each run gets trees/<run-id> with its own port pair written to .ports.env.`,
		// No RunE: shows subcommand list when called without arguments
	}

	cmd.AddCommand(
		newWorktreeCreateCommand(c),
		newWorktreeRemoveCommand(c),
		newWorktreeListCommand(c),
		newWorktreeCleanupCommand(c),
		newWorktreePortsCommand(c),
		newWorktreeEnvCommand(c),
	)

	return cmd
}

func newWorktreeCreateCommand(c *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "create <run-id> <branch>",
		Short: "Create a worktree for a run",
		Long: `Check out <branch> at trees/<run-id>, copy the shared env file, write the
port allocation and install dependencies. An existing worktree is left as is.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := c.CreateWorktreeUseCase().Execute(cmd.Context(), usecase.CreateWorktreeInput{
				RunID:  args[0],
				Branch: args[1],
			})
			if err != nil {
				return err
			}
			wt := out.Worktree
			verb := "Created"
			if !wt.Created {
				verb = "Reusing"
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s worktree %s (backend %d, frontend %d)\n",
				verb, wt.Path, wt.Ports.Backend, wt.Ports.Frontend)
			return nil
		},
	}
}

func newWorktreeRemoveCommand(c *app.Container) *cobra.Command {
	var ignoreMissing bool

	cmd := &cobra.Command{
		Use:     "remove <run-id>",
		Aliases: []string{"rm"},
		Short:   "Remove a run's worktree",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := c.RemoveWorktreeUseCase().Execute(cmd.Context(), usecase.RemoveWorktreeInput{
				RunID:         args[0],
				IgnoreMissing: ignoreMissing,
			})
			if err != nil {
				return err
			}
			if out.Removed {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Removed worktree %s\n", out.Path)
			} else {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "No worktree at %s\n", out.Path)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&ignoreMissing, "ignore-missing", false, "Do not fail when the worktree does not exist")

	return cmd
}

func newWorktreeListCommand(c *app.Container) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List run worktrees",
		Long: `List worktrees under the trees directory.

Output formats: table (default), json, yaml.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := c.ListWorktreesUseCase().Execute(cmd.Context(), usecase.ListWorktreesInput{})
			if err != nil {
				return err
			}
			return printWorktrees(cmd.OutOrStdout(), format, out.Worktrees)
		},
	}

	cmd.Flags().StringVarP(&format, "output", "o", formatTable, "Output format (table, json, yaml)")

	return cmd
}

func printWorktrees(w io.Writer, format string, infos []domain.WorktreeInfo) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(infos)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(infos); err != nil {
			return err
		}
		return enc.Close()
	case formatTable:
		tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
		defer func() { _ = tw.Flush() }()
		_, _ = fmt.Fprintln(tw, "PATH\tBRANCH\tHEAD")
		for _, info := range infos {
			branch := info.Branch
			if info.Detached || branch == "" {
				branch = "(detached)"
			}
			head := info.Head
			if len(head) > 8 {
				head = head[:8]
			}
			_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", info.Path, branch, head)
		}
		return nil
	default:
		return fmt.Errorf("unknown output format %q (want table, json or yaml)", format)
	}
}

func newWorktreeCleanupCommand(c *app.Container) *cobra.Command {
	var opts struct {
		MaxAge   string
		Schedule string
	}

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove stale worktrees",
		Long: `Remove worktrees whose directory is older than --max-age.
--max-age 0 removes every worktree. Without --max-age the configured
worktree.cleanup_max_age is used.

With --schedule the sweep repeats on a cron schedule until interrupted.

Examples:
  adw worktree cleanup --max-age 48h
  adw worktree cleanup --schedule "0 * * * *"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			maxAge, err := c.AppConfig.CleanupAge()
			if err != nil {
				return err
			}
			if opts.MaxAge != "" {
				if maxAge, err = time.ParseDuration(opts.MaxAge); err != nil {
					return fmt.Errorf("invalid --max-age: %w", err)
				}
			}

			uc := c.CleanupWorktreesUseCase()
			sweep := func(ctx context.Context) error {
				out, err := uc.Execute(ctx, usecase.CleanupWorktreesInput{MaxAge: maxAge})
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Removed %d worktree(s)\n", out.Removed)
				return nil
			}

			if opts.Schedule == "" {
				return sweep(cmd.Context())
			}
			return runScheduled(cmd.Context(), opts.Schedule, sweep, func(err error) {
				_, _ = fmt.Fprintln(cmd.ErrOrStderr(), styles.Failure.Render("cleanup failed: "+err.Error()))
			})
		},
	}

	cmd.Flags().StringVar(&opts.MaxAge, "max-age", "", "Remove worktrees older than this duration (e.g. 24h)")
	cmd.Flags().StringVar(&opts.Schedule, "schedule", "", "Repeat on a cron schedule (5-field)")

	return cmd
}

// runScheduled runs job on a cron schedule until ctx is done.
// A run still in progress when the next one is due is skipped.
func runScheduled(ctx context.Context, spec string, job func(context.Context) error, onErr func(error)) error {
	sched := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := sched.AddFunc(spec, func() {
		if err := job(ctx); err != nil {
			onErr(err)
		}
	}); err != nil {
		return fmt.Errorf("invalid --schedule %q: %w", spec, err)
	}

	sched.Start()
	<-ctx.Done()
	<-sched.Stop().Done()
	return nil
}

func newWorktreePortsCommand(c *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "ports <run-id>",
		Short: "Show the port allocation of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := c.WorktreeEnvUseCase().Execute(cmd.Context(), usecase.WorktreeEnvInput{RunID: args[0]})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprint(cmd.OutOrStdout(), out.Ports.EnvFile())
			return nil
		},
	}
}

func newWorktreeEnvCommand(c *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "env <run-id>",
		Short: "Print the environment for commands run in a worktree",
		Long: `Print KEY=value lines to layer over the environment of commands run inside
the run's worktree.

Example:
  env $(adw worktree env a1b2c3d4) npm run dev`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := c.WorktreeEnvUseCase().Execute(cmd.Context(), usecase.WorktreeEnvInput{RunID: args[0]})
			if err != nil {
				return err
			}
			for _, kv := range out.Env {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), kv)
			}
			return nil
		},
	}
}
