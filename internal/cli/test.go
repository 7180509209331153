package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/runoshun/adw/internal/app"
	"github.com/runoshun/adw/internal/domain"
	"github.com/runoshun/adw/internal/usecase"
)

// ErrTestsFailed is returned when a run finishes with failing or aborted tiers.
var ErrTestsFailed = errors.New("test suite completed with failures")

// newTestCommand creates the test command.
func newTestCommand(c *app.Container) *cobra.Command {
	var opts struct {
		SkipE2E bool
	}

	cmd := &cobra.Command{
		Use:   "test <issue-number> [run-id]",
		Short: "Run the test-and-repair workflow for an issue",
		Long: `Run the unit suite through the test agent, let the resolver agent fix each
failing test, and re-run until the suite passes or the retry ceiling is reached.
The E2E suite runs afterwards only when every unit test passes.

Changes made by the agents are committed and pushed to the run's branch. The
run state is printed to stdout as JSON so a following workflow can pick it up.

Requires ANTHROPIC_API_KEY. CLAUDE_CODE_PATH overrides the claude binary and
GITHUB_PAT is passed to gh when set.

Examples:
  # Start a new run for issue 42
  adw test 42

  # Resume run a1b2c3d4 without the E2E suite
  adw test 42 a1b2c3d4 --skip-e2e`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			runID := domain.NewRunID()
			if len(args) > 1 {
				runID = args[1]
			}
			if err := domain.ValidateRunID(runID); err != nil {
				return err
			}

			uc, err := c.TestWorkflowUseCase(runID)
			if err != nil {
				return err
			}
			out, err := uc.Execute(cmd.Context(), usecase.TestWorkflowInput{
				IssueNumber: args[0],
				RunID:       runID,
				SkipE2E:     opts.SkipE2E,
			})
			if err != nil {
				return err
			}

			if err := writeState(cmd.OutOrStdout(), out.State); err != nil {
				return err
			}
			printRunSummary(cmd.ErrOrStderr(), out)
			if out.ExitCode != 0 {
				return ErrTestsFailed
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.SkipE2E, "skip-e2e", false, "Do not run the E2E suite")

	return cmd
}

// writeState prints the run state for chaining.
func writeState(w io.Writer, state *domain.RunState) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(state)
}

func printRunSummary(w io.Writer, out *usecase.TestWorkflowOutput) {
	_, _ = fmt.Fprintln(w, styles.Title.Render("Run "+out.State.ADWID))
	printTier(w, "unit", out.Unit)
	if out.E2E != nil {
		printTier(w, "e2e", out.E2E)
	} else {
		_, _ = fmt.Fprintf(w, "  %s %s\n", styles.Label.Render("e2e:"), styles.Muted.Render(out.E2ESkipped))
	}
	if out.ExitCode == 0 {
		_, _ = fmt.Fprintln(w, styles.Success.Render("All tests passed"))
	} else {
		_, _ = fmt.Fprintln(w, styles.Failure.Render("Tests failing"))
	}
}

func printTier(w io.Writer, name string, r *domain.TierResult) {
	state := string(r.State)
	switch r.State {
	case domain.LoopConverged:
		state = styles.Success.Render(state)
	case domain.LoopAborted, domain.LoopExhausted:
		state = styles.Failure.Render(state)
	}
	_, _ = fmt.Fprintf(w, "  %s %s after %d attempt(s): %d passed, %d failed, %d resolved\n",
		styles.Label.Render(name+":"), state, r.Attempts, r.Passed, r.Failed, r.Resolved)
}
