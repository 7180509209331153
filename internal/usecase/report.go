package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/runoshun/adw/internal/domain"
)

// IssueReporter posts progress to the issue tracker.
// Failed posts are logged and swallowed.
type IssueReporter struct {
	commenter domain.IssueCommenter
	logger    domain.Logger
	issue     string
	runID     string
}

// NewIssueReporter creates a reporter bound to one issue and run.
func NewIssueReporter(commenter domain.IssueCommenter, logger domain.Logger, issue, runID string) *IssueReporter {
	if logger == nil {
		logger = domain.NopLogger{}
	}
	return &IssueReporter{commenter: commenter, logger: logger, issue: issue, runID: runID}
}

// Report posts message credited to agent.
func (r *IssueReporter) Report(ctx context.Context, agent, message string) {
	r.ReportSession(ctx, agent, "", message)
}

// ReportSession posts message credited to an agent session.
func (r *IssueReporter) ReportSession(ctx context.Context, agent, sessionID, message string) {
	body := domain.FormatIssueMessage(r.runID, agent, message, sessionID)
	if err := r.commenter.PostComment(ctx, r.issue, body); err != nil {
		r.logger.Warn(r.runID, "github", fmt.Sprintf("post comment to issue #%s: %v", r.issue, err))
	}
}

// FormatResultsComment renders outcomes as markdown with one JSON block per
// test, failures first.
func FormatResultsComment(outcomes []domain.TestOutcome) string {
	if len(outcomes) == 0 {
		return "No test results found"
	}

	var failed, passed []domain.TestOutcome
	for _, o := range outcomes {
		if o.Passed {
			passed = append(passed, o)
		} else {
			failed = append(failed, o)
		}
	}

	var parts []string
	section := func(title string, list []domain.TestOutcome) {
		parts = append(parts, "## "+title, "")
		for _, o := range list {
			parts = append(parts, "### "+o.Name, "", "```json", string(o.Payload), "```", "")
		}
	}
	if len(failed) > 0 {
		parts = append(parts, "")
		section("Failed Tests", failed)
	}
	if len(passed) > 0 {
		section("Passed Tests", passed)
	}
	if n := len(parts); n > 0 && parts[n-1] == "" {
		parts = parts[:n-1]
	}
	return strings.Join(parts, "\n")
}

// CommitMessage builds the message committing a run's changes.
// The E2E line is present only when that tier produced results.
func CommitMessage(issue string, unit, e2e *domain.TierResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: test results for issue #%s\n\n", domain.WorkflowName, issue)
	fmt.Fprintf(&b, "Unit tests: %d passed, %d failed", unit.Passed, unit.Failed)
	if hasResults(e2e) {
		fmt.Fprintf(&b, "\nE2E tests: %d passed, %d failed", e2e.Passed, e2e.Failed)
	}
	return b.String()
}

// SummaryMessage returns the closing comment and whether the run succeeded.
func SummaryMessage(unit, e2e *domain.TierResult) (string, bool) {
	unitBad := !unit.Green()
	e2eBad := e2e != nil && !e2e.Green()

	var b strings.Builder
	if unitBad || e2eBad {
		b.WriteString("Test suite completed with failures:\n")
		if unitBad {
			b.WriteString(tierFailureLine("Unit tests", unit))
		}
		if e2eBad {
			b.WriteString(tierFailureLine("E2E tests", e2e))
		}
		return strings.TrimSuffix(b.String(), "\n"), false
	}

	b.WriteString("All tests passed successfully!\n")
	fmt.Fprintf(&b, "- Unit tests: %d passed\n", unit.Passed)
	if hasResults(e2e) {
		fmt.Fprintf(&b, "- E2E tests: %d passed", e2e.Passed)
	}
	return strings.TrimSuffix(b.String(), "\n"), true
}

func tierFailureLine(name string, r *domain.TierResult) string {
	if r.State == domain.LoopAborted {
		return fmt.Sprintf("- %s: aborted\n", name)
	}
	return fmt.Sprintf("- %s: %d failures\n", name, r.Failed)
}

func hasResults(r *domain.TierResult) bool {
	return r != nil && len(r.Outcomes) > 0
}
