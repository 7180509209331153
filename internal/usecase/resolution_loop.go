package usecase

import (
	"context"
	"fmt"

	"github.com/runoshun/adw/internal/domain"
)

const loopCategory = "loop"

// Verifier runs a test suite once.
type Verifier interface {
	// Verify runs the suite for the given 1-based attempt.
	// Infrastructure failures are reported with Success=false; the error is
	// reserved for context cancellation.
	Verify(ctx context.Context, attempt int) (*domain.VerifyResult, error)
}

// Remediator tries to fix one failing outcome.
type Remediator interface {
	// Remediate returns whether the fix attempt succeeded. index is the
	// position of the outcome among the attempt's failures.
	Remediate(ctx context.Context, attempt, index int, outcome domain.TestOutcome) (bool, error)
}

// Reporter posts progress messages. It never fails; delivery problems are
// the reporter's to log.
type Reporter interface {
	Report(ctx context.Context, agent, message string)
}

// ResolutionLoop verifies a tier, remediates failures and re-verifies until
// the tier is green, the retry ceiling is hit, or nothing could be fixed.
// Fields are ordered to minimize memory padding.
type ResolutionLoop struct {
	Verifier    Verifier
	Remediator  Remediator
	Reporter    Reporter
	Logger      domain.Logger
	Metrics     domain.Metrics
	Clock       domain.Clock
	Tier        domain.Tier
	RunID       string
	Agent       string // Agent credited with verification messages
	MaxAttempts int
}

// Run drives the loop to a terminal state.
// An aborted tier is a result, not an error; only cancellation is returned as an error.
func (l *ResolutionLoop) Run(ctx context.Context) (*domain.TierResult, error) {
	l.defaults()
	if l.MaxAttempts < 1 {
		return nil, fmt.Errorf("%s tier: retry ceiling must be at least 1, got %d", l.Tier, l.MaxAttempts)
	}

	started := l.Clock.Now()
	res := &domain.TierResult{Tier: l.Tier, State: domain.LoopRunning}
	defer func() {
		if res.State != domain.LoopRunning {
			l.Metrics.ObserveTier(l.Tier, res.State, l.Clock.Now().Sub(started))
		}
	}()

	label := l.Tier.Label()
	for res.Attempts < l.MaxAttempts {
		res.Attempts++
		attempt := res.Attempts
		l.Logger.Info(l.RunID, loopCategory, fmt.Sprintf("%s run attempt %d/%d", label, attempt, l.MaxAttempts))

		vr, err := l.Verifier.Verify(ctx, attempt)
		if err != nil {
			return nil, err
		}
		res.Last = vr

		if !vr.Success {
			res.State = domain.LoopAborted
			l.Logger.Error(l.RunID, loopCategory, fmt.Sprintf("error running %s: %s", label, vr.Output))
			l.Reporter.Report(ctx, l.Agent, fmt.Sprintf("Error running %s: %s", label, vr.Output))
			return res, nil
		}
		if vr.ParseErr != nil {
			l.Logger.Error(l.RunID, loopCategory, fmt.Sprintf("error parsing %s results: %v", label, vr.ParseErr))
		}

		res.Outcomes = vr.Outcomes
		res.Passed, res.Failed = domain.CountOutcomes(vr.Outcomes)
		l.Metrics.ObserveAttempt(l.Tier, res.Passed, res.Failed)

		if res.Failed == 0 {
			res.State = domain.LoopConverged
			l.Logger.Info(l.RunID, loopCategory, fmt.Sprintf("all %s passed, stopping retry attempts", label))
			return res, nil
		}
		if attempt == l.MaxAttempts {
			break
		}

		l.Reporter.Report(ctx, domain.AgentOps,
			fmt.Sprintf("Found %d failed %s. Attempting resolution...", res.Failed, label))

		resolved, unresolved, err := l.remediate(ctx, attempt, domain.FailedOutcomes(vr.Outcomes))
		if err != nil {
			return nil, err
		}
		res.Resolved += resolved
		res.Unresolved += unresolved

		if resolved == 0 {
			res.State = domain.LoopExhausted
			l.Logger.Info(l.RunID, loopCategory, fmt.Sprintf("no %s were resolved, stopping retry attempts", label))
			return res, nil
		}

		l.Reporter.Report(ctx, domain.AgentOps,
			fmt.Sprintf("Resolved %d/%d failed %s", resolved, res.Failed, label))
		l.Reporter.Report(ctx, l.Agent,
			fmt.Sprintf("Re-running %s (attempt %d/%d)...", label, attempt+1, l.MaxAttempts))
	}

	res.State = domain.LoopExhausted
	l.Logger.Warn(l.RunID, loopCategory,
		fmt.Sprintf("reached maximum %s retry attempts (%d) with %d failures remaining", l.Tier, l.MaxAttempts, res.Failed))
	l.Reporter.Report(ctx, domain.AgentOps,
		fmt.Sprintf("Reached maximum %sretry attempts (%d) with %d failures", retryPrefix(l.Tier), l.MaxAttempts, res.Failed))
	return res, nil
}

// remediate fixes failures one at a time, in verifier order.
func (l *ResolutionLoop) remediate(ctx context.Context, attempt int, failed []domain.TestOutcome) (resolved, unresolved int, err error) {
	for idx, outcome := range failed {
		l.Logger.Info(l.RunID, loopCategory,
			fmt.Sprintf("resolving failed %s %d/%d: %s", l.Tier, idx+1, len(failed), outcome.Name))
		ok, err := l.Remediator.Remediate(ctx, attempt, idx, outcome)
		if err != nil {
			return resolved, unresolved, err
		}
		l.Metrics.ObserveRemediation(l.Tier, ok)
		if ok {
			resolved++
		} else {
			unresolved++
		}
	}
	return resolved, unresolved, nil
}

func (l *ResolutionLoop) defaults() {
	if l.Logger == nil {
		l.Logger = domain.NopLogger{}
	}
	if l.Metrics == nil {
		l.Metrics = domain.NopMetrics{}
	}
	if l.Clock == nil {
		l.Clock = domain.RealClock{}
	}
	if l.Reporter == nil {
		l.Reporter = nopReporter{}
	}
}

func retryPrefix(tier domain.Tier) string {
	if tier == domain.TierE2E {
		return "E2E "
	}
	return ""
}

type nopReporter struct{}

func (nopReporter) Report(context.Context, string, string) {}
