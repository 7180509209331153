package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/runoshun/adw/internal/domain"
)

const workflowCategory = "workflow"

// TestWorkflowInput contains the input for the TestWorkflow use case.
type TestWorkflowInput struct {
	IssueNumber string
	RunID       string // Generated when empty
	SkipE2E     bool
}

// TestWorkflowOutput contains the output of the TestWorkflow use case.
// Fields are ordered to minimize memory padding.
type TestWorkflowOutput struct {
	State      *domain.RunState
	Unit       *domain.TierResult
	E2E        *domain.TierResult // Nil when the E2E tier was skipped
	E2ESkipped string             // Why the E2E tier did not run
	Summary    string
	ExitCode   int
	Committed  bool
	Pushed     bool
}

// TestWorkflowSettings are the tunables of a run, resolved from configuration.
type TestWorkflowSettings struct {
	ModelSet    domain.ModelSet
	ForceModel  domain.ModelName
	WorkDir     string // Root the E2E glob is matched against
	E2EGlob     string
	UnitRetries int
	E2ERetries  int
}

// TestWorkflowDeps are the collaborators of TestWorkflow.
// Fields are ordered to minimize memory padding.
type TestWorkflowDeps struct {
	Agent     domain.AgentExecutor
	Parser    domain.ResultParser
	Commenter domain.IssueCommenter
	Git       domain.Git
	State     domain.StateStore
	Logger    domain.Logger
	Metrics   domain.Metrics
	Clock     domain.Clock
	Models    *domain.ModelSelector
}

// TestWorkflow runs the unit and E2E tiers for an issue, commits and pushes
// whatever the agents changed, and reports progress on the issue.
type TestWorkflow struct {
	deps     TestWorkflowDeps
	settings TestWorkflowSettings
}

// NewTestWorkflow creates a new TestWorkflow use case.
func NewTestWorkflow(deps TestWorkflowDeps, settings TestWorkflowSettings) *TestWorkflow {
	if deps.Logger == nil {
		deps.Logger = domain.NopLogger{}
	}
	if deps.Metrics == nil {
		deps.Metrics = domain.NopMetrics{}
	}
	if deps.Clock == nil {
		deps.Clock = domain.RealClock{}
	}
	if deps.Models == nil {
		deps.Models = domain.NewModelSelector(nil, nil)
	}
	if settings.UnitRetries == 0 {
		settings.UnitRetries = domain.DefaultUnitRetries
	}
	if settings.E2ERetries == 0 {
		settings.E2ERetries = domain.DefaultE2ERetries
	}
	if settings.E2EGlob == "" {
		settings.E2EGlob = domain.DefaultE2EGlob
	}
	return &TestWorkflow{deps: deps, settings: settings}
}

// Execute runs the workflow.
// Test failures are reported through the output's ExitCode; errors are
// returned only for setup failures and cancellation.
func (uc *TestWorkflow) Execute(ctx context.Context, in TestWorkflowInput) (*TestWorkflowOutput, error) {
	if in.IssueNumber == "" {
		return nil, domain.ErrEmptyIssue
	}
	runID := in.RunID
	if runID == "" {
		runID = domain.NewRunID()
	}
	if err := domain.ValidateRunID(runID); err != nil {
		return nil, err
	}
	log := uc.deps.Logger

	state, err := uc.loadState(runID, in.IssueNumber)
	if err != nil {
		return nil, err
	}
	issue := state.IssueNumber
	reporter := NewIssueReporter(uc.deps.Commenter, log, issue, runID)

	if err := uc.prepareBranch(ctx, state, reporter); err != nil {
		return nil, err
	}
	log.Info(runID, workflowCategory, fmt.Sprintf("testing issue #%s on branch %s", issue, state.BranchName))

	reporter.Report(ctx, domain.AgentOps, "Starting test suite")
	reporter.Report(ctx, domain.AgentTester, "Running application tests...")

	out := &TestWorkflowOutput{State: state}
	out.Unit, err = uc.unitLoop(runID, reporter).Run(ctx)
	if err != nil {
		return nil, err
	}
	reporter.Report(ctx, domain.AgentTester, "Final test results:\n"+FormatResultsComment(out.Unit.Outcomes))
	log.Info(runID, workflowCategory, fmt.Sprintf("final test results: %d passed, %d failed", out.Unit.Passed, out.Unit.Failed))

	out.E2ESkipped = uc.e2eSkipReason(out.Unit, in.SkipE2E)
	if out.E2ESkipped != "" {
		log.Info(runID, workflowCategory, out.E2ESkipped)
		reporter.Report(ctx, domain.AgentOps, out.E2ESkipped)
	} else {
		reporter.Report(ctx, domain.AgentE2ETester, "Starting E2E tests...")
		out.E2E, err = uc.e2eLoop(runID, reporter).Run(ctx)
		if err != nil {
			return nil, err
		}
		reporter.Report(ctx, domain.AgentE2ETester, "Final E2E test results:\n"+FormatResultsComment(out.E2E.Outcomes))
		log.Info(runID, workflowCategory, fmt.Sprintf("final E2E test results: %d passed, %d failed", out.E2E.Passed, out.E2E.Failed))
	}

	out.Committed = uc.commit(ctx, runID, issue, out)
	out.Pushed = uc.push(ctx, runID, state.BranchName, reporter)

	if err := uc.deps.State.Save(state); err != nil {
		return nil, fmt.Errorf("save state: %w", err)
	}
	if err := uc.deps.Metrics.Flush(); err != nil {
		log.Warn(runID, workflowCategory, fmt.Sprintf("write metrics: %v", err))
	}

	summary, green := SummaryMessage(out.Unit, out.E2E)
	out.Summary = summary
	if !green {
		out.ExitCode = 1
		log.Info(runID, workflowCategory, fmt.Sprintf("test suite completed with failures for issue #%s", issue))
	} else {
		log.Info(runID, workflowCategory, fmt.Sprintf("test suite completed successfully for issue #%s", issue))
	}
	reporter.Report(ctx, domain.AgentOps, summary)
	return out, nil
}

func (uc *TestWorkflow) loadState(runID, issue string) (*domain.RunState, error) {
	state, err := uc.deps.State.Load(runID)
	if err == nil {
		if state.IssueNumber == "" {
			state.IssueNumber = issue
		}
		uc.deps.Logger.Info(runID, workflowCategory, "loaded existing run state")
		return state, nil
	}
	if !errors.Is(err, domain.ErrStateNotFound) {
		return nil, fmt.Errorf("load state: %w", err)
	}
	state = &domain.RunState{ADWID: runID, IssueNumber: issue}
	if err := uc.deps.State.Save(state); err != nil {
		return nil, fmt.Errorf("save state: %w", err)
	}
	return state, nil
}

// prepareBranch checks out the run's branch, creating it on first use.
// A test branch left behind by an earlier attempt whose state was never
// saved is reused rather than recreated.
func (uc *TestWorkflow) prepareBranch(ctx context.Context, state *domain.RunState, reporter *IssueReporter) error {
	if state.BranchName != "" {
		return uc.checkout(ctx, state.ADWID, state.BranchName, reporter)
	}

	branch := domain.TestBranchName(state.IssueNumber, state.ADWID)
	exists, err := uc.deps.Git.BranchExists(branch)
	if err != nil {
		return fmt.Errorf("check branch %s: %w", branch, err)
	}
	if exists {
		if err := uc.checkout(ctx, state.ADWID, branch, reporter); err != nil {
			return err
		}
	} else {
		if err := uc.deps.Git.CreateBranch(ctx, branch); err != nil {
			uc.deps.Logger.Error(state.ADWID, workflowCategory, fmt.Sprintf("error creating branch %s: %v", branch, err))
			return fmt.Errorf("create branch %s: %w", branch, err)
		}
		uc.deps.Logger.Info(state.ADWID, workflowCategory, "created test branch "+branch)
	}

	state.BranchName = branch
	if err := uc.deps.State.Save(state); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

// checkout switches to an existing branch unless it is already checked out.
func (uc *TestWorkflow) checkout(ctx context.Context, runID, branch string, reporter *IssueReporter) error {
	if current, err := uc.deps.Git.CurrentBranch(); err == nil && current == branch {
		uc.deps.Logger.Info(runID, workflowCategory, "already on branch "+branch)
		return nil
	}
	if err := uc.deps.Git.Checkout(ctx, branch); err != nil {
		uc.deps.Logger.Error(runID, workflowCategory, fmt.Sprintf("failed to checkout branch %s: %v", branch, err))
		reporter.Report(ctx, domain.AgentOps, "Failed to checkout branch "+branch)
		return fmt.Errorf("checkout branch %s: %w", branch, err)
	}
	uc.deps.Logger.Info(runID, workflowCategory, "checked out existing branch "+branch)
	return nil
}

func (uc *TestWorkflow) e2eSkipReason(unit *domain.TierResult, skip bool) string {
	switch {
	case unit.State == domain.LoopAborted:
		return "Skipping E2E tests due to unit test errors"
	case unit.Failed > 0:
		return "Skipping E2E tests due to unit test failures"
	case skip:
		return "Skipping E2E tests as requested via --skip-e2e flag"
	}
	pattern := filepath.Join(uc.settings.WorkDir, uc.settings.E2EGlob)
	matches, err := filepath.Glob(pattern)
	if err != nil || len(matches) == 0 {
		return fmt.Sprintf("Skipping E2E tests: no files match %s", uc.settings.E2EGlob)
	}
	return ""
}

func (uc *TestWorkflow) unitLoop(runID string, reporter *IssueReporter) *ResolutionLoop {
	return uc.newLoop(runID, reporter, tierSpec{
		tier:       domain.TierUnit,
		tester:     domain.AgentTester,
		command:    domain.CommandTest,
		resolver:   domain.CommandResolveFailedTest,
		maxAttempt: uc.settings.UnitRetries,
		decode:     decodeUnitResults,
	})
}

func (uc *TestWorkflow) e2eLoop(runID string, reporter *IssueReporter) *ResolutionLoop {
	return uc.newLoop(runID, reporter, tierSpec{
		tier:       domain.TierE2E,
		tester:     domain.AgentE2ETester,
		command:    domain.CommandE2ETest,
		resolver:   domain.CommandResolveFailedE2ETest,
		maxAttempt: uc.settings.E2ERetries,
		decode:     decodeE2EResults,
	})
}

type tierSpec struct {
	decode     func(p domain.ResultParser, text string) ([]domain.TestOutcome, error)
	tier       domain.Tier
	tester     string
	command    string
	resolver   string
	maxAttempt int
}

func (uc *TestWorkflow) newLoop(runID string, reporter *IssueReporter, spec tierSpec) *ResolutionLoop {
	return &ResolutionLoop{
		Tier:        spec.tier,
		RunID:       runID,
		Agent:       spec.tester,
		MaxAttempts: spec.maxAttempt,
		Reporter:    reporter,
		Logger:      uc.deps.Logger,
		Metrics:     uc.deps.Metrics,
		Clock:       uc.deps.Clock,
		Verifier: &agentVerifier{
			agent:   uc.deps.Agent,
			parser:  uc.deps.Parser,
			decode:  spec.decode,
			runID:   runID,
			name:    spec.tester,
			command: spec.command,
			model:   uc.model(spec.command),
		},
		Remediator: &agentRemediator{
			agent:    uc.deps.Agent,
			reporter: reporter,
			logger:   uc.deps.Logger,
			tier:     spec.tier,
			runID:    runID,
			command:  spec.resolver,
			model:    uc.model(spec.resolver),
		},
	}
}

func (uc *TestWorkflow) model(command string) domain.ModelName {
	return uc.deps.Models.Select(command, uc.settings.ModelSet, uc.settings.ForceModel)
}

func (uc *TestWorkflow) commit(ctx context.Context, runID, issue string, out *TestWorkflowOutput) bool {
	committed, err := uc.deps.Git.CommitAll(ctx, CommitMessage(issue, out.Unit, out.E2E))
	switch {
	case err != nil:
		uc.deps.Logger.Warn(runID, workflowCategory, fmt.Sprintf("commit warning: %v", err))
	case !committed:
		uc.deps.Logger.Info(runID, workflowCategory, "no changes to commit")
	default:
		uc.deps.Logger.Info(runID, workflowCategory, "committed test results")
	}
	return committed
}

func (uc *TestWorkflow) push(ctx context.Context, runID, branch string, reporter *IssueReporter) bool {
	if err := uc.deps.Git.Push(ctx, branch); err != nil {
		uc.deps.Logger.Error(runID, workflowCategory, fmt.Sprintf("push failed: %v", err))
		return false
	}
	uc.deps.Logger.Info(runID, workflowCategory, "pushed branch "+branch)
	reporter.Report(ctx, domain.AgentOps, "Pushed changes to branch "+branch)
	return true
}

// agentVerifier runs a test command through the agent and decodes its report.
type agentVerifier struct {
	agent   domain.AgentExecutor
	parser  domain.ResultParser
	decode  func(p domain.ResultParser, text string) ([]domain.TestOutcome, error)
	runID   string
	name    string
	command string
	model   domain.ModelName
}

func (v *agentVerifier) Verify(ctx context.Context, _ int) (*domain.VerifyResult, error) {
	resp, err := v.agent.Execute(ctx, domain.AgentRequest{
		AgentName: v.name,
		Command:   v.command,
		RunID:     v.runID,
		Model:     v.model,
	})
	if err != nil {
		return nil, err
	}
	res := &domain.VerifyResult{Success: resp.Success, Output: resp.Output, SessionID: resp.SessionID}
	if !resp.Success {
		return res, nil
	}
	res.Outcomes, res.ParseErr = v.decode(v.parser, resp.Output)
	return res, nil
}

func decodeUnitResults(p domain.ResultParser, text string) ([]domain.TestOutcome, error) {
	var results []domain.TestResult
	if err := p.ParseJSON(text, &results); err != nil {
		return nil, err
	}
	out := make([]domain.TestOutcome, len(results))
	for i, r := range results {
		out[i] = r.Outcome()
	}
	return out, nil
}

// decodeE2EResults accepts a single suite object or a list of scenarios.
// Missing fields default to a failed suite under e2e/.
func decodeE2EResults(p domain.ResultParser, text string) ([]domain.TestOutcome, error) {
	var raw json.RawMessage
	if err := p.ParseJSON(text, &raw); err != nil {
		return nil, err
	}
	var items []json.RawMessage
	if len(raw) > 0 && raw[0] == '[' {
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, &domain.ParseError{Err: err}
		}
	} else {
		items = []json.RawMessage{raw}
	}

	out := make([]domain.TestOutcome, 0, len(items))
	for _, item := range items {
		r := domain.E2ETestResult{
			TestName: "e2e_suite",
			Status:   domain.E2EStatusFailed,
			TestPath: "e2e/",
		}
		if err := json.Unmarshal(item, &r); err != nil {
			return nil, &domain.ParseError{Err: err}
		}
		out = append(out, r.Outcome())
	}
	return out, nil
}

// agentRemediator asks the resolver agent to fix one failing test.
type agentRemediator struct {
	agent    domain.AgentExecutor
	reporter Reporter
	logger   domain.Logger
	tier     domain.Tier
	runID    string
	command  string
	model    domain.ModelName
}

func (r *agentRemediator) Remediate(ctx context.Context, attempt, index int, o domain.TestOutcome) (bool, error) {
	name := domain.ResolverAgentName(r.tier, attempt, index)
	subject := ""
	if r.tier == domain.TierE2E {
		subject = " E2E test"
	}
	payload := string(o.Payload)

	r.reporter.Report(ctx, name, fmt.Sprintf("Attempting to resolve%s: %s\n```json\n%s\n```", subject, o.Name, payload))
	resp, err := r.agent.Execute(ctx, domain.AgentRequest{
		AgentName: name,
		Command:   r.command,
		Args:      []string{payload},
		RunID:     r.runID,
		Model:     r.model,
	})
	if err != nil {
		return false, err
	}
	if !resp.Success {
		r.logger.Error(r.runID, loopCategory, "failed to resolve: "+o.Name)
		r.reporter.Report(ctx, name, fmt.Sprintf("Failed to resolve%s: %s", subject, o.Name))
		return false, nil
	}
	r.logger.Info(r.runID, loopCategory, "successfully resolved: "+o.Name)
	r.reporter.Report(ctx, name, fmt.Sprintf("Successfully resolved%s: %s", subject, o.Name))
	return true, nil
}
