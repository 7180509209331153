package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runoshun/adw/internal/domain"
	"github.com/runoshun/adw/internal/testutil"
)

// scriptedVerifier returns one scripted result per attempt, repeating the last.
type scriptedVerifier struct {
	err     error
	results []*domain.VerifyResult
	calls   int
}

func (v *scriptedVerifier) Verify(ctx context.Context, _ int) (*domain.VerifyResult, error) {
	v.calls++
	if v.err != nil {
		return nil, v.err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	i := v.calls - 1
	if i >= len(v.results) {
		i = len(v.results) - 1
	}
	return v.results[i], nil
}

type remediateCall struct {
	name    string
	attempt int
	index   int
}

// scriptedRemediator answers from a queue; exhausted queue means failure.
type scriptedRemediator struct {
	err     error
	answers []bool
	calls   []remediateCall
}

func (r *scriptedRemediator) Remediate(_ context.Context, attempt, index int, o domain.TestOutcome) (bool, error) {
	r.calls = append(r.calls, remediateCall{attempt: attempt, index: index, name: o.Name})
	if r.err != nil {
		return false, r.err
	}
	if len(r.answers) == 0 {
		return false, nil
	}
	ok := r.answers[0]
	r.answers = r.answers[1:]
	return ok, nil
}

type report struct {
	agent   string
	message string
}

type recordingReporter struct {
	reports []report
}

func (r *recordingReporter) Report(_ context.Context, agent, message string) {
	r.reports = append(r.reports, report{agent: agent, message: message})
}

func (r *recordingReporter) messages() []string {
	out := make([]string, len(r.reports))
	for i, rep := range r.reports {
		out[i] = rep.message
	}
	return out
}

type tierObservation struct {
	tier  domain.Tier
	state domain.LoopState
}

type recordingMetrics struct {
	domain.NopMetrics
	tiers        []tierObservation
	attempts     int
	remediations int
}

func (m *recordingMetrics) ObserveAttempt(domain.Tier, int, int) { m.attempts++ }
func (m *recordingMetrics) ObserveRemediation(domain.Tier, bool) { m.remediations++ }
func (m *recordingMetrics) ObserveTier(tier domain.Tier, state domain.LoopState, _ time.Duration) {
	m.tiers = append(m.tiers, tierObservation{tier: tier, state: state})
}

func outcomes(spec ...string) []domain.TestOutcome {
	// "+name" passes, "-name" fails
	out := make([]domain.TestOutcome, len(spec))
	for i, s := range spec {
		out[i] = domain.TestOutcome{Name: s[1:], Passed: s[0] == '+'}
	}
	return out
}

func ok(o []domain.TestOutcome) *domain.VerifyResult {
	return &domain.VerifyResult{Success: true, Outcomes: o}
}

func newLoop(v Verifier, r Remediator, n int) (*ResolutionLoop, *recordingReporter, *testutil.MockLogger) {
	rep := &recordingReporter{}
	logger := &testutil.MockLogger{}
	return &ResolutionLoop{
		Tier:        domain.TierUnit,
		RunID:       "abcd1234",
		Agent:       domain.AgentTester,
		MaxAttempts: n,
		Verifier:    v,
		Remediator:  r,
		Reporter:    rep,
		Logger:      logger,
	}, rep, logger
}

func TestResolutionLoop_ConvergesOnFirstAttempt(t *testing.T) {
	v := &scriptedVerifier{results: []*domain.VerifyResult{ok(outcomes("+a", "+b"))}}
	r := &scriptedRemediator{}
	loop, rep, _ := newLoop(v, r, 4)

	res, err := loop.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, domain.LoopConverged, res.State)
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, 1, v.calls)
	assert.Empty(t, r.calls)
	assert.Equal(t, 2, res.Passed)
	assert.Equal(t, 0, res.Failed)
	assert.Equal(t, 0, res.Resolved)
	assert.Empty(t, rep.reports)
	assert.True(t, res.Green())
}

func TestResolutionLoop_NothingResolvedStopsEarly(t *testing.T) {
	v := &scriptedVerifier{results: []*domain.VerifyResult{ok(outcomes("-flaky"))}}
	r := &scriptedRemediator{answers: []bool{false}}
	loop, rep, logger := newLoop(v, r, 4)

	res, err := loop.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, domain.LoopExhausted, res.State)
	assert.Equal(t, 1, v.calls)
	assert.Len(t, r.calls, 1)
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 1, res.Unresolved)
	assert.Equal(t, []string{"Found 1 failed tests. Attempting resolution..."}, rep.messages())
	assert.True(t, logger.Contains("INFO", "no tests were resolved"))
}

func TestResolutionLoop_PartialFixesReverify(t *testing.T) {
	v := &scriptedVerifier{results: []*domain.VerifyResult{
		ok(outcomes("-a", "-b", "+c")),
		ok(outcomes("+a", "-b", "+c")),
		ok(outcomes("+a", "+b", "+c")),
	}}
	// attempt 1: a fixed, b not; attempt 2: b fixed
	r := &scriptedRemediator{answers: []bool{true, false, true}}
	loop, rep, _ := newLoop(v, r, 4)

	res, err := loop.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, domain.LoopConverged, res.State)
	assert.Equal(t, 3, v.calls)
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, []remediateCall{
		{attempt: 1, index: 0, name: "a"},
		{attempt: 1, index: 1, name: "b"},
		{attempt: 2, index: 0, name: "b"},
	}, r.calls)
	assert.Equal(t, 2, res.Resolved)
	assert.Equal(t, 1, res.Unresolved)
	assert.Equal(t, 3, res.Passed)
	assert.Equal(t, []string{
		"Found 2 failed tests. Attempting resolution...",
		"Resolved 1/2 failed tests",
		"Re-running tests (attempt 2/4)...",
		"Found 1 failed tests. Attempting resolution...",
		"Resolved 1/1 failed tests",
		"Re-running tests (attempt 3/4)...",
	}, rep.messages())
	assert.Equal(t, domain.AgentTester, rep.reports[2].agent)
	assert.Equal(t, domain.AgentOps, rep.reports[0].agent)
}

func TestResolutionLoop_FinalAttemptNeverRemediates(t *testing.T) {
	v := &scriptedVerifier{results: []*domain.VerifyResult{ok(outcomes("-a"))}}
	r := &scriptedRemediator{answers: []bool{true, true, true, true}}
	loop, rep, logger := newLoop(v, r, 2)
	loop.Tier = domain.TierE2E
	loop.Agent = domain.AgentE2ETester

	res, err := loop.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, domain.LoopExhausted, res.State)
	assert.Equal(t, 2, v.calls)
	assert.Len(t, r.calls, 1)
	assert.Equal(t, 1, res.Failed)
	msgs := rep.messages()
	assert.Equal(t, "Found 1 failed E2E tests. Attempting resolution...", msgs[0])
	assert.Equal(t, "Re-running E2E tests (attempt 2/2)...", msgs[2])
	assert.Equal(t, "Reached maximum E2E retry attempts (2) with 1 failures", msgs[len(msgs)-1])
	assert.True(t, logger.Contains("WARN", "reached maximum e2e retry attempts"))
}

func TestResolutionLoop_SingleAttemptCeiling(t *testing.T) {
	v := &scriptedVerifier{results: []*domain.VerifyResult{ok(outcomes("-a"))}}
	r := &scriptedRemediator{}
	loop, rep, _ := newLoop(v, r, 1)

	res, err := loop.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, domain.LoopExhausted, res.State)
	assert.Empty(t, r.calls)
	assert.Equal(t, []string{"Reached maximum retry attempts (1) with 1 failures"}, rep.messages())
}

func TestResolutionLoop_InfrastructureFailureAborts(t *testing.T) {
	v := &scriptedVerifier{results: []*domain.VerifyResult{
		{Success: false, Output: "claude: command not found"},
	}}
	r := &scriptedRemediator{}
	loop, rep, logger := newLoop(v, r, 4)

	res, err := loop.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, domain.LoopAborted, res.State)
	assert.Equal(t, 1, v.calls)
	assert.Empty(t, r.calls)
	assert.False(t, res.Green())
	require.NotNil(t, res.Last)
	assert.Equal(t, "claude: command not found", res.Last.Output)
	require.Len(t, rep.reports, 1)
	assert.Equal(t, domain.AgentTester, rep.reports[0].agent)
	assert.Equal(t, "Error running tests: claude: command not found", rep.reports[0].message)
	assert.True(t, logger.Contains("ERROR", "error running tests"))
}

func TestResolutionLoop_ParseFailureCountsAsEmpty(t *testing.T) {
	v := &scriptedVerifier{results: []*domain.VerifyResult{
		{Success: true, Output: "not json", ParseErr: &domain.ParseError{Err: errors.New("no JSON found")}},
	}}
	r := &scriptedRemediator{}
	loop, _, logger := newLoop(v, r, 4)

	res, err := loop.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, domain.LoopConverged, res.State)
	assert.Empty(t, res.Outcomes)
	assert.Equal(t, 0, res.Passed)
	assert.Equal(t, 0, res.Failed)
	assert.Empty(t, r.calls)
	assert.True(t, logger.Contains("ERROR", "error parsing tests results"))
}

func TestResolutionLoop_CancellationPropagates(t *testing.T) {
	t.Run("from verifier", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		v := &scriptedVerifier{results: []*domain.VerifyResult{ok(nil)}}
		loop, _, _ := newLoop(v, &scriptedRemediator{}, 4)

		res, err := loop.Run(ctx)

		require.ErrorIs(t, err, context.Canceled)
		assert.Nil(t, res)
	})

	t.Run("from remediator", func(t *testing.T) {
		v := &scriptedVerifier{results: []*domain.VerifyResult{ok(outcomes("-a", "-b"))}}
		r := &scriptedRemediator{err: context.DeadlineExceeded}
		loop, _, _ := newLoop(v, r, 4)

		res, err := loop.Run(context.Background())

		require.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Nil(t, res)
		assert.Len(t, r.calls, 1)
	})
}

func TestResolutionLoop_RejectsZeroCeiling(t *testing.T) {
	v := &scriptedVerifier{results: []*domain.VerifyResult{ok(nil)}}
	loop, _, _ := newLoop(v, &scriptedRemediator{}, 0)

	_, err := loop.Run(context.Background())

	require.Error(t, err)
	assert.Equal(t, 0, v.calls)
}

func TestResolutionLoop_RecordsMetrics(t *testing.T) {
	v := &scriptedVerifier{results: []*domain.VerifyResult{
		ok(outcomes("-a")),
		ok(outcomes("+a")),
	}}
	r := &scriptedRemediator{answers: []bool{true}}
	loop, _, _ := newLoop(v, r, 4)
	m := &recordingMetrics{}
	loop.Metrics = m

	_, err := loop.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, m.attempts)
	assert.Equal(t, 1, m.remediations)
	assert.Equal(t, []tierObservation{{tier: domain.TierUnit, state: domain.LoopConverged}}, m.tiers)
}
