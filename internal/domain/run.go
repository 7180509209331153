package domain

import "github.com/google/uuid"

// RunIDLength is the length of generated run identifiers.
const RunIDLength = 8

// NewRunID returns a short hex identifier for a workflow run.
func NewRunID() string {
	// The first group of a v4 UUID is 8 hex characters.
	return uuid.NewString()[:RunIDLength]
}

// RunState is the persisted state of one workflow run.
// It is loaded at start, updated after branch decisions and printed on exit
// so a chained workflow can pick it up.
type RunState struct {
	ADWID       string `json:"adw_id"`
	IssueNumber string `json:"issue_number,omitempty"`
	BranchName  string `json:"branch_name,omitempty"`
	PlanFile    string `json:"plan_file,omitempty"`
	IssueClass  string `json:"issue_class,omitempty"`
}

// Tier is a level of the test pyramid with its own retry ceiling.
type Tier string

// Tiers.
const (
	TierUnit Tier = "unit"
	TierE2E  Tier = "e2e"
)

// Label is the human name used in comments.
func (t Tier) Label() string {
	if t == TierE2E {
		return "E2E tests"
	}
	return "tests"
}

// LoopState is the terminal state of a resolution loop.
type LoopState string

// Loop states.
const (
	LoopRunning   LoopState = "running"
	LoopConverged LoopState = "converged"
	LoopExhausted LoopState = "exhausted"
	LoopAborted   LoopState = "aborted"
)

// VerifyResult is what a verifier returns for one run of the suite.
// Success=false means the suite could not be run at all, as opposed to tests
// running and failing. ParseErr is set when the output had no usable results.
type VerifyResult struct {
	ParseErr  error
	Output    string
	SessionID string
	Outcomes  []TestOutcome
	Success   bool
}

// TierResult aggregates a finished resolution loop.
// Fields are ordered to minimize memory padding.
type TierResult struct {
	Last       *VerifyResult
	Tier       Tier
	State      LoopState
	Outcomes   []TestOutcome
	Passed     int
	Failed     int
	Attempts   int
	Resolved   int
	Unresolved int
}

// Green reports whether the tier finished with nothing failing.
func (r *TierResult) Green() bool {
	return r != nil && r.State != LoopAborted && r.Failed == 0
}
