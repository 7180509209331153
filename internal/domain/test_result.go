package domain

import "encoding/json"

// TestOutcome is one test case from a single verification run.
// Payload is the test's JSON as handed to the remediation agent.
type TestOutcome struct {
	Name    string          `json:"name"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Passed  bool            `json:"passed"`
}

// TestResult is the unit-test shape emitted by the /test command.
type TestResult struct {
	TestName         string `json:"test_name"`
	ExecutionCommand string `json:"execution_command,omitempty"`
	TestPurpose      string `json:"test_purpose,omitempty"`
	Error            string `json:"error,omitempty"`
	Passed           bool   `json:"passed"`
}

// Outcome converts r into a TestOutcome.
// The payload is normalized to TestResult's fields; unknown runner fields are dropped.
func (r TestResult) Outcome() TestOutcome {
	payload, _ := json.MarshalIndent(r, "", "  ")
	return TestOutcome{Name: r.TestName, Passed: r.Passed, Payload: payload}
}

// E2E statuses.
const (
	E2EStatusPassed = "passed"
	E2EStatusFailed = "failed"
)

// E2ETestResult is the shape emitted by the /e2e_test command.
type E2ETestResult struct {
	TestName    string   `json:"test_name"`
	Status      string   `json:"status"`
	TestPath    string   `json:"test_path"`
	Error       string   `json:"error,omitempty"`
	Screenshots []string `json:"screenshots"`
}

// Passed reports whether the scenario passed.
func (r E2ETestResult) Passed() bool {
	return r.Status == E2EStatusPassed
}

// Outcome converts r into a TestOutcome.
// The payload is normalized to E2ETestResult's fields, with screenshots always present.
func (r E2ETestResult) Outcome() TestOutcome {
	if r.Screenshots == nil {
		r.Screenshots = []string{}
	}
	payload, _ := json.MarshalIndent(r, "", "  ")
	return TestOutcome{Name: r.TestName, Passed: r.Passed(), Payload: payload}
}

// CountOutcomes returns the passed and failed totals.
func CountOutcomes(outcomes []TestOutcome) (passed, failed int) {
	for _, o := range outcomes {
		if o.Passed {
			passed++
		}
	}
	return passed, len(outcomes) - passed
}

// FailedOutcomes returns the failing outcomes in their original order.
func FailedOutcomes(outcomes []TestOutcome) []TestOutcome {
	var failed []TestOutcome
	for _, o := range outcomes {
		if !o.Passed {
			failed = append(failed, o)
		}
	}
	return failed
}
