package domain

// Agent names used by the test workflow.
const (
	AgentTester    = "test_runner"
	AgentE2ETester = "e2e_test_runner"
	AgentOps       = "ops"
)

// AgentRequest asks the agent executor to run one slash command.
type AgentRequest struct {
	AgentName string
	Command   string
	RunID     string
	Model     ModelName
	Args      []string
}

// AgentResponse is the executor's view of a finished agent call.
// Output is opaque text that may embed JSON for the result parser.
type AgentResponse struct {
	Output    string
	SessionID string
	Success   bool
}
