// Package agent runs slash commands through the Claude Code CLI.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/runoshun/adw/internal/domain"
)

const logCategory = "agent"

// envelope is the document printed by `claude --output-format json`.
type envelope struct {
	Type      string `json:"type"`
	Subtype   string `json:"subtype"`
	Result    string `json:"result"`
	SessionID string `json:"session_id"`
	IsError   bool   `json:"is_error"`
}

// Options configures a Client.
// Fields are ordered to minimize memory padding.
type Options struct {
	Executor   domain.CommandExecutor
	Logger     domain.Logger
	ClaudePath string
	APIKey     string
	AgentsDir  string // Raw output is kept under <AgentsDir>/<run>/<agent>/
	WorkDir    string
	Env        []string
	Timeout    time.Duration // Zero means no per-call limit
}

// Client implements domain.AgentExecutor.
type Client struct {
	opts Options
}

// NewClient creates a new agent client.
func NewClient(opts Options) *Client {
	if opts.ClaudePath == "" {
		opts.ClaudePath = domain.DefaultClaudePath
	}
	if opts.Logger == nil {
		opts.Logger = domain.NopLogger{}
	}
	return &Client{opts: opts}
}

// Ensure Client implements domain.AgentExecutor interface.
var _ domain.AgentExecutor = (*Client)(nil)

// Execute runs req and decodes the CLI envelope.
// Process and decoding failures come back as Success=false responses; only
// cancellation of ctx is returned as an error.
func (c *Client) Execute(ctx context.Context, req domain.AgentRequest) (*domain.AgentResponse, error) {
	callCtx := ctx
	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}

	cmd := c.buildCommand(req)
	c.opts.Logger.Debug(req.RunID, logCategory, fmt.Sprintf("%s: %s (model %s)", req.AgentName, req.Command, req.Model))

	res, runErr := c.opts.Executor.Run(callCtx, cmd)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if res != nil {
		c.saveRawOutput(req, res.Stdout)
	}
	if runErr != nil {
		msg := runErr.Error()
		if out := strings.TrimSpace(res.Combined()); out != "" {
			msg = fmt.Sprintf("%s: %s", msg, out)
		}
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			msg = fmt.Sprintf("agent timed out after %s", c.opts.Timeout)
		}
		c.opts.Logger.Error(req.RunID, logCategory, fmt.Sprintf("%s failed: %s", req.AgentName, msg))
		return &domain.AgentResponse{Output: msg}, nil
	}

	env, err := decodeEnvelope(res.Stdout)
	if err != nil {
		c.opts.Logger.Error(req.RunID, logCategory, fmt.Sprintf("%s: %v", req.AgentName, err))
		return &domain.AgentResponse{Output: err.Error()}, nil
	}
	return &domain.AgentResponse{
		Output:    env.Result,
		SessionID: env.SessionID,
		Success:   !env.IsError,
	}, nil
}

func (c *Client) buildCommand(req domain.AgentRequest) *domain.ExecCommand {
	prompt := strings.Join(append([]string{req.Command}, req.Args...), " ")
	model := req.Model
	if model == "" {
		model = domain.ModelSonnet
	}
	env := append([]string(nil), c.opts.Env...)
	if c.opts.APIKey != "" {
		env = append(env, "ANTHROPIC_API_KEY="+c.opts.APIKey)
	}
	return &domain.ExecCommand{
		Program: c.opts.ClaudePath,
		Args: []string{
			"-p", prompt,
			"--model", string(model),
			"--output-format", "json",
			"--dangerously-skip-permissions",
		},
		Dir: c.opts.WorkDir,
		Env: env,
	}
}

func (c *Client) saveRawOutput(req domain.AgentRequest, stdout string) {
	if c.opts.AgentsDir == "" || req.RunID == "" || req.AgentName == "" {
		return
	}
	path := domain.AgentOutputPath(c.opts.AgentsDir, req.RunID, req.AgentName)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		c.opts.Logger.Warn(req.RunID, logCategory, fmt.Sprintf("create output dir: %v", err))
		return
	}
	if err := os.WriteFile(path, []byte(stdout), 0o600); err != nil {
		c.opts.Logger.Warn(req.RunID, logCategory, fmt.Sprintf("write raw output: %v", err))
	}
}

// decodeEnvelope accepts either a single result object or a stream whose
// last non-empty line is the result object.
func decodeEnvelope(stdout string) (*envelope, error) {
	trimmed := strings.TrimSpace(stdout)
	if trimmed == "" {
		return nil, errors.New("empty output from claude")
	}
	var env envelope
	if err := json.Unmarshal([]byte(trimmed), &env); err == nil {
		return &env, nil
	}
	lines := strings.Split(trimmed, "\n")
	last := strings.TrimSpace(lines[len(lines)-1])
	if err := json.Unmarshal([]byte(last), &env); err != nil {
		return nil, fmt.Errorf("decode claude output: %w", err)
	}
	return &env, nil
}
