// Package testutil provides shared test utilities and mock implementations.
package testutil

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/runoshun/adw/internal/domain"
)

// MockClock is a test double for domain.Clock.
type MockClock struct {
	NowTime time.Time
}

// Now returns the configured time.
func (m *MockClock) Now() time.Time {
	return m.NowTime
}

// LogEntry is one captured log call.
type LogEntry struct {
	Level    string
	RunID    string
	Category string
	Message  string
}

// MockLogger records log calls.
type MockLogger struct {
	Entries []LogEntry
	mu      sync.Mutex
}

func (m *MockLogger) record(level, runID, category, msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Entries = append(m.Entries, LogEntry{Level: level, RunID: runID, Category: category, Message: msg})
}

// Info records an info entry.
func (m *MockLogger) Info(runID, category, msg string) { m.record("INFO", runID, category, msg) }

// Debug records a debug entry.
func (m *MockLogger) Debug(runID, category, msg string) { m.record("DEBUG", runID, category, msg) }

// Warn records a warn entry.
func (m *MockLogger) Warn(runID, category, msg string) { m.record("WARN", runID, category, msg) }

// Error records an error entry.
func (m *MockLogger) Error(runID, category, msg string) { m.record("ERROR", runID, category, msg) }

// Contains reports whether any entry at level contains substr.
func (m *MockLogger) Contains(level, substr string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.Entries {
		if e.Level == level && strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}

// MockCommandExecutor is a test double for domain.CommandExecutor.
type MockCommandExecutor struct {
	Handler func(cmd *domain.ExecCommand) (*domain.ExecResult, error)
	Calls   []*domain.ExecCommand
}

// Run records the command and delegates to Handler.
func (m *MockCommandExecutor) Run(_ context.Context, cmd *domain.ExecCommand) (*domain.ExecResult, error) {
	m.Calls = append(m.Calls, cmd)
	if m.Handler != nil {
		return m.Handler(cmd)
	}
	return &domain.ExecResult{}, nil
}

// MockAgentExecutor is a test double for domain.AgentExecutor.
// Without a Handler every call succeeds with empty output.
type MockAgentExecutor struct {
	Handler  func(req domain.AgentRequest) *domain.AgentResponse
	Requests []domain.AgentRequest
}

// Execute records the request and delegates to Handler.
func (m *MockAgentExecutor) Execute(ctx context.Context, req domain.AgentRequest) (*domain.AgentResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.Requests = append(m.Requests, req)
	if m.Handler != nil {
		return m.Handler(req), nil
	}
	return &domain.AgentResponse{Success: true}, nil
}

// Commands returns the slash commands in call order.
func (m *MockAgentExecutor) Commands() []string {
	out := make([]string, len(m.Requests))
	for i, r := range m.Requests {
		out[i] = r.Command
	}
	return out
}

// MockCommenter is a test double for domain.IssueCommenter.
type MockCommenter struct {
	Err      error
	Comments []string
}

// PostComment records the comment body.
func (m *MockCommenter) PostComment(_ context.Context, _, body string) error {
	m.Comments = append(m.Comments, body)
	return m.Err
}

// ContainsComment reports whether any comment contains substr.
func (m *MockCommenter) ContainsComment(substr string) bool {
	for _, c := range m.Comments {
		if strings.Contains(c, substr) {
			return true
		}
	}
	return false
}

// MockGit is a test double for domain.Git.
// Fields are ordered to minimize memory padding.
type MockGit struct {
	Branches        map[string]bool
	CheckoutErr     error
	CreateBranchErr error
	CommitErr       error
	PushErr         error
	Root            string
	Current         string
	Remote          string
	CommitMessages  []string
	Checkouts       []string
	Pushed          []string
	NothingToCommit bool
}

// NewMockGit creates a MockGit on branch main.
func NewMockGit() *MockGit {
	return &MockGit{
		Branches: map[string]bool{"main": true},
		Current:  "main",
		Remote:   "git@github.com:acme/widgets.git",
	}
}

// RepoRoot returns the configured root.
func (m *MockGit) RepoRoot() string { return m.Root }

// CurrentBranch returns the current branch.
func (m *MockGit) CurrentBranch() (string, error) { return m.Current, nil }

// BranchExists checks the Branches map.
func (m *MockGit) BranchExists(branch string) (bool, error) { return m.Branches[branch], nil }

// RemoteURL returns Remote or ErrNoRemote.
func (m *MockGit) RemoteURL(_ string) (string, error) {
	if m.Remote == "" {
		return "", domain.ErrNoRemote
	}
	return m.Remote, nil
}

// Checkout switches branch.
func (m *MockGit) Checkout(_ context.Context, branch string) error {
	if m.CheckoutErr != nil {
		return m.CheckoutErr
	}
	m.Checkouts = append(m.Checkouts, branch)
	if !m.Branches[branch] {
		return domain.NewVCSError("checkout", "pathspec '"+branch+"' did not match", fmt.Errorf("exit status 1"))
	}
	m.Current = branch
	return nil
}

// CreateBranch creates and switches branch.
func (m *MockGit) CreateBranch(_ context.Context, branch string) error {
	if m.CreateBranchErr != nil {
		return m.CreateBranchErr
	}
	m.Branches[branch] = true
	m.Current = branch
	return nil
}

// CommitAll records the message.
func (m *MockGit) CommitAll(_ context.Context, message string) (bool, error) {
	if m.CommitErr != nil {
		return false, m.CommitErr
	}
	m.CommitMessages = append(m.CommitMessages, message)
	return !m.NothingToCommit, nil
}

// Push records the branch.
func (m *MockGit) Push(_ context.Context, branch string) error {
	if m.PushErr != nil {
		return m.PushErr
	}
	m.Pushed = append(m.Pushed, branch)
	return nil
}

// MockWorktreeGit is a test double for domain.WorktreeGit that creates and
// removes real directories.
type MockWorktreeGit struct {
	AddErr    error
	RemoveErr map[string]error
	Porcelain string
	Added     []string
	Removed   []string
}

// AddWorktree creates path.
func (m *MockWorktreeGit) AddWorktree(_ context.Context, path, _ string) error {
	if m.AddErr != nil {
		return m.AddErr
	}
	m.Added = append(m.Added, path)
	return os.MkdirAll(path, 0o755)
}

// RemoveWorktree deletes path.
func (m *MockWorktreeGit) RemoveWorktree(_ context.Context, path string) error {
	if err := m.RemoveErr[path]; err != nil {
		return err
	}
	m.Removed = append(m.Removed, path)
	return os.RemoveAll(path)
}

// ListWorktrees returns Porcelain.
func (m *MockWorktreeGit) ListWorktrees(_ context.Context) (string, error) {
	return m.Porcelain, nil
}

// MockInstaller is a test double for domain.PackageInstaller.
type MockInstaller struct {
	Err  error
	Dirs []string
}

// Install records dir.
func (m *MockInstaller) Install(_ context.Context, dir string) error {
	m.Dirs = append(m.Dirs, dir)
	return m.Err
}

// MockStateStore is a test double for domain.StateStore.
type MockStateStore struct {
	States  map[string]*domain.RunState
	LoadErr error
	SaveErr error
	Saves   int
}

// NewMockStateStore creates an empty store.
func NewMockStateStore() *MockStateStore {
	return &MockStateStore{States: make(map[string]*domain.RunState)}
}

// Load returns a copy of the stored state.
func (m *MockStateStore) Load(runID string) (*domain.RunState, error) {
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	s, ok := m.States[runID]
	if !ok {
		return nil, domain.ErrStateNotFound
	}
	cp := *s
	return &cp, nil
}

// Save stores a copy of state.
func (m *MockStateStore) Save(state *domain.RunState) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	cp := *state
	m.States[state.ADWID] = &cp
	m.Saves++
	return nil
}

// MockWorktreeManager is a test double for domain.WorktreeManager.
// Fields are ordered to minimize memory padding.
type MockWorktreeManager struct {
	Existing   map[string]bool
	CreateErr  error
	RemoveErr  error
	ListErr    error
	CleanupErr error
	Infos      []domain.WorktreeInfo
	TreesDir   string
	Cleaned    int
	CleanupAge time.Duration
}

// NewMockWorktreeManager creates a new MockWorktreeManager.
func NewMockWorktreeManager() *MockWorktreeManager {
	return &MockWorktreeManager{
		Existing: make(map[string]bool),
		TreesDir: "/repo/trees",
	}
}

// Create marks runID as existing.
func (m *MockWorktreeManager) Create(_ context.Context, runID, _ string) (*domain.Worktree, error) {
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}
	ports, err := domain.AllocatePorts(runID)
	if err != nil {
		return nil, err
	}
	created := !m.Existing[runID]
	m.Existing[runID] = true
	return &domain.Worktree{RunID: runID, Path: m.Path(runID), Ports: ports, Created: created}, nil
}

// Remove unmarks runID.
func (m *MockWorktreeManager) Remove(_ context.Context, runID string) (bool, error) {
	if m.RemoveErr != nil {
		return false, m.RemoveErr
	}
	existed := m.Existing[runID]
	delete(m.Existing, runID)
	return existed, nil
}

// List returns Infos.
func (m *MockWorktreeManager) List(_ context.Context) ([]domain.WorktreeInfo, error) {
	return m.Infos, m.ListErr
}

// Cleanup records maxAge and returns Cleaned.
func (m *MockWorktreeManager) Cleanup(_ context.Context, maxAge time.Duration) (int, error) {
	m.CleanupAge = maxAge
	return m.Cleaned, m.CleanupErr
}

// Path returns the worktree path under TreesDir.
func (m *MockWorktreeManager) Path(runID string) string {
	return domain.WorktreePath(m.TreesDir, runID)
}

// Env returns the port and run variables.
func (m *MockWorktreeManager) Env(runID string) ([]string, error) {
	ports, err := domain.AllocatePorts(runID)
	if err != nil {
		return nil, err
	}
	env := []string{}
	for _, v := range ports.Env() {
		env = append(env, v.String())
	}
	return append(env, domain.EnvRunID+"="+runID, domain.EnvWorktree+"="+m.Path(runID)), nil
}

// MockConfigLoader is a test double for domain.ConfigLoader.
type MockConfigLoader struct {
	Config *domain.Config
	Err    error
}

// NewMockConfigLoader creates a loader returning the default config.
func NewMockConfigLoader() *MockConfigLoader {
	return &MockConfigLoader{Config: domain.NewDefaultConfig()}
}

// Load returns Config or Err.
func (m *MockConfigLoader) Load() (*domain.Config, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Config, nil
}

// MockConfigSources is a test double for domain.ConfigSources.
type MockConfigSources struct {
	Infos []domain.ConfigInfo
}

// Sources returns Infos.
func (m *MockConfigSources) Sources() []domain.ConfigInfo {
	return m.Infos
}

// MockConfigManager is a test double for domain.ConfigManager.
type MockConfigManager struct {
	InitErr          error
	Written          *domain.Config
	RepoConfigInfo   domain.ConfigInfo
	GlobalConfigInfo domain.ConfigInfo
	InitRepoCalled   bool
	InitGlobalCalled bool
}

// NewMockConfigManager creates a new MockConfigManager.
func NewMockConfigManager() *MockConfigManager {
	return &MockConfigManager{}
}

// GetRepoConfigInfo returns RepoConfigInfo.
func (m *MockConfigManager) GetRepoConfigInfo() domain.ConfigInfo { return m.RepoConfigInfo }

// GetGlobalConfigInfo returns GlobalConfigInfo.
func (m *MockConfigManager) GetGlobalConfigInfo() domain.ConfigInfo { return m.GlobalConfigInfo }

// InitRepoConfig records the call.
func (m *MockConfigManager) InitRepoConfig(cfg *domain.Config) error {
	m.InitRepoCalled = true
	m.Written = cfg
	return m.InitErr
}

// InitGlobalConfig records the call.
func (m *MockConfigManager) InitGlobalConfig(cfg *domain.Config) error {
	m.InitGlobalCalled = true
	m.Written = cfg
	return m.InitErr
}
