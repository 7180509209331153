// Package worktree manages the per-run git worktrees under the trees root.
package worktree

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/runoshun/adw/internal/domain"
)

const logCategory = "worktree"

// Options configures a Manager.
// Fields are ordered to minimize memory padding.
type Options struct {
	Git       domain.WorktreeGit
	Installer domain.PackageInstaller
	Clock     domain.Clock
	Logger    domain.Logger
	TreesDir  string
	EnvFile   string // Shared env file copied into new worktrees; may be absent
	Policy    domain.PortPolicy
}

// Manager creates and removes isolated checkouts, one per run id.
type Manager struct {
	git       domain.WorktreeGit
	installer domain.PackageInstaller
	clock     domain.Clock
	logger    domain.Logger
	treesDir  string
	envFile   string
	policy    domain.PortPolicy
}

// NewManager creates a new worktree manager.
func NewManager(opts Options) *Manager {
	m := &Manager{
		git:       opts.Git,
		installer: opts.Installer,
		clock:     opts.Clock,
		logger:    opts.Logger,
		treesDir:  opts.TreesDir,
		envFile:   opts.EnvFile,
		policy:    opts.Policy,
	}
	if m.clock == nil {
		m.clock = domain.RealClock{}
	}
	if m.logger == nil {
		m.logger = domain.NopLogger{}
	}
	return m
}

// Ensure Manager implements domain.WorktreeManager interface.
var _ domain.WorktreeManager = (*Manager)(nil)

// Path returns the worktree path for runID.
func (m *Manager) Path(runID string) string {
	return domain.WorktreePath(m.treesDir, runID)
}

// Create returns the worktree for runID, creating and provisioning it when absent.
// An existing directory is returned as-is with no side effects.
func (m *Manager) Create(ctx context.Context, runID, branch string) (*domain.Worktree, error) {
	if err := domain.ValidateRunID(runID); err != nil {
		return nil, err
	}
	ports, err := m.policy.Allocate(runID)
	if err != nil {
		return nil, err
	}

	path := m.Path(runID)
	wt := &domain.Worktree{RunID: runID, Path: path, Ports: ports}

	exists, err := dirExists(path)
	if err != nil {
		return nil, fmt.Errorf("check worktree directory: %w", err)
	}
	if exists {
		m.logger.Info(runID, logCategory, "worktree already exists at "+path)
		return wt, nil
	}

	m.logger.Info(runID, logCategory, fmt.Sprintf("creating worktree at %s for branch %s", path, branch))
	if err := os.MkdirAll(m.treesDir, 0o755); err != nil {
		return nil, fmt.Errorf("create trees directory: %w", err)
	}
	if err := m.git.AddWorktree(ctx, path, branch); err != nil {
		return nil, err
	}
	wt.Created = true

	if err := m.copyEnvFile(runID, path); err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(path, domain.PortsFileName), []byte(ports.EnvFile()), 0o644); err != nil {
		return nil, fmt.Errorf("write ports file: %w", err)
	}

	m.logger.Info(runID, logCategory, "installing dependencies")
	if err := m.installer.Install(ctx, path); err != nil {
		return nil, fmt.Errorf("install dependencies in %s: %w", path, err)
	}

	m.logger.Info(runID, logCategory, fmt.Sprintf("worktree ready (backend %d, frontend %d)", ports.Backend, ports.Frontend))
	return wt, nil
}

// Remove force-removes the worktree for runID.
// Returns false when there was nothing to remove.
func (m *Manager) Remove(ctx context.Context, runID string) (bool, error) {
	if err := domain.ValidateRunID(runID); err != nil {
		return false, err
	}
	path := m.Path(runID)
	exists, err := dirExists(path)
	if err != nil {
		return false, fmt.Errorf("check worktree directory: %w", err)
	}
	if !exists {
		m.logger.Info(runID, logCategory, "worktree "+path+" does not exist")
		return false, nil
	}

	m.logger.Info(runID, logCategory, "removing worktree at "+path)
	if err := m.git.RemoveWorktree(ctx, path); err != nil {
		return false, err
	}
	return true, nil
}

// List returns the registered worktrees that live under the trees root.
func (m *Manager) List(ctx context.Context) ([]domain.WorktreeInfo, error) {
	out, err := m.git.ListWorktrees(ctx)
	if err != nil {
		return nil, err
	}
	all, err := parseWorktreeList(out)
	if err != nil {
		return nil, err
	}

	result := make([]domain.WorktreeInfo, 0, len(all))
	for _, wt := range all {
		if isWithin(m.treesDir, wt.Path) {
			result = append(result, wt)
		}
	}
	return result, nil
}

// Cleanup removes every worktree whose directory is older than maxAge.
// Failures are logged and the sweep continues; the count covers successful removals only.
func (m *Manager) Cleanup(ctx context.Context, maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(m.treesDir)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read trees directory: %w", err)
	}

	now := m.clock.Now()
	removed := 0
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			m.logger.Warn(entry.Name(), logCategory, fmt.Sprintf("stat worktree: %v", err))
			continue
		}
		age := now.Sub(info.ModTime())
		if age <= maxAge {
			continue
		}

		m.logger.Info(entry.Name(), logCategory, fmt.Sprintf("removing stale worktree (age %s)", age.Truncate(time.Second)))
		ok, err := m.Remove(ctx, entry.Name())
		if err != nil {
			m.logger.Error(entry.Name(), logCategory, fmt.Sprintf("cleanup failed: %v", err))
			continue
		}
		if ok {
			removed++
		}
	}
	return removed, nil
}

// Env returns the variables that scope a command to the run's worktree.
// They are meant to be layered over the process environment.
func (m *Manager) Env(runID string) ([]string, error) {
	ports, err := m.policy.Allocate(runID)
	if err != nil {
		return nil, err
	}
	env := make([]string, 0, 5)
	for _, v := range ports.Env() {
		env = append(env, v.String())
	}
	env = append(env,
		domain.EnvRunID+"="+runID,
		domain.EnvWorktree+"="+m.Path(runID),
	)
	return env, nil
}

func (m *Manager) copyEnvFile(runID, dest string) error {
	if m.envFile == "" {
		return nil
	}
	src, err := os.Open(m.envFile)
	if errors.Is(err, os.ErrNotExist) {
		m.logger.Debug(runID, logCategory, "no shared env file at "+m.envFile)
		return nil
	}
	if err != nil {
		return fmt.Errorf("open env file: %w", err)
	}
	defer func() { _ = src.Close() }()

	target := filepath.Join(dest, filepath.Base(m.envFile))
	dst, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("create env file: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return fmt.Errorf("copy env file: %w", err)
	}
	if err := dst.Close(); err != nil {
		return fmt.Errorf("close env file: %w", err)
	}
	m.logger.Info(runID, logCategory, "copied "+filepath.Base(m.envFile)+" to worktree")
	return nil
}

func dirExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return info.IsDir(), nil
}

func isWithin(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
