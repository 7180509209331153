// Package statestore persists run state as one JSON document per run.
package statestore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"

	"github.com/runoshun/adw/internal/domain"
)

// Store implements domain.StateStore using agents/<run>/adw_state.json.
type Store struct {
	agentsDir string
}

// New creates a new Store rooted at agentsDir.
func New(agentsDir string) *Store {
	return &Store{agentsDir: agentsDir}
}

// Ensure Store implements StateStore.
var _ domain.StateStore = (*Store)(nil)

// Path returns the state file path for runID.
func (s *Store) Path(runID string) string {
	return domain.StatePath(s.agentsDir, runID)
}

// Load reads the state for runID.
// Returns domain.ErrStateNotFound when no state has been saved yet.
func (s *Store) Load(runID string) (*domain.RunState, error) {
	if err := domain.ValidateRunID(runID); err != nil {
		return nil, err
	}
	path := s.Path(runID)
	lock, err := acquireLock(path+".lock", syscall.LOCK_SH)
	if err != nil {
		return nil, err
	}
	defer releaseLock(lock)

	content, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", domain.ErrStateNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("read state file: %w", err)
	}

	var state domain.RunState
	if err := json.Unmarshal(content, &state); err != nil {
		return nil, fmt.Errorf("parse state file: %w", err)
	}
	if state.ADWID == "" {
		state.ADWID = runID
	}
	return &state, nil
}

// Save writes state atomically.
func (s *Store) Save(state *domain.RunState) error {
	if err := domain.ValidateRunID(state.ADWID); err != nil {
		return err
	}
	path := s.Path(state.ADWID)
	lock, err := acquireLock(path+".lock", syscall.LOCK_EX)
	if err != nil {
		return err
	}
	defer releaseLock(lock)

	content, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	// Write to temp file first, then rename for atomicity
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, content, 0o600); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

func acquireLock(lockPath string, lockType int) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o750); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}

	lock, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	if err := syscall.Flock(int(lock.Fd()), lockType); err != nil {
		_ = lock.Close()
		return nil, fmt.Errorf("acquire lock: %w", err)
	}

	return lock, nil
}

func releaseLock(lock *os.File) {
	_ = syscall.Flock(int(lock.Fd()), syscall.LOCK_UN)
	_ = lock.Close()
}
