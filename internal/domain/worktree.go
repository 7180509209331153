package domain

import (
	"fmt"
	"strings"
)

// Worktree is an isolated checkout bound to one run.
type Worktree struct {
	RunID   string
	Path    string
	Ports   PortAllocation
	Created bool // False when an existing checkout was returned
}

// WorktreeInfo is one entry of `git worktree list --porcelain`.
type WorktreeInfo struct {
	Path     string `json:"path" yaml:"path"`
	Head     string `json:"head,omitempty" yaml:"head,omitempty"`
	Branch   string `json:"branch,omitempty" yaml:"branch,omitempty"`
	Detached bool   `json:"detached,omitempty" yaml:"detached,omitempty"`
}

// ValidateRunID rejects identifiers that cannot name a directory under the
// trees root.
func ValidateRunID(runID string) error {
	if strings.TrimSpace(runID) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidIdentifier)
	}
	if strings.ContainsAny(runID, `/\`) || runID == "." || runID == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidIdentifier, runID)
	}
	return nil
}
