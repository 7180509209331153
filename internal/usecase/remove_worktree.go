package usecase

import (
	"context"
	"fmt"

	"github.com/runoshun/adw/internal/domain"
)

// RemoveWorktreeInput contains the input for the RemoveWorktree use case.
type RemoveWorktreeInput struct {
	RunID string
	IgnoreMissing bool // Succeed even when no worktree exists
}

// RemoveWorktreeOutput contains the output of the RemoveWorktree use case.
type RemoveWorktreeOutput struct {
	Path    string
	Removed bool
}

// RemoveWorktree deletes a run's checkout.
type RemoveWorktree struct {
	worktrees domain.WorktreeManager
}

// NewRemoveWorktree creates a new RemoveWorktree use case.
func NewRemoveWorktree(worktrees domain.WorktreeManager) *RemoveWorktree {
	return &RemoveWorktree{worktrees: worktrees}
}

// Execute removes the worktree.
// A missing worktree is ErrWorktreeNotFound unless IgnoreMissing is set.
func (uc *RemoveWorktree) Execute(ctx context.Context, in RemoveWorktreeInput) (*RemoveWorktreeOutput, error) {
	removed, err := uc.worktrees.Remove(ctx, in.RunID)
	if err != nil {
		return nil, err
	}
	path := uc.worktrees.Path(in.RunID)
	if !removed && !in.IgnoreMissing {
		return nil, fmt.Errorf("%w: %s", domain.ErrWorktreeNotFound, path)
	}
	return &RemoveWorktreeOutput{Path: path, Removed: removed}, nil
}
