package usecase

import (
	"context"
	"errors"

	"github.com/runoshun/adw/internal/domain"
)

// CreateWorktreeInput contains the input for the CreateWorktree use case.
type CreateWorktreeInput struct {
	RunID  string
	Branch string
}

// CreateWorktreeOutput contains the output of the CreateWorktree use case.
type CreateWorktreeOutput struct {
	Worktree *domain.Worktree
}

// CreateWorktree prepares an isolated checkout for a run.
type CreateWorktree struct {
	worktrees domain.WorktreeManager
}

// NewCreateWorktree creates a new CreateWorktree use case.
func NewCreateWorktree(worktrees domain.WorktreeManager) *CreateWorktree {
	return &CreateWorktree{worktrees: worktrees}
}

// Execute creates the worktree, or returns the existing one unchanged.
func (uc *CreateWorktree) Execute(ctx context.Context, in CreateWorktreeInput) (*CreateWorktreeOutput, error) {
	if in.Branch == "" {
		return nil, errors.New("branch name is required")
	}
	wt, err := uc.worktrees.Create(ctx, in.RunID, in.Branch)
	if err != nil {
		return nil, err
	}
	return &CreateWorktreeOutput{Worktree: wt}, nil
}
