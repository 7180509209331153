package usecase

import (
	"context"

	"github.com/runoshun/adw/internal/domain"
)

// ListWorktreesInput contains the input for the ListWorktrees use case.
type ListWorktreesInput struct{}

// ListWorktreesOutput contains the output of the ListWorktrees use case.
type ListWorktreesOutput struct {
	Worktrees []domain.WorktreeInfo
}

// ListWorktrees lists run worktrees.
type ListWorktrees struct {
	worktrees domain.WorktreeManager
}

// NewListWorktrees creates a new ListWorktrees use case.
func NewListWorktrees(worktrees domain.WorktreeManager) *ListWorktrees {
	return &ListWorktrees{worktrees: worktrees}
}

// Execute returns the worktrees under the trees root.
func (uc *ListWorktrees) Execute(ctx context.Context, _ ListWorktreesInput) (*ListWorktreesOutput, error) {
	infos, err := uc.worktrees.List(ctx)
	if err != nil {
		return nil, err
	}
	if infos == nil {
		infos = []domain.WorktreeInfo{}
	}
	return &ListWorktreesOutput{Worktrees: infos}, nil
}
