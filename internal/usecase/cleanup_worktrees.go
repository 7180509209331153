package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/runoshun/adw/internal/domain"
)

// CleanupWorktreesInput contains the input for the CleanupWorktrees use case.
type CleanupWorktreesInput struct {
	MaxAge time.Duration
}

// CleanupWorktreesOutput contains the output of the CleanupWorktrees use case.
type CleanupWorktreesOutput struct {
	Removed int
}

// CleanupWorktrees sweeps stale worktrees.
type CleanupWorktrees struct {
	worktrees domain.WorktreeManager
	logger    domain.Logger
}

// NewCleanupWorktrees creates a new CleanupWorktrees use case.
func NewCleanupWorktrees(worktrees domain.WorktreeManager, logger domain.Logger) *CleanupWorktrees {
	if logger == nil {
		logger = domain.NopLogger{}
	}
	return &CleanupWorktrees{worktrees: worktrees, logger: logger}
}

// Execute removes worktrees older than MaxAge. Zero removes all of them.
func (uc *CleanupWorktrees) Execute(ctx context.Context, in CleanupWorktreesInput) (*CleanupWorktreesOutput, error) {
	if in.MaxAge < 0 {
		return nil, fmt.Errorf("max age cannot be negative: %s", in.MaxAge)
	}
	n, err := uc.worktrees.Cleanup(ctx, in.MaxAge)
	if err != nil {
		return nil, err
	}
	uc.logger.Info("", "worktree", fmt.Sprintf("cleaned up %d worktrees older than %s", n, in.MaxAge))
	return &CleanupWorktreesOutput{Removed: n}, nil
}
