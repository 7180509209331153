package usecase

import (
	"context"

	"github.com/runoshun/adw/internal/domain"
)

// WorktreeEnvInput contains the input for the WorktreeEnv use case.
type WorktreeEnvInput struct {
	RunID string
}

// WorktreeEnvOutput contains the output of the WorktreeEnv use case.
type WorktreeEnvOutput struct {
	Path  string
	Env   []string
	Ports domain.PortAllocation
}

// WorktreeEnv reports the ports and environment of a run.
// It works whether or not the worktree exists yet.
type WorktreeEnv struct {
	worktrees domain.WorktreeManager
	policy    domain.PortPolicy
}

// NewWorktreeEnv creates a new WorktreeEnv use case.
func NewWorktreeEnv(worktrees domain.WorktreeManager, policy domain.PortPolicy) *WorktreeEnv {
	return &WorktreeEnv{worktrees: worktrees, policy: policy}
}

// Execute computes the allocation for RunID.
func (uc *WorktreeEnv) Execute(_ context.Context, in WorktreeEnvInput) (*WorktreeEnvOutput, error) {
	ports, err := uc.policy.Allocate(in.RunID)
	if err != nil {
		return nil, err
	}
	env, err := uc.worktrees.Env(in.RunID)
	if err != nil {
		return nil, err
	}
	return &WorktreeEnvOutput{
		Path:  uc.worktrees.Path(in.RunID),
		Env:   env,
		Ports: ports,
	}, nil
}
