package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors.
var (
	ErrInvalidIdentifier = errors.New("invalid run identifier")
	ErrWorktreeNotFound  = errors.New("worktree not found")
	ErrStateNotFound     = errors.New("run state not found")
	ErrMissingConfig     = errors.New("missing required configuration")
	ErrNotGitRepository  = errors.New("not a git repository (or any of the parent directories)")
	ErrNoRemote          = errors.New("no origin remote configured")
	ErrInvalidRemoteURL  = errors.New("unsupported remote url")
	ErrEmptyIssue        = errors.New("issue number cannot be empty")
	ErrConfigExists      = errors.New("config file already exists")
	ErrNoGlobalConfigDir = errors.New("cannot determine global config directory")
)

// VCSError reports a failed version-control operation.
// Output carries whatever the git process printed, which is usually the only
// useful explanation.
type VCSError struct {
	Err    error
	Op     string
	Output string
}

// NewVCSError wraps err as a VCSError for op.
func NewVCSError(op, output string, err error) *VCSError {
	return &VCSError{Op: op, Output: strings.TrimSpace(output), Err: err}
}

func (e *VCSError) Error() string {
	if e.Output == "" {
		return fmt.Sprintf("git %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("git %s: %v: %s", e.Op, e.Err, e.Output)
}

func (e *VCSError) Unwrap() error {
	return e.Err
}

// ParseError reports agent output that does not contain the expected JSON.
type ParseError struct {
	Err     error
	Snippet string
}

func (e *ParseError) Error() string {
	if e.Snippet == "" {
		return fmt.Sprintf("parse result: %v", e.Err)
	}
	return fmt.Sprintf("parse result: %v (near %q)", e.Err, e.Snippet)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
