// Package github posts issue comments through the gh CLI.
package github

import (
	"context"
	"fmt"

	"github.com/runoshun/adw/internal/domain"
)

// Commenter implements domain.IssueCommenter.
type Commenter struct {
	executor domain.CommandExecutor
	repo     string // owner/name
	token    string
}

// NewCommenter creates a commenter for repo. An empty token leaves gh to its
// own stored credentials.
func NewCommenter(executor domain.CommandExecutor, repo, token string) *Commenter {
	return &Commenter{executor: executor, repo: repo, token: token}
}

// Ensure Commenter implements domain.IssueCommenter interface.
var _ domain.IssueCommenter = (*Commenter)(nil)

// PostComment runs `gh issue comment <issue> --repo <repo> --body <body>`.
func (c *Commenter) PostComment(ctx context.Context, issue, body string) error {
	if issue == "" {
		return domain.ErrEmptyIssue
	}
	cmd := &domain.ExecCommand{
		Program: "gh",
		Args:    []string{"issue", "comment", issue, "--repo", c.repo, "--body", body},
	}
	if c.token != "" {
		cmd.Env = []string{"GH_TOKEN=" + c.token}
	}
	res, err := c.executor.Run(ctx, cmd)
	if err != nil {
		return fmt.Errorf("gh issue comment %s: %w: %s", issue, err, res.Combined())
	}
	return nil
}
