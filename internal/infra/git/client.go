// Package git provides git operations.
// Reads go through go-git; anything that mutates the repository shells out to
// the git CLI so hooks and credential helpers behave as they do for a user.
package git

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/runoshun/adw/internal/domain"
)

const originRemote = "origin"

// Client provides git operations.
type Client struct {
	repo       *gogit.Repository
	executor   domain.CommandExecutor
	repoRoot   string // Main repository root (parent of .git)
	workingDir string // Current working directory (may be worktree)
}

// NewClient creates a new git client by detecting the repository root from the given directory.
// It handles both regular repositories and worktrees.
func NewClient(dir string, executor domain.CommandExecutor) (*Client, error) {
	repoRoot, _, workingDir, err := findGitRoot(dir)
	if err != nil {
		return nil, err
	}
	repo, err := gogit.PlainOpenWithOptions(workingDir, &gogit.PlainOpenOptions{
		DetectDotGit:          true,
		EnableDotGitCommonDir: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open git repository: %w", err)
	}
	return &Client{
		repo:       repo,
		executor:   executor,
		repoRoot:   repoRoot,
		workingDir: workingDir,
	}, nil
}

// Ensure Client implements the git ports.
var (
	_ domain.Git         = (*Client)(nil)
	_ domain.WorktreeGit = (*Client)(nil)
)

// RepoRoot returns the repository root directory.
func (c *Client) RepoRoot() string {
	return c.repoRoot
}

// WorkingDir returns the toplevel of the checkout the client was opened in.
// Inside a worktree this differs from RepoRoot.
func (c *Client) WorkingDir() string {
	return c.workingDir
}

// CurrentBranch returns the name of the current branch, or "HEAD" when detached.
func (c *Client) CurrentBranch() (string, error) {
	head, err := c.repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to get current branch: %w", err)
	}
	if !head.Name().IsBranch() {
		return "HEAD", nil
	}
	return head.Name().Short(), nil
}

// BranchExists checks if a local branch exists.
func (c *Client) BranchExists(branch string) (bool, error) {
	_, err := c.repo.Reference(plumbing.NewBranchReferenceName(branch), true)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return false, nil
	}
	return false, fmt.Errorf("failed to check branch existence: %w", err)
}

// RemoteURL returns the first URL configured for the remote.
func (c *Client) RemoteURL(name string) (string, error) {
	remote, err := c.repo.Remote(name)
	if errors.Is(err, gogit.ErrRemoteNotFound) {
		return "", fmt.Errorf("%w: %s", domain.ErrNoRemote, name)
	}
	if err != nil {
		return "", fmt.Errorf("read remote %s: %w", name, err)
	}
	urls := remote.Config().URLs
	if len(urls) == 0 {
		return "", fmt.Errorf("%w: %s has no url", domain.ErrNoRemote, name)
	}
	return urls[0], nil
}

// Checkout switches the working tree to an existing branch.
func (c *Client) Checkout(ctx context.Context, branch string) error {
	return c.run(ctx, "checkout", "checkout", branch)
}

// CreateBranch creates branch from HEAD and switches to it.
func (c *Client) CreateBranch(ctx context.Context, branch string) error {
	return c.run(ctx, "checkout -b", "checkout", "-b", branch)
}

// CommitAll stages every change and commits it.
// Returns false with no error when the tree was already clean.
func (c *Client) CommitAll(ctx context.Context, message string) (bool, error) {
	if err := c.run(ctx, "add", "add", "-A"); err != nil {
		return false, err
	}
	res, err := c.executor.Run(ctx, domain.NewGitCommand(c.workingDir, "commit", "-m", message))
	if err == nil {
		return true, nil
	}
	if out := res.Combined(); strings.Contains(out, "nothing to commit") {
		return false, nil
	}
	return false, domain.NewVCSError("commit", res.Combined(), err)
}

// Push pushes branch to origin and records it as upstream.
func (c *Client) Push(ctx context.Context, branch string) error {
	return c.run(ctx, "push", "push", "-u", originRemote, branch)
}

// AddWorktree checks out branch into a new worktree at path.
func (c *Client) AddWorktree(ctx context.Context, path, branch string) error {
	return c.runIn(ctx, c.repoRoot, "worktree add", "worktree", "add", path, branch)
}

// RemoveWorktree force-removes the worktree at path.
func (c *Client) RemoveWorktree(ctx context.Context, path string) error {
	return c.runIn(ctx, c.repoRoot, "worktree remove", "worktree", "remove", path, "--force")
}

// ListWorktrees returns the porcelain listing of all worktrees.
func (c *Client) ListWorktrees(ctx context.Context) (string, error) {
	res, err := c.executor.Run(ctx, domain.NewGitCommand(c.repoRoot, "worktree", "list", "--porcelain"))
	if err != nil {
		return "", domain.NewVCSError("worktree list", res.Combined(), err)
	}
	return res.Stdout, nil
}

func (c *Client) run(ctx context.Context, op string, args ...string) error {
	return c.runIn(ctx, c.workingDir, op, args...)
}

func (c *Client) runIn(ctx context.Context, dir, op string, args ...string) error {
	res, err := c.executor.Run(ctx, domain.NewGitCommand(dir, args...))
	if err != nil {
		return domain.NewVCSError(op, res.Combined(), err)
	}
	return nil
}

// findGitRoot finds the git repository root and .git directory from the given directory.
// This works correctly both in the main repository and inside worktrees.
// Returns:
//   - repoRoot: main repository root (parent of .git)
//   - gitDir: common .git directory
//   - workingDir: current working directory (toplevel of current worktree or main repo)
func findGitRoot(dir string) (repoRoot, gitDir, workingDir string, err error) {
	cmd := exec.Command("git", "rev-parse", "--git-common-dir")
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return "", "", "", domain.ErrNotGitRepository
	}
	gitDir = strings.TrimSpace(string(out))

	cmd = exec.Command("git", "rev-parse", "--show-toplevel")
	cmd.Dir = dir
	toplevel, err := cmd.Output()
	if err != nil {
		return "", "", "", fmt.Errorf("failed to find toplevel: %w", err)
	}
	workingDir = strings.TrimSpace(string(toplevel))

	if !filepath.IsAbs(gitDir) {
		gitDir = filepath.Join(dir, gitDir)
	}
	gitDir = filepath.Clean(gitDir)
	repoRoot = filepath.Dir(gitDir)

	return repoRoot, gitDir, workingDir, nil
}

// RepoSlug extracts owner/name from a GitHub remote URL.
// Accepts https, ssh and scp-like forms, with or without a .git suffix.
func RepoSlug(remoteURL string) (string, error) {
	u := strings.TrimSpace(remoteURL)
	u = strings.TrimSuffix(u, "/")
	u = strings.TrimSuffix(u, ".git")

	var path string
	switch {
	case strings.HasPrefix(u, "git@"):
		_, after, ok := strings.Cut(u, ":")
		if !ok {
			return "", fmt.Errorf("%w: %s", domain.ErrInvalidRemoteURL, remoteURL)
		}
		path = after
	case strings.Contains(u, "://"):
		_, after, _ := strings.Cut(u, "://")
		_, rest, ok := strings.Cut(after, "/")
		if !ok {
			return "", fmt.Errorf("%w: %s", domain.ErrInvalidRemoteURL, remoteURL)
		}
		path = rest
	default:
		return "", fmt.Errorf("%w: %s", domain.ErrInvalidRemoteURL, remoteURL)
	}

	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", fmt.Errorf("%w: %s", domain.ErrInvalidRemoteURL, remoteURL)
	}
	return parts[0] + "/" + parts[1], nil
}
