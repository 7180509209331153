// Package installer installs project dependencies inside a checkout.
package installer

import (
	"context"
	"fmt"
	"strings"

	"github.com/runoshun/adw/internal/domain"
)

// Client implements domain.PackageInstaller by running a shell script.
type Client struct {
	executor domain.CommandExecutor
	script   string
}

// NewClient creates an installer that runs script (e.g. "npm install").
func NewClient(executor domain.CommandExecutor, script string) *Client {
	return &Client{executor: executor, script: script}
}

// Ensure Client implements domain.PackageInstaller interface.
var _ domain.PackageInstaller = (*Client)(nil)

// Install runs the install script in dir. An empty script is a no-op.
func (c *Client) Install(ctx context.Context, dir string) error {
	if strings.TrimSpace(c.script) == "" {
		return nil
	}
	res, err := c.executor.Run(ctx, domain.NewShellCommand(c.script, dir))
	if err != nil {
		return fmt.Errorf("execute script: %w: %s", err, res.Combined())
	}
	return nil
}
