// Package main is the entry point for the adw CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/runoshun/adw/internal/app"
	"github.com/runoshun/adw/internal/cli"
	"github.com/runoshun/adw/internal/domain"
)

// version is set at build time using -ldflags.
var version = "dev"

func main() {
	err := run()
	if err == nil {
		return
	}
	// The test command has already printed its summary.
	if !errors.Is(err, cli.ErrTestsFailed) {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(1)
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}

	container, err := app.New(cwd)
	if err != nil {
		// Allow help and version without a git repository
		if errors.Is(err, domain.ErrNotGitRepository) {
			return runWithoutContainer(ctx, os.Args[1:], err)
		}
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer func() { _ = container.Close() }()

	return cli.NewRootCommand(container, version).ExecuteContext(ctx)
}

// runWithoutContainer handles cases where git repo is not found.
func runWithoutContainer(ctx context.Context, args []string, gitErr error) error {
	if !canRunWithoutGit(args) {
		return gitErr
	}
	rootCmd := cli.NewRootCommand(nil, version)
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

func canRunWithoutGit(args []string) bool {
	if len(args) == 0 {
		return true
	}
	if args[0] == "help" {
		return true
	}
	for _, arg := range args {
		if arg == "--version" || arg == "-v" || arg == "--help" || arg == "-h" {
			return true
		}
	}
	return false
}
