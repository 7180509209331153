package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/runoshun/adw/internal/app"
	"github.com/runoshun/adw/internal/infra/config"
	"github.com/runoshun/adw/internal/usecase"
)

// newConfigCommand creates the config command.
func newConfigCommand(c *app.Container) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long:  `Inspect and initialize adw configuration files.`,
		// No RunE: shows subcommand list when called without arguments
	}

	cmd.AddCommand(
		newConfigShowCommand(c),
		newConfigInitCommand(c),
	)

	return cmd
}

// newConfigShowCommand creates the config show subcommand.
func newConfigShowCommand(c *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display effective configuration",
		Long: `Display effective configuration after merging all sources.

Shows which config files were loaded and the final merged configuration.
Secrets read from the environment are never printed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := c.ShowConfigUseCase().Execute(cmd.Context(), usecase.ShowConfigInput{})
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()

			// Display loaded files section
			_, _ = fmt.Fprintln(w, "[Loaded from]")
			for _, src := range out.Sources {
				if src.Exists {
					_, _ = fmt.Fprintf(w, "- %s\n", src.Path)
				} else {
					_, _ = fmt.Fprintf(w, "- %s (not found)\n", src.Path)
				}
			}
			_, _ = fmt.Fprintln(w)

			// Display effective config in TOML format
			_, _ = fmt.Fprintln(w, "[Effective Config]")
			rendered, err := config.Render(out.EffectiveConfig)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprint(w, rendered)
			return nil
		},
	}
}

// newConfigInitCommand creates the config init subcommand.
func newConfigInitCommand(c *app.Container) *cobra.Command {
	var opts struct {
		Global bool
		Force  bool
	}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter config file",
		Long: `Write the default configuration to .adw.toml at the repository root,
or to the global config file with --global.

Secrets are never written; set ANTHROPIC_API_KEY and GITHUB_PAT in the
environment instead.

Examples:
  adw config init
  adw config init --global --force`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := c.InitConfigUseCase().Execute(cmd.Context(), usecase.InitConfigInput{
				Global: opts.Global,
				Force:  opts.Force,
			})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Created config: %s\n", out.Path)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&opts.Global, "global", "g", false, "Write the global config instead of .adw.toml")
	cmd.Flags().BoolVarP(&opts.Force, "force", "f", false, "Overwrite an existing file")

	return cmd
}
