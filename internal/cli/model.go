package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/runoshun/adw/internal/app"
	"github.com/runoshun/adw/internal/domain"
	"github.com/runoshun/adw/internal/usecase"
)

// newModelCommand creates the model command.
func newModelCommand(c *app.Container) *cobra.Command {
	var opts struct {
		Set   string
		Force string
	}

	cmd := &cobra.Command{
		Use:   "model <slash-command>",
		Short: "Show which model a slash command runs on",
		Long: `Show the model selected for a slash command.

Precedence: --force, then --set (base=sonnet, heavy=opus), then the command
tables. Heavy commands run on opus; everything else runs on sonnet. Without
flags the configured claude.model_set and claude.force_model apply.

Examples:
  adw model /resolve_failed_test
  adw model commit --set heavy`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			set := c.AppConfig.Claude.ModelSet
			if cmd.Flags().Changed("set") {
				parsed, err := domain.ParseModelSet(opts.Set)
				if err != nil {
					return err
				}
				set = parsed
			}
			force := domain.ModelName(c.AppConfig.Claude.ForceModel)
			if cmd.Flags().Changed("force") {
				force = domain.ModelName(opts.Force)
			}

			out, err := c.SelectModelUseCase().Execute(cmd.Context(), usecase.SelectModelInput{
				Command: args[0],
				Set:     set,
				Force:   force,
			})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), out.Info)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Set, "set", "", "Model set to apply (base, heavy)")
	cmd.Flags().StringVar(&opts.Force, "force", "", "Model to use regardless of command")

	return cmd
}
