package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// runCommand creates the run command, which executes the full pipeline:
// mask, barriers, friction, store creation, and merge.
func (c *CLI) runCommand() *cobra.Command {
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "run <scenario.toml>",
		Short: "Run the full compositing pipeline from a scenario file",
		Long: `Run the full compositing pipeline from a scenario file.

The scenario names the input category rasters, the land boundary, and the
land store whose cost layers the offshore layers merge with. The run ends
with a new offshore store holding the unified barrier and friction layers.

Example:
  gridseam run scenarios/gulf_of_maine.toml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadScenario(args[0])
			if err != nil {
				return err
			}
			opts, err := s.toOptions()
			if err != nil {
				return err
			}
			if overwrite {
				opts.Overwrite = true
			}
			profile, err := s.canonicalProfile()
			if err != nil {
				return err
			}

			c.Logger.Info("loaded scenario", "file", args[0],
				"grid", fmt.Sprintf("%dx%d", profile.Rows, profile.Cols))

			p := newProgress(c.Logger)
			result, err := c.newRunner(s, profile).Execute(cmd.Context(), opts)
			if err != nil {
				return err
			}
			p.done(fmt.Sprintf("Run %s complete", result.RunID))
			return nil
		},
	}

	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "replace an existing offshore store")
	return cmd
}
