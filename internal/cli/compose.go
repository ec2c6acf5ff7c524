package cli

import (
	"github.com/spf13/cobra"

	"github.com/gridseam/gridseam/pkg/pipeline"
	"github.com/gridseam/gridseam/pkg/raster"
)

// composeCommand creates the compose command group for running individual
// composition stages without touching any store.
func (c *CLI) composeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compose",
		Short: "Composite offshore layers without merging",
	}
	cmd.AddCommand(c.composeBarriersCommand())
	cmd.AddCommand(c.composeFrictionCommand())
	return cmd
}

func (c *CLI) composeBarriersCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "barriers <scenario.toml>",
		Short: "Composite the boolean offshore barrier layer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadScenario(args[0])
			if err != nil {
				return err
			}
			opts, err := s.toOptions()
			if err != nil {
				return err
			}
			profile, err := s.canonicalProfile()
			if err != nil {
				return err
			}

			p := newProgress(c.Logger)
			barriers, err := c.newRunner(s, profile).ComposeBarriers(cmd.Context(), opts)
			if err != nil {
				return err
			}
			if err := (raster.ASCIIGrid{}).Write(output, barriers.Floats().Data, profile); err != nil {
				return err
			}
			p.done("Wrote " + output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", pipeline.SnapshotBarriers, "output raster path")
	return cmd
}

func (c *CLI) composeFrictionCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "friction <scenario.toml>",
		Short: "Composite the scalar offshore friction layer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadScenario(args[0])
			if err != nil {
				return err
			}
			opts, err := s.toOptions()
			if err != nil {
				return err
			}
			profile, err := s.canonicalProfile()
			if err != nil {
				return err
			}

			p := newProgress(c.Logger)
			friction, err := c.newRunner(s, profile).ComposeFriction(cmd.Context(), opts)
			if err != nil {
				return err
			}
			if err := (raster.ASCIIGrid{}).Write(output, friction.Data, profile); err != nil {
				return err
			}
			p.done("Wrote " + output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", pipeline.SnapshotFriction, "output raster path")
	return cmd
}
