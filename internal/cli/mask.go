package cli

import (
	"github.com/spf13/cobra"

	"github.com/gridseam/gridseam/pkg/pipeline"
	"github.com/gridseam/gridseam/pkg/raster"
)

// maskCommand creates the mask command, which rasterizes the land boundary
// on its own. The output doubles as a mask.raster_path input on later runs,
// skipping the rasterization cost.
func (c *CLI) maskCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "mask <scenario.toml>",
		Short: "Rasterize the land boundary into a land/ocean mask",
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
			landMask, err := c.newRunner(s, profile).BuildMask(cmd.Context(), opts)
			if err != nil {
				return err
			}
			c.Logger.Info("built land mask", "land_cells", landMask.Count())

			if err := (raster.ASCIIGrid{}).Write(output, landMask.Floats().Data, profile); err != nil {
				return err
			}
			p.done("Wrote " + output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", pipeline.SnapshotMask, "output raster path")
	return cmd
}
