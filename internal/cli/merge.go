package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/gridseam/gridseam/pkg/errors"
	"github.com/gridseam/gridseam/pkg/grid"
	"github.com/gridseam/gridseam/pkg/pipeline"
	"github.com/gridseam/gridseam/pkg/raster"
)

// mergeCommand creates the merge command, which finishes a run from
// previously snapshotted intermediates instead of recomposing them.
func (c *CLI) mergeCommand() *cobra.Command {
	var snapshots string

	cmd := &cobra.Command{
		Use:   "merge <scenario.toml>",
		Short: "Merge snapshotted offshore layers with the land store",
		Long: `Merge snapshotted offshore layers with the land store.

Reads the barrier, friction, and mask rasters written by an earlier run
(or by the compose and mask commands) and runs only the store and merge
stages. Useful for iterating on merge parameters without recompositing.`,
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
			dir := snapshots
			if dir == "" {
				dir = opts.SnapshotDir
			}
			if dir == "" {
				return errors.New(errors.ErrCodeInvalidConfig,
					"merge needs a snapshot directory (--snapshots or scenario snapshot_dir)")
			}
			profile, err := s.canonicalProfile()
			if err != nil {
				return err
			}

			result, err := loadSnapshots(profile, dir)
			if err != nil {
				return err
			}

			p := newProgress(c.Logger)
			if err := c.newRunner(s, profile).Merge(cmd.Context(), opts, result); err != nil {
				return err
			}
			p.done(fmt.Sprintf("Merged into %s", opts.OffshoreStorePath))
			return nil
		},
	}

	cmd.Flags().StringVar(&snapshots, "snapshots", "", "directory holding snapshot rasters (defaults to scenario snapshot_dir)")
	return cmd
}

// loadSnapshots reads the intermediate rasters a merge needs from dir.
func loadSnapshots(profile grid.Profile, dir string) (*pipeline.Result, error) {
	loader := raster.NewLoader(raster.ASCIIGrid{}, dir, profile)

	barriers, err := loader.LoadScalar(filepath.Join(dir, pipeline.SnapshotBarriers))
	if err != nil {
		return nil, err
	}
	friction, err := loader.LoadScalar(filepath.Join(dir, pipeline.SnapshotFriction))
	if err != nil {
		return nil, err
	}
	landMask, err := loader.LoadScalar(filepath.Join(dir, pipeline.SnapshotMask))
	if err != nil {
		return nil, err
	}

	return &pipeline.Result{
		Barriers: grid.BoolsFromFloats(barriers),
		Friction: friction,
		Mask:     grid.BoolsFromFloats(landMask),
	}, nil
}
