// Package cli implements the gridseam command-line interface.
package cli

import (
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/gridseam/gridseam/pkg/buildinfo"
	"github.com/gridseam/gridseam/pkg/grid"
	"github.com/gridseam/gridseam/pkg/mask"
	"github.com/gridseam/gridseam/pkg/pipeline"
	"github.com/gridseam/gridseam/pkg/raster"
)

// appName is the application name used for display.
const appName = "gridseam"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: log.NewWithOptions(w, log.Options{
			ReportTimestamp: true,
			TimeFormat:      "15:04:05.00",
			Level:           level,
		}),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Gridseam composites offshore transmission routing layers",
		Long:         `Gridseam builds offshore barrier and friction rasters for transmission routing, masks them against a land boundary, and merges them with onshore cost layers into a unified routing store.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())

	root.AddCommand(c.runCommand())
	root.AddCommand(c.composeCommand())
	root.AddCommand(c.maskCommand())
	root.AddCommand(c.mergeCommand())
	root.AddCommand(c.storeCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// newRunner creates a pipeline runner over the scenario's canonical grid.
func (c *CLI) newRunner(s *scenario, profile grid.Profile) *pipeline.Runner {
	loader := raster.NewLoader(raster.ASCIIGrid{}, s.resolve(s.LayerDir), profile)
	return pipeline.NewRunner(loader, mask.GGRasterizer{}, nil, c.Logger)
}
