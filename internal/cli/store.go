package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/gridseam/gridseam/pkg/store"
)

// storeCommand creates the store command group for inspecting and creating
// routing stores outside a pipeline run.
func (c *CLI) storeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Inspect and create routing stores",
	}
	cmd.AddCommand(c.storeInfoCommand())
	cmd.AddCommand(c.storeCreateCommand())
	return cmd
}

func (c *CLI) storeInfoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "info <store>",
		Short: "Print a store's grid, layers, and attributes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := store.OpenSQLite(args[0])
			if err != nil {
				return err
			}
			defer s.Close()

			profile, err := s.Profile()
			if err != nil {
				return err
			}
			layers, err := s.Layers()
			if err != nil {
				return err
			}
			attrs, err := s.Attrs()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "grid: %dx%d", profile.Rows, profile.Cols)
			if profile.CRS != "" {
				fmt.Fprintf(out, " (%s)", profile.CRS)
			}
			fmt.Fprintln(out)

			fmt.Fprintf(out, "layers (%d):\n", len(layers))
			for _, name := range layers {
				fmt.Fprintf(out, "  %s\n", name)
			}

			keys := make([]string, 0, len(attrs))
			for k := range attrs {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(out, "attrs (%d):\n", len(keys))
			for _, k := range keys {
				fmt.Fprintf(out, "  %s = %s\n", k, attrs[k])
			}
			return nil
		},
	}
}

func (c *CLI) storeCreateCommand() *cobra.Command {
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "create <template-store> <new-store>",
		Short: "Create an empty store from a template store",
		Long: `Create an empty store from a template store.

The new store inherits the template's grid, coordinate layers, and
attributes, and starts with a uniform region layer. Pipeline runs do this
automatically; the command exists for seeding stores out of band.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			template, err := store.OpenSQLite(args[0])
			if err != nil {
				return err
			}
			defer template.Close()

			p := newProgress(c.Logger)
			created, err := store.CreateSQLite(args[1], template, overwrite)
			if err != nil {
				return err
			}
			defer created.Close()
			p.done("Created " + args[1])
			return nil
		},
	}

	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "replace an existing store")
	return cmd
}
