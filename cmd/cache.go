package cmd

import (
	"fmt"

	reportadapter "github.com/bnema/nodetel/internal/adapters/render/report"
	"github.com/spf13/cobra"
)

func newCacheCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or reset the last transmitted hardware snapshot",
	}

	cmd.AddCommand(newCacheShowCmd(app), newCacheResetCmd(app))

	return cmd
}

func newCacheShowCmd(app *app) *cobra.Command {
	var asJSON bool
	var asYAML bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the cached snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := pickFormat(asJSON, asYAML)
			if err != nil {
				return err
			}

			entry, _ := app.cache.Load(cmd.Context())

			switch format {
			case formatJSON:
				return writeJSON(cmd.OutOrStdout(), toCacheOutput(entry))
			case formatYAML:
				return writeYAML(cmd.OutOrStdout(), toCacheOutput(entry))
			}

			rendered, err := app.cacheRenderer(entry, reportadapter.RenderOptions{Now: app.now()})
			if err != nil {
				return fmt.Errorf("render cache: %w", err)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "Render YAML output")

	return cmd
}

func newCacheResetCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Forget the cached snapshot so the next round sends static facts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.cache.Invalidate(cmd.Context()); err != nil {
				return fmt.Errorf("reset cache: %w", err)
			}

			_, err := fmt.Fprintln(cmd.OutOrStdout(), "hardware cache cleared")
			return err
		},
	}
}
