package cmd

import (
	"context"
	"fmt"

	fixtureprovider "github.com/bnema/nodetel/internal/adapters/hardware/fixture"
	reportadapter "github.com/bnema/nodetel/internal/adapters/render/report"
	"github.com/spf13/cobra"
)

func newSnapshotCmd(app *app) *cobra.Command {
	var asJSON bool
	var asYAML bool
	var savePath string

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Collect and display the node's hardware facts",
		Long:  "snapshot runs the configured hardware provider once without touching the cache. --save pins the result to a file usable as hardware.snapshot_file.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := pickFormat(asJSON, asYAML)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if timeout := app.cfg.Hardware.CollectTimeout; timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			snapshot, err := app.provider.Collect(ctx)
			if err != nil {
				return fmt.Errorf("collect hardware facts: %w", err)
			}

			if savePath != "" {
				if err := fixtureprovider.Write(savePath, snapshot); err != nil {
					return fmt.Errorf("save snapshot: %w", err)
				}
				app.log.WithField("path", savePath).Info("snapshot saved")
			}

			switch format {
			case formatJSON:
				return writeJSON(cmd.OutOrStdout(), toSnapshotOutput(snapshot))
			case formatYAML:
				return writeYAML(cmd.OutOrStdout(), toSnapshotOutput(snapshot))
			}

			rendered, err := app.snapshotRenderer(snapshot, reportadapter.RenderOptions{Now: app.now()})
			if err != nil {
				return fmt.Errorf("render snapshot: %w", err)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "Render YAML output")
	cmd.Flags().StringVar(&savePath, "save", "", "Also write the snapshot to this TOML file")

	return cmd
}
