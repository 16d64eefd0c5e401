package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newLivenessCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "liveness",
		Short: "Inspect or advance the liveness counter",
	}

	cmd.AddCommand(newLivenessShowCmd(app), newLivenessTickCmd(app), newLivenessResetCmd(app))

	return cmd
}

func newLivenessShowCmd(app *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the current liveness without advancing it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := livenessOutput{Liveness: app.liveness.Current(cmd.Context())}
			if last, ok := app.liveness.LastTick(cmd.Context()); ok {
				out.LastTick = last.UTC().Format(time.RFC3339)
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), out)
			}

			line := fmt.Sprintf("liveness: %ds", out.Liveness)
			if out.LastTick != "" {
				line += fmt.Sprintf(" (last tick %s)", out.LastTick)
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), line)
			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")

	return cmd
}

func newLivenessTickCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tick",
		Short: "Advance the liveness counter by the time since the last tick",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			value, err := app.liveness.Tick(cmd.Context())
			if err != nil {
				return fmt.Errorf("tick liveness: %w", err)
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "liveness: %ds\n", value)
			return err
		},
	}
}

func newLivenessResetCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Restart the liveness counter from zero",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.liveness.Reset(cmd.Context()); err != nil {
				return fmt.Errorf("reset liveness: %w", err)
			}

			_, err := fmt.Fprintln(cmd.OutOrStdout(), "liveness counter reset")
			return err
		},
	}
}
