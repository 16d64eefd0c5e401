package cmd

import (
	"context"
	"fmt"

	reportadapter "github.com/bnema/nodetel/internal/adapters/render/report"
	"github.com/bnema/nodetel/internal/domain"
	"github.com/spf13/cobra"
)

func newRoundCmd(app *app) *cobra.Command {
	var round uint64
	var asJSON bool
	var payloadOnly bool

	cmd := &cobra.Command{
		Use:   "round",
		Short: "Run one reporting round and print the encoded record",
		Long:  "round ticks the liveness counter, collects hardware facts, compares them with the last transmitted snapshot and encodes a record of at most 512 bytes.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if asJSON && payloadOnly {
				return fmt.Errorf("--json and --payload-only are mutually exclusive")
			}

			var result domain.RoundResult
			runRound := func(ctx context.Context) error {
				result = app.rounds.Run(ctx, round)
				return nil
			}

			if asJSON || payloadOnly || !isInteractive(cmd.ErrOrStderr()) {
				_ = runRound(cmd.Context())
			} else if err := runRoundSpinner(cmd.Context(), cmd.ErrOrStderr(), fmt.Sprintf("Running round %d...", round), runRound); err != nil {
				return err
			}

			switch {
			case payloadOnly:
				_, err := fmt.Fprintln(cmd.OutOrStdout(), result.Payload)
				return err
			case asJSON:
				return writeJSON(cmd.OutOrStdout(), toRoundOutput(result))
			}

			rendered, err := app.roundRenderer(result, reportadapter.RenderOptions{Now: app.now()})
			if err != nil {
				return fmt.Errorf("render round: %w", err)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return err
		},
	}

	cmd.Flags().Uint64Var(&round, "round", 0, "Reporting round number")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")
	cmd.Flags().BoolVar(&payloadOnly, "payload-only", false, "Print only the encoded record")
	_ = cmd.MarkFlagRequired("round")

	return cmd
}
