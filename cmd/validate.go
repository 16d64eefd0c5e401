package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	reportadapter "github.com/bnema/nodetel/internal/adapters/render/report"
	"github.com/bnema/nodetel/internal/application"
	"github.com/bnema/nodetel/internal/ports"
	"github.com/bnema/nodetel/internal/wire"
	"github.com/spf13/cobra"
)

var errSubmissionRejected = errors.New("submission rejected")

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func newValidateCmd(app *app) *cobra.Command {
	var round uint64
	var sender string
	var at string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "validate [PAYLOAD|-]",
		Short: "Check a received record and print the verdict",
		Long:  "validate accepts optimized, legacy and plain records. The payload is read from the argument, or from stdin when the argument is \"-\" or missing. The exit status is 1 when the record is rejected.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := readPayload(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}

			var clock ports.Clock = app.clock
			if at != "" {
				instant, err := time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("parse --at: %w", err)
				}
				clock = fixedClock{now: instant}
			}

			validator := application.NewSubmissionValidator(clock, app.cfg.Validator.Options(), app.log)
			verdict := validator.Inspect(payload, round, sender)

			if asJSON {
				if err := writeJSON(cmd.OutOrStdout(), verdictOutput{
					Accepted:   verdict.Accepted,
					Generation: string(verdict.Generation),
					Reason:     verdict.Reason,
					Round:      round,
					Sender:     sender,
				}); err != nil {
					return err
				}
			} else {
				rendered, err := app.verdictRenderer(verdict, reportadapter.RenderOptions{Round: round, Sender: sender})
				if err != nil {
					return fmt.Errorf("render verdict: %w", err)
				}
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), rendered); err != nil {
					return err
				}
			}

			if !verdict.Accepted {
				return errSubmissionRejected
			}
			return nil
		},
	}

	cmd.Flags().Uint64Var(&round, "round", 0, "Round the record is validated in")
	cmd.Flags().StringVar(&sender, "sender", "", "Expected sender id (default: not checked)")
	cmd.Flags().StringVar(&at, "at", "", "Validate as of this RFC3339 instant instead of now")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")
	_ = cmd.MarkFlagRequired("round")

	return cmd
}

// readPayload bounds what it takes from stdin; anything past the wire ceiling
// is rejected as oversized either way.
func readPayload(stdin io.Reader, args []string) (string, error) {
	if len(args) == 1 && args[0] != "-" {
		return args[0], nil
	}

	data, err := io.ReadAll(io.LimitReader(stdin, 4*wire.MaxPayloadBytes))
	if err != nil {
		return "", fmt.Errorf("read payload from stdin: %w", err)
	}

	return strings.TrimRight(string(data), "\r\n"), nil
}
