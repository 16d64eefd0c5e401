package cmd

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

const annotationSkipWire = "nodetel/skip-wire"

type rootOptions struct {
	configFile string
	logLevel   string
}

// Run executes the CLI and returns the process exit code.
func Run(args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd, app := newRootCmd()
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	err := rootCmd.ExecuteContext(ctx)
	if closeErr := app.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	if err != nil {
		return 1
	}

	return 0
}

func newRootCmd() (*cobra.Command, *app) {
	var opts rootOptions
	wired := &app{}

	rootCmd := &cobra.Command{
		Use:           "nodetel",
		Short:         "nodetel: change-triggered node telemetry",
		Long:          "nodetel encodes one compact telemetry record per reporting round, sending static hardware facts only when they changed, and validates records received from other nodes.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Annotations[annotationSkipWire] == "true" {
				return nil
			}

			a, err := wireApp(opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			*wired = *a
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "Config file (default: $XDG_CONFIG_HOME/nodetel/config.toml)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: trace, debug, info, warn, error")

	rootCmd.AddCommand(
		newVersionCmd(),
		newRoundCmd(wired),
		newValidateCmd(wired),
		newSnapshotCmd(wired),
		newCacheCmd(wired),
		newLivenessCmd(wired),
	)

	return rootCmd, wired
}
