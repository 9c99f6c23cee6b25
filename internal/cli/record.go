package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// NewRecordCommand creates the headless record command.
func NewRecordCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "record",
		Short: "Sample the accelerometer into the database without a UI",
		Long: `Sample the accelerometer into the database without a UI.

Stores the latest reading once per interval until interrupted.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecord(cmd, rootOpts)
		},
	}
}

func runRecord(cmd *cobra.Command, opts *RootOptions) error {
	setupLogger(cmd.ErrOrStderr(), opts.Verbose)

	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}

	s, err := openSession(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	s.start(gctx, g, nil)
	return g.Wait()
}

// signalContext is parent cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
