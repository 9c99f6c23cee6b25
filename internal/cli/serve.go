package cli

import (
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jwulff/orient/internal/web"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	Addr string
}

// NewServeCommand creates the serve command: record plus the web view.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{}

	cmd := &cobra.Command{
		Use:          "serve",
		Short:        "Record readings and serve them over HTTP and WebSocket",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, rootOpts, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (default from config, :8080)")

	return cmd
}

func runServe(cmd *cobra.Command, rootOpts *RootOptions, opts *ServeOptions) error {
	setupLogger(cmd.ErrOrStderr(), rootOpts.Verbose)

	cfg, err := rootOpts.loadConfig()
	if err != nil {
		return err
	}
	addr := cfg.Web.Addr
	if opts.Addr != "" {
		addr = opts.Addr
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
	g.Go(func() error {
		return web.New(s.store, s.latest).ListenAndServe(gctx, addr)
	})
	return g.Wait()
}
