package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/jwulff/orient/internal/db"
	"github.com/jwulff/orient/internal/export"
	"github.com/jwulff/orient/internal/mcpserver"
)

// NewMCPCommand creates the mcp command, an MCP server over stdio.
func NewMCPCommand(rootOpts *RootOptions, version string) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the stored history as MCP tools over stdio",
		Long: `Serve the stored history as MCP tools over stdio.

The database is opened read-only; run record or the TUI alongside to keep
it growing.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMCP(cmd, rootOpts, version)
		},
	}
}

func runMCP(cmd *cobra.Command, opts *RootOptions, version string) error {
	// stdout carries the protocol.
	setupLogger(cmd.ErrOrStderr(), opts.Verbose)

	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}

	store, err := db.OpenReadOnly(cfg.DBPath, db.WithPollInterval(cfg.Sampling.PollInterval))
	if err != nil {
		slog.Error("store unavailable", "path", cfg.DBPath, "err", err)
		store = db.Unavailable()
	}
	defer store.Close()

	dir := cfg.Export.Dir
	if dir == "" {
		dir = export.DefaultDir()
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	return mcpserver.New(store, dir, version).Serve(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
}
