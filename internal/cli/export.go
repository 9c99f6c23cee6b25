package cli

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jwulff/orient/internal/db"
	"github.com/jwulff/orient/internal/export"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	Dir    string
	Follow bool
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the stored history to " + export.FileName,
		Long: `Write the stored history to ` + export.FileName + `.

One line per reading, "x,y,z", oldest first. The file is replaced on each
export. With --follow the file is rewritten whenever a reading is stored,
until interrupted.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, rootOpts, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Dir, "dir", "d", "", "destination directory (default Downloads)")
	cmd.Flags().BoolVarP(&opts.Follow, "follow", "f", false, "keep the file updated as readings are stored")

	return cmd
}

func runExport(cmd *cobra.Command, rootOpts *RootOptions, opts *ExportOptions) error {
	setupLogger(cmd.ErrOrStderr(), rootOpts.Verbose)

	cfg, err := rootOpts.loadConfig()
	if err != nil {
		return err
	}

	dir := opts.Dir
	if dir == "" {
		dir = cfg.Export.Dir
	}
	if dir == "" {
		dir = export.DefaultDir()
	}

	store, err := db.Open(cfg.DBPath, db.WithPollInterval(cfg.Sampling.PollInterval))
	if err != nil {
		slog.Error("store unavailable, exporting empty history", "path", cfg.DBPath, "err", err)
		store = db.Unavailable()
	}
	defer store.Close()

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	out := cmd.OutOrStdout()
	if opts.Follow {
		path := filepath.Join(dir, export.FileName)
		return export.Follow(ctx, store, path, func(rows int) {
			fmt.Fprintf(out, "wrote %d readings to %s\n", rows, path)
		})
	}

	path, rows, err := export.Snapshot(ctx, store, dir)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "wrote %d readings to %s\n", rows, path)
	return nil
}
