package cli

import (
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jwulff/orient/internal/app"
)

// NewUICommand creates the ui command, the same as running orient bare.
func NewUICommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "ui",
		Short:        "Show live readings and the history chart (default)",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUI(cmd, rootOpts)
		},
	}
}

func runUI(cmd *cobra.Command, opts *RootOptions) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}

	// The terminal belongs to the UI; logs go to a file.
	logPath := cfg.LogFile
	if logPath == "" {
		logPath = filepath.Join(os.TempDir(), "orient.log")
	}
	logFile, err := tea.LogToFile(logPath, "orient")
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()
	setupLogger(logFile, opts.Verbose)

	s, err := openSession(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	exportDir := cfg.Export.Dir
	model := app.New(ctx, app.Options{
		Store:     s.store,
		Latest:    s.latest,
		ExportDir: exportDir,
		Source:    cfg.Source.Kind,
		StoreErr:  s.storeErr,
	})
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	g, gctx := errgroup.WithContext(ctx)
	s.start(gctx, g, func(err error) {
		p.Send(app.SensorErrorMsg{Err: err})
	})
	if s.sensorErr != nil {
		go p.Send(app.SensorErrorMsg{Err: s.sensorErr})
	}

	_, runErr := p.Run()
	interrupted := ctx.Err() != nil
	stop()
	g.Wait()

	if runErr != nil && !interrupted {
		return fmt.Errorf("run tui: %w", runErr)
	}
	return nil
}
