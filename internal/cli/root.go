// Package cli implements the orient command tree.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/jwulff/orient/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	DBPath     string
	Source     string
	Interval   time.Duration
	LogFile    string
	Verbose    bool
}

// NewRootCommand creates the root command. Without a subcommand it runs the
// TUI.
func NewRootCommand(version string) *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:          "orient",
		Short:        "Record and browse accelerometer orientation history",
		Long:         "Samples an accelerometer once per interval into SQLite, charts the history and exports it as orientation_history.txt.",
		Version:      version,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUI(cmd, opts)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (default "+config.DefaultPath()+")")
	cmd.PersistentFlags().StringVar(&opts.DBPath, "db", "", "SQLite database path")
	cmd.PersistentFlags().StringVar(&opts.Source, "source", "", fmt.Sprintf("sensor source %v", config.SourceKinds))
	cmd.PersistentFlags().DurationVar(&opts.Interval, "interval", 0, "sampling interval")
	cmd.PersistentFlags().StringVar(&opts.LogFile, "log", "", "log file for the TUI")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(NewUICommand(opts))
	cmd.AddCommand(NewRecordCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewMCPCommand(opts, version))

	return cmd
}

// loadConfig reads the config file and applies flag overrides.
func (o *RootOptions) loadConfig() (*config.Config, error) {
	path := o.ConfigPath
	if path == "" {
		path = config.DefaultPath()
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if o.DBPath != "" {
		cfg.DBPath = o.DBPath
	}
	if o.Source != "" {
		cfg.Source.Kind = o.Source
	}
	if o.Interval != 0 {
		cfg.Sampling.Interval = o.Interval
	}
	if o.LogFile != "" {
		cfg.LogFile = o.LogFile
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setupLogger installs a text slog handler writing to w as the default.
func setupLogger(w io.Writer, verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}
