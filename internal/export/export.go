// Package export writes stored orientation history to a plain-text file,
// one "x,y,z" line per reading in id order.
package export

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/jwulff/orient/internal/db"
)

// FileName is the name of the export file.
const FileName = "orientation_history.txt"

// MIMEType of the export file.
const MIMEType = "text/plain"

// ErrDestination reports that the export file could not be created.
var ErrDestination = errors.New("export destination unavailable")

// History is the read side of the store used by exports.
type History interface {
	All(ctx context.Context) ([]db.Reading, error)
	Subscribe(ctx context.Context) <-chan []db.Reading
}

// DefaultDir returns the downloads-like directory exports go to.
func DefaultDir() string {
	if dir := os.Getenv("XDG_DOWNLOAD_DIR"); dir != "" {
		return dir
	}
	if home, err := os.UserHomeDir(); err == nil {
		downloads := filepath.Join(home, "Downloads")
		if fi, err := os.Stat(downloads); err == nil && fi.IsDir() {
			return downloads
		}
	}
	return "."
}

// FormatValue renders one axis value the way it appears in the file.
func FormatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// WriteHistory writes readings to w as "x,y,z\n" lines with no header.
func WriteHistory(w io.Writer, readings []db.Reading) error {
	bw := bufio.NewWriter(w)
	cw := csv.NewWriter(bw)

	row := make([]string, 3)
	for _, r := range readings {
		row[0], row[1], row[2] = FormatValue(r.X), FormatValue(r.Y), FormatValue(r.Z)
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row %d: %w", r.ID, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("write history: %w", err)
	}
	return bw.Flush()
}

// Snapshot writes the current history to dir/FileName and returns the path
// and number of rows written.
func Snapshot(ctx context.Context, h History, dir string) (string, int, error) {
	readings, err := h.All(ctx)
	if err != nil {
		return "", 0, fmt.Errorf("read history: %w", err)
	}

	path := filepath.Join(dir, FileName)
	if err := writeFile(path, readings); err != nil {
		return "", 0, err
	}

	slog.Info("history exported", "path", path, "rows", len(readings))
	return path, len(readings), nil
}

// Follow rewrites path with the full history every time it changes, until
// ctx is done. onWrite, if set, is called with the row count after each
// rewrite. Each rewrite replaces the file; rows are never appended twice.
func Follow(ctx context.Context, h History, path string, onWrite func(rows int)) error {
	for readings := range h.Subscribe(ctx) {
		if err := writeFile(path, readings); err != nil {
			return err
		}
		slog.Debug("history export refreshed", "path", path, "rows", len(readings))
		if onWrite != nil {
			onWrite(len(readings))
		}
	}
	return nil
}

// writeFile replaces path atomically with the formatted readings.
func writeFile(path string, readings []db.Reading) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrDestination, err)
	}

	tmp, err := os.CreateTemp(dir, "."+FileName+".*")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDestination, err)
	}
	defer os.Remove(tmp.Name())

	if err := WriteHistory(tmp, readings); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close export: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod export: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("%w: %v", ErrDestination, err)
	}
	return nil
}
