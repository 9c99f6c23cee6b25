package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwulff/orient/internal/config"
	"github.com/jwulff/orient/internal/db"
	"github.com/jwulff/orient/internal/export"
)

// run executes the root command with args and a config path that does not
// exist, so only defaults and flags apply.
func run(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()

	cmd := NewRootCommand("test")
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append(args, "--config", filepath.Join(t.TempDir(), "missing.yaml")))

	err := cmd.ExecuteContext(ctx)
	return out.String(), err
}

func seedDB(t *testing.T, readings ...db.Reading) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "orientation.sqlite")
	store, err := db.Open(path)
	require.NoError(t, err)
	defer store.Close()

	for _, r := range readings {
		_, err := store.Insert(context.Background(), r)
		require.NoError(t, err)
	}
	return path
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand("1.2.3")
	require.NotNil(t, cmd)
	assert.Equal(t, "orient", cmd.Use)
	assert.Equal(t, "1.2.3", cmd.Version)
	assert.Contains(t, cmd.Long, "orientation_history.txt")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand("test")
	commands := []string{"ui", "record", "serve", "export", "mcp"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand("test")

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	for _, name := range []string{"config", "db", "source", "interval", "log"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), "missing --%s", name)
	}
}

func TestExportCommandFlags(t *testing.T) {
	cmd := NewRootCommand("test")
	exportCmd, _, err := cmd.Find([]string{"export"})
	require.NoError(t, err)

	dirFlag := exportCmd.Flags().Lookup("dir")
	require.NotNil(t, dirFlag)
	assert.Equal(t, "d", dirFlag.Shorthand)

	followFlag := exportCmd.Flags().Lookup("follow")
	require.NotNil(t, followFlag)
	assert.Equal(t, "false", followFlag.DefValue)
}

func TestLoadConfigOverrides(t *testing.T) {
	opts := &RootOptions{
		ConfigPath: filepath.Join(t.TempDir(), "missing.yaml"),
		DBPath:     "/tmp/x.sqlite",
		Source:     config.SourceNone,
		Interval:   250 * time.Millisecond,
		LogFile:    "/tmp/orient.log",
	}

	cfg, err := opts.loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/x.sqlite", cfg.DBPath)
	assert.Equal(t, config.SourceNone, cfg.Source.Kind)
	assert.Equal(t, 250*time.Millisecond, cfg.Sampling.Interval)
	assert.Equal(t, "/tmp/orient.log", cfg.LogFile)
}

func TestLoadConfigRejectsUnknownSource(t *testing.T) {
	opts := &RootOptions{
		ConfigPath: filepath.Join(t.TempDir(), "missing.yaml"),
		Source:     "gps",
	}
	_, err := opts.loadConfig()
	assert.ErrorContains(t, err, "source.kind")
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("source:\n  kind: none\nsampling:\n  interval: 2s\n"), 0o644))

	cfg, err := (&RootOptions{ConfigPath: path, Interval: time.Second}).loadConfig()
	require.NoError(t, err)
	assert.Equal(t, config.SourceNone, cfg.Source.Kind)
	assert.Equal(t, time.Second, cfg.Sampling.Interval, "flag should override the file")
}

func TestExportCommand(t *testing.T) {
	dbPath := seedDB(t, db.Reading{X: 0.1, Y: 0.2, Z: 9.8}, db.Reading{X: -1.5, Y: 3, Z: 0})
	dir := t.TempDir()

	out, err := run(t, context.Background(), "export", "--db", dbPath, "--dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote 2 readings")

	data, err := os.ReadFile(filepath.Join(dir, export.FileName))
	require.NoError(t, err)
	assert.Equal(t, "0.1,0.2,9.8\n-1.5,3,0\n", string(data))
}

func TestExportCommandDestinationError(t *testing.T) {
	dbPath := seedDB(t, db.Reading{X: 1})
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	_, err := run(t, context.Background(), "export", "--db", dbPath, "--dir", filepath.Join(blocker, "sub"))
	assert.ErrorIs(t, err, export.ErrDestination)
}

func TestExportFollowStopsOnCancel(t *testing.T) {
	dbPath := seedDB(t, db.Reading{X: 1, Y: 2, Z: 3})
	dir := t.TempDir()

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	out, err := run(t, ctx, "export", "--db", dbPath, "--dir", dir, "--follow")
	require.NoError(t, err)
	assert.Contains(t, out, "wrote 1 readings")

	data, err := os.ReadFile(filepath.Join(dir, export.FileName))
	require.NoError(t, err)
	assert.Equal(t, "1,2,3\n", string(data))
}

func TestRecordCommandStoresReadings(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "orientation.sqlite")

	ctx, cancel := context.WithTimeout(context.Background(), 400*time.Millisecond)
	defer cancel()

	_, err := run(t, ctx, "record", "--db", dbPath, "--source", "mock", "--interval", "50ms")
	require.NoError(t, err)

	store, err := db.Open(dbPath)
	require.NoError(t, err)
	defer store.Close()

	n, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, 3)
}

func TestRecordWithoutSensorStoresDefaults(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "orientation.sqlite")

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	_, err := run(t, ctx, "record", "--db", dbPath, "--source", "none", "--interval", "50ms")
	require.NoError(t, err)

	store, err := db.Open(dbPath)
	require.NoError(t, err)
	defer store.Close()

	rows, err := store.All(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, rows)
	for _, r := range rows {
		assert.Equal(t, db.Reading{ID: r.ID}, r)
	}
}

func TestRecordWithAbsentIMUStoresDefaults(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "orientation.sqlite")

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	_, err := run(t, ctx, "record", "--db", dbPath, "--source", "mpu9250", "--interval", "50ms")
	require.NoError(t, err, "a missing IMU should not abort the session")

	store, err := db.Open(dbPath)
	require.NoError(t, err)
	defer store.Close()

	n, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Positive(t, n)
}

func TestServeCommandStopsOnCancel(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "orientation.sqlite")

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	_, err := run(t, ctx, "serve", "--db", dbPath, "--source", "none", "--addr", "127.0.0.1:0")
	assert.NoError(t, err)
}
