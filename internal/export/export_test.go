package export

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwulff/orient/internal/db"
)

func openStore(t *testing.T) *db.Store {
	t.Helper()
	s, err := db.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestWriteHistorySingleReading(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteHistory(&buf, []db.Reading{{ID: 1, X: 0.1, Y: 0.2, Z: 9.8}}))
	assert.Equal(t, "0.1,0.2,9.8\n", buf.String())
}

func TestWriteHistoryGolden(t *testing.T) {
	readings := []db.Reading{
		{ID: 1, X: 0.1, Y: 0.2, Z: 9.8},
		{ID: 2, X: -1.5, Y: 3, Z: 0},
		{ID: 3},
		{ID: 4, X: 0.000123, Y: -98765.4321, Z: 9.80665},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteHistory(&buf, readings))

	g := goldie.New(t)
	g.Assert(t, "history", buf.Bytes())
}

func TestWriteHistoryEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteHistory(&buf, nil))
	assert.Empty(t, buf.String())
}

func TestSnapshotWritesStoreOrder(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	for _, r := range []db.Reading{{X: 3, Y: 2, Z: 1}, {X: 1, Y: 2, Z: 3}} {
		_, err := s.Insert(ctx, r)
		require.NoError(t, err)
	}

	dir := t.TempDir()
	path, rows, err := Snapshot(ctx, s, dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, FileName), path)
	assert.Equal(t, 2, rows)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "3,2,1\n1,2,3\n", string(data))
}

func TestSnapshotReplacesExistingFile(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("stale,stale,stale\n9,9,9\n"), 0o644))
	s.Insert(ctx, db.Reading{X: 1, Y: 1, Z: 1})

	path, _, err := Snapshot(ctx, s, dir)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "1,1,1\n", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files left behind")
}

func TestSnapshotDestinationUnavailable(t *testing.T) {
	s := openStore(t)

	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	_, _, err := Snapshot(context.Background(), s, filepath.Join(blocker, "sub"))
	assert.ErrorIs(t, err, ErrDestination)
}

func TestSnapshotUnavailableStoreWritesEmptyFile(t *testing.T) {
	dir := t.TempDir()

	path, rows, err := Snapshot(context.Background(), db.Unavailable(), dir)
	require.NoError(t, err)
	assert.Zero(t, rows)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestFollowRewritesOnEveryChange(t *testing.T) {
	s := openStore(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.Insert(ctx, db.Reading{X: 1, Y: 1, Z: 1})

	path := filepath.Join(t.TempDir(), FileName)
	writes := make(chan int, 8)
	done := make(chan error, 1)
	go func() { done <- Follow(ctx, s, path, func(n int) { writes <- n }) }()

	require.Equal(t, 1, <-writes)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "1,1,1\n", string(data))

	s.Insert(ctx, db.Reading{X: 2, Y: 2, Z: 2})
	require.Equal(t, 2, <-writes)
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "1,1,1\n2,2,2\n", string(data))

	cancel()
	assert.NoError(t, <-done)
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "0", FormatValue(0))
	assert.Equal(t, "9.8", FormatValue(9.8))
	assert.Equal(t, "-0.25", FormatValue(-0.25))
}
