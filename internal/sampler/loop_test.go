package sampler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwulff/orient/internal/db"
)

// recordingStore collects inserts and assigns sequential ids.
type recordingStore struct {
	mu   sync.Mutex
	rows []db.Reading
	err  error
}

func (s *recordingStore) Insert(_ context.Context, r db.Reading) (db.Reading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return db.Reading{}, s.err
	}
	r.ID = int64(len(s.rows) + 1)
	s.rows = append(s.rows, r)
	return r, nil
}

func (s *recordingStore) snapshot() []db.Reading {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]db.Reading(nil), s.rows...)
}

// startLoop runs a tick-driven loop and returns the tick channel, a channel
// of stored readings, and a stop func that waits for Run to return.
func startLoop(t *testing.T, store Inserter, latest *Latest, opts Options) (chan time.Time, chan db.Reading, func()) {
	t.Helper()

	tick := make(chan time.Time)
	saved := make(chan db.Reading, 16)
	opts.Tick = tick
	opts.OnInsert = func(r db.Reading) { saved <- r }

	ctx, cancel := context.WithCancel(context.Background())
	loop := New(store, latest, opts)
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	return tick, saved, func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("loop did not stop after cancel")
		}
	}
}

func next(t *testing.T, ch <-chan db.Reading) db.Reading {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("no reading stored")
		return db.Reading{}
	}
}

func TestLatestZeroValue(t *testing.T) {
	var l Latest
	assert.Equal(t, db.Reading{}, l.Get())
	assert.False(t, l.Seen())

	l.Set(db.Reading{X: 1, Y: 2, Z: 3})
	assert.True(t, l.Seen())
	assert.Equal(t, db.Reading{X: 1, Y: 2, Z: 3}, l.Get())
}

func TestLoopStoresDefaultBeforeAnySample(t *testing.T) {
	store := &recordingStore{}
	_, saved, stop := startLoop(t, store, &Latest{}, Options{})
	defer stop()

	r := next(t, saved)
	assert.Equal(t, db.Reading{ID: 1}, r)
}

func TestLoopLastWriteWins(t *testing.T) {
	store := &recordingStore{}
	latest := &Latest{}
	tick, saved, stop := startLoop(t, store, latest, Options{})
	defer stop()

	next(t, saved)

	latest.Set(db.Reading{X: 1, Y: 1, Z: 1})
	latest.Set(db.Reading{X: 2, Y: 2, Z: 2})
	tick <- time.Now()

	r := next(t, saved)
	assert.Equal(t, 2.0, r.X)
	assert.Equal(t, 2.0, r.Y)
	assert.Equal(t, 2.0, r.Z)
}

func TestLoopRepeatsUnchangedValues(t *testing.T) {
	store := &recordingStore{}
	latest := &Latest{}
	latest.Set(db.Reading{X: 0.5, Y: 0.5, Z: 9.8})
	tick, saved, stop := startLoop(t, store, latest, Options{})

	next(t, saved)
	tick <- time.Now()
	next(t, saved)
	tick <- time.Now()
	next(t, saved)
	stop()

	rows := store.snapshot()
	require.Len(t, rows, 3)
	for i, r := range rows {
		assert.Equal(t, int64(i+1), r.ID)
		assert.Equal(t, 9.8, r.Z)
	}
}

func TestLoopIgnoresHolderID(t *testing.T) {
	store := &recordingStore{}
	latest := &Latest{}
	latest.Set(db.Reading{ID: 99, X: 1})
	_, saved, stop := startLoop(t, store, latest, Options{})
	defer stop()

	r := next(t, saved)
	assert.Equal(t, int64(1), r.ID)
}

func TestLoopSkipUnchanged(t *testing.T) {
	store := &recordingStore{}
	latest := &Latest{}
	latest.Set(db.Reading{X: 1, Y: 1, Z: 1})

	tick, saved, stop := startLoop(t, store, latest, Options{SkipUnchanged: true, Tolerance: 0.01})

	next(t, saved)

	latest.Set(db.Reading{X: 1.005, Y: 1, Z: 1})
	tick <- time.Now()
	latest.Set(db.Reading{X: 2, Y: 1, Z: 1})
	tick <- time.Now()

	r := next(t, saved)
	assert.Equal(t, 2.0, r.X)
	stop()

	assert.Len(t, store.snapshot(), 2)
}

func TestLoopContinuesAfterInsertError(t *testing.T) {
	store := &recordingStore{err: errors.New("disk full")}
	tick := make(chan time.Time)
	ctx, cancel := context.WithCancel(context.Background())

	loop := New(store, &Latest{}, Options{Tick: tick})
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	tick <- time.Now()
	tick <- time.Now()
	cancel()
	require.NoError(t, <-done)

	inserted, _, failed := loop.Stats()
	assert.Zero(t, inserted)
	assert.GreaterOrEqual(t, failed, uint64(2))
}

func TestLoopExitsWhenAlreadyCancelled(t *testing.T) {
	store := &recordingStore{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, New(store, &Latest{}, Options{}).Run(ctx))
	assert.Empty(t, store.snapshot())
}

// TestLoopTickCount runs against a real store on a short interval and checks
// the number of rows matches the elapsed intervals.
func TestLoopTickCount(t *testing.T) {
	store, err := db.Open(":memory:")
	require.NoError(t, err)
	defer store.Close()

	const interval = 25 * time.Millisecond
	ctx, cancel := context.WithTimeout(context.Background(), 10*interval+interval/2)
	defer cancel()

	latest := &Latest{}
	latest.Set(db.Reading{X: 0.1, Y: 0.2, Z: 9.8})
	require.NoError(t, New(store, latest, Options{Interval: interval}).Run(ctx))

	rows, err := store.All(context.Background())
	require.NoError(t, err)

	// One immediate insert plus one per elapsed interval, give or take one
	// for scheduling at the boundaries.
	assert.InDelta(t, 11, len(rows), 2)
	for i, r := range rows {
		assert.Equal(t, int64(i+1), r.ID)
		assert.Equal(t, 9.8, r.Z)
	}
}
