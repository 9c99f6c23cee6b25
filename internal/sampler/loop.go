package sampler

import (
	"context"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"github.com/jwulff/orient/internal/db"
)

// DefaultInterval is the persistence cadence.
const DefaultInterval = time.Second

// Inserter stores one reading.
type Inserter interface {
	Insert(ctx context.Context, r db.Reading) (db.Reading, error)
}

// Options configures a Loop.
type Options struct {
	// Interval between inserts. Zero means DefaultInterval.
	Interval time.Duration

	// SkipUnchanged drops a tick when every axis is within Tolerance of the
	// last stored reading. Off by default: every tick is stored.
	SkipUnchanged bool
	Tolerance     float64

	// OnInsert is called with each stored reading.
	OnInsert func(db.Reading)

	// Tick replaces the internal ticker. Used by tests.
	Tick <-chan time.Time
}

// Loop copies the latest reading into a store once per interval.
type Loop struct {
	store  Inserter
	latest *Latest
	opts   Options

	inserted atomic.Uint64
	skipped  atomic.Uint64
	failed   atomic.Uint64
}

// New creates a Loop that reads from latest and writes to store.
func New(store Inserter, latest *Latest, opts Options) *Loop {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	return &Loop{store: store, latest: latest, opts: opts}
}

// Run stores the current reading immediately and then once per interval,
// whether or not it changed, until ctx is done. It always returns nil; a
// failed insert is logged and the loop moves on to the next tick.
func (l *Loop) Run(ctx context.Context) error {
	tick := l.opts.Tick
	if tick == nil {
		ticker := time.NewTicker(l.opts.Interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	slog.Debug("sampling loop started", "interval", l.opts.Interval, "skipUnchanged", l.opts.SkipUnchanged)

	var last db.Reading
	var stored bool
	for {
		if ctx.Err() != nil {
			break
		}

		r := l.latest.Get()
		r.ID = 0
		if l.opts.SkipUnchanged && stored && within(last, r, l.opts.Tolerance) {
			l.skipped.Add(1)
		} else if saved, err := l.store.Insert(ctx, r); err != nil {
			if ctx.Err() == nil {
				l.failed.Add(1)
				slog.Warn("store reading failed", "err", err)
			}
		} else {
			l.inserted.Add(1)
			last, stored = r, true
			if l.opts.OnInsert != nil {
				l.opts.OnInsert(saved)
			}
		}

		select {
		case <-ctx.Done():
		case <-tick:
		}
	}

	inserted, skipped, failed := l.Stats()
	slog.Debug("sampling loop stopped", "inserted", inserted, "skipped", skipped, "failed", failed)
	return nil
}

// Stats returns counts of stored, skipped and failed ticks.
func (l *Loop) Stats() (inserted, skipped, failed uint64) {
	return l.inserted.Load(), l.skipped.Load(), l.failed.Load()
}

func within(a, b db.Reading, tol float64) bool {
	return math.Abs(a.X-b.X) <= tol &&
		math.Abs(a.Y-b.Y) <= tol &&
		math.Abs(a.Z-b.Z) <= tol
}
