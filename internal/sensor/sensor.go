// Package sensor adapts accelerometer feeds into pushed events.
//
// A Source delivers events at whatever rate its hardware or transport
// produces them. Consumers usually Bind a sampler.Latest as the handler and
// let the sampling loop decide what gets stored.
package sensor

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/jwulff/orient/internal/db"
	"github.com/jwulff/orient/internal/sampler"
)

// ErrNoSensor reports that no accelerometer is present or configured.
var ErrNoSensor = errors.New("no accelerometer available")

// StandardGravity in m/s².
const StandardGravity = 9.80665

// Event is one delivery from a sensor. Values holds x, y, z first; anything
// after that is ignored.
type Event struct {
	Values []float64
	Time   time.Time
}

// Reading converts the event to an unsaved reading. It reports false when
// fewer than three values are present or any of x, y, z is NaN or infinite.
func (e Event) Reading() (db.Reading, bool) {
	if len(e.Values) < 3 {
		return db.Reading{}, false
	}
	for _, v := range e.Values[:3] {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return db.Reading{}, false
		}
	}
	return db.Reading{X: e.Values[0], Y: e.Values[1], Z: e.Values[2]}, true
}

// Handler receives events. It is called from the source's goroutine and
// must not block.
type Handler func(Event)

// Source pushes events to a handler until ctx is done or the feed fails.
type Source interface {
	Run(ctx context.Context, h Handler) error
}

// Bind returns a handler that overwrites latest with every valid event.
func Bind(latest *sampler.Latest) Handler {
	return func(ev Event) {
		if r, ok := ev.Reading(); ok {
			latest.Set(r)
		}
	}
}
