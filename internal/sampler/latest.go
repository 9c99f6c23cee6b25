// Package sampler turns pushed sensor readings into a fixed-rate stream of
// stored readings.
package sampler

import (
	"sync"

	"github.com/jwulff/orient/internal/db"
)

// Latest holds the most recent reading pushed by a sensor. Writes overwrite;
// nothing is queued. The zero value holds an all-zero reading.
type Latest struct {
	mu   sync.RWMutex
	r    db.Reading
	seen bool
}

// Set replaces the held reading.
func (l *Latest) Set(r db.Reading) {
	l.mu.Lock()
	l.r = r
	l.seen = true
	l.mu.Unlock()
}

// Get returns the held reading.
func (l *Latest) Get() db.Reading {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.r
}

// Seen reports whether Set has been called at least once.
func (l *Latest) Seen() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.seen
}
