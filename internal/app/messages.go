package app

import "github.com/jwulff/orient/internal/db"

// LiveTickMsg carries the most recent sensor reading for the live screen.
type LiveTickMsg struct {
	Reading db.Reading
	Seen    bool // false until the sensor has delivered a sample
}

// HistoryMsg carries a full snapshot of stored readings in insertion order.
type HistoryMsg struct {
	Readings []db.Reading
}

// HistoryClosedMsg is sent when the history subscription ends.
type HistoryClosedMsg struct{}

// ExportDoneMsg reports a finished history export.
type ExportDoneMsg struct {
	Path string
	Rows int
}

// ExportErrorMsg reports a failed history export.
type ExportErrorMsg struct {
	Err error
}

// SensorErrorMsg is sent when the sensor source stops with an error.
type SensorErrorMsg struct {
	Err error
}

// ClearTransientErrorMsg clears a transient error after a timeout.
type ClearTransientErrorMsg struct{}
