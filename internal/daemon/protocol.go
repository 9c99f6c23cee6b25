// Package daemon provides the client and protocol types for reading a sensor
// daemon over a Unix socket using NDJSON.
package daemon

// Event names streamed by the daemon.
const (
	EventAccel  = "accel"
	EventStatus = "status"
	EventError  = "error"
)

// Command is sent from a client to the daemon.
type Command struct {
	Cmd    string   `json:"cmd"`
	Sensor string   `json:"sensor,omitempty"`
	RateHz int      `json:"rateHz,omitempty"`
	Events []string `json:"events,omitempty"`
}

// Response is returned by the daemon after processing a command.
type Response struct {
	OK      bool     `json:"ok"`
	Error   string   `json:"error,omitempty"`
	Sensors []string `json:"sensors,omitempty"`
	Sensor  string   `json:"sensor,omitempty"`
	RateHz  *int     `json:"rateHz,omitempty"`
}

// Event is streamed from the daemon to subscribed clients. Accel events
// carry at least three values (x, y, z); any further values are extra axes
// or metadata the client may ignore.
type Event struct {
	Event     string    `json:"event"`
	Sensor    string    `json:"sensor,omitempty"`
	Values    []float64 `json:"values,omitempty"`
	Accuracy  *int      `json:"accuracy,omitempty"`
	Timestamp *float64  `json:"timestamp,omitempty"`
	Message   string    `json:"message,omitempty"`
}
