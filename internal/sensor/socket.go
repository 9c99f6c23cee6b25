package sensor

import (
	"context"
	"log/slog"
	"time"

	"github.com/jwulff/orient/internal/daemon"
)

// Socket reads accelerometer events from a sensor daemon over a Unix socket.
type Socket struct {
	Path   string
	Sensor string
	RateHz int
}

func (s *Socket) Run(ctx context.Context, h Handler) error {
	client, err := daemon.Connect(s.Path)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.Subscribe(s.Sensor, s.RateHz); err != nil {
		return err
	}
	slog.Info("subscribed to sensor daemon", "socket", s.Path, "sensor", s.Sensor)

	// ReadEvent blocks; closing the connection is what unblocks it.
	stop := context.AfterFunc(ctx, func() { client.Close() })
	defer stop()

	for {
		ev, err := client.ReadEvent()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		switch ev.Event {
		case daemon.EventAccel:
			h(Event{Values: ev.Values, Time: eventTime(ev.Timestamp)})
		case daemon.EventError:
			slog.Warn("sensor daemon error", "message", ev.Message)
		}
	}
}

// eventTime converts a daemon timestamp in fractional unix seconds.
func eventTime(ts *float64) time.Time {
	if ts == nil {
		return time.Now()
	}
	sec := int64(*ts)
	nsec := int64((*ts - float64(sec)) * 1e9)
	return time.Unix(sec, nsec)
}
