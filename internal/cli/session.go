package cli

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/jwulff/orient/internal/config"
	"github.com/jwulff/orient/internal/db"
	"github.com/jwulff/orient/internal/sampler"
	"github.com/jwulff/orient/internal/sensor"
)

// session is one recording run: a store, a sensor feeding the latest
// holder, and the sampling loop persisting it.
type session struct {
	cfg       *config.Config
	store     *db.Store
	storeErr  error
	latest    *sampler.Latest
	source    sensor.Source
	sensorErr error
	loop      *sampler.Loop
}

// openSession opens the store and sensor. A store that cannot be opened is
// replaced by db.Unavailable and a missing sensor leaves the latest holder
// at its zero reading; both are logged and the session still runs.
func openSession(cfg *config.Config) (*session, error) {
	s := &session{cfg: cfg, latest: &sampler.Latest{}}

	store, err := db.Open(cfg.DBPath, db.WithPollInterval(cfg.Sampling.PollInterval))
	if err != nil {
		slog.Error("store unavailable, readings will not be saved", "path", cfg.DBPath, "err", err)
		store, s.storeErr = db.Unavailable(), err
	}
	s.store = store

	src, err := sensor.Open(cfg.Source)
	switch {
	case errors.Is(err, sensor.ErrNoSensor):
		slog.Warn("no sensor available, storing default readings", "source", cfg.Source.Kind, "err", err)
		s.sensorErr = err
	case err != nil:
		store.Close()
		return nil, err
	}
	s.source = src

	s.loop = sampler.New(store, s.latest, sampler.Options{
		Interval:      cfg.Sampling.Interval,
		SkipUnchanged: cfg.Sampling.SkipUnchanged,
		Tolerance:     cfg.Sampling.Tolerance,
	})
	return s, nil
}

// start launches the sensor and sampling loop on g. A sensor that stops
// with an error is reported to onSensorErr; sampling carries on with the
// last reading.
func (s *session) start(ctx context.Context, g *errgroup.Group, onSensorErr func(error)) {
	if s.source != nil {
		g.Go(func() error {
			err := s.source.Run(ctx, sensor.Bind(s.latest))
			if err != nil && ctx.Err() == nil {
				slog.Error("sensor stopped", "source", s.cfg.Source.Kind, "err", err)
				if onSensorErr != nil {
					onSensorErr(err)
				}
			}
			return nil
		})
	}
	g.Go(func() error {
		return s.loop.Run(ctx)
	})
}

func (s *session) Close() error {
	inserted, skipped, failed := s.loop.Stats()
	slog.Info("session closed", "inserted", inserted, "skipped", skipped, "failed", failed)
	return s.store.Close()
}
