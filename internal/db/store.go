package db

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is stored in PRAGMA user_version. There is no migration
// path yet; version 1 is the only layout.
const schemaVersion = 1

// DefaultPollInterval is how often subscribers check for rows written by
// other processes.
const DefaultPollInterval = time.Second

// Store is an append-only, id-ordered record of orientation readings.
//
// A Store with no database behind it (see Unavailable) accepts every call
// and does nothing: inserts are dropped and reads are empty.
type Store struct {
	db   *sql.DB
	poll time.Duration

	mu        sync.Mutex
	subs      map[chan struct{}]struct{}
	closed    chan struct{}
	closeOnce sync.Once
}

// Option configures a Store.
type Option func(*Store)

// WithPollInterval sets how often subscriptions look for rows inserted by
// other connections. Zero disables polling.
func WithPollInterval(d time.Duration) Option {
	return func(s *Store) { s.poll = d }
}

// DefaultDBPath returns the default database path.
func DefaultDBPath() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "orient", "orientation.sqlite")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "orient", "orientation.sqlite")
}

// Open opens or creates the database at path and applies the schema.
func Open(path string, opts ...Option) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}

	dsn := path
	if path != ":memory:" {
		dsn = fileDSN(path, "")
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// One connection serializes writers and keeps :memory: databases alive.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %q: %w", p, err)
		}
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return wrap(db, opts...), nil
}

// OpenReadOnly opens an existing database without write access.
func OpenReadOnly(path string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite", fileDSN(path, "mode=ro"))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	// Verify connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	return wrap(db, opts...), nil
}

// fileDSN builds a SQLite URI for path. The path is escaped so '?' and '#'
// in a directory name are not read as the query or fragment.
func fileDSN(path, query string) string {
	dsn := "file:" + (&url.URL{Path: path}).EscapedPath()
	if query != "" {
		dsn += "?" + query
	}
	return dsn
}

// Unavailable returns a store that silently ignores every operation. It
// stands in for a database that could not be opened.
func Unavailable() *Store {
	return wrap(nil)
}

func wrap(db *sql.DB, opts ...Option) *Store {
	s := &Store{
		db:     db,
		poll:   DefaultPollInterval,
		subs:   make(map[chan struct{}]struct{}),
		closed: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// Available reports whether the store is backed by a database.
func (s *Store) Available() bool {
	return s.db != nil
}

// Close closes the database connection and ends all subscriptions.
func (s *Store) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closed)
		if s.db != nil {
			err = s.db.Close()
		}
	})
	return err
}

// Insert appends r and returns it with its assigned ID.
func (s *Store) Insert(ctx context.Context, r Reading) (Reading, error) {
	if s.db == nil {
		return r, nil
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO OrientationData (xAngle, yAngle, zAngle) VALUES (?, ?, ?)`,
		r.X, r.Y, r.Z)
	if err != nil {
		return Reading{}, fmt.Errorf("insert reading: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Reading{}, fmt.Errorf("insert reading id: %w", err)
	}
	r.ID = id

	s.notify()
	return r, nil
}

// All returns every reading, ordered by ID ascending.
func (s *Store) All(ctx context.Context) ([]Reading, error) {
	if s.db == nil {
		return []Reading{}, nil
	}
	return s.query(ctx, `
		SELECT id, xAngle, yAngle, zAngle
		FROM OrientationData
		ORDER BY id ASC
	`)
}

// Tail returns the newest n readings, still ordered by ID ascending.
func (s *Store) Tail(ctx context.Context, n int) ([]Reading, error) {
	if s.db == nil || n <= 0 {
		return []Reading{}, nil
	}
	return s.query(ctx, `
		SELECT id, xAngle, yAngle, zAngle FROM (
			SELECT id, xAngle, yAngle, zAngle
			FROM OrientationData
			ORDER BY id DESC
			LIMIT ?
		) ORDER BY id ASC
	`, n)
}

// Latest returns the most recently stored reading, if any.
func (s *Store) Latest(ctx context.Context) (Reading, bool, error) {
	if s.db == nil {
		return Reading{}, false, nil
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, xAngle, yAngle, zAngle
		FROM OrientationData
		ORDER BY id DESC
		LIMIT 1
	`)

	var r Reading
	if err := row.Scan(&r.ID, &r.X, &r.Y, &r.Z); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Reading{}, false, nil
		}
		return Reading{}, false, fmt.Errorf("scan reading: %w", err)
	}
	return r, true, nil
}

// Count returns the number of stored readings.
func (s *Store) Count(ctx context.Context) (int, error) {
	if s.db == nil {
		return 0, nil
	}
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM OrientationData`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count readings: %w", err)
	}
	return n, nil
}

func (s *Store) query(ctx context.Context, q string, args ...any) ([]Reading, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query readings: %w", err)
	}
	defer rows.Close()

	readings := []Reading{}
	for rows.Next() {
		var r Reading
		if err := rows.Scan(&r.ID, &r.X, &r.Y, &r.Z); err != nil {
			return nil, fmt.Errorf("scan reading: %w", err)
		}
		readings = append(readings, r)
	}
	return readings, rows.Err()
}

func (s *Store) maxID(ctx context.Context) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(id), 0) FROM OrientationData`).Scan(&id)
	return id, err
}

// Subscribe returns a channel that receives the full ordered history right
// away and again after every change. Snapshots are read in one statement,
// so each is a complete prefix of the history. Wakeups coalesce: a slow
// receiver sees the newest state, not every intermediate one.
//
// The channel is closed when ctx is done or the store is closed.
func (s *Store) Subscribe(ctx context.Context) <-chan []Reading {
	out := make(chan []Reading)
	wake := make(chan struct{}, 1)

	s.mu.Lock()
	s.subs[wake] = struct{}{}
	s.mu.Unlock()

	go func() {
		defer close(out)
		defer s.unsubscribe(wake)

		var poll <-chan time.Time
		if s.db != nil && s.poll > 0 {
			t := time.NewTicker(s.poll)
			defer t.Stop()
			poll = t.C
		}

		last := int64(-1)
		emit := func() bool {
			snap, err := s.All(ctx)
			if err != nil {
				if ctx.Err() == nil {
					slog.Debug("history snapshot failed", "err", err)
				}
				return true
			}
			last = 0
			if n := len(snap); n > 0 {
				last = snap[n-1].ID
			}
			select {
			case out <- snap:
				return true
			case <-ctx.Done():
				return false
			case <-s.closed:
				return false
			}
		}

		if !emit() {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.closed:
				return
			case <-wake:
			case <-poll:
			}
			if s.db != nil {
				id, err := s.maxID(ctx)
				if err != nil || id == last {
					continue
				}
			}
			if !emit() {
				return
			}
		}
	}()

	return out
}

func (s *Store) notify() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (s *Store) unsubscribe(ch chan struct{}) {
	s.mu.Lock()
	delete(s.subs, ch)
	s.mu.Unlock()
}
