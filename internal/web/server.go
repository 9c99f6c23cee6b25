// Package web serves the latest orientation, the stored history and the
// history export over HTTP, with a WebSocket that streams history snapshots.
package web

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jwulff/orient/internal/db"
	"github.com/jwulff/orient/internal/export"
	"github.com/jwulff/orient/internal/sampler"
)

//go:embed static
var staticFiles embed.FS

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // local dashboard, any origin
	},
}

// Server exposes a store and latest-reading holder over HTTP.
type Server struct {
	store  *db.Store
	latest *sampler.Latest
	mux    *http.ServeMux
}

// HistorySnapshot is the WebSocket message sent on every store change.
type HistorySnapshot struct {
	Count    int          `json:"count"`
	Readings []db.Reading `json:"readings"`
}

// New builds a Server and registers its routes.
func New(store *db.Store, latest *sampler.Latest) *Server {
	s := &Server{store: store, latest: latest, mux: http.NewServeMux()}

	static, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}

	s.mux.HandleFunc("GET /api/orientation", s.handleOrientation)
	s.mux.HandleFunc("GET /api/history", s.handleHistory)
	s.mux.HandleFunc("GET /api/export", s.handleExport)
	s.mux.HandleFunc("GET /ws/history", s.handleHistoryWS)
	s.mux.Handle("GET /", http.FileServerFS(static))
	return s
}

// Handler returns the server's routes.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ListenAndServe serves on addr until ctx is done, then shuts down.
// Open WebSocket streams end with ctx.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	slog.Info("web server listening", "addr", ln.Addr().String())

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), writeWait)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleOrientation(w http.ResponseWriter, r *http.Request) {
	if !s.latest.Seen() {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, s.latest.Get())
}

// handleHistory returns the stored history, or the newest ?limit= readings.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	var (
		readings []db.Reading
		err      error
	)
	if v := r.URL.Query().Get("limit"); v != "" {
		n, convErr := strconv.Atoi(v)
		if convErr != nil || n < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		readings, err = s.store.Tail(r.Context(), n)
	} else {
		readings, err = s.store.All(r.Context())
	}
	if err != nil {
		slog.Error("history query failed", "err", err)
		http.Error(w, "history unavailable", http.StatusInternalServerError)
		return
	}
	writeJSON(w, readings)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	readings, err := s.store.All(r.Context())
	if err != nil {
		slog.Error("export query failed", "err", err)
		http.Error(w, "history unavailable", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", export.MIMEType+"; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName))
	if err := export.WriteHistory(w, readings); err != nil {
		slog.Warn("export write failed", "err", err)
	}
}

// handleHistoryWS streams a HistorySnapshot for the current history and
// again after every change until the client goes away.
func (s *Server) handleHistoryWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Hijacked connections don't cancel the request context; watch reads.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for snap := range s.store.Subscribe(ctx) {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(HistorySnapshot{Count: len(snap), Readings: snap}); err != nil {
			slog.Debug("websocket write failed", "err", err)
			return
		}
	}

	conn.SetWriteDeadline(time.Now().Add(writeWait))
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
}

func writeJSON(w http.ResponseWriter, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		slog.Error("json encode failed", "err", err)
		http.Error(w, "encode response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(buf.Bytes())
}
