// Package httpapi mirrors the memory operations over plain HTTP + JSON.
//
// Routes:
//
//	GET  /health
//	GET  /search?q=&limit=20
//	GET  /timeline?observation_id=&window=10
//	GET  /inject?q=&limit=12&project=
//	POST /get_observations   {"ids": [...]}
//	POST /sessions           {"project": "", "meta": {}}
//	POST /log                {"session","kind","tool_name","text","tags"}
//	POST /end_session        {"session": ""}
//	POST /hook/{event}       hook payload
//
// Any other method/path pair answers 404 {"error":"not_found"}.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/HendryAvila/trae-mem/internal/app"
)

// maxBodyBytes bounds POST bodies.
const maxBodyBytes = 8 << 20

// Server is the HTTP mirror.
type Server struct {
	app       *app.App
	addr      string
	server    *http.Server
	listener  net.Listener
	logger    *slog.Logger
	startedAt time.Time
}

// New creates a Server listening on host:port once started.
func New(a *app.App, host string, port int) *Server {
	logger := a.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		app:    a,
		addr:   net.JoinHostPort(host, strconv.Itoa(port)),
		logger: logger.With("component", "httpapi"),
	}
}

// Handler returns the routing handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.route)
	return s.recoverMiddleware(mux)
}

// Start binds the listener and serves in the background. Bind errors are
// returned; later serve errors are logged.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("httpapi: listen %s: %w", s.addr, err)
	}
	s.listener = ln
	s.startedAt = time.Now()
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server error", "error", err)
		}
	}()
	s.logger.Info("http server started", "address", s.Addr())
	return nil
}

// Addr returns the bound address, or the configured one before Start.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	s.logger.Info("http server stopping")
	return s.server.Shutdown(ctx)
}

// Run starts the server and blocks until ctx is cancelled, then shuts down
// with a bounded grace period.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.Stop(shutdownCtx)
}

func (s *Server) route(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	switch {
	case r.Method == http.MethodGet && path == "/health":
		s.handleHealth(w, r)
	case r.Method == http.MethodGet && path == "/search":
		s.handleSearch(w, r)
	case r.Method == http.MethodGet && path == "/timeline":
		s.handleTimeline(w, r)
	case r.Method == http.MethodGet && path == "/inject":
		s.handleInject(w, r)
	case r.Method == http.MethodPost && path == "/get_observations":
		s.handleGetObservations(w, r)
	case r.Method == http.MethodPost && path == "/sessions":
		s.handleStartSession(w, r)
	case r.Method == http.MethodPost && path == "/log":
		s.handleLog(w, r)
	case r.Method == http.MethodPost && path == "/end_session":
		s.handleEndSession(w, r)
	case r.Method == http.MethodPost && strings.HasPrefix(path, hookPrefix) && path != hookPrefix:
		s.handleHook(w, r, strings.TrimPrefix(path, hookPrefix))
	default:
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not_found"})
	}
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic in handler", "path", r.URL.Path, "panic", rec)
				writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal_error"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}
