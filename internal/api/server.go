// Package api serves the simulator over HTTP: a JSON API for the game and
// the scenario library, plus a websocket stream of game events.
package api

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/semih-duru/agent-capabilities-simulator/internal/llm"
	"github.com/semih-duru/agent-capabilities-simulator/internal/logging"
	"github.com/semih-duru/agent-capabilities-simulator/internal/ratelimit"
	"github.com/semih-duru/agent-capabilities-simulator/internal/scenario"
	"github.com/semih-duru/agent-capabilities-simulator/internal/session"
)

// maxBodyBytes caps request bodies, including imported documents.
const maxBodyBytes = 16 << 20

// Options wires the server's collaborators.
type Options struct {
	Sessions  *session.Manager
	Scenarios scenario.Library

	// Generator extracts scenarios from imported documents. Nil or an
	// unavailable generator disables the import route.
	Generator llm.Generator

	// Hub streams events; nil disables the websocket route.
	Hub *Hub

	// Limiter throttles requests per client address. Nil disables it.
	Limiter *ratelimit.Limiter

	// ExtractTimeout bounds a single scenario extraction. Zero means none.
	ExtractTimeout time.Duration

	Logger *slog.Logger
}

// Server is the HTTP front end.
type Server struct {
	opts       Options
	logger     *slog.Logger
	httpServer *http.Server
	listener   net.Listener
	mu         sync.Mutex
	addr       string
}

// NewServer creates a server. Sessions and Scenarios are required.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	return &Server{opts: opts, logger: logger}
}

// Addr returns the address the server is listening on.
// Returns empty string if the server hasn't started yet.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Handler returns the routed, middleware-wrapped handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)

	mux.HandleFunc("POST /api/game/new", s.handleNewGame)
	mux.HandleFunc("GET /api/game/state", s.handleState)
	mux.HandleFunc("POST /api/game/advance", s.handleAdvance)
	mux.HandleFunc("POST /api/game/end", s.handleEnd)
	mux.HandleFunc("GET /api/decisions/available", s.handleDecisions)
	mux.HandleFunc("POST /api/decision/make", s.handleDecide)
	mux.HandleFunc("POST /api/production/launch", s.handleLaunch)

	mux.HandleFunc("GET /api/scenarios", s.handleScenarios)
	mux.HandleFunc("GET /api/scenarios/{id}", s.handleScenario)
	mux.HandleFunc("POST /api/scenarios/add", s.handleAddScenario)
	mux.HandleFunc("POST /api/scenarios/import", s.handleImport)

	if s.opts.Hub != nil {
		mux.Handle("GET /api/game/events/ws", s.opts.Hub)
	}

	return s.withLogging(s.withCORS(s.withRateLimit(mux)))
}

// ListenAndServe listens on addr and blocks until the context is cancelled.
// Shutdown is graceful; a clean shutdown returns nil.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	s.mu.Lock()
	s.listener = ln
	s.addr = ln.Addr().String()
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	s.mu.Unlock()

	s.logger.Info("api server listening", "addr", s.addr)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("api server shutdown", "error", err)
		}
	}()

	err = s.httpServer.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// statusRecorder captures the response status for request logging. It
// passes Hijack through so websocket upgrades keep working.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		level := slog.LevelDebug
		if rec.status >= 500 {
			level = slog.LevelWarn
		}
		s.logger.Log(r.Context(), level, "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) withRateLimit(next http.Handler) http.Handler {
	if s.opts.Limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/healthz" {
			next.ServeHTTP(w, r)
			return
		}
		key := clientKey(r)
		if !s.opts.Limiter.Allow(key) {
			if wait := s.opts.Limiter.RetryAfter(key); wait > 0 {
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			}
			writeError(w, http.StatusTooManyRequests, ratelimit.ErrLimited.Error())
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
