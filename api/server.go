// Package api provides the HTTP REST and SSE surface of the cabin
// agent service.
//
// Endpoints:
//
//	POST /api/vibe/analyze   →  start (or supersede) a background ambience run, 202 + taskId
//	POST /api/vibe/simulate  →  start a run for a synthesized demo environment
//	POST /api/vibe/cancel    →  cancel the in-flight run for a session
//	GET  /api/vibe/status    →  in-flight run status for a session
//	GET  /api/vibe/messages  →  drain the session mailbox of finished-run outcomes
//	GET  /api/vibe/plans     →  recent persisted ambience plans for a session
//	POST /api/chat           →  master dialog turn, reply streamed over SSE
//	GET  /api/events         →  SSE subscription to live orchestration events
//	GET  /health             →  liveness probe
//	GET  /ready              →  readiness probe
//
// File structure:
//   - server.go: HTTP server setup and lifecycle
//   - middleware.go: HTTP middleware (recovery, CORS, logging)
//   - health.go: health check endpoints (/health, /ready)
//   - vibe.go: ambience run endpoints (analyze/simulate/cancel/status/messages/plans)
//   - stream.go: SSE event subscription and the bus sink
//   - chat.go: master dialog endpoint (SSE streamed reply)
//   - response.go: JSON response helpers
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vibedrive/vibedrive/internal/events"
	"github.com/vibedrive/vibedrive/internal/history"
	"github.com/vibedrive/vibedrive/internal/log"
	"github.com/vibedrive/vibedrive/internal/orchestration"
)

const (
	// DefaultAddr is the default address for the HTTP server.
	DefaultAddr = "127.0.0.1:8080"

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout = 10 * time.Second

	// ReadHeaderTimeout is the timeout for reading request headers.
	// This prevents Slowloris attacks (CWE-400).
	ReadHeaderTimeout = 10 * time.Second

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout = 30 * time.Second

	// IdleTimeout is the maximum time to wait for the next request on keep-alive connections.
	IdleTimeout = 120 * time.Second
)

// Deps are the collaborators the server routes requests to.
type Deps struct {
	Tasks  *orchestration.TaskManager
	Master *orchestration.MasterService
	Bus    *events.Bus
	Store  history.Store

	// Pool backs the readiness probe. Nil with the memory history
	// backend; readiness then has no external dependency to check.
	Pool *pgxpool.Pool

	// RunCtx scopes background ambience runs started over HTTP.
	// Cancelling it (process shutdown) cancels in-flight runs.
	RunCtx context.Context

	CORSOrigins []string
	Logger      log.Logger
}

// Server is the HTTP server for the cabin agent's REST/SSE API.
type Server struct {
	mux         *http.ServeMux
	corsOrigins []string
	logger      log.Logger

	health *HealthHandler
	vibe   *VibeHandler
	stream *StreamHandler
	chat   *ChatHandler
}

// NewServer creates a new HTTP server with all routes registered.
func NewServer(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.NewNop()
	}
	mux := http.NewServeMux()

	s := &Server{
		mux:         mux,
		corsOrigins: deps.CORSOrigins,
		logger:      logger,
		health:      NewHealthHandler(deps.Pool, logger),
		vibe:        NewVibeHandler(deps.RunCtx, deps.Tasks, deps.Store, logger),
		stream:      NewStreamHandler(deps.Bus, logger),
		chat:        NewChatHandler(deps.Master, logger),
	}

	s.health.RegisterRoutes(mux)
	s.vibe.RegisterRoutes(mux)
	s.stream.RegisterRoutes(mux)
	s.chat.RegisterRoutes(mux)

	return s
}

// Handler returns the HTTP handler with middleware applied.
// Middleware order: recovery → cors → logging → handler
func (s *Server) Handler() http.Handler {
	return chain(s.mux,
		recoveryMiddleware(s.logger),
		corsMiddleware(s.corsOrigins),
		loggingMiddleware(s.logger),
	)
}

// Run starts the HTTP server and blocks until the context is cancelled.
// It handles graceful shutdown when the context is done.
//
// WriteTimeout is deliberately left unset: /api/events holds its
// response open for the lifetime of the SSE subscription.
func (s *Server) Run(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       ReadTimeout,
		IdleTimeout:       IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
