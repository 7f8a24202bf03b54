// Package server exposes the comparison engine over HTTP and WebSocket for
// the single-page demo client: one endpoint runs a batch, history endpoints
// read back stored runs, and a WebSocket feed streams per-agent progress.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/agentarena/agentarena/internal/bedrock"
	"github.com/agentarena/agentarena/internal/compare"
	"github.com/agentarena/agentarena/internal/config"
	"github.com/agentarena/agentarena/internal/logging"
	"github.com/agentarena/agentarena/internal/metrics"
	"github.com/agentarena/agentarena/internal/store"
	"github.com/agentarena/agentarena/internal/version"
)

// Server is the agentarena HTTP + WebSocket API server.
type Server struct {
	cfg      config.Config
	auth     ResolvedAuth
	log      *logging.Logger
	comparer *compare.Comparer
	hub      *Hub

	history *store.HistoryStore
	metrics *metrics.Recorder

	httpServer *http.Server
	upgrader   websocket.Upgrader
}

// Option configures the server.
type Option func(*Server)

// WithHistory enables batch history persistence.
func WithHistory(hs *store.HistoryStore) Option {
	return func(s *Server) { s.history = hs }
}

// WithMetrics enables Prometheus instrumentation and the /metrics endpoint.
func WithMetrics(rec *metrics.Recorder) Option {
	return func(s *Server) { s.metrics = rec }
}

// New creates a server around the given invoker.
func New(cfg config.Config, invoker bedrock.Invoker, log *logging.Logger, opts ...Option) *Server {
	s := &Server{
		cfg:  cfg,
		auth: ResolveAuth(cfg.Server.Auth),
		log:  log.Sub("server"),
		hub:  NewHub(log.Sub("server").Sub("ws")),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     checkWebSocketOrigin(cfg.Server.AllowedOrigins),
		},
	}
	for _, opt := range opts {
		opt(s)
	}

	compareOpts := []compare.Option{
		compare.WithMaxWorkers(cfg.Compare.MaxWorkers),
		compare.WithOnResult(func(agent string, r compare.Result) {
			s.hub.Broadcast("agent.result", agentResultEvent{
				Agent:   agent,
				Success: r.Success,
				Error:   r.Error,
			})
		}),
	}
	if s.metrics != nil {
		compareOpts = append(compareOpts, compare.WithObserver(s.metrics))
	}
	s.comparer = compare.New(invoker, log, compareOpts...)

	return s
}

// checkWebSocketOrigin validates WebSocket Origin headers. Requests without
// an Origin header (non-browser clients) are always allowed.
func checkWebSocketOrigin(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || a == origin {
				return true
			}
		}
		return false
	}
}

// Handler builds the full HTTP handler with routes and middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ws", s.handleWebSocket)

	mux.Handle("POST /api/compare", s.requireAuth(http.HandlerFunc(s.handleCompare)))
	mux.Handle("GET /api/agents", s.requireAuth(http.HandlerFunc(s.handleAgents)))
	mux.Handle("GET /api/history", s.requireAuth(http.HandlerFunc(s.handleHistoryList)))
	mux.Handle("GET /api/history/{id}", s.requireAuth(http.HandlerFunc(s.handleHistoryGet)))
	mux.Handle("GET /api/history/{id}/export", s.requireAuth(http.HandlerFunc(s.handleHistoryExport)))
	mux.Handle("DELETE /api/history", s.requireAuth(http.HandlerFunc(s.handleHistoryClear)))

	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	mux.HandleFunc("/", handleNotFound)

	return withMiddleware(mux, s.log, s.cfg.Server.AllowedOrigins)
}

// resolveBindAddr computes the listen address from config.
func resolveBindAddr(cfg config.ServerConfig) string {
	if cfg.Bind == "lan" {
		return fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	}
	return fmt.Sprintf("127.0.0.1:%d", cfg.Port)
}

// Start runs the server until ctx is canceled.
func (s *Server) Start(ctx context.Context) error {
	addr := resolveBindAddr(s.cfg.Server)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().
			Str("addr", addr).
			Str("version", version.Version).
			Msg("server listening")
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s.hub.CloseAll()
	return s.httpServer.Shutdown(shutdownCtx)
}
