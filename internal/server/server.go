// Package server exposes the desk's rendered views and order entry over a
// small HTTP + WebSocket API for an attached UI.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/barbosa7/bookdesk/internal/metrics"
	"github.com/barbosa7/bookdesk/internal/server/handler"
	"github.com/barbosa7/bookdesk/internal/server/middleware"
	"github.com/barbosa7/bookdesk/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // empty disables auth
}

// Handlers aggregates the handlers the server registers.
type Handlers struct {
	Health  *handler.HealthHandler
	Session *handler.SessionHandler
	Market  *handler.MarketHandler
	Orders  *handler.OrderHandler
}

// Server is the desk's HTTP + WebSocket API server.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// New registers all routes and builds the middleware chain. wsHub may be nil
// when no signal bus is configured.
func New(cfg Config, handlers Handlers, wsHub *ws.Hub, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	mux.HandleFunc("POST /api/session/login", handlers.Session.Login)
	mux.HandleFunc("DELETE /api/session", handlers.Session.Logout)
	mux.HandleFunc("GET /api/session", handlers.Session.Status)

	mux.HandleFunc("GET /api/book", handlers.Market.Book)
	mux.HandleFunc("GET /api/trades", handlers.Market.Trades)
	mux.HandleFunc("GET /api/trades/history", handlers.Market.History)
	mux.HandleFunc("GET /api/leaderboard", handlers.Market.Leaderboard)
	mux.HandleFunc("GET /api/portfolio", handlers.Market.Portfolio)

	mux.HandleFunc("POST /api/orders", handlers.Orders.Place)
	mux.HandleFunc("DELETE /api/orders/{id}", handlers.Orders.Cancel)

	mux.Handle("GET /metrics", metrics.Handler())

	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	var h http.Handler = mux
	h = middleware.Auth(cfg.APIKey)(h)
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      h,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger.With(slog.String("component", "server")),
	}
}

// Start blocks serving requests until an error or shutdown.
func (s *Server) Start() error {
	s.logger.Info("starting", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests within the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
