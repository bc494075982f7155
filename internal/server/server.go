package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/harborfin/rwaledger/internal/domain"
	"github.com/harborfin/rwaledger/internal/server/handler"
	"github.com/harborfin/rwaledger/internal/server/middleware"
	"github.com/harborfin/rwaledger/internal/server/ws"
)

// Rate limit applied per client IP across all API routes.
const (
	rateLimitRequests = 120
	rateLimitWindow   = time.Minute
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	// APITokens maps bearer tokens to the account each one acts as.
	// If empty, authentication is disabled.
	APITokens map[string]string
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health      *handler.HealthHandler
	Pledges     *handler.PledgeHandler
	Valuations  *handler.ValuationHandler
	Redemptions *handler.RedemptionHandler
	Admin       *handler.AdminHandler
	System      *handler.SystemHandler
}

// Server is the headless HTTP + WebSocket API for the issuance ledger.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux.
// It wires up middleware (rate limiting, auth, logging, CORS) and attaches
// the WebSocket hub. The rate limiter may be nil to disable throttling.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check (no auth required).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Pledge lifecycle.
	mux.HandleFunc("POST /api/pledges", handlers.Pledges.SubmitPledge)
	mux.HandleFunc("GET /api/pledges", handlers.Pledges.ListPledges)
	mux.HandleFunc("GET /api/pledges/{id}", handlers.Pledges.GetPledge)
	mux.HandleFunc("POST /api/pledges/{id}/verify", handlers.Pledges.VerifyPledge)
	mux.HandleFunc("POST /api/pledges/{id}/reject", handlers.Pledges.RejectPledge)
	mux.HandleFunc("POST /api/pledges/{id}/cancel", handlers.Pledges.CancelPledge)
	mux.HandleFunc("POST /api/pledges/{id}/mint", handlers.Pledges.MintCredit)

	// Oracle valuation and liquidation.
	mux.HandleFunc("POST /api/pledges/{id}/revalue", handlers.Valuations.RevaluePledge)
	mux.HandleFunc("POST /api/pledges/{id}/liquidate", handlers.Valuations.LiquidatePledge)
	mux.HandleFunc("GET /api/pledges/{id}/valuation", handlers.Valuations.GetValuation)

	// Redemption queue.
	mux.HandleFunc("POST /api/redemptions", handlers.Redemptions.RequestRedemption)
	mux.HandleFunc("GET /api/redemptions", handlers.Redemptions.ListRedemptions)
	mux.HandleFunc("GET /api/redemptions/{id}", handlers.Redemptions.GetRedemption)
	mux.HandleFunc("POST /api/redemptions/{id}/settle", handlers.Redemptions.SettleRedemption)

	// Administration.
	mux.HandleFunc("POST /api/admin/roles", handlers.Admin.GrantRole)
	mux.HandleFunc("DELETE /api/admin/roles/{role}/{account}", handlers.Admin.RevokeRole)
	mux.HandleFunc("PUT /api/admin/categories/{category}", handlers.Admin.SetCategoryLimit)
	mux.HandleFunc("GET /api/admin/params", handlers.Admin.GetParams)
	mux.HandleFunc("PUT /api/admin/params", handlers.Admin.UpdateParams)
	mux.HandleFunc("GET /api/admin/audit", handlers.Admin.GetAuditLog)
	mux.HandleFunc("POST /api/admin/archive", handlers.Admin.RunArchive)

	// System views.
	mux.HandleFunc("GET /api/system/snapshot", handlers.System.GetSnapshot)
	mux.HandleFunc("GET /api/system/categories", handlers.System.GetCategories)
	mux.HandleFunc("GET /api/system/balances/{category}/{account}", handlers.System.GetBalance)

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain, innermost first.
	var h http.Handler = mux

	if limiter != nil {
		h = middleware.RateLimit(limiter, rateLimitRequests, rateLimitWindow)(h)
	}
	h = middleware.Auth(cfg.APITokens)(h)
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
