package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/ashita-ai/senate/internal/auth"
	"github.com/ashita-ai/senate/internal/chronicle"
	"github.com/ashita-ai/senate/internal/elder"
	"github.com/ashita-ai/senate/internal/ratelimit"
)

// Server is the Senate's HTTP server.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
	handlers   *Handlers
	logger     *slog.Logger
}

// Handler returns the root HTTP handler for use in tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ServerConfig holds all dependencies and configuration for creating a Server.
// Optional fields (nil-safe): MCPServer, RateLimiter.
type ServerConfig struct {
	// Required dependencies.
	Elder     *elder.Elder
	Chronicle *chronicle.Chronicle
	JWTMgr    *auth.JWTManager
	APIKeys   *auth.APIKeyStore
	Logger    *slog.Logger

	// Optional dependencies (nil = disabled).
	MCPServer   *mcpserver.MCPServer
	RateLimiter ratelimit.Allower

	// HTTP server settings.
	Port                int
	ReadTimeout         time.Duration
	WriteTimeout        time.Duration
	Version             string
	MaxRequestBodyBytes int64
	CORSAllowedOrigins  []string
}

// New creates a new HTTP server with all routes configured.
func New(cfg ServerConfig) *Server {
	h := NewHandlers(HandlersDeps{
		Elder:               cfg.Elder,
		Chronicle:           cfg.Chronicle,
		APIKeys:             cfg.APIKeys,
		Logger:              cfg.Logger,
		Version:             cfg.Version,
		MaxRequestBodyBytes: cfg.MaxRequestBodyBytes,
	})

	mux := http.NewServeMux()

	// Mission submission and the chronicle read surface (bearer auth required).
	mux.Handle("POST /v1/missions", http.HandlerFunc(h.HandleSubmitMission))
	mux.Handle("GET /v1/chronicle/search", http.HandlerFunc(h.HandleSearchChronicle))
	mux.Handle("GET /v1/chronicle/case/{case_id}", http.HandlerFunc(h.HandleGetCase))
	mux.Handle("GET /v1/chronicle/case/{case_id}/appeals", http.HandlerFunc(h.HandleGetCaseAppeals))
	mux.Handle("POST /v1/appeals", http.HandlerFunc(h.HandleFileAppeal))
	mux.Handle("GET /v1/stream", http.HandlerFunc(h.HandleStreamMission))

	// Article 50 martial-law bypass: admin-only, no Senate deliberation.
	mux.Handle("POST /v1/article50", requireAdmin(http.HandlerFunc(h.HandleArticle50)))

	// API key issuance for machine callers: admin-only.
	mux.Handle("POST /v1/keys", requireAdmin(http.HandlerFunc(h.HandleIssueAPIKey)))

	// MCP StreamableHTTP transport (bearer auth required).
	if cfg.MCPServer != nil {
		mcpHTTP := mcpserver.NewStreamableHTTPServer(cfg.MCPServer)
		mux.Handle("/mcp", mcpHTTP)
	}

	// Config (no auth — feature flags for clients).
	mux.HandleFunc("GET /config", h.HandleConfig)

	// Health (no auth).
	mux.HandleFunc("GET /health", h.HandleHealth)

	// Middleware chain (outermost executes first):
	// request ID → security headers → CORS → tracing → logging → baggage → auth → recovery → rateLimit → handler.
	var handler http.Handler = mux
	if cfg.RateLimiter != nil {
		handler = rateLimitMiddleware(cfg.RateLimiter, handler)
	}
	handler = recoveryMiddleware(cfg.Logger, handler)
	handler = authMiddleware(cfg.JWTMgr, cfg.APIKeys, handler)
	handler = baggageMiddleware(handler)
	handler = loggingMiddleware(cfg.Logger, handler)
	handler = tracingMiddleware(handler)
	handler = corsMiddleware(cfg.CORSAllowedOrigins, handler)
	handler = securityHeadersMiddleware(handler)
	handler = requestIDMiddleware(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  2 * cfg.ReadTimeout,
		},
		handler:  handler,
		handlers: h,
		logger:   cfg.Logger,
	}
}

// Handlers returns the underlying Handlers.
func (s *Server) Handlers() *Handlers {
	return s.handlers
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	return s.httpServer.Shutdown(ctx)
}
