// Command senate runs the governed code-generation gateway: the HTTP and MCP
// surfaces over the Elder, the Senate, and the Chronicle.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/ashita-ai/senate/internal/auth"
	"github.com/ashita-ai/senate/internal/chronicle"
	"github.com/ashita-ai/senate/internal/config"
	"github.com/ashita-ai/senate/internal/elder"
	"github.com/ashita-ai/senate/internal/mcp"
	"github.com/ashita-ai/senate/internal/ratelimit"
	"github.com/ashita-ai/senate/internal/reasoner"
	"github.com/ashita-ai/senate/internal/senate"
	"github.com/ashita-ai/senate/internal/server"
	"github.com/ashita-ai/senate/internal/telemetry"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run0())
}

func run0() int {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(os.Getenv("SENATE_LOG_LEVEL")),
	}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, logger); err != nil {
		slog.Error("fatal error", "error", err)
		return 1
	}
	return 0
}

func run(ctx context.Context, logger *slog.Logger) error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger.Info("senate starting", "version", version, "port", cfg.Port)

	otelShutdown, err := telemetry.Init(ctx, cfg.OTELEndpoint, cfg.ServiceName, version, cfg.OTELInsecure)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() { _ = otelShutdown(context.Background()) }()

	store, closeStore, err := newChronicleStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("chronicle store: %w", err)
	}
	defer closeStore()

	ch := chronicle.New(store, cfg.ChronicleSecured)

	router := reasoner.NewRouter(reasoner.RouterConfig{
		Sovereign: endpointConfig(cfg.ReasonerSovereignURL, "", cfg.PrecheckModel),
		Cloud:     endpointConfig(cfg.ReasonerCloudURL, cfg.ReasonerCloudKey, cfg.FinalModel),
		Backstop:  endpointConfig(cfg.ReasonerBackstopURL, cfg.ReasonerCloudKey, cfg.ForgeBackstopModel),
	})

	sen := senate.New(router)

	eld, err := elder.New(ch, sen)
	if err != nil {
		return fmt.Errorf("elder: %w", err)
	}

	jwtMgr, err := auth.NewJWTManager(cfg.JWTPrivateKeyPath, cfg.JWTPublicKeyPath, cfg.JWTExpiration)
	if err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	apiKeys := auth.NewAPIKeyStore()

	mcpSrv := mcp.New(eld, ch, logger, version)

	var limiter ratelimit.Allower
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("parse REDIS_URL: %w", err)
		}
		client := redis.NewClient(opts)
		redisLimiter := ratelimit.New(client, logger, false)
		defer func() { _ = redisLimiter.Close() }()
		limiter = redisLimiter
		logger.Info("rate limiting: redis")
	} else {
		limiter = ratelimit.NewMemory()
		logger.Info("rate limiting: in-memory (no REDIS_URL; not shared across replicas)")
	}

	srv := server.New(server.ServerConfig{
		Elder:               eld,
		Chronicle:           ch,
		JWTMgr:              jwtMgr,
		APIKeys:             apiKeys,
		Logger:              logger,
		MCPServer:           mcpSrv.MCPServer(),
		RateLimiter:         limiter,
		Port:                cfg.Port,
		ReadTimeout:         cfg.ReadTimeout,
		WriteTimeout:        cfg.WriteTimeout,
		Version:             version,
		MaxRequestBodyBytes: cfg.MaxRequestBodyBytes,
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
	})

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	logger.Info("senate shutting down")
	shutdownCtx, shutdownCancel := context.WithCancel(context.Background())
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown error", "error", err)
	}

	logger.Info("senate stopped")
	return nil
}

// newChronicleStore picks the Postgres-backed store when DATABASE_URL is
// set, otherwise the JSON-file store. The returned close function must
// always be called, even for the JSON backend (where it is a no-op).
func newChronicleStore(ctx context.Context, cfg config.Config) (chronicle.Store, func(), error) {
	if cfg.DatabaseURL == "" {
		store, err := chronicle.NewJSONStore(cfg.ChroniclePrecedentPath, cfg.ChronicleAppealPath)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	return chronicle.NewPostgresStore(pool), pool.Close, nil
}

func endpointConfig(url, key, model string) *reasoner.EndpointConfig {
	if url == "" {
		return nil
	}
	return &reasoner.EndpointConfig{URL: url, Key: key, Model: model}
}

func parseLogLevel(raw string) slog.Level {
	switch raw {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
