package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/magnetacademy/tma-server/internal/auth"
	"github.com/magnetacademy/tma-server/internal/config"
	"github.com/magnetacademy/tma-server/internal/contentstore"
	"github.com/magnetacademy/tma-server/internal/handlers"
	"github.com/magnetacademy/tma-server/internal/metrics"
	middlewareCustom "github.com/magnetacademy/tma-server/internal/middleware"
	"github.com/magnetacademy/tma-server/internal/ratelimit"
	"github.com/magnetacademy/tma-server/internal/repositories"
	"github.com/magnetacademy/tma-server/internal/routes"
	"github.com/magnetacademy/tma-server/internal/services"
	pkgcrypto "github.com/magnetacademy/tma-server/pkg/crypto"
	pkglogger "github.com/magnetacademy/tma-server/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration. Missing or malformed secrets abort startup.
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Server.LogLevel),
	}))
	slog.SetDefault(logger)

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	// The encryption key is validated as AES-256 material at startup even
	// though nothing encrypts with it yet; a bad key must fail here, not
	// on the first future use.
	if _, err := pkgcrypto.NewCipher(cfg.Auth.EncryptionKey); err != nil {
		logger.Error("invalid ENCRYPTION_KEY", slog.Any("error", err))
		os.Exit(1)
	}

	// Content store client and repositories
	store := contentstore.NewClient(&cfg.ContentStore)
	userRepo := repositories.NewAdminUserRepository(store)
	attemptRepo := repositories.NewLoginAttemptRepository(store)

	// Login attempt limiters: per-username and per-network-origin. With
	// REDIS_ADDR set the counters are shared across processes; otherwise
	// they are process-local.
	userLimiter, originLimiter, sweep := buildLimiters(cfg, logger)

	// Session token codec
	codec := auth.NewTokenCodec(cfg.Auth.SessionSecret, cfg.Auth.SessionDuration)

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	m := metrics.New(registry)

	auditLogger := pkglogger.NewAuditLogger(logger)

	authService := services.NewAuthService(
		userRepo,
		attemptRepo,
		userLimiter,
		originLimiter,
		services.AuthConfig{
			LockoutThreshold:     cfg.Auth.LockoutThreshold,
			LockoutDuration:      cfg.Auth.LockoutDuration,
			DefaultAdminPassword: cfg.Auth.DefaultAdminPassword,
		},
		logger,
		auditLogger,
		m,
	)

	// Bootstrap the first super_admin if the store is empty
	bootstrapCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := authService.Bootstrap(bootstrapCtx); err != nil {
		logger.Error("failed to bootstrap admin user", slog.Any("error", err))
	}
	cancel()

	cookieConfig := auth.CookieConfig{Secure: cfg.Server.Env == "production"}
	authHandler := handlers.NewAuthHandler(authService, codec, cookieConfig, cfg.Auth.SessionDuration, m)
	pageHandler := handlers.NewPageHandler()

	// Setup router
	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{
		Env:              cfg.Server.Env,
		ContentStoreHost: cfg.ContentStore.ProjectID + ".api.sanity.io",
	}))
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(chimiddleware.Recoverer)
	router.Use(chimiddleware.Timeout(60 * time.Second))

	routes.RegisterRoutes(router, authHandler, pageHandler, codec)

	// Health check with content store ping
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")
		if err := store.Ping(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy","content_store":"down"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","content_store":"up"}`))
	})

	router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Periodic sweep of the in-memory limiter maps
	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	defer sweepCancel()
	go sweep(sweepCtx)

	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")
	sweepCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}

func parseLogLevel(level string) slog.Level {
	switch level {
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

// buildLimiters assembles the two attempt limiters and a sweep loop. The
// Redis backend needs no sweeping; its keys expire on their own.
func buildLimiters(cfg *config.Config, logger *slog.Logger) (ratelimit.Limiter, ratelimit.Limiter, func(context.Context)) {
	userCfg := ratelimit.Config{
		Points: cfg.RateLimit.UsernamePoints,
		Window: cfg.RateLimit.UsernameWindow,
		Block:  cfg.RateLimit.UsernameBlockFor,
	}
	originCfg := ratelimit.Config{
		Points: cfg.RateLimit.OriginPoints,
		Window: cfg.RateLimit.OriginWindow,
		Block:  cfg.RateLimit.OriginBlockFor,
	}

	if cfg.RateLimit.RedisAddr != "" {
		logger.Info("using redis-backed rate limiters", slog.String("addr", cfg.RateLimit.RedisAddr))
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RateLimit.RedisAddr,
			Password: cfg.RateLimit.RedisPassword,
		})
		return ratelimit.NewRedisLimiter(client, "login_user", userCfg),
			ratelimit.NewRedisLimiter(client, "login_origin", originCfg),
			func(ctx context.Context) { <-ctx.Done() }
	}

	userLimiter := ratelimit.NewMemoryLimiter(userCfg)
	originLimiter := ratelimit.NewMemoryLimiter(originCfg)
	sweep := func(ctx context.Context) {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				userLimiter.Sweep()
				originLimiter.Sweep()
			}
		}
	}
	return userLimiter, originLimiter, sweep
}
