package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/wsgraph/engine/internal/api"
	"github.com/wsgraph/engine/internal/api/handlers"
	mw "github.com/wsgraph/engine/internal/api/middleware"
	"github.com/wsgraph/engine/internal/api/validators"
	"github.com/wsgraph/engine/internal/repository"
	"github.com/wsgraph/engine/internal/services"
	"github.com/wsgraph/engine/pkg/config"
	"github.com/wsgraph/engine/pkg/database"
	"github.com/wsgraph/engine/pkg/logger"
)

func main() {
	// Load configuration
	cfg := config.MustLoad()

	// Initialize logger
	log, err := logger.Init(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	log.Info("starting wsgraph ingestion api",
		zap.String("env", cfg.AppEnv),
		zap.String("addr", cfg.HTTPAddr),
		zap.String("db_driver", cfg.DatabaseDriver),
	)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	db, err := database.Open(ctx, database.Options{
		Driver:  cfg.DatabaseDriver,
		DSN:     cfg.DatabaseURL,
		Logger:  log,
		Verbose: cfg.AppEnv == "development",
	})
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer func() { _ = database.Close(db) }()
	log.Info("database connected")

	store := repository.NewGormStore(db)

	ingestion := services.NewIngestionService(store, validators.New())
	query, err := services.NewGraphQueryService(store, cfg.VersionCacheSize)
	if err != nil {
		log.Fatal("failed to build graph query service", zap.Error(err))
	}

	proxies, err := mw.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		log.Fatal("invalid TRUSTED_PROXIES", zap.Error(err))
	}
	limiter := mw.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, mw.TrustProxies(proxies...))
	go limiter.Run(ctx, time.Minute)

	var secret []byte
	if cfg.IngestJWTSecret != "" {
		secret = []byte(cfg.IngestJWTSecret)
	} else {
		log.Warn("INGEST_JWT_SECRET not set, api routes are unauthenticated")
	}

	router := api.NewRouter(api.Dependencies{
		JWTSecret:        secret,
		RateLimiter:      limiter,
		HealthHandler:    handlers.NewHealthHandler(store),
		IngestionHandler: handlers.NewIngestionHandler(ingestion, cfg.MaxBodyBytes),
		GraphsHandler:    handlers.NewGraphsHandler(query),
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server starting", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		log.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown error", zap.Error(err))
	} else {
		log.Info("server exited gracefully")
	}
}
