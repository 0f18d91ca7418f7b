package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tuition-ledger/config"
	"tuition-ledger/internal/adapter/http/dto"
	httpHandler "tuition-ledger/internal/adapter/http/handler"
	"tuition-ledger/internal/adapter/http/middleware"
	redisStorage "tuition-ledger/internal/adapter/storage/redis"
	"tuition-ledger/internal/core/ports"
	"tuition-ledger/internal/metrics"
	"tuition-ledger/internal/service"
	"tuition-ledger/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		return serve(cmd.Context(), cfg, log)
	},
}

func serve(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	log.Info().
		Str("mode", cfg.Server.Mode).
		Str("store", cfg.Store.Driver).
		Int("port", cfg.Server.Port).
		Msg("Starting tuition ledger")
	gin.SetMode(cfg.Server.Mode)

	store, storeHealth, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()
	healthCheckers := []ports.HealthChecker{storeHealth}

	collections := collectionsFrom(cfg)
	setupCtx, cancel := context.WithTimeout(ctx, cfg.Store.Timeout)
	err = service.EnsureCollections(setupCtx, store, collections, log)
	cancel()
	if err != nil {
		return fmt.Errorf("prepare collections: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Redis is optional: without it submissions are not deduplicated and
	// requests are not rate limited.
	var (
		idempCache ports.IdempotencyCache
		rateLimits middleware.RateCounter
	)
	if cfg.Redis.Enabled {
		rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer rdb.Close()
		idempCache = redisStorage.NewIdempotencyCache(rdb)
		rateLimits = redisStorage.NewRateLimitStore(rdb)
		healthCheckers = append(healthCheckers, redisStorage.NewHealthCheck(rdb))
	} else {
		log.Warn().Msg("redis disabled: idempotency keys and rate limits are off")
	}

	var hashSvc ports.HashService
	if cfg.Auth.HashSecrets {
		hashSvc = service.NewArgon2HashService()
	}
	tokenSecret := cfg.JWT.Secret
	if tokenSecret == "" {
		log.Warn().Msg("jwt.secret is empty, using an insecure development secret")
		tokenSecret = "dev-only-insecure-secret"
	}
	tokenSvc := service.NewJWTTokenService(tokenSecret, cfg.JWT.Expiry, cfg.JWT.Issuer)

	creds := service.NewCredentialStore(store, collections.Credentials, hashSvc, cfg.Store.Timeout, m, logger.Component(log, "credentials"))
	authSvc := service.NewAuthService(creds, tokenSvc, cfg.Auth.AdminIdentities, logger.Component(log, "auth"))

	var directory ports.CredentialStore
	if cfg.Ledger.RequireRegisteredRepresentative {
		directory = creds
	}
	ledger := service.NewPaymentLedger(store, directory, idempCache, service.LedgerOptions{
		Collection:           collections.Payments,
		Methods:              cfg.Ledger.Methods,
		Levels:               cfg.Ledger.Levels,
		RequireEnrollmentRef: cfg.Ledger.RequireEnrollmentRef,
		Timeout:              cfg.Store.Timeout,
		IdempotencyTTL:       cfg.Ledger.IdempotencyTTL,
	}, m, logger.Component(log, "ledger"))

	var auditSvc *service.AuditServiceImpl
	deps := httpHandler.RouterDeps{
		AuthSvc:        authSvc,
		Ledger:         ledger,
		QuerySvc:       service.NewLedgerQueryService(ledger),
		TokenSvc:       tokenSvc,
		Catalog:        dto.NewCatalogResponse(cfg.Ledger, cfg.Catalog),
		RateLimitStore: rateLimits,
		HealthCheckers: healthCheckers,
		Metrics:        m,
		MetricsHandler: metrics.Handler(reg),
		Logger:         log,
	}
	if collections.Audit != "" {
		auditSvc = service.NewAuditService(store, collections.Audit, cfg.Store.Timeout, logger.Component(log, "audit"))
		deps.AuditSvc = auditSvc
	}
	router := httpHandler.SetupRouter(deps)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serverErr:
		return fmt.Errorf("http server: %w", err)
	case <-quit:
	}
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	if auditSvc != nil {
		auditSvc.Wait()
	}

	log.Info().Msg("Server exited")
	return nil
}
