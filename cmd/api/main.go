package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ghostpass/config"
	httpHandler "ghostpass/internal/adapter/http/handler"
	pgStorage "ghostpass/internal/adapter/storage/postgres"
	redisStorage "ghostpass/internal/adapter/storage/redis"
	"ghostpass/internal/core/ports"
	"ghostpass/internal/service"
	"ghostpass/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting GhostPass authorization engine")

	ctx := context.Background()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize repositories
	passRepo := pgStorage.NewPassSessionRepo(pool)
	stationRepo := pgStorage.NewStationRepo(pool)
	qrAssetRepo := pgStorage.NewQRAssetRepo(pool)
	userRepo := pgStorage.NewUserRepo(pool)
	walletRepo := pgStorage.NewWalletRepo(pool)
	ledgerRepo := pgStorage.NewLedgerRepo(pool)
	profileRepo := pgStorage.NewProfileRepo(pool)
	idempotencyRepo := pgStorage.NewIdempotencyRepo(pool)
	auditRepo := pgStorage.NewAuditRepo(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Initialize Redis stores
	idempotencyCache := redisStorage.NewIdempotencyCache(rdb)
	decisionCache := redisStorage.NewDecisionCache(rdb)
	profileCache := redisStorage.NewProfileCache(rdb)
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)

	// Initialize business services
	auditSvc := service.NewAuditService(auditRepo, log)
	passValidator := service.NewPassValidator(passRepo, log)
	tierResolver := service.NewTierResolver(stationRepo, qrAssetRepo, log)
	identityGate := service.NewIdentityGate(walletRepo, userRepo, log)
	splitCalc := service.NewSplitCalculator()
	ledgerSvc := service.NewLedgerService(
		ledgerRepo,
		walletRepo,
		idempotencyRepo,
		idempotencyCache,
		transactor,
		cfg.Settlement.MaxCommitRetries,
		cfg.Settlement.IdempotencyTTL,
		log,
	)
	profileSvc := service.NewProfileService(profileRepo, profileCache, cfg.Settlement.ProfileCacheTTL, auditSvc, log)
	authorizationSvc := service.NewAuthorizationService(
		passValidator,
		tierResolver,
		identityGate,
		stationRepo,
		profileSvc,
		splitCalc,
		ledgerSvc,
		auditSvc,
		decisionCache,
		cfg.Settlement.ReplayGuardTTL,
		log,
	)
	reportingSvc := service.NewReportingService(ledgerRepo, walletRepo)

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		AuthorizationSvc: authorizationSvc,
		LedgerSvc:        ledgerSvc,
		ReportingSvc:     reportingSvc,
		ProfileSvc:       profileSvc,
		WalletRepo:       walletRepo,
		RateLimitStore:   rateLimitStore,
		HealthCheckers:   []ports.HealthChecker{pgHealth, redisHealth},
		AuditSvc:         auditSvc,
		Logger:           log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
