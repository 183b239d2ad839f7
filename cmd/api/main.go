package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"marketplace-ledger/config"
	httpHandler "marketplace-ledger/internal/adapter/http/handler"
	pgStorage "marketplace-ledger/internal/adapter/storage/postgres"
	redisStorage "marketplace-ledger/internal/adapter/storage/redis"
	"marketplace-ledger/internal/core/ports"
	"marketplace-ledger/internal/service"
	"marketplace-ledger/pkg/logger"

	"github.com/google/uuid"
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
		Str("currency", cfg.Platform.DefaultCurrency).
		Msg("Starting Marketplace Ledger")

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

	// Platform operator: owner of the commission wallet. Settlements that
	// owe a commission fail until this is configured.
	operatorID := uuid.Nil
	if cfg.Platform.OperatorID != "" {
		operatorID, err = uuid.Parse(cfg.Platform.OperatorID)
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid platform.operator_id")
		}
	} else {
		log.Warn().Msg("platform.operator_id not set, settlements will be rejected")
	}

	// Initialize repositories
	walletRepo := pgStorage.NewWalletRepo(pool)
	txnRepo := pgStorage.NewTransactionRepo(pool)
	bookingRepo := pgStorage.NewBookingRepo(pool)
	businessRepo := pgStorage.NewBusinessRepo(pool)
	idempotencyRepo := pgStorage.NewIdempotencyRepo(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Initialize Redis stores
	idempotencyCache := redisStorage.NewIdempotencyCache(rdb)
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)

	// Initialize business services
	currency := cfg.Platform.DefaultCurrency
	calc := service.NewCommissionCalculator(businessRepo)
	walletSvc := service.NewWalletService(walletRepo, txnRepo, idempotencyRepo, idempotencyCache, transactor, currency, log)
	ledgerSvc := service.NewLedgerService(walletRepo, txnRepo, idempotencyRepo, idempotencyCache, transactor, log)
	settlementSvc := service.NewSettlementService(walletRepo, txnRepo, idempotencyRepo, idempotencyCache, transactor, calc, operatorID, currency, log)
	bookingSvc := service.NewBookingService(bookingRepo, txnRepo, walletRepo, idempotencyRepo, idempotencyCache, transactor, calc, settlementSvc, log)
	businessSvc := service.NewBusinessService(businessRepo, walletRepo, transactor, currency, log)

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		WalletSvc:      walletSvc,
		LedgerSvc:      ledgerSvc,
		SettlementSvc:  settlementSvc,
		BookingSvc:     bookingSvc,
		BusinessSvc:    businessSvc,
		RateLimitStore: rateLimitStore,
		HealthCheckers: []ports.HealthChecker{pgHealth, redisHealth},
		Logger:         log,
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
