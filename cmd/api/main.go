package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gift-market-wallet/config"
	"gift-market-wallet/internal/adapter/chain"
	httpHandler "gift-market-wallet/internal/adapter/http/handler"
	"gift-market-wallet/internal/adapter/notify"
	pgStorage "gift-market-wallet/internal/adapter/storage/postgres"
	redisStorage "gift-market-wallet/internal/adapter/storage/redis"
	"gift-market-wallet/internal/core/ports"
	"gift-market-wallet/internal/service"
	"gift-market-wallet/internal/worker"
	"gift-market-wallet/pkg/logger"
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
		Msg("Starting Gift Market Wallet")

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
	userRepo := pgStorage.NewUserRepo(pool)
	walletRepo := pgStorage.NewWalletRepo(pool)
	txRepo := pgStorage.NewTransactionRepo(pool)
	complianceRepo := pgStorage.NewComplianceRepo(pool)
	auditRepo := pgStorage.NewAuditRepo(pool)
	jobRepo := pgStorage.NewJobRepo(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Initialize Redis stores
	balanceCache := redisStorage.NewBalanceCache(rdb)
	dedupeStore := redisStorage.NewDedupeStore(rdb)
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)

	// Initialize outbound adapters
	chainClient := chain.NewClient(cfg.Chain.BaseURL, cfg.Chain.APIKey, cfg.Chain.Timeout, log)
	notifier := notify.NewBotNotifier(cfg.Notify.BotEndpoint, cfg.Notify.Timeout, log)

	// Initialize core services
	tokenSvc := service.NewTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)
	auditSvc := service.NewAuditService(auditRepo, log)
	guard := service.NewGuardService(auditSvc, log)
	ledgerSvc := service.NewLedgerService(txRepo)
	memoSvc := service.NewMemoService(cfg.Memo.Secret, cfg.Memo.TTL)

	complianceSvc, err := service.NewComplianceService(complianceRepo, txRepo, auditSvc, cfg.Compliance, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize compliance service")
	}

	// Initialize job queue and worker
	jobQueue := worker.NewJobQueue(jobRepo, auditSvc, cfg.Jobs.MaxAttempts, log)
	handlers := worker.NewHandlers(walletRepo, txRepo, memoSvc, chainClient, balanceCache,
		auditSvc, notifier, cfg.Wallet.MnemonicSecret, cfg.Memo.TTL, log)
	jobWorker := worker.New(jobRepo, auditSvc, cfg.Jobs, handlers.Registry(), log)

	// Initialize business services
	walletSvc := service.NewWalletService(transactor, walletRepo, txRepo, ledgerSvc, memoSvc, jobQueue, guard, auditSvc, log)
	withdrawalSvc, err := service.NewWithdrawalService(transactor, walletRepo, txRepo, complianceSvc,
		guard, auditSvc, notifier, dedupeStore, chainClient, cfg.Withdrawal, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize withdrawal service")
	}
	assistantSvc := service.NewAssistantService(walletRepo, ledgerSvc, auditSvc, log)

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Start the background worker
	jobWorker.Start(ctx)
	log.Info().Msg("Job worker started")

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		UserRepo:       userRepo,
		TokenSvc:       tokenSvc,
		WalletSvc:      walletSvc,
		LedgerSvc:      ledgerSvc,
		WithdrawalSvc:  withdrawalSvc,
		AssistantSvc:   assistantSvc,
		JobQueue:       jobQueue,
		Guard:          guard,
		AuditSvc:       auditSvc,
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
	log.Info().Msg("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	jobWorker.Stop()
	log.Info().Msg("Server exited")
}
