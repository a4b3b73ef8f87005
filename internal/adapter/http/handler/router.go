package handler

import (
	"gift-market-wallet/internal/adapter/http/middleware"
	redisStore "gift-market-wallet/internal/adapter/storage/redis"
	"gift-market-wallet/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	UserRepo       ports.UserRepository
	TokenSvc       ports.TokenService
	WalletSvc      ports.WalletService
	LedgerSvc      ports.LedgerService
	WithdrawalSvc  ports.WithdrawalService
	AssistantSvc   ports.AssistantService
	JobQueue       ports.JobQueue
	Guard          ports.Guard
	AuditSvc       ports.AuditService
	RateLimitStore *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Audit logging (after response)
	if deps.AuditSvc != nil {
		r.Use(middleware.AuditLog(deps.AuditSvc))
	}

	// Health check (deep — verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// Rate limit rules
	rules := middleware.DefaultRateLimitRules()

	// Helper: return rate limiter middleware if store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	// API v1 routes
	v1 := r.Group("/api/v1")

	// --- Public routes (no auth) ---
	authHandler := NewAuthHandler(deps.UserRepo, deps.TokenSvc, deps.AuditSvc)
	auth := v1.Group("/auth")
	{
		auth.POST("/session", rl("auth"), authHandler.OpenSession)
	}

	// --- JWT-authenticated routes ---
	jwtAuth := middleware.JWTAuth(deps.TokenSvc)
	walletHandler := NewWalletHandler(deps.WalletSvc, deps.LedgerSvc, deps.Guard)
	withdrawalHandler := NewWithdrawalHandler(deps.WithdrawalSvc)
	assistantHandler := NewAssistantHandler(deps.AssistantSvc)
	jobsHandler := NewJobsHandler(deps.JobQueue)

	wallet := v1.Group("/wallet", jwtAuth)
	{
		wallet.GET("", rl("wallet"), walletHandler.GetWallet)
		wallet.POST("", rl("wallet"), walletHandler.CreateWallet)
		wallet.GET("/balance", rl("wallet"), walletHandler.GetBalance)
		wallet.GET("/transactions", rl("wallet"), walletHandler.ListTransactions)
		wallet.POST("/deposits", rl("deposit"), walletHandler.InitiateDeposit)
		wallet.POST("/withdrawals", rl("withdrawal"), withdrawalHandler.Create)
	}

	assistant := v1.Group("/assistant", jwtAuth)
	{
		assistant.POST("/query", rl("assistant"), assistantHandler.Query)
	}

	jobs := v1.Group("/jobs", jwtAuth)
	{
		jobs.POST("/:id/cancel", rl("jobs"), jobsHandler.Cancel)
	}

	return r
}
