package handler

import (
	"marketplace-ledger/internal/adapter/http/middleware"
	redisStore "marketplace-ledger/internal/adapter/storage/redis"
	"marketplace-ledger/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	WalletSvc      ports.WalletService
	LedgerSvc      ports.LedgerService
	SettlementSvc  ports.SettlementService
	BookingSvc     ports.BookingService
	BusinessSvc    ports.BusinessService
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

	// Health check (deep: verifies PostgreSQL and Redis)
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

	v1 := r.Group("/api/v1")

	walletHandler := NewWalletHandler(deps.WalletSvc, deps.LedgerSvc)
	wallets := v1.Group("/wallets")
	{
		wallets.POST("", rl("movements"), walletHandler.Create)
		wallets.POST("/deposit", rl("movements"), walletHandler.Deposit)
		wallets.POST("/withdraw", rl("movements"), walletHandler.Withdraw)
		wallets.GET("/owner/:owner_kind/:owner_id", rl("queries"), walletHandler.Get)
		wallets.GET("/owner/:owner_kind/:owner_id/check-funds", rl("queries"), walletHandler.CheckFunds)
		wallets.PATCH("/:id/active", rl("movements"), walletHandler.SetActive)
		wallets.GET("/:id/statistics", rl("queries"), walletHandler.Statistics)
		wallets.GET("/:id/transactions", rl("queries"), walletHandler.Transactions)
	}

	ledgerHandler := NewLedgerHandler(deps.LedgerSvc)
	transactions := v1.Group("/transactions")
	{
		transactions.GET("/:id", rl("queries"), ledgerHandler.Get)
		transactions.GET("/reference/:reference", rl("queries"), ledgerHandler.GetByReference)
		transactions.POST("/:id/cancel", rl("movements"), ledgerHandler.Cancel)
	}
	v1.POST("/transfers", rl("transfers"), ledgerHandler.Transfer)

	settlementHandler := NewSettlementHandler(deps.SettlementSvc)
	settlements := v1.Group("/settlements")
	{
		settlements.POST("", rl("settlements"), settlementHandler.Settle)
		settlements.POST("/hold", rl("settlements"), settlementHandler.Hold)
	}

	bookingHandler := NewBookingHandler(deps.BookingSvc)
	bookings := v1.Group("/bookings")
	{
		bookings.POST("", rl("bookings"), bookingHandler.Create)
		bookings.GET("/:id", rl("queries"), bookingHandler.Get)
		bookings.POST("/:id/approve", rl("bookings"), bookingHandler.Approve)
		bookings.POST("/:id/finalize", rl("bookings"), bookingHandler.Finalize)
		bookings.POST("/:id/cancel", rl("bookings"), bookingHandler.Cancel)
	}

	businessHandler := NewBusinessHandler(deps.BusinessSvc)
	businesses := v1.Group("/businesses")
	{
		businesses.POST("", rl("businesses"), businessHandler.Create)
		businesses.GET("/:id", rl("queries"), businessHandler.Get)
		businesses.POST("/:id/locations", rl("businesses"), businessHandler.CreateLocation)
	}

	return r
}
