package handler

import (
	"ghostpass/internal/adapter/http/middleware"
	redisStore "ghostpass/internal/adapter/storage/redis"
	"ghostpass/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	AuthorizationSvc ports.AuthorizationService
	LedgerSvc        ports.LedgerService
	ReportingSvc     ports.ReportingService
	ProfileSvc       ports.ProfileService
	WalletRepo       ports.WalletRepository
	RateLimitStore   *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheckers   []ports.HealthChecker
	AuditSvc         ports.AuditService // nil = audit logging disabled
	Logger           zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Audit logging (after response)
	if deps.AuditSvc != nil {
		r.Use(middleware.AuditLog(deps.AuditSvc))
	}

	// Health check (deep — verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// Prometheus metrics
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

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

	// --- Gateway scan ---
	scanHandler := NewScanHandler(deps.AuthorizationSvc)
	v1.POST("/scan", rl("scan"), scanHandler.Scan)

	// --- Ledger operations and queries ---
	ledgerHandler := NewLedgerHandler(deps.LedgerSvc, deps.ReportingSvc)
	ledger := v1.Group("/ledger")
	{
		ledger.POST("/refund", rl("ledger_refund"), ledgerHandler.Refund)
		ledger.GET("", rl("reports"), ledgerHandler.List)
		ledger.GET("/stats", rl("reports"), ledgerHandler.Stats)
	}

	// --- Wallets ---
	walletHandler := NewWalletHandler(deps.WalletRepo, deps.LedgerSvc, deps.ReportingSvc)
	wallets := v1.Group("/wallets")
	{
		wallets.POST("", rl("wallets"), walletHandler.Create)
		wallets.GET("/:id/balance", rl("wallets"), walletHandler.GetBalance)
		wallets.POST("/:id/topup", rl("wallets_topup"), walletHandler.Topup)
	}

	// --- Settlement profiles ---
	if deps.ProfileSvc != nil {
		profileHandler := NewProfileHandler(deps.ProfileSvc)
		profiles := v1.Group("/profiles")
		{
			profiles.POST("/revenue", rl("profiles"), profileHandler.CreateRevenueProfile)
			profiles.GET("/revenue", rl("reports"), profileHandler.ListRevenueProfiles)
			profiles.POST("/tax", rl("profiles"), profileHandler.CreateTaxProfile)
			profiles.GET("/tax", rl("reports"), profileHandler.ListTaxProfiles)
		}
	}

	return r
}
