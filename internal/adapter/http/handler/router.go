package handler

import (
	"payment-reconciler/internal/adapter/http/middleware"
	redisStore "payment-reconciler/internal/adapter/storage/redis"
	"payment-reconciler/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	Processor       ports.EventProcessor
	RetrySvc        ports.RetryService
	ReportingSvc    ports.ReportingService
	AuthSvc         ports.AuthService
	TokenSvc        ports.TokenService
	SigSvc          ports.SignatureService
	WebhookSecret   string                     // empty disables webhook signature verification
	RateLimitStore  *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheckers  []ports.HealthChecker
	MetricsGatherer prometheus.Gatherer // nil = metrics endpoint disabled
	Logger          zerolog.Logger
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

	// Health check (deep — verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// Prometheus metrics
	if deps.MetricsGatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.MetricsGatherer, promhttp.HandlerOpts{})))
	}

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

	// --- Webhook intake (signature-verified, never JWT) ---
	webhookHandler := NewWebhookHandler(deps.Processor, deps.SigSvc, deps.WebhookSecret, deps.Logger)
	r.POST("/webhooks/payments", rl("webhook"), webhookHandler.Receive)

	// API v1 routes
	v1 := r.Group("/api/v1")

	// --- Public routes (no auth) ---
	authHandler := NewAuthHandler(deps.AuthSvc)
	auth := v1.Group("/auth")
	{
		auth.POST("/token", rl("auth_token"), authHandler.Token)
	}

	// --- JWT-authenticated routes (operator admin) ---
	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)
	adminHandler := NewAdminHandler(deps.Processor, deps.RetrySvc, deps.ReportingSvc)

	admin := v1.Group("/admin", jwtAuth)
	{
		admin.GET("/stats", rl("admin"), adminHandler.GetStats)
		admin.GET("/failed-events", rl("admin"), adminHandler.ListFailedEvents)
		admin.POST("/failed-events/:payment_id/retry", rl("admin"), adminHandler.ForceRetry)
		admin.POST("/failed-events/:payment_id/reset", rl("admin"), adminHandler.Reset)
		admin.POST("/payments/:payment_id/process", rl("admin"), adminHandler.ProcessPayment)
		admin.GET("/worker", rl("admin"), adminHandler.GetWorkerHealth)
		admin.POST("/worker/run", rl("admin"), adminHandler.RunWorkerBatch)
	}

	return r
}
