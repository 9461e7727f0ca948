package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"payment-reconciler/config"
	gatewayClient "payment-reconciler/internal/adapter/gateway"
	httpHandler "payment-reconciler/internal/adapter/http/handler"
	"payment-reconciler/internal/adapter/lock"
	pgStorage "payment-reconciler/internal/adapter/storage/postgres"
	redisStorage "payment-reconciler/internal/adapter/storage/redis"
	"payment-reconciler/internal/core/ports"
	"payment-reconciler/internal/metrics"
	"payment-reconciler/internal/service"
	"payment-reconciler/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
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
		Msg("Starting Payment Reconciler")

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
	paymentRepo := pgStorage.NewPaymentRepo(pool)
	orderRepo := pgStorage.NewOrderRepo(pool)
	failedEventRepo := pgStorage.NewFailedEventRepo(pool)

	// Per-payment processing lock
	var paymentLock ports.PaymentLock
	switch cfg.Lock.Backend {
	case "redis":
		paymentLock = lock.NewRedisLock(rdb, cfg.Lock.TTL)
		log.Info().Msg("Using Redis payment lock")
	default:
		memLock := lock.NewMemoryLock(cfg.Lock.TTL, cfg.Lock.SweepInterval)
		defer memLock.Close()
		paymentLock = memLock
		log.Info().Msg("Using in-memory payment lock")
	}

	// Gateway client
	gw := gatewayClient.NewClient(cfg.Gateway.BaseURL, cfg.Gateway.AccessToken, cfg.Gateway.Timeout, log)

	// Metrics
	registry := prometheus.NewRegistry()
	pipelineMetrics := metrics.NewPipelineMetrics(registry)

	// Initialize core services
	sigSvc := service.NewHMACSignatureService()
	hashSvc := service.NewArgon2HashService()
	tokenSvc := service.NewJWTTokenService(cfg.Auth.JWTSecret, cfg.Auth.JWTExpiry, cfg.Auth.JWTIssuer)

	// Initialize pipeline services
	recorder := service.NewFailureRecorder(failedEventRepo, cfg.Retry.MaxRetries, log)
	processor := service.NewProcessorService(gw, orderRepo, paymentRepo, paymentLock, recorder, cfg.Gateway.Timeout, pipelineMetrics, log)
	retrySvc := service.NewRetryService(failedEventRepo, processor, cfg.Retry.Interval, cfg.Retry.BatchSize, pipelineMetrics, log)
	reportingSvc := service.NewReportingService(paymentRepo, failedEventRepo)
	authSvc := service.NewAuthService(cfg.Auth.APIKeyHash, hashSvc, tokenSvc, log)

	// Start the retry worker
	retrySvc.Start(ctx)
	defer retrySvc.Stop()
	log.Info().Dur("interval", cfg.Retry.Interval).Int("batch_size", cfg.Retry.BatchSize).Msg("Retry worker started")

	// Initialize rate limit store
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		Processor:       processor,
		RetrySvc:        retrySvc,
		ReportingSvc:    reportingSvc,
		AuthSvc:         authSvc,
		TokenSvc:        tokenSvc,
		SigSvc:          sigSvc,
		WebhookSecret:   cfg.Gateway.WebhookSecret,
		RateLimitStore:  rateLimitStore,
		HealthCheckers:  []ports.HealthChecker{pgHealth, redisHealth},
		MetricsGatherer: registry,
		Logger:          log,
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
