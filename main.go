package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"parkflow/internal/api"
	"parkflow/internal/api/handler"
	"parkflow/internal/api/middleware"
	"parkflow/internal/cache"
	"parkflow/internal/checkout"
	"parkflow/internal/client/backend"
	"parkflow/internal/config"
	"parkflow/internal/logger"
	"parkflow/internal/notify"
	"parkflow/internal/repository"
	"parkflow/internal/repository/postgresql"
	"parkflow/internal/service"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const maintenanceInterval = time.Minute

func main() {
	// 1. Configuration and logging
	cfg := config.Load()
	logger.InitLoggerWithConfig(logger.LoggerConfig{
		Level:       cfg.LogLevel,
		Stage:       cfg.Stage,
		EnableJSON:  cfg.Stage == logger.ProdStage,
		EnableColor: cfg.Stage != logger.ProdStage,
	})
	defer func() { _ = logger.Sync() }()

	if cfg.Stage == logger.ProdStage {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.JWTSecret == "" {
		logger.Fatal("JWT_SECRET must be set")
	}

	rootCtx, cancelRoot := context.WithCancel(context.Background())
	defer cancelRoot()
	var wg sync.WaitGroup

	// 2. Backend client
	retry := backend.DefaultRetryConfig()
	retry.MaxRetries = cfg.BackendMaxRetries
	backendClient := backend.NewClient(
		backend.WithBaseURL(cfg.BackendBaseURL),
		backend.WithTimeout(cfg.BackendTimeout),
		backend.WithRetryConfig(retry),
	)
	logger.Info("Backend client configured", zap.String("base_url", backendClient.BaseURL()))

	// 3. Rate lookups, optionally through Redis
	var rates checkout.RateProvider = backendClient
	if cfg.RedisAddr != "" {
		rdb := cache.NewRedis(cfg.RedisAddr)
		defer rdb.Close()
		if err := rdb.Ping(rootCtx).Err(); err != nil {
			logger.Warn("Redis not reachable, rate cache will fall through to the backend", zap.Error(err))
		}
		rates = cache.NewRateCache(rdb, backendClient, cfg.RateCacheTTL)
		logger.Info("Rate cache enabled", zap.String("addr", cfg.RedisAddr), zap.Duration("ttl", cfg.RateCacheTTL))
	}

	// 4. Receipt journal
	var receipts repository.ReceiptRepository
	if cfg.DBHost != "" {
		db, err := postgresql.NewDB(cfg)
		if err != nil {
			logger.Fatal("Could not connect to database", zap.Error(err))
		}
		defer db.Close()
		if err := postgresql.EnsureSchema(rootCtx, db); err != nil {
			logger.Fatal("Could not create receipt schema", zap.Error(err))
		}
		receipts = postgresql.NewPgReceiptRepository(db)
		logger.Info("Receipt journal enabled", zap.String("db_host", cfg.DBHost))
	} else {
		logger.Warn("DB_HOST not set, receipt journal disabled")
	}

	// 5. Checkout event queue
	var publisher service.EventPublisher
	var sqsPublisher *notify.SQSPublisher
	if cfg.SQSCheckoutQueueURL != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(rootCtx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			logger.Fatal("Could not load AWS SDK config", zap.Error(err))
		}
		sqsPublisher = notify.NewSQSPublisher(sqs.NewFromConfig(awsCfg), cfg.SQSCheckoutQueueURL)
		publisher = sqsPublisher
		wg.Add(1)
		go func() {
			defer wg.Done()
			sqsPublisher.Start(rootCtx)
		}()
	} else {
		logger.Warn("SQS_CHECKOUT_QUEUE_URL not set, checkout events will not be queued")
	}

	// 6. WebSocket hub
	wsManager := handler.NewWebSocketManager()
	go wsManager.Start(rootCtx)

	// 7. Services
	authService := service.NewAuthService(cfg.JWTSecret)
	checkoutService := service.NewCheckoutService(service.CheckoutDeps{
		Rates:       rates,
		Persister:   backendClient,
		Vehicles:    backendClient,
		Receipts:    receipts,
		Publisher:   publisher,
		Broadcaster: wsManager,
	}, checkout.Options{
		RefreshInterval: cfg.CheckoutRefreshInterval,
		AllowZeroAmount: cfg.AllowZeroAmountCheckout,
	})

	var rateLimiter *middleware.RateLimiter
	if cfg.RateLimitPerSecond > 0 {
		rateLimiter = middleware.NewRateLimiter(cfg.RateLimitPerSecond, cfg.RateLimitBurst)
	}

	go startMaintenanceJob(rootCtx, checkoutService, rateLimiter, cfg.CheckoutSessionTTL)

	// 8. HTTP server
	router := api.SetupRouter(api.RouterDeps{
		AuthService:     authService,
		CheckoutService: checkoutService,
		WSManager:       wsManager,
		RateLimiter:     rateLimiter,
		AllowedOrigins:  cfg.CORSAllowedOrigins,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	go func() {
		logger.Info("Server listening", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("ListenAndServe failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shut down", zap.Error(err))
	}

	// Close open sessions first so their final notifications still reach the queue.
	checkoutService.Shutdown()
	if sqsPublisher != nil {
		sqsPublisher.Close()
		done := make(chan struct{})
		go func() {
			defer close(done)
			wg.Wait()
		}()
		select {
		case <-done:
			logger.Info("SQS publisher drained")
		case <-time.After(5 * time.Second):
			logger.Warn("SQS publisher did not drain in time")
		}
	}
	cancelRoot()

	logger.Info("Server stopped")
}

func startMaintenanceJob(ctx context.Context, cs *service.CheckoutService, rl *middleware.RateLimiter, ttl time.Duration) {
	ticker := time.NewTicker(maintenanceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := cs.SweepIdleSessions(ttl); n > 0 {
				logger.Info("Swept idle checkout sessions", zap.Int("count", n))
			}
			if rl != nil {
				if n := rl.Cleanup(); n > 0 {
					logger.Debug("Dropped idle rate limiters", zap.Int("count", n))
				}
			}
		}
	}
}
