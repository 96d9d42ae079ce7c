package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appar "github.com/arledger/backend/internal/application/ar"
	"github.com/arledger/backend/internal/infrastructure/config"
	"github.com/arledger/backend/internal/infrastructure/event"
	"github.com/arledger/backend/internal/infrastructure/logger"
	"github.com/arledger/backend/internal/infrastructure/persistence"
	"github.com/arledger/backend/internal/infrastructure/scheduler"
	"github.com/arledger/backend/internal/interfaces/http/handler"
	"github.com/arledger/backend/internal/interfaces/http/middleware"
	"github.com/arledger/backend/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting AR Ledger Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// All services share a single transaction scope so that every operation
	// sees a consistent set of repositories inside one database transaction.
	txScope := persistence.NewGormTransactionScope(db.DB)

	// Event bus carries domain events to in-process subscribers.
	// The audit handler keeps a structured trail of every settlement event.
	eventBus := event.NewInMemoryEventBus(log)
	eventBus.Subscribe(event.NewAuditLogHandler(log))

	// Initialize application services
	paymentService := appar.NewPaymentService(txScope,
		appar.WithApprovalThreshold(cfg.Settlement.ApprovalThreshold),
		appar.WithPaymentConflictRetries(cfg.Settlement.ConflictRetries),
		appar.WithPaymentEventPublisher(eventBus),
		appar.WithPaymentLogger(log),
	)
	creditService := appar.NewCreditService(txScope,
		appar.WithCreditConflictRetries(cfg.Settlement.ConflictRetries),
		appar.WithCreditEventPublisher(eventBus),
		appar.WithCreditLogger(log),
	)
	allocationService := appar.NewAllocationService(txScope,
		appar.WithCreditRefresher(creditService),
		appar.WithAllocationConflictRetries(cfg.Settlement.ConflictRetries),
		appar.WithAllocationEventPublisher(eventBus),
		appar.WithAllocationLogger(log),
	)
	agingService := appar.NewAgingService(txScope,
		appar.WithAgingLogger(log),
	)

	// Initialize aging snapshot scheduler (if enabled)
	var snapshotScheduler *scheduler.AgingSnapshotScheduler
	if cfg.Scheduler.Enabled {
		cronHour, cronMinute, err := scheduler.ParseCronSchedule(cfg.Scheduler.DailyCronSchedule)
		if err != nil {
			log.Fatal("Invalid scheduler cron schedule", zap.Error(err))
		}
		schedulerConfig := scheduler.AgingSnapshotSchedulerConfig{
			Enabled:           cfg.Scheduler.Enabled,
			CronHour:          cronHour,
			CronMinute:        cronMinute,
			DailyCronSchedule: cfg.Scheduler.DailyCronSchedule,
			JobTimeout:        cfg.Scheduler.JobTimeout,
			RetryAttempts:     cfg.Scheduler.RetryAttempts,
			RetryDelay:        cfg.Scheduler.RetryDelay,
		}
		snapshotScheduler = scheduler.NewAgingSnapshotScheduler(schedulerConfig, agingService, log)
		if err := snapshotScheduler.Start(context.Background()); err != nil {
			log.Fatal("Failed to start aging snapshot scheduler", zap.Error(err))
		}
		defer func() {
			if err := snapshotScheduler.Stop(context.Background()); err != nil {
				log.Error("Error stopping aging snapshot scheduler", zap.Error(err))
			}
		}()
		log.Info("Aging snapshot scheduler started",
			zap.String("schedule", cfg.Scheduler.DailyCronSchedule),
			zap.Duration("job_timeout", cfg.Scheduler.JobTimeout),
		)
	}

	// Initialize HTTP handlers
	receiptHandler := handler.NewPaymentReceiptHandler(paymentService)
	allocationHandler := handler.NewAllocationHandler(allocationService)
	creditHandler := handler.NewCreditHandler(creditService)
	agingHandler := handler.NewAgingHandler(agingService)
	systemHandler := handler.NewSystemHandler(snapshotScheduler)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	// Initialize router with custom middleware
	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Apply middleware stack in order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Recovery - Catch panics
	// 3. Logger - Log requests
	// 4. Security - Add security headers
	// 5. CORS - Handle cross-origin requests
	// 6. BodyLimit - Limit request body size
	// 7. RateLimit - Apply rate limiting (if enabled)
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())

	// Configure CORS from config
	corsConfig := middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	// Body size limit
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	// Rate limiting (if enabled)
	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		defer rateLimiter.Stop()
		engine.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	// Health check endpoint (outside API versioning)
	engine.GET("/health", healthHandler(db, log))

	// Setup API routes using router
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))

	// Settlement domain (payment receipts and allocations)
	settlementRoutes := router.NewDomainGroup("settlement", "/settlement")
	settlementRoutes.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "settlement service ready"})
	})

	// Payment receipt routes
	settlementRoutes.POST("/receipts", receiptHandler.Create)
	settlementRoutes.GET("/receipts", receiptHandler.List)
	settlementRoutes.GET("/receipts/number/:number", receiptHandler.GetByNumber)
	settlementRoutes.GET("/receipts/:id", receiptHandler.GetByID)
	settlementRoutes.DELETE("/receipts/:id", receiptHandler.Delete)
	settlementRoutes.POST("/receipts/:id/verify", receiptHandler.Verify)
	settlementRoutes.POST("/receipts/:id/approve", receiptHandler.Approve)
	settlementRoutes.POST("/receipts/:id/reject", receiptHandler.Reject)

	// Allocation routes
	settlementRoutes.POST("/receipts/:id/allocations", allocationHandler.Allocate)
	settlementRoutes.GET("/receipts/:id/allocations", allocationHandler.ListByReceipt)
	settlementRoutes.GET("/receipts/:id/allocations/suggestions", allocationHandler.GetSuggestions)
	settlementRoutes.POST("/receipts/:id/allocations/auto", allocationHandler.AutoAllocate)
	settlementRoutes.POST("/receipts/:id/reduce-total", allocationHandler.ReduceTotal)
	settlementRoutes.POST("/allocations/:id/apply", allocationHandler.Apply)
	settlementRoutes.POST("/allocations/:id/reverse", allocationHandler.Reverse)
	settlementRoutes.POST("/allocations/:id/cancel", allocationHandler.Cancel)
	settlementRoutes.GET("/invoices/:id/allocations", allocationHandler.ListByInvoice)

	// Credit domain (customer credit profiles)
	creditRoutes := router.NewDomainGroup("credit", "/credit")
	creditRoutes.GET("/customers/:id/profile", creditHandler.GetProfile)
	creditRoutes.POST("/customers/:id/refresh", creditHandler.RefreshBalance)
	creditRoutes.POST("/customers/:id/check", creditHandler.CheckCreditSale)
	creditRoutes.PUT("/customers/:id/limit", creditHandler.AdjustLimit)
	creditRoutes.POST("/customers/:id/review", creditHandler.RunReview)
	creditRoutes.POST("/reviews/due", creditHandler.RunDueReviews)

	// Aging domain (aging reports and snapshots)
	agingRoutes := router.NewDomainGroup("aging", "/aging")
	agingRoutes.GET("/report", agingHandler.GetReport)
	agingRoutes.GET("/summary", agingHandler.GetSummary)
	agingRoutes.GET("/trends", agingHandler.GetTrends)
	agingRoutes.GET("/customers/:id/outstanding", agingHandler.GetCustomerOutstanding)
	agingRoutes.GET("/customers/:id/aging", agingHandler.GetCustomerAging)
	agingRoutes.GET("/customers/:id/snapshots", agingHandler.GetCustomerSnapshots)
	agingRoutes.POST("/customers/:id/snapshots", agingHandler.UpdateCustomerSnapshot)
	agingRoutes.POST("/snapshots/generate", agingHandler.GenerateSnapshots)

	// System routes
	systemRoutes := router.NewDomainGroup("system", "/system")
	systemRoutes.GET("/info", systemHandler.GetSystemInfo)
	systemRoutes.GET("/ping", systemHandler.Ping)
	systemRoutes.GET("/scheduler/status", systemHandler.GetSchedulerStatus)
	systemRoutes.POST("/scheduler/run", systemHandler.TriggerSnapshotRun)

	// Register all domain groups
	r.Register(settlementRoutes).
		Register(creditRoutes).
		Register(agingRoutes).
		Register(systemRoutes)

	// Setup routes
	r.Setup()

	// Also keep a simple ping at root API level for basic health checks
	engine.GET("/api/v1/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// healthHandler returns a handler for health check endpoints
func healthHandler(db *persistence.Database, _ *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		if err := db.Ping(); err != nil {
			reqLog.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
