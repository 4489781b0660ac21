package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/gzip"
	"github.com/go-redis/redis/v8"
	_ "github.com/joho/godotenv/autoload"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/sjperalta/billtrack-api/docs" // Swagger docs
	"github.com/sjperalta/billtrack-api/internal/config"
	"github.com/sjperalta/billtrack-api/internal/database"
	"github.com/sjperalta/billtrack-api/internal/handlers"
	"github.com/sjperalta/billtrack-api/internal/jobs"
	"github.com/sjperalta/billtrack-api/internal/middleware"
	"github.com/sjperalta/billtrack-api/internal/models"
	"github.com/sjperalta/billtrack-api/internal/numbering"
	"github.com/sjperalta/billtrack-api/internal/repository"
	"github.com/sjperalta/billtrack-api/internal/services"
	"github.com/sjperalta/billtrack-api/pkg/logger"

	"github.com/gin-gonic/gin"
)

// @title BillTrack API
// @version 1.0
// @description REST API for client billing: work logs, invoices, payments and balances
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.url http://www.swagger.io/support
// @contact.email support@swagger.io

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @host localhost:8080
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Setup(cfg.Environment, cfg.LogLevel)

	// Initialize Sentry (GlitchTip) when DSN is configured
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			TracesSampleRate: 0.2,
			Environment:      cfg.Environment,
		}); err != nil {
			logger.Error("Sentry initialization failed", "error", err)
		} else {
			logger.Info("Sentry initialized")
		}
	}

	// Set Gin mode
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Connect to database
	db, err := database.Connect(cfg.DatabaseURL, database.Options{Production: cfg.IsProduction()})
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	logger.Info("Connected to database")

	if cfg.AutoMigrate {
		if err := database.Migrate(db); err != nil {
			logger.Error("Failed to migrate database", "error", err)
			os.Exit(1)
		}
		logger.Info("Database schema migrated")
	}

	// Initialize repositories
	repos := repository.NewRepositories(db)

	sequencer, closeSequencer, err := newSequencer(cfg)
	if err != nil {
		logger.Error("Failed to initialize invoice numbering", "error", err)
		os.Exit(1)
	}
	defer closeSequencer()

	// Initialize background worker
	worker := jobs.NewWorker(cfg.WorkerCount)
	logger.Info("Started background worker", "goroutines", cfg.WorkerCount)

	// Initialize services
	svcs := services.NewServices(repos, worker, sequencer, cfg)

	// Schedule recurring jobs
	svcs.Job.ScheduleMaintenance(cfg.OverdueSweepInterval, cfg.BalanceSweepInterval)

	// Initialize handlers
	h := handlers.NewHandlers(svcs)

	// Setup router
	router := setupRouter(h, cfg)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server starting", "port", cfg.Port, "invoice_sequence", cfg.InvoiceSequence)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	worker.Shutdown()
	logger.Info("Background worker stopped")

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}

	// Flush Sentry events before exit
	if cfg.SentryDSN != "" {
		sentry.Flush(5 * time.Second)
	}

	logger.Info("Server exited gracefully")
}

// newSequencer picks the invoice number source. The returned func releases
// whatever connection it holds.
func newSequencer(cfg *config.Config) (numbering.Sequencer, func(), error) {
	if cfg.InvoiceSequence != config.SequenceRedis {
		return numbering.NewDatabaseSequencer(), func() {}, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}
	logger.Info("Invoice numbers served from redis", "key", numbering.DefaultRedisKey)
	return numbering.NewRedisSequencer(client, numbering.DefaultRedisKey), func() { _ = client.Close() }, nil
}

func setupRouter(h *handlers.Handlers, cfg *config.Config) *gin.Engine {
	router := gin.New()

	// Global middleware
	if cfg.SentryDSN != "" {
		router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.CORS(cfg.AllowedOrigins))
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	// Redirect root to swagger
	router.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/swagger/index.html")
	})

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Health check (public)
		v1.GET("/health", h.Health.Index)

		protected := v1.Group("")
		protected.Use(middleware.Auth(cfg.JWTSecret))
		{
			// Any authenticated caller, client-portal users included
			protected.GET("/invoices", h.Invoice.Index)
			protected.GET("/invoices/:id", h.Invoice.Show)
			protected.GET("/invoices/:id/pdf", h.Invoice.PDF)
			protected.GET("/invoices/client/:clientId/stats", h.Invoice.ClientStats)

			// Payments readable by clients too
			payRead := protected.Group("")
			payRead.Use(middleware.RequireRole(models.RoleAdmin, models.RoleStaff, models.RoleClient))
			{
				payRead.GET("/payments", h.Payment.Index)
				payRead.GET("/payments/:id", h.Payment.Show)
				payRead.GET("/payments/client/:clientId", h.Payment.ByClient)
			}

			// Dashboards
			reporting := protected.Group("/dashboard")
			reporting.Use(middleware.RequireRole(models.RoleAdmin, models.RoleStaff, models.RoleViewer))
			{
				reporting.GET("/summary", h.Dashboard.Summary)
				reporting.GET("/status-breakdown", h.Dashboard.StatusBreakdown)
				reporting.GET("/revenue-trend", h.Dashboard.RevenueTrend)
				reporting.GET("/top-clients", h.Dashboard.TopClients)
				reporting.GET("/profit", h.Dashboard.TenantProfit)
				reporting.GET("/profit/projects/:projectId", h.Dashboard.ProjectProfit)
				reporting.GET("/project-profitability", h.Dashboard.ProjectProfitability)
				reporting.GET("/expenses/monthly", h.Dashboard.MonthlyExpenses)
				reporting.GET("/expense-trend", h.Dashboard.ExpensesTrend)
				reporting.GET("/expenses-by-category", h.Dashboard.ExpensesByCategory)
			}

			// Staff and admin
			staff := protected.Group("")
			staff.Use(middleware.RequireRole(models.RoleAdmin, models.RoleStaff))
			{
				staff.GET("/clients", h.Client.Index)
				staff.POST("/clients", h.Client.Create)
				staff.GET("/clients/:id", h.Client.Show)
				staff.POST("/clients/:id/recompute", h.Client.Recompute)
				staff.GET("/clients/:id/statement.xlsx", h.Client.Statement)

				staff.GET("/projects", h.Project.Index)
				staff.POST("/projects", h.Project.Create)

				staff.GET("/work-logs", h.WorkLog.Index)
				staff.POST("/work-logs", h.WorkLog.Create)
				staff.PUT("/work-logs/:id", h.WorkLog.Update)
				staff.DELETE("/work-logs/:id", h.WorkLog.Delete)

				staff.POST("/invoices", h.Invoice.Create)
				staff.PUT("/invoices/:id", h.Invoice.Update)
				staff.DELETE("/invoices/:id", h.Invoice.Delete)
				staff.POST("/invoices/:id/payment", h.Invoice.RecordPayment)

				staff.POST("/payments", h.Payment.Create)

				staff.GET("/expenses", h.Expense.Index)
				staff.POST("/expenses", h.Expense.Create)
				staff.GET("/expenses/summary", h.Expense.Summary)
				staff.GET("/expenses/analytics/by-category", h.Expense.ByCategory)
				staff.GET("/expenses/analytics/by-month", h.Expense.ByMonth)
				staff.PATCH("/expenses/bulk/status", h.Expense.BulkUpdateStatus)
				staff.GET("/expenses/:id", h.Expense.Show)
				staff.PUT("/expenses/:id", h.Expense.Update)
				staff.DELETE("/expenses/:id", h.Expense.Delete)
			}

			// Admin only
			admin := protected.Group("")
			admin.Use(middleware.RequireAdmin())
			{
				admin.PUT("/payments/:id", h.Payment.Update)
				admin.DELETE("/payments/:id", h.Payment.Delete)
				admin.GET("/audit-logs", h.Audit.Index)
				admin.GET("/jobs/status", h.Job.Status)
			}
		}
	}

	return router
}
