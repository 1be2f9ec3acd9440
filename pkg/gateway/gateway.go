// Package gateway assembles the HTTP server: configuration, storage,
// providers, the middleware pipeline, and the route table.
package gateway

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/pprof"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/gorm"

	"github.com/aiopslab/aiops-gateway/internal/api"
	"github.com/aiopslab/aiops-gateway/internal/config"
	"github.com/aiopslab/aiops-gateway/internal/models"
	"github.com/aiopslab/aiops-gateway/internal/services/agents"
	"github.com/aiopslab/aiops-gateway/internal/services/apikey"
	"github.com/aiopslab/aiops-gateway/internal/services/auth"
	"github.com/aiopslab/aiops-gateway/internal/services/cache"
	"github.com/aiopslab/aiops-gateway/internal/services/database"
	"github.com/aiopslab/aiops-gateway/internal/services/llm"
	"github.com/aiopslab/aiops-gateway/internal/services/middleware"
	"github.com/aiopslab/aiops-gateway/internal/services/ratelimit"
	"github.com/aiopslab/aiops-gateway/internal/services/security"
	"github.com/aiopslab/aiops-gateway/internal/services/usage"
)

// Gateway is one server instance.
type Gateway struct {
	config *config.Config
	app    *fiber.App

	db     *database.DB
	cache  *cache.ResponseCache
	ledger *usage.Ledger
}

// New creates a Gateway from a loaded configuration. cfg must not be nil.
func New(cfg *config.Config) *Gateway {
	if cfg == nil {
		panic("config cannot be nil - use config.LoadFromFile() to create one")
	}
	return &Gateway{config: cfg}
}

// Run validates configuration, runs the startup security checks, wires
// every service, and blocks serving traffic until shutdown.
func (g *Gateway) Run() error {
	if err := g.config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	setupLogLevel(g.config)

	// The startup guard runs before anything listens. Critical findings
	// abort the boot.
	if err := security.NewValidator(g.config).ValidateAndRaise(); err != nil {
		return err
	}

	port := g.config.Server.Port
	if port == "" {
		port = "8080"
	}
	listenAddr := ":" + port

	g.app = createFiberApp(g.config)

	// === Infrastructure ===
	dbConfig := g.config.Database
	if dbConfig == nil {
		// Single-binary default: the credential registry always needs a
		// backing store.
		dbConfig = &models.DatabaseConfig{Type: models.SQLite, FilePath: "aiops-gateway.db"}
		fiberlog.Info("No database configured, defaulting to sqlite aiops-gateway.db")
	}
	db, err := database.New(*dbConfig)
	if err != nil {
		return fmt.Errorf("failed to connect database: %w", err)
	}
	g.db = db
	defer func() {
		if err := g.db.Close(); err != nil {
			fiberlog.Errorf("Failed to close database connection: %v", err)
		}
	}()

	responseCache, err := cache.New(context.Background(), g.config.Cache)
	if err != nil {
		return fmt.Errorf("failed to connect cache: %w", err)
	}
	g.cache = responseCache
	defer func() {
		if err := g.cache.Close(); err != nil {
			fiberlog.Errorf("Failed to close cache client: %v", err)
		}
	}()

	// === Services ===
	gormDB := gormHandle(g.db)

	apiKeyService := apikey.NewService(gormDB)
	if err := apiKeyService.AutoMigrate(); err != nil {
		return fmt.Errorf("failed to migrate api_keys: %w", err)
	}

	ledger, err := usage.NewLedger(gormDB, g.config.Budget)
	if err != nil {
		return fmt.Errorf("failed to initialize usage ledger: %w", err)
	}
	g.ledger = ledger

	manager, err := llm.NewManager(g.config.Providers)
	if err != nil {
		return fmt.Errorf("failed to initialize providers: %w", err)
	}

	agentService := agents.NewService(manager, g.cache)

	codec := auth.NewTokenCodec(g.config.Auth.JWTSecret)
	authService := auth.NewService(codec, apiKeyService, g.config.Auth)

	limiter := ratelimit.New(g.config.RateLimit)
	defer limiter.Close()

	metrics := middleware.NewMetrics()

	// === Middleware and routes ===
	g.setupMiddleware(authService, limiter, metrics)
	g.setupRoutes(authService, apiKeyService, agentService, manager, metrics)

	fmt.Printf("aiops-gateway starting on %s\n", listenAddr)
	fmt.Printf("  Environment: %s\n", g.config.Server.Environment)
	fmt.Printf("  Go version: %s, GOMAXPROCS: %d\n", runtime.Version(), runtime.GOMAXPROCS(0))

	return g.serve(listenAddr)
}

// serve listens and blocks until a signal or a server error, then shuts
// down gracefully with a 30 second deadline.
func (g *Gateway) serve(listenAddr string) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		if err := g.app.Listen(listenAddr); err != nil {
			serverErrChan <- err
		}
	}()

	select {
	case sig := <-sigChan:
		fiberlog.Infof("Received signal: %v. Starting graceful shutdown...", sig)
	case err := <-serverErrChan:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	shutdownErrChan := make(chan error, 1)
	go func() {
		shutdownErrChan <- g.app.ShutdownWithTimeout(30 * time.Second)
	}()

	select {
	case err := <-shutdownErrChan:
		if err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		fiberlog.Info("Server shutdown completed successfully")
	case <-shutdownCtx.Done():
		return fmt.Errorf("shutdown timeout exceeded")
	}

	return nil
}

// setupMiddleware mounts the pipeline in its fixed order: recover, security
// headers, compression, request ID + timing + metrics, access logging,
// payload validation, address-keyed rate limiting, CORS, authentication,
// subject-keyed rate limiting. The limiter therefore sees invalid-credential
// traffic before the registry is consulted.
func (g *Gateway) setupMiddleware(authService *auth.Service, limiter *ratelimit.Limiter, metrics *middleware.Metrics) {
	isProd := g.config.IsProduction()

	// Recover must be first.
	g.app.Use(recover.New(recover.Config{
		EnableStackTrace: !isProd,
	}))

	g.app.Use(helmet.New())

	g.app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	g.app.Use(middleware.RequestID())
	g.app.Use(middleware.ProcessTime())
	g.app.Use(metrics.Handle())

	if isProd {
		g.app.Use(logger.New(logger.Config{
			Format: "${time} ${status} ${method} ${path} ${latency} ${bytesSent}b\n",
			Output: os.Stdout,
		}))
	} else {
		g.app.Use(logger.New(logger.Config{
			Format: "[${time}] ${status} - ${latency} ${method} ${path} ${error}\n",
			Output: os.Stdout,
		}))
	}

	g.app.Use(middleware.NewValidationMiddleware(nil).Handle())

	rateLimitMW := middleware.NewRateLimitMiddleware(limiter, g.config.RateLimit)
	g.app.Use(rateLimitMW.PreAuth())

	g.app.Use(cors.New(cors.Config{
		AllowOrigins:  g.config.Server.AllowedOrigins,
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, X-API-Key, X-Request-ID",
		AllowMethods:  "GET, POST, PUT, DELETE, OPTIONS",
		MaxAge:        86400,
		ExposeHeaders: "Content-Length, Content-Type, X-Request-ID, X-Process-Time, X-RateLimit-Limit, X-RateLimit-Remaining, X-RateLimit-Reset, Retry-After",
	}))

	authSkipPaths := []string{"/", "/health", "/metrics", "/v1/auth/token"}
	authMW := middleware.NewAuthMiddleware(authService, authSkipPaths)
	g.app.Use(authMW.Authenticate())

	g.app.Use(rateLimitMW.PerIdentity())

	if !isProd {
		g.app.Use(pprof.New())
	}
}

func (g *Gateway) setupRoutes(
	authService *auth.Service,
	apiKeyService *apikey.Service,
	agentService *agents.Service,
	manager *llm.Manager,
	metrics *middleware.Metrics,
) {
	authMW := middleware.NewAuthMiddleware(authService, nil)
	usageTracker := middleware.NewUsageTracker(g.ledger)

	healthHandler := api.NewHealthHandler(g.db, g.cache, manager)
	authHandler := api.NewAuthHandler(authService)
	apiKeyHandler := api.NewAPIKeyHandler(apiKeyService)
	usageHandler := api.NewUsageHandler(g.ledger)
	agentsHandler := api.NewAgentsHandler(agentService, g.ledger)
	metricsHandler := api.NewMetricsHandler(metrics)

	g.app.Get("/", welcomeHandler())
	g.app.Get("/health", healthHandler.HealthCheck)
	g.app.Get("/metrics", metricsHandler.GetMetrics)

	v1 := g.app.Group("/v1")
	v1.Post("/auth/token", authHandler.Login)

	// Agents incur provider spend: they sit behind the budget gate.
	agentRoutes := v1.Group("/agents",
		authMW.RequireRole(models.RoleUser),
		usageTracker.TrackUsage(),
	)
	agentRoutes.Post("/code-review", agentsHandler.ReviewCode)
	agentRoutes.Post("/log-analysis", agentsHandler.AnalyzeLogs)
	agentRoutes.Post("/test-generation", agentsHandler.GenerateTests)

	usageRoutes := v1.Group("/usage", authMW.RequireRole(models.RoleReadonly))
	usageRoutes.Get("/stats", usageHandler.GetStats)
	usageRoutes.Get("/budget", usageHandler.GetBudget)

	adminRoutes := v1.Group("/admin", authMW.RequireRole(models.RoleAdmin))
	adminRoutes.Post("/keys", apiKeyHandler.CreateAPIKey)
	adminRoutes.Get("/keys", apiKeyHandler.ListAPIKeys)
	adminRoutes.Delete("/keys/:keyHash", apiKeyHandler.RevokeAPIKey)
	adminRoutes.Post("/usage/reset", usageHandler.ResetUsage)
	adminRoutes.Get("/providers/health", healthHandler.ProviderHealth)
}

func createFiberApp(cfg *config.Config) *fiber.App {
	isProd := cfg.IsProduction()

	return fiber.New(fiber.Config{
		AppName:           "aiops-gateway v1.0",
		EnablePrintRoutes: !isProd,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       5 * time.Minute,
		ReadBufferSize:    8192,
		WriteBufferSize:   8192,
		BodyLimit:         10 * 1024 * 1024,
		CaseSensitive:     true,
		ServerHeader:      "aiops-gateway",
	})
}

// gormHandle unwraps the gorm connection; nil when no database is
// configured, which puts the registry and ledger in memory-only mode.
func gormHandle(db *database.DB) *gorm.DB {
	if db == nil {
		return nil
	}
	return db.DB
}

func welcomeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"service": "aiops-gateway",
			"version": "1.0",
			"status":  "running",
		})
	}
}

func setupLogLevel(cfg *config.Config) {
	logLevel := cfg.GetNormalizedLogLevel()

	switch logLevel {
	case "trace":
		fiberlog.SetLevel(fiberlog.LevelTrace)
	case "debug":
		fiberlog.SetLevel(fiberlog.LevelDebug)
	case "info":
		fiberlog.SetLevel(fiberlog.LevelInfo)
	case "warn", "warning":
		fiberlog.SetLevel(fiberlog.LevelWarn)
	case "error":
		fiberlog.SetLevel(fiberlog.LevelError)
	default:
		fiberlog.SetLevel(fiberlog.LevelInfo)
		fiberlog.Warnf("Unknown log level '%s', defaulting to 'info'", logLevel)
	}

	fiberlog.Infof("Log level set to: %s", logLevel)
}
