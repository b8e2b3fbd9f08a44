// Package gateway wires the HTTP surface of the LifeCompass backend: the
// career AI endpoints backed by the provider router and, when a database is
// configured, the applicant tracking API.
package gateway

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lifecompass/backend/internal/ats"
	"github.com/lifecompass/backend/internal/auth"
	"github.com/lifecompass/backend/internal/config"
	"github.com/lifecompass/backend/internal/middleware"
	"github.com/lifecompass/backend/internal/router"
	"github.com/lifecompass/backend/internal/storage"
	"github.com/lifecompass/backend/pkg/types"
	"github.com/lifecompass/backend/pkg/utils"
)

const (
	serviceName    = "LifeCompass AI Backend"
	serviceVersion = "2.0.0"

	shutdownTimeout = 10 * time.Second
	healthTimeout   = 5 * time.Second
)

// Dependencies are the long lived clients the gateway serves from.
// DB and Redis are optional.
type Dependencies struct {
	Router *router.Router
	DB     *storage.Database
	Redis  *storage.RedisClient
}

// Gateway is the HTTP server of the backend
type Gateway struct {
	config    *types.Config
	engine    *gin.Engine
	server    *http.Server
	logger    *utils.Logger
	startedAt time.Time

	router *router.Router
	db     *storage.Database
	redis  *storage.RedisClient

	configManager       *ConfigManager
	authService         *auth.AuthService
	authMiddleware      *middleware.AuthMiddleware
	rateLimitMiddleware *middleware.RateLimitMiddleware

	aiHandlers          *AIHandlers
	authHandlers        *AuthHandlers
	jobHandlers         *JobHandlers
	applicationHandlers *ApplicationHandlers
	messageHandlers     *MessageHandlers
	adminHandlers       *AdminHandlers
}

// New builds the gateway and its routes
func New(cfg *types.Config, deps Dependencies, logger *utils.Logger) *Gateway {
	if logger == nil {
		logger = utils.NewNopLogger()
	}

	g := &Gateway{
		config:    cfg,
		engine:    gin.New(),
		logger:    logger,
		startedAt: time.Now(),
		router:    deps.Router,
		db:        deps.DB,
		redis:     deps.Redis,
	}
	g.configManager = NewConfigManager(cfg, logger)
	g.configManager.AddWatcher(NewLogLevelWatcher(logger))

	var users auth.UserStore
	if g.db != nil {
		users = g.db.UserRepo()
	}
	switch {
	case config.UsableJWTSecret(cfg.Auth.JWTSecret):
		g.authService = auth.NewAuthService(&cfg.Auth, users, logger)
	case cfg.Auth.JWTSecret != "":
		logger.Warn("Ignoring placeholder JWT secret")
	}
	if g.authService != nil {
		g.authMiddleware = middleware.NewAuthMiddleware(g.authService, logger)
	} else {
		g.authMiddleware = middleware.NewAuthMiddleware(nil, logger)
	}

	var cache *storage.CacheManager
	if g.redis != nil {
		g.rateLimitMiddleware = middleware.NewRateLimitMiddleware(storage.NewRateLimiter(g.redis), logger)
		cache = storage.NewCacheManager(g.redis, "lifecompass:")
	} else {
		g.rateLimitMiddleware = middleware.NewRateLimitMiddleware(nil, logger)
	}

	g.aiHandlers = NewAIHandlers(g.router, logger)
	g.adminHandlers = NewAdminHandlers(g.router, g.authService, g.configManager, logger)
	if g.authService != nil {
		g.authHandlers = NewAuthHandlers(g.authService, logger)
	}
	if g.db != nil {
		messages := ats.NewMessageService(g.db.DB, logger)
		g.jobHandlers = NewJobHandlers(ats.NewJobService(g.db.DB, cache, logger), logger)
		g.applicationHandlers = NewApplicationHandlers(ats.NewApplicationService(g.db.DB, messages, logger), messages, logger)
		g.messageHandlers = NewMessageHandlers(messages, logger)
	}

	g.setupMiddleware()
	g.setupRoutes()
	return g
}

// Handler exposes the routes, mainly for tests
func (g *Gateway) Handler() http.Handler {
	return g.engine
}

// ConfigManager returns the runtime configuration holder
func (g *Gateway) ConfigManager() *ConfigManager {
	return g.configManager
}

// setupMiddleware configures global middleware
func (g *Gateway) setupMiddleware() {
	g.engine.Use(gin.Recovery())
	g.engine.Use(middleware.RequestID())
	g.engine.Use(middleware.CORS(g.config.CORS.AllowedOrigins))
	g.engine.Use(middleware.Logger(g.logger))
}

// setupRoutes configures API routes
func (g *Gateway) setupRoutes() {
	g.engine.GET("/", g.root)
	g.engine.GET("/health", g.basicHealthCheck)
	g.engine.GET("/health/detailed", g.healthCheckDetailed)

	limit := g.rateLimitMiddleware.RateLimitFunc(g.configManager.RateLimit)

	api := g.engine.Group("/api")
	api.Use(g.authMiddleware.OptionalAuth())
	{
		api.GET("/providers", g.aiHandlers.ListProviders)
		api.POST("/chat", limit, g.aiHandlers.Chat)
		api.POST("/resume/analyze", limit, g.aiHandlers.AnalyzeResume)
		api.POST("/jobs/recommend", limit, g.aiHandlers.RecommendJobs)
	}

	// token checks only need the secret, so admin provider stats work
	// without a database
	if g.authService == nil {
		g.logger.Warn("JWT secret not set, authenticated routes are disabled")
		return
	}
	requireAuth := g.authMiddleware.RequireAuth()

	admin := api.Group("/admin")
	admin.Use(requireAuth, g.authMiddleware.RequireRole(types.RoleAdmin))
	{
		admin.GET("/providers/stats", g.adminHandlers.ProviderStats)
		admin.GET("/config", g.adminHandlers.GetConfig)
		admin.PUT("/config", g.adminHandlers.UpdateConfig)
	}

	if g.db == nil {
		g.logger.Info("Database disabled, applicant tracking routes are not mounted")
		return
	}

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", g.authHandlers.Register)
		authGroup.POST("/login", g.authHandlers.Login)
		authGroup.POST("/refresh", g.authHandlers.RefreshToken)
	}
	api.GET("/me", requireAuth, g.authHandlers.Me)
	admin.PUT("/users/:id/role", g.adminHandlers.ChangeRole)

	jobs := api.Group("/jobs")
	{
		jobs.GET("", g.jobHandlers.List)
		jobs.GET("/trending-skills", g.jobHandlers.TrendingSkills)
		jobs.GET("/stats", requireAuth, g.jobHandlers.Stats)
		jobs.GET("/saved", requireAuth, g.jobHandlers.SavedJobs)
		jobs.GET("/:id", g.jobHandlers.Get)
		jobs.POST("", requireAuth, g.authMiddleware.RequirePermission(auth.PermPostJobs), g.jobHandlers.Create)
		jobs.PUT("/:id", requireAuth, g.jobHandlers.Update)
		jobs.DELETE("/:id", requireAuth, g.jobHandlers.Delete)
		jobs.PUT("/:id/status", requireAuth, g.jobHandlers.ChangeStatus)
		jobs.POST("/:id/save", requireAuth, g.jobHandlers.Save)
		jobs.DELETE("/:id/save", requireAuth, g.jobHandlers.Unsave)

		jobs.POST("/:id/applications", requireAuth, g.applicationHandlers.Submit)
		jobs.GET("/:id/applications", requireAuth, g.applicationHandlers.ListForJob)
	}

	apps := api.Group("/applications")
	apps.Use(requireAuth)
	{
		apps.GET("", g.applicationHandlers.ListMine)
		apps.GET("/stats", g.applicationHandlers.Stats)
		apps.PUT("/bulk-status", g.applicationHandlers.BulkUpdate)
		apps.GET("/:id", g.applicationHandlers.Get)
		apps.PUT("/:id/status", g.applicationHandlers.UpdateStatus)
		apps.PUT("/:id/rating", g.applicationHandlers.Rate)
		apps.POST("/:id/withdraw", g.applicationHandlers.Withdraw)
		apps.GET("/:id/history", g.applicationHandlers.History)
		apps.GET("/:id/messages", g.applicationHandlers.Messages)
	}

	msgs := api.Group("/messages")
	msgs.Use(requireAuth)
	{
		msgs.POST("", g.messageHandlers.Send)
		msgs.GET("/conversations", g.messageHandlers.Conversations)
		msgs.GET("/conversations/:userId", g.messageHandlers.Conversation)
		msgs.PUT("/conversations/:userId/read", g.messageHandlers.MarkRead)
		msgs.GET("/unread-count", g.messageHandlers.UnreadCount)
		msgs.GET("/search", g.messageHandlers.Search)
		msgs.DELETE("/:id", g.messageHandlers.Delete)
	}
}

// root greets and reports which providers are available
func (g *Gateway) root(c *gin.Context) {
	body := gin.H{
		"message": "Welcome to the " + serviceName + "!",
		"version": serviceVersion,
	}
	if g.router != nil {
		body["providers"] = g.router.Registry().Status()
	}
	c.JSON(http.StatusOK, body)
}

func (g *Gateway) basicHealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   serviceVersion,
	})
}

func (g *Gateway) healthCheckDetailed(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	checks := gin.H{}
	status := "healthy"

	if g.db != nil {
		dbHealthy := g.db.Ping(ctx) == nil
		checks["database"] = dbHealthy
		if !dbHealthy {
			status = "degraded"
		}
	}
	if g.redis != nil {
		redisHealthy := g.redis.Ping(ctx) == nil
		checks["redis"] = redisHealthy
		if !redisHealthy {
			status = "degraded"
		}
	}

	providerCount := 0
	if g.router != nil {
		providerCount = g.router.Registry().Len()
		checks["providers"] = g.router.Registry().Status()
	}
	if providerCount == 0 {
		status = "degraded"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   serviceVersion,
		"uptime":    time.Since(g.startedAt).Round(time.Second).String(),
		"checks":    checks,
	})
}

// Start listens until the server is shut down
func (g *Gateway) Start() error {
	addr := fmt.Sprintf("%s:%d", g.config.Server.Host, g.config.Server.Port)

	g.server = &http.Server{
		Addr:         addr,
		Handler:      g.engine,
		ReadTimeout:  g.config.Server.ReadTimeout,
		WriteTimeout: g.config.Server.WriteTimeout,
		IdleTimeout:  g.config.Server.IdleTimeout,
	}

	g.logger.WithField("address", addr).Info("Starting " + serviceName)

	if err := g.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown stops the HTTP server and closes the database and Redis clients
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.logger.Info("Shutting down " + serviceName)

	var serverErr error
	if g.server != nil {
		if err := g.server.Shutdown(ctx); err != nil {
			g.logger.WithError(err).Error("Failed to shutdown HTTP server")
			serverErr = err
		}
	}

	if g.db != nil {
		if err := g.db.Close(); err != nil {
			g.logger.WithError(err).Warn("Failed to close database connection")
		}
	}
	if g.redis != nil {
		if err := g.redis.Close(); err != nil {
			g.logger.WithError(err).Warn("Failed to close Redis connection")
		}
	}

	g.logger.Info("Shutdown completed")
	return serverErr
}

// Run starts the gateway and shuts it down on SIGINT or SIGTERM
func (g *Gateway) Run() error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- g.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		g.logger.WithField("signal", sig.String()).Info("Received shutdown signal")

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return g.Shutdown(ctx)
	}
}
