package main

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/calebds/proofstream/internal/api"
	"github.com/calebds/proofstream/internal/config"
	"github.com/calebds/proofstream/internal/db"
	"github.com/calebds/proofstream/internal/domainconn"
	"github.com/calebds/proofstream/internal/middleware"
	"github.com/calebds/proofstream/internal/observ"
	"github.com/calebds/proofstream/internal/realtime"
	"github.com/calebds/proofstream/internal/repository/postgres"
	"github.com/calebds/proofstream/internal/selection"
	"github.com/calebds/proofstream/internal/storage"
	"github.com/calebds/proofstream/internal/tenant"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := observ.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	// Startup gets the root context: no parent request, no deadline.
	database, err := db.New(context.Background(), cfg.DatabaseURL, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer database.Close()

	// Redis backs the host-resolution cache and the activity feed. Both
	// degrade gracefully, so a missing redis is a warning, not a crash —
	// local runs and tests work without one.
	var rdb *redis.Client
	if opts, err := redis.ParseURL(cfg.RedisURL); err != nil {
		logger.Warn("invalid redis url, running without cache and feed", zap.Error(err))
	} else {
		rdb = redis.NewClient(opts)
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			logger.Warn("redis unreachable, running without cache and feed", zap.Error(err))
			rdb = nil
		}
	}
	if rdb != nil {
		defer rdb.Close()
	}

	// Stores share the one pool; it is goroutine-safe.
	pool := database.Pool()
	tenants := postgres.NewTenantStore(pool)
	galleries := postgres.NewGalleryStore(pool)
	photos := postgres.NewPhotoStore(pool)
	selections := postgres.NewSelectionStore(pool)
	domains := postgres.NewTenantDomainStore(pool)
	directory := postgres.NewDirectoryStore(pool)

	// Domain services.
	resolver := tenant.NewResolver(directory, rdb, logger)
	publisher := realtime.NewPublisher(rdb, logger)
	engine := selection.NewEngine(galleries, photos, selections, publisher, logger)
	lifecycle := domainconn.NewLifecycle(domains, resolver, cfg.MainDomain, logger)
	uploads := storage.NewService(tenants, galleries, photos, cfg.UploadBaseURL, logger)
	feed := realtime.NewFeed(rdb, logger)

	// Handlers.
	authHandler := api.NewAuthHandler(directory, cfg.JWTSecret, logger)
	galleryHandler := api.NewGalleryHandler(galleries, logger)
	photoHandler := api.NewPhotoHandler(uploads, photos, logger)
	selectionHandler := api.NewSelectionHandler(galleries, engine, cfg.JWTSecret, logger)
	domainHandler := api.NewDomainHandler(lifecycle, logger)
	adminHandler := api.NewAdminHandler(directory, lifecycle, resolver, cfg.MainDomain, logger)
	webhookHandler := api.NewBillingWebhookHandler(directory, cfg.BillingWebhookSecret, logger)
	activityHandler := api.NewActivityHandler(galleries, feed, logger)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := gin.New()
	srv.Use(gin.Logger(), gin.Recovery())

	logger.Info("starting proofstream",
		zap.String("port", cfg.Port),
		zap.String("env", cfg.Env),
		zap.String("main_domain", cfg.MainDomain),
	)

	// Health stays public for load balancers.
	srv.GET("/v1/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Billing webhooks authenticate with their HMAC signature, not a
	// session.
	srv.POST("/v1/webhooks/billing", webhookHandler.Handle)

	// Signup and login exist only on the platform's own domain; tenant
	// hosts answering them would be wrong twice over.
	authRoutes := srv.Group("/v1/auth")
	authRoutes.Use(middleware.MainDomainOnly(cfg.MainDomain))
	authRoutes.POST("/signup", authHandler.Signup)
	authRoutes.POST("/login", authHandler.Login)

	// Studio surface: the session token opens the tenant scope.
	studio := srv.Group("/v1")
	studio.Use(middleware.SessionAuth(cfg.JWTSecret, directory, logger))
	{
		studio.POST("/galleries", galleryHandler.Create)
		studio.GET("/galleries", galleryHandler.List)
		studio.GET("/galleries/:id", galleryHandler.Get)
		studio.PUT("/galleries/:id", galleryHandler.Update)
		studio.DELETE("/galleries/:id", galleryHandler.Delete)

		studio.POST("/galleries/:id/photos", photoHandler.PrepareUpload)
		studio.GET("/galleries/:id/photos", photoHandler.List)
		studio.POST("/photos/:id/finalize", photoHandler.FinalizeUpload)
		studio.DELETE("/photos/:id", photoHandler.Delete)

		studio.POST("/domain", domainHandler.StartConnection)
		studio.GET("/domain", domainHandler.Status)
		studio.DELETE("/domain", domainHandler.Disconnect)

		studio.GET("/galleries/:id/activity/ws", activityHandler.Feed)

		// Operator console, nested so SessionAuth has already run.
		admin := studio.Group("/admin")
		admin.Use(middleware.AdminAuth())
		admin.PUT("/tenants/:id/status", adminHandler.UpdateTenantStatus)
		admin.PUT("/tenants/:id/billing", adminHandler.UpdateBillingStatus)
		admin.PUT("/tenants/:id/slug", adminHandler.UpdateSlug)
		admin.POST("/tenants/:id/domain/verify", adminHandler.VerifyDomain)
		admin.POST("/tenants/:id/domain/activate", adminHandler.ActivateDomain)
	}

	// Client proofing surface: the Host header picks the tenant, the
	// gallery password picks the session.
	client := srv.Group("/v1/client")
	client.Use(middleware.TenantScope(resolver, logger))
	{
		client.POST("/galleries/:id/login", selectionHandler.GalleryLogin)

		session := client.Group("")
		session.Use(middleware.GalleryAuth(cfg.JWTSecret))
		session.GET("/galleries/:id/selection", selectionHandler.GetSelection)
		session.POST("/galleries/:id/selection", selectionHandler.StartDraft)
		session.PUT("/galleries/:id/selection/photos/:photoID", selectionHandler.AddItem)
		session.DELETE("/galleries/:id/selection/photos/:photoID", selectionHandler.RemoveItem)
		session.POST("/galleries/:id/selection/submit", selectionHandler.Submit)
	}

	return srv.Run(":" + cfg.Port)
}
