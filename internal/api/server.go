package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"dukira/internal/api/handlers"
	"dukira/internal/api/middleware"
	"dukira/internal/config"
	"dukira/internal/database"
	"dukira/internal/images"
	"dukira/internal/logger"
	"dukira/internal/storage"
	syncsvc "dukira/internal/sync"

	"github.com/gin-gonic/gin"
)

type Server struct {
	config *config.Config
	logger *logger.Logger
	db     *database.Database
	router *gin.Engine
	server *http.Server
}

func New(cfg *config.Config, logger *logger.Logger, db *database.Database,
	syncer *syncsvc.Service, pipeline *images.Pipeline, blobs storage.BlobStore) *Server {

	// Set Gin mode
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Middleware
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.CORS())

	// Initialize handlers
	storeHandler := handlers.NewStoreHandler(db, logger, cfg)
	productHandler := handlers.NewProductHandler(db.DB, logger)
	syncHandler := handlers.NewSyncHandler(db.DB, logger, syncer)
	imageHandler := handlers.NewImageHandler(db.DB, logger, pipeline, blobs)
	webhookHandler := handlers.NewWebhookHandler(db.DB, logger, syncer)

	router.GET("/health", func(c *gin.Context) {
		status := gin.H{"database": "ok", "storage": "ok"}
		code := http.StatusOK

		if sqlDB, err := db.DB.DB(); err != nil || sqlDB.Ping() != nil {
			status["database"] = "unavailable"
			code = http.StatusServiceUnavailable
		}
		if blobs != nil && !blobs.HealthCheck(c.Request.Context()) {
			status["storage"] = "unavailable"
			code = http.StatusServiceUnavailable
		}

		c.JSON(code, status)
	})

	// Routes
	v1 := router.Group("/api/v1")
	{
		// Stores
		stores := v1.Group("/stores")
		{
			stores.GET("", storeHandler.List)
			stores.GET("/:id", storeHandler.Get)
			stores.POST("", storeHandler.Create)
			stores.DELETE("/:id", storeHandler.Delete)
			stores.POST("/:id/webhooks", storeHandler.CreateWebhook)
			stores.POST("/:id/sync", syncHandler.Trigger)
			stores.GET("/:id/sync-jobs", syncHandler.ListJobs)
		}

		// Sync jobs
		v1.GET("/sync-jobs/:id", syncHandler.GetJob)

		// Products
		products := v1.Group("/products")
		{
			products.GET("", productHandler.List)
			products.GET("/:id", productHandler.Get)
		}

		// Images
		imagesGroup := v1.Group("/images")
		{
			imagesGroup.GET("/stats", imageHandler.Stats)
			imagesGroup.POST("/reprocess", imageHandler.Reprocess)
			imagesGroup.GET("/:id/url", imageHandler.SignedURL)
		}

		// Platform webhooks
		v1.POST("/webhooks/:platform/:storeID", webhookHandler.Receive)
	}

	return &Server{
		config: cfg,
		logger: logger,
		db:     db,
		router: router,
	}
}

func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%s", s.config.APIHost, s.config.APIPort)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("Starting server on " + addr)
	return s.server.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Shutting down server...")
	return s.server.Shutdown(ctx)
}

func (s *Server) Router() *gin.Engine {
	return s.router
}
