package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/urulico/urulico-api/config"
	"github.com/urulico/urulico-api/controllers"
	"github.com/urulico/urulico-api/logger"
	"github.com/urulico/urulico-api/middleware"
	"github.com/urulico/urulico-api/models"
	"github.com/urulico/urulico-api/services"
	"github.com/urulico/urulico-api/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New("info").Fatal("Failed to load configuration", logger.Error(err))
	}

	log := logger.New(cfg.LogLevel)
	logger.Set(log)
	defer log.Sync()

	log.Info("Starting Urulico API server...", logger.String("env", cfg.GoEnv))

	if err := config.ConnectDatabase(cfg.DatabaseURL); err != nil {
		log.Fatal("Failed to connect to database", logger.Error(err))
	}

	db := config.GetDB()
	if err := models.AutoMigrate(db); err != nil {
		log.Fatal("Failed to migrate database", logger.Error(err))
	}
	log.Info("Database migration completed successfully")

	ctx := context.Background()
	if err := initSearchIndex(cfg, log); err != nil {
		log.Fatal("Failed to initialize search index", logger.Error(err))
	}
	if err := initImageStorage(ctx, cfg, log); err != nil {
		log.Fatal("Failed to initialize image storage", logger.Error(err))
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := setupRouter(cfg, log)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("Server is running", logger.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", logger.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown", logger.Error(err))
	}
	log.Info("Server exited")
}

// initSearchIndex installs the Algolia index, or the in-memory one when no
// credentials are configured outside production
func initSearchIndex(cfg *config.Config, log logger.Logger) error {
	if cfg.HasAlgolia() {
		services.SetSearchIndex(services.NewAlgoliaIndex(cfg.AlgoliaAppID, cfg.AlgoliaAPIKey))
		log.Info("Search index: algolia")
		return nil
	}
	if cfg.IsProduction() {
		return errors.New("algolia credentials are required in production")
	}
	services.SetSearchIndex(services.NewMockSearchIndex())
	log.Warn("Search index: in-memory, run cmd/reindex after start to populate it")
	return nil
}

// initImageStorage uploads to S3 when a bucket is configured and to the
// local upload directory otherwise
func initImageStorage(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	utils.UploadDir = cfg.UploadDir

	if cfg.HasS3() {
		s3Service, err := services.InitS3Service(ctx, cfg)
		if err != nil {
			return err
		}
		services.InitImageService(s3Service)
		log.Info("Image storage: s3", logger.String("bucket", cfg.AWSS3Bucket))
		return nil
	}

	services.SetImageService(services.NewLocalImageService(cfg.UploadDir, cfg.PublicBaseURL))
	log.Info("Image storage: local", logger.String("dir", cfg.UploadDir))
	return nil
}

func setupRouter(cfg *config.Config, log logger.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(log))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSAllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", middleware.RequestIDHeader},
		ExposeHeaders:    []string{middleware.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	// Multipart bodies above this spill to disk
	router.MaxMultipartMemory = 8 << 20

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", healthCheck)
		v1.GET("/database/status", databaseStatus)

		v1.GET("/categories", controllers.ListCategories)
		v1.GET("/locations", controllers.ListLocations)

		v1.GET("/services", controllers.ListServices)
		v1.GET("/services/recent", controllers.RecentServices)
		v1.GET("/services/:id", controllers.GetService)
		v1.POST("/services", controllers.CreateService)

		v1.GET("/search", controllers.Search)

		v1.POST("/uploads", controllers.UploadImages)
		v1.GET("/uploads/:filename", controllers.GetUploadedImage)
	}

	router.GET("/categoria/:slug", controllers.LegacyCategoryRedirect)

	return router
}

// healthCheck handles the health check endpoint
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Urulico API is running",
	})
}

// databaseStatus checks database connectivity and returns row counts
func databaseStatus(c *gin.Context) {
	db := config.GetDB()

	sqlDB, err := db.DB()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to get database instance",
			},
		})
		return
	}

	if err := sqlDB.PingContext(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_CONNECTION_ERROR",
				"message": "Database connection failed",
			},
		})
		return
	}

	counts := gin.H{}
	for name, model := range map[string]interface{}{
		"categories": &models.Category{},
		"services":   &models.Service{},
		"users":      &models.User{},
	} {
		var n int64
		if err := db.WithContext(c.Request.Context()).Model(model).Count(&n).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "DATABASE_QUERY_ERROR",
					"message": "Failed to query tables",
				},
			})
			return
		}
		counts[name] = n
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Database connected",
		"counts":  counts,
	})
}
