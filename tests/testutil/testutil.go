package testutil

import (
	"bytes"
	"context"
	"mime/multipart"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/urulico/urulico-api/config"
	"github.com/urulico/urulico-api/controllers"
	"github.com/urulico/urulico-api/logger"
	"github.com/urulico/urulico-api/middleware"
	"github.com/urulico/urulico-api/models"
	"github.com/urulico/urulico-api/services"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// RequireTestEnvironment ensures that tests are running in the test environment.
// This prevents accidental execution of tests against production or development databases.
// It will fail the test immediately if GO_ENV is not set to "test".
func RequireTestEnvironment(t *testing.T) {
	t.Helper()

	env := os.Getenv("GO_ENV")
	if env != "test" {
		t.Fatalf("SAFETY CHECK FAILED: Tests must run with GO_ENV=test to prevent data loss. Current GO_ENV=%q. Set GO_ENV=test before running tests.", env)
	}
}

// MustSetTestEnvironment sets GO_ENV to test and fails if it cannot be set.
// Use this in TestMain or suite setup functions.
func MustSetTestEnvironment(t *testing.T) {
	t.Helper()

	if err := os.Setenv("GO_ENV", "test"); err != nil {
		t.Fatalf("Failed to set GO_ENV=test: %v", err)
	}
	RequireTestEnvironment(t)
}

// NewTestDB opens a migrated in-memory database with the default categories
// and installs it as the global connection
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	// One connection keeps every query on the same in-memory database
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	if _, err := services.SeedCategories(context.Background(), db, services.DefaultCategories); err != nil {
		t.Fatalf("Failed to seed categories: %v", err)
	}

	config.SetDB(db)
	return db
}

// ResetListings removes every listing and user, keeping the categories
func ResetListings(db *gorm.DB) {
	db.Exec("DELETE FROM services")
	db.Exec("DELETE FROM users")
}

// NewRouter builds the public API routes the way the server mounts them
func NewRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(logger.Get()))

	v1 := router.Group("/api/v1")
	{
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

// File is one part of a multipart upload
type File struct {
	Name    string
	Content []byte
}

// PNG returns a small file with a PNG signature
func PNG(name string) File {
	return File{Name: name, Content: []byte("\x89PNG\r\n\x1a\nfake image data")}
}

// MultipartFiles encodes files under the "files" field and returns the body
// with its content type
func MultipartFiles(files ...File) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	for _, f := range files {
		part, err := writer.CreateFormFile("files", f.Name)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(f.Content); err != nil {
			return nil, "", err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return body, writer.FormDataContentType(), nil
}
