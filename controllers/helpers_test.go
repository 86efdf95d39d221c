package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/urulico/urulico-api/config"
	"github.com/urulico/urulico-api/models"
	"github.com/urulico/urulico-api/services"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err, "Failed to connect to test database")

	// One connection keeps every query on the same in-memory database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, models.AutoMigrate(db), "Failed to migrate test database")

	_, err = services.SeedCategories(context.Background(), db, services.DefaultCategories)
	require.NoError(t, err)

	config.SetDB(db)
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	v1 := router.Group("/api/v1")
	v1.GET("/categories", ListCategories)
	v1.GET("/locations", ListLocations)
	v1.GET("/services", ListServices)
	v1.GET("/services/recent", RecentServices)
	v1.GET("/services/:id", GetService)
	v1.POST("/services", CreateService)
	v1.GET("/search", Search)
	router.GET("/categoria/:slug", LegacyCategoryRedirect)

	return router
}

func categoryID(t *testing.T, db *gorm.DB, slug string) string {
	t.Helper()
	var c models.Category
	require.NoError(t, db.Where("slug = ?", slug).First(&c).Error)
	return c.ID
}

type listingOpts struct {
	moneda       string
	precio       *float64
	departamento string
	ciudad       string
	imagenes     []string
	createdAt    time.Time
}

func createListing(t *testing.T, db *gorm.DB, slug, titulo string, opts listingOpts) models.Service {
	t.Helper()

	user := models.User{Email: strings.ToLower(strings.ReplaceAll(titulo, " ", "")) + "@example.com"}
	require.NoError(t, db.Create(&user).Error)

	s := models.Service{
		Titulo:     titulo,
		Proveedor:  "Proveedor",
		Email:      user.Email,
		CategoryID: categoryID(t, db, slug),
		UserID:     user.ID,
		Precio:     opts.precio,
		Imagenes:   opts.imagenes,
		CreatedAt:  opts.createdAt,
	}
	if opts.moneda != "" {
		s.Moneda = &opts.moneda
	}
	if opts.departamento != "" {
		s.Departamento = &opts.departamento
	}
	if opts.ciudad != "" {
		s.Ciudad = &opts.ciudad
	}
	require.NoError(t, db.Create(&s).Error)
	return s
}

func price(v float64) *float64 { return &v }

func doRequest(router *gin.Engine, method, target string, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response), "Response should be valid JSON")
	return response
}
