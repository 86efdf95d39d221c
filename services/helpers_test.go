package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/urulico/urulico-api/logger"
	"github.com/urulico/urulico-api/models"
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
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, models.AutoMigrate(db), "Failed to migrate test database")

	_, err = SeedCategories(context.Background(), db, DefaultCategories)
	require.NoError(t, err)
	return db
}

func mustCategory(t *testing.T, db *gorm.DB, slug string) models.Category {
	t.Helper()
	var c models.Category
	require.NoError(t, db.Where("slug = ?", slug).First(&c).Error)
	return c
}

var listingSeq int

// insertListing stores a listing directly, bypassing the submission pipeline
func insertListing(t *testing.T, db *gorm.DB, slug string, mutate func(*models.Service)) models.Service {
	t.Helper()
	listingSeq++

	user := models.User{Email: fmt.Sprintf("owner%d@example.com", listingSeq)}
	require.NoError(t, db.Create(&user).Error)

	s := models.Service{
		Titulo:     fmt.Sprintf("Servicio de prueba %03d", listingSeq),
		Proveedor:  "Proveedor",
		Email:      user.Email,
		CategoryID: mustCategory(t, db, slug).ID,
		UserID:     user.ID,
		CreatedAt:  time.Now().Add(time.Duration(listingSeq) * time.Second),
	}
	if mutate != nil {
		mutate(&s)
	}
	require.NoError(t, db.Create(&s).Error)
	return s
}

func strPtr(s string) *string { return &s }

func floatPtr(v float64) *float64 { return &v }

func nopLogger() logger.Logger { return logger.NewNop() }
