package services

import (
	"context"
	"errors"
	"time"

	"github.com/urulico/urulico-api/logger"
	"github.com/urulico/urulico-api/models"
	"gorm.io/gorm"
)

const (
	reindexLockKey = "urulico:reindex"
	reindexLockTTL = 10 * time.Minute
)

// ErrReindexInProgress is returned when another resync holds the lock
var ErrReindexInProgress = errors.New("reindex already in progress")

// ReindexReport summarizes a full resync
type ReindexReport struct {
	Services   int           `json:"services"`
	Categories int           `json:"categories"`
	Duration   time.Duration `json:"duration"`
}

// SearchSync mirrors listing store rows into the search index. The index is
// never authoritative: a failed write leaves it stale until the next Reindex.
type SearchSync struct {
	db     *gorm.DB
	index  SearchIndex
	locker Locker
	logger logger.Logger
}

// NewSearchSync creates a sync over db and index. A nil locker means resyncs
// are not coordinated across processes.
func NewSearchSync(db *gorm.DB, index SearchIndex, locker Locker, log logger.Logger) *SearchSync {
	if locker == nil {
		locker = NoopLocker{}
	}
	return &SearchSync{db: db, index: index, locker: locker, logger: log}
}

// IndexService writes one listing, denormalized with its category, to the
// services index. The category is loaded when the listing does not carry it.
func (s *SearchSync) IndexService(ctx context.Context, service *models.Service) error {
	if s.index == nil {
		return &IndexSyncError{Index: ServicesIndex, Op: "save object", Err: ErrSearchIndexNotConfigured}
	}
	if service.Category == nil {
		var category models.Category
		if err := s.db.WithContext(ctx).First(&category, "id = ?", service.CategoryID).Error; err != nil {
			return &IndexSyncError{Index: ServicesIndex, Op: "load category", Err: err}
		}
		service.Category = &category
	}

	if err := s.index.SaveObject(ctx, ServicesIndex, NewServiceDocument(service)); err != nil {
		return &IndexSyncError{Index: ServicesIndex, Op: "save object", Err: err}
	}

	s.logger.Debug("indexed service", logger.String("service_id", service.ID))
	return nil
}

// Reindex replaces the whole services and categories indexes with a fresh
// read of the listing store. Only one resync runs at a time.
func (s *SearchSync) Reindex(ctx context.Context) (*ReindexReport, error) {
	if s.index == nil {
		return nil, ErrSearchIndexNotConfigured
	}
	started := time.Now()

	release, err := s.locker.Acquire(ctx, reindexLockKey, reindexLockTTL)
	if err != nil {
		if errors.Is(err, ErrLockHeld) {
			return nil, ErrReindexInProgress
		}
		return nil, err
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("failed to release reindex lock", logger.Error(err))
		}
	}()

	var services []models.Service
	if err := s.db.WithContext(ctx).Preload("Category").Order("created_at ASC").Find(&services).Error; err != nil {
		return nil, &StoreError{Op: "load services for reindex", Err: err}
	}
	var categories []models.Category
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&categories).Error; err != nil {
		return nil, &StoreError{Op: "load categories for reindex", Err: err}
	}

	serviceDocs := make([]interface{}, len(services))
	for i := range services {
		serviceDocs[i] = NewServiceDocument(&services[i])
	}
	categoryDocs := make([]interface{}, len(categories))
	for i := range categories {
		categoryDocs[i] = NewCategoryDocument(&categories[i])
	}

	if err := s.index.ReplaceAllObjects(ctx, ServicesIndex, serviceDocs); err != nil {
		return nil, &IndexSyncError{Index: ServicesIndex, Op: "replace all objects", Err: err}
	}
	if err := s.index.ReplaceAllObjects(ctx, CategoriesIndex, categoryDocs); err != nil {
		return nil, &IndexSyncError{Index: CategoriesIndex, Op: "replace all objects", Err: err}
	}

	report := &ReindexReport{
		Services:   len(services),
		Categories: len(categories),
		Duration:   time.Since(started),
	}
	s.logger.Info("reindex complete",
		logger.Int("services", report.Services),
		logger.Int("categories", report.Categories),
		logger.Int64("duration_ms", report.Duration.Milliseconds()),
	)
	return report, nil
}
