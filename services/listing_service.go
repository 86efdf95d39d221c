package services

import (
	"context"
	"errors"

	"github.com/urulico/urulico-api/logger"
	"github.com/urulico/urulico-api/models"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const (
	// RelatedListings is how many same-category listings a detail view shows
	RelatedListings = 4
	// DefaultRecentListings and MaxRecentListings bound the recent feed
	DefaultRecentListings = 6
	MaxRecentListings     = 24
)

// ListingSummary is the list-view projection of a listing
type ListingSummary struct {
	ID                string   `json:"id"`
	Titulo            string   `json:"titulo"`
	Descripcion       *string  `json:"descripcion"`
	Precio            *float64 `json:"precio"`
	Moneda            *string  `json:"moneda"`
	Departamento      *string  `json:"departamento"`
	Ciudad            *string  `json:"ciudad"`
	TelefonoPrincipal *string  `json:"telefonoPrincipal"`
	Whatsapp          bool     `json:"whatsapp"`
	Email             string   `json:"email"`
	Imagenes          []string `json:"imagenes"`
	Imagen            *string  `json:"imagen"`
	TieneImagenes     bool     `json:"tieneImagenes"`
}

// NewListingSummary projects a stored listing for list views
func NewListingSummary(s *models.Service) ListingSummary {
	images := s.Imagenes
	if images == nil {
		images = []string{}
	}
	return ListingSummary{
		ID:                s.ID,
		Titulo:            s.Titulo,
		Descripcion:       s.Descripcion,
		Precio:            s.Precio,
		Moneda:            s.Moneda,
		Departamento:      s.Departamento,
		Ciudad:            s.Ciudad,
		TelefonoPrincipal: s.TelefonoPrincipal,
		Whatsapp:          s.Whatsapp,
		Email:             s.Email,
		Imagenes:          images,
		Imagen:            s.PrimaryImage(),
		TieneImagenes:     s.HasImages(),
	}
}

// ListResult is one page of filtered listings
type ListResult struct {
	Services   []ListingSummary `json:"services"`
	Pagination Pagination       `json:"pagination"`
}

// ServiceDetail is a listing with a few related listings from its category
type ServiceDetail struct {
	Service *models.Service  `json:"service"`
	Related []ListingSummary `json:"related"`
}

// ListingService reads listings from the listing store
type ListingService struct {
	db     *gorm.DB
	logger logger.Logger
}

// NewListingService creates a listing service over db
func NewListingService(db *gorm.DB, log logger.Logger) *ListingService {
	return &ListingService{db: db, logger: log}
}

// List returns one page of listings matching the filter together with the
// total number of matches. Count and fetch share one predicate and run
// concurrently.
func (s *ListingService) List(ctx context.Context, f ListingFilter) (*ListResult, error) {
	predicate, err := BuildPredicate(ctx, s.db, f)
	if err != nil {
		return nil, err
	}

	window := Paginate(0, f.Page)

	var (
		rows  []models.Service
		total int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return predicate.Apply(s.db.WithContext(gctx).Model(&models.Service{})).
			Count(&total).Error
	})
	g.Go(func() error {
		return predicate.Apply(s.db.WithContext(gctx)).
			Order("created_at DESC").
			Order("id DESC").
			Offset(window.Offset()).
			Limit(window.Limit()).
			Find(&rows).Error
	})
	if err := g.Wait(); err != nil {
		return nil, &StoreError{Op: "list services", Err: err}
	}

	summaries := make([]ListingSummary, len(rows))
	for i := range rows {
		summaries[i] = NewListingSummary(&rows[i])
	}

	s.logger.Debug("listed services",
		logger.String("categoria", f.Categoria),
		logger.Int("page", f.Page),
		logger.Int64("total", total),
	)

	return &ListResult{
		Services:   summaries,
		Pagination: Paginate(total, f.Page),
	}, nil
}

// Get loads one listing with its category and related listings
func (s *ListingService) Get(ctx context.Context, id string) (*ServiceDetail, error) {
	var service models.Service
	err := s.db.WithContext(ctx).Preload("Category").First(&service, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "service", Key: id}
		}
		return nil, &StoreError{Op: "get service", Err: err}
	}

	var related []models.Service
	err = s.db.WithContext(ctx).
		Where("category_id = ? AND id <> ?", service.CategoryID, service.ID).
		Order("created_at DESC").
		Limit(RelatedListings).
		Find(&related).Error
	if err != nil {
		return nil, &StoreError{Op: "related services", Err: err}
	}

	summaries := make([]ListingSummary, len(related))
	for i := range related {
		summaries[i] = NewListingSummary(&related[i])
	}

	return &ServiceDetail{Service: &service, Related: summaries}, nil
}

// RecentListing is a list summary with its category, for the recent feed
type RecentListing struct {
	ListingSummary
	Category *models.Category `json:"category"`
}

// Recent returns the newest listings with their category. A non-positive
// limit means DefaultRecentListings; limits above MaxRecentListings are capped.
func (s *ListingService) Recent(ctx context.Context, limit int) ([]RecentListing, error) {
	if limit <= 0 {
		limit = DefaultRecentListings
	}
	if limit > MaxRecentListings {
		limit = MaxRecentListings
	}

	var services []models.Service
	err := s.db.WithContext(ctx).
		Preload("Category").
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&services).Error
	if err != nil {
		return nil, &StoreError{Op: "recent services", Err: err}
	}

	recent := make([]RecentListing, len(services))
	for i := range services {
		recent[i] = RecentListing{
			ListingSummary: NewListingSummary(&services[i]),
			Category:       services[i].Category,
		}
	}
	return recent, nil
}
