package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/urulico/urulico-api/models"
)

// Index names in the search backend
const (
	ServicesIndex   = "services_index"
	CategoriesIndex = "categories_index"
)

// SearchQuery is one sub-query of a multi-query request
type SearchQuery struct {
	IndexName   string
	Query       string
	HitsPerPage int
}

// SearchHits holds the raw hits of one sub-query, in request order
type SearchHits struct {
	IndexName string
	Hits      []map[string]interface{}
	NbHits    int
}

// SearchIndex is the external full-text index. It is a derived copy of the
// listing store and never authoritative.
type SearchIndex interface {
	// SaveObject adds or replaces one document, keyed by its objectID
	SaveObject(ctx context.Context, indexName string, object interface{}) error

	// ReplaceAllObjects atomically swaps the whole index contents
	ReplaceAllObjects(ctx context.Context, indexName string, objects []interface{}) error

	// MultipleQueries runs several queries in one round trip
	MultipleQueries(ctx context.Context, queries []SearchQuery) ([]SearchHits, error)
}

// ErrSearchIndexNotConfigured is returned when no search index is installed
var ErrSearchIndexNotConfigured = errors.New("search index not configured")

var (
	searchIndexInstance SearchIndex
	searchIndexMu       sync.RWMutex
)

// GetSearchIndex returns the configured search index
func GetSearchIndex() SearchIndex {
	searchIndexMu.RLock()
	defer searchIndexMu.RUnlock()
	return searchIndexInstance
}

// SetSearchIndex sets the search index instance (tests install a MockSearchIndex)
func SetSearchIndex(index SearchIndex) {
	searchIndexMu.Lock()
	defer searchIndexMu.Unlock()
	searchIndexInstance = index
}

// CategoryDocument is the indexed form of a category
type CategoryDocument struct {
	ObjectID  string `json:"objectID"`
	ID        string `json:"id"`
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	Icon      string `json:"icon"`
	CreatedAt int64  `json:"createdAt"`
	UpdatedAt int64  `json:"updatedAt"`
}

// ServiceDocument is the indexed form of a listing, denormalized with its
// category so hits can be rendered without a store round trip.
type ServiceDocument struct {
	ObjectID           string               `json:"objectID"`
	ID                 string               `json:"id"`
	Titulo             string               `json:"titulo"`
	Descripcion        *string              `json:"descripcion"`
	Precio             *float64             `json:"precio"`
	Moneda             *string              `json:"moneda"`
	Departamento       *string              `json:"departamento"`
	Ciudad             *string              `json:"ciudad"`
	Proveedor          string               `json:"proveedor"`
	TelefonoPrincipal  *string              `json:"telefonoPrincipal"`
	TelefonoSecundario *string              `json:"telefonoSecundario"`
	Whatsapp           bool                 `json:"whatsapp"`
	Email              string               `json:"email"`
	ContactoPor        models.ContactMethod `json:"contactoPor"`
	Imagenes           []string             `json:"imagenes"`
	CreatedAt          int64                `json:"createdAt"`
	CategoryID         string               `json:"categoryId"`
	UserID             string               `json:"userId"`
	Category           CategoryDocument     `json:"category"`
}

// NewCategoryDocument builds the index document for a category
func NewCategoryDocument(c *models.Category) CategoryDocument {
	return CategoryDocument{
		ObjectID:  c.ID,
		ID:        c.ID,
		Name:      c.Name,
		Slug:      c.Slug,
		Icon:      c.Icon,
		CreatedAt: unixMillis(c.CreatedAt),
		UpdatedAt: unixMillis(c.UpdatedAt),
	}
}

// NewServiceDocument builds the index document for a listing. The listing's
// Category must be loaded.
func NewServiceDocument(s *models.Service) ServiceDocument {
	doc := ServiceDocument{
		ObjectID:           s.ID,
		ID:                 s.ID,
		Titulo:             s.Titulo,
		Descripcion:        s.Descripcion,
		Precio:             s.Precio,
		Moneda:             s.Moneda,
		Departamento:       s.Departamento,
		Ciudad:             s.Ciudad,
		Proveedor:          s.Proveedor,
		TelefonoPrincipal:  s.TelefonoPrincipal,
		TelefonoSecundario: s.TelefonoSecundario,
		Whatsapp:           s.Whatsapp,
		Email:              s.Email,
		ContactoPor:        s.ContactoPor,
		Imagenes:           s.Imagenes,
		CreatedAt:          unixMillis(s.CreatedAt),
		CategoryID:         s.CategoryID,
		UserID:             s.UserID,
	}
	if doc.Imagenes == nil {
		doc.Imagenes = []string{}
	}
	if s.Category != nil {
		doc.Category = NewCategoryDocument(s.Category)
	}
	return doc
}

func unixMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}
