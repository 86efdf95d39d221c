package services

import (
	"context"

	"github.com/urulico/urulico-api/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultCategories is the catalogue seeded into a fresh database
var DefaultCategories = []models.Category{
	{Name: "Instalación y Mantenimiento", Slug: "instalacion-mantenimiento", Icon: "Wrench"},
	{Name: "Construcción y Carpintería", Slug: "construccion-carpinteria", Icon: "Hammer"},
	{Name: "Servicios Domésticos", Slug: "servicios-domesticos", Icon: "Home"},
	{Name: "Salud y Belleza", Slug: "salud-belleza", Icon: "Heart"},
	{Name: "Artes y Entretenimiento", Slug: "artes-entretenimiento", Icon: "Palette"},
	{Name: "Tecnología e Informática", Slug: "tecnologia-informatica", Icon: "Computer"},
	{Name: "Servicios Profesionales", Slug: "servicios-profesionales", Icon: "Shield"},
	{Name: "Educación y Tutorías", Slug: "educacion-tutorias", Icon: "BookOpen"},
	{Name: "Transporte y Mudanzas", Slug: "transporte-mudanzas", Icon: "Truck"},
	{Name: "Gastronomía y Catering", Slug: "gastronomia-catering", Icon: "ChefHat"},
}

// CategoryView is a category with its icon resolved for presentation
type CategoryView struct {
	models.Category
	IconName models.Icon `json:"iconName"`
}

// NewCategoryView resolves the category icon
func NewCategoryView(c models.Category) CategoryView {
	return CategoryView{Category: c, IconName: models.ParseIcon(c.Icon)}
}

// ListCategories returns every category ordered by name
func ListCategories(ctx context.Context, db *gorm.DB) ([]CategoryView, error) {
	var categories []models.Category
	if err := db.WithContext(ctx).Order("name ASC").Find(&categories).Error; err != nil {
		return nil, &StoreError{Op: "list categories", Err: err}
	}

	views := make([]CategoryView, len(categories))
	for i, c := range categories {
		views[i] = NewCategoryView(c)
	}
	return views, nil
}

// SeedCategories inserts the given categories, leaving existing slugs alone.
// It returns how many rows were inserted.
func SeedCategories(ctx context.Context, db *gorm.DB, categories []models.Category) (int64, error) {
	var inserted int64
	for _, c := range categories {
		category := models.Category{Name: c.Name, Slug: c.Slug, Icon: c.Icon}
		res := db.WithContext(ctx).
			Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "slug"}}, DoNothing: true}).
			Create(&category)
		if res.Error != nil {
			return inserted, &StoreError{Op: "seed category " + c.Slug, Err: res.Error}
		}
		inserted += res.RowsAffected
	}
	return inserted, nil
}
