package services

import (
	"context"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/urulico/urulico-api/models"
	"gorm.io/gorm"
)

// Sentinel parameter values meaning "do not filter"
const (
	AllDepartamentos = "todos"
	AllCiudades      = "todas"
)

// ListingFilter is the set of user supplied listing filters, already parsed
type ListingFilter struct {
	Categoria    string
	Departamento string
	Ciudad       string
	Moneda       string
	PrecioMin    *float64
	PrecioMax    *float64
	Page         int
}

// ParseListingFilter reads listing filters from query parameters. Page is
// coerced rather than rejected; a price bound that is present but not a
// non-negative number is a ValidationError.
func ParseListingFilter(values url.Values) (ListingFilter, error) {
	filter := ListingFilter{
		Categoria:    strings.TrimSpace(values.Get("categoria")),
		Departamento: strings.TrimSpace(values.Get("departamento")),
		Ciudad:       strings.TrimSpace(values.Get("ciudad")),
		Moneda:       strings.TrimSpace(values.Get("moneda")),
		Page:         ParsePage(values.Get("page")),
	}

	var fields []FieldError
	for _, bound := range []struct {
		name   string
		target **float64
	}{
		{"precioMin", &filter.PrecioMin},
		{"precioMax", &filter.PrecioMax},
	} {
		raw := strings.TrimSpace(values.Get(bound.name))
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			fields = append(fields, FieldError{Field: bound.name, Message: "must be a non-negative number"})
			continue
		}
		*bound.target = &v
	}

	if len(fields) > 0 {
		return filter, &ValidationError{Message: "Invalid filter parameters", Fields: fields}
	}
	return filter, nil
}

// Predicate is the composed filter applied to the services table. A nil
// field does not restrict; a non-nil but empty CategoryIDs matches nothing.
type Predicate struct {
	CategoryIDs  []string
	Departamento *string
	Ciudad       *string
	Moneda       *string
	PrecioMin    *float64
	PrecioMax    *float64
}

// MatchesNothing reports whether the predicate cannot select any row
func (p Predicate) MatchesNothing() bool {
	return p.CategoryIDs != nil && len(p.CategoryIDs) == 0
}

// Apply adds the predicate's conditions to a query
func (p Predicate) Apply(db *gorm.DB) *gorm.DB {
	q := db
	if p.CategoryIDs != nil {
		if len(p.CategoryIDs) == 0 {
			q = q.Where("1 = 0")
		} else {
			q = q.Where("category_id IN ?", p.CategoryIDs)
		}
	}
	if p.Departamento != nil {
		q = q.Where("departamento = ?", *p.Departamento)
	}
	if p.Ciudad != nil {
		q = q.Where("ciudad = ?", *p.Ciudad)
	}
	if p.Moneda != nil {
		q = q.Where("moneda = ?", *p.Moneda)
	}
	if p.PrecioMin != nil {
		q = q.Where("precio >= ?", *p.PrecioMin)
	}
	if p.PrecioMax != nil {
		q = q.Where("precio <= ?", *p.PrecioMax)
	}
	return q
}

// Refinement narrows a predicate from the filter, or returns it unchanged
type Refinement func(Predicate, ListingFilter) Predicate

// Refinements are applied in order after the category has been resolved
var Refinements = []Refinement{
	RefineDepartamento,
	RefineCiudad,
	RefineMoneda,
	RefinePriceRange,
}

// RefineCategory restricts the predicate to the resolved category ids. An
// empty id set is kept as such so the predicate matches nothing.
func RefineCategory(p Predicate, categoryIDs []string) Predicate {
	if categoryIDs == nil {
		categoryIDs = []string{}
	}
	p.CategoryIDs = categoryIDs
	return p
}

func RefineDepartamento(p Predicate, f ListingFilter) Predicate {
	if f.Departamento == "" || f.Departamento == AllDepartamentos {
		return p
	}
	v := f.Departamento
	p.Departamento = &v
	return p
}

func RefineCiudad(p Predicate, f ListingFilter) Predicate {
	if f.Ciudad == "" || f.Ciudad == AllCiudades {
		return p
	}
	v := f.Ciudad
	p.Ciudad = &v
	return p
}

// RefineMoneda has no sentinel: any non-empty currency is matched literally
func RefineMoneda(p Predicate, f ListingFilter) Predicate {
	if f.Moneda == "" {
		return p
	}
	v := f.Moneda
	p.Moneda = &v
	return p
}

// RefinePriceRange combines both optional bounds into one inclusive range
func RefinePriceRange(p Predicate, f ListingFilter) Predicate {
	if f.PrecioMin != nil {
		v := *f.PrecioMin
		p.PrecioMin = &v
	}
	if f.PrecioMax != nil {
		v := *f.PrecioMax
		p.PrecioMax = &v
	}
	return p
}

// BuildPredicate resolves the category slug and applies every refinement.
// A missing slug is a ValidationError; a slug with no category yields a
// predicate that matches nothing.
func BuildPredicate(ctx context.Context, db *gorm.DB, f ListingFilter) (Predicate, error) {
	if f.Categoria == "" {
		return Predicate{}, newValidationError("categoria", "Category is required")
	}

	var ids []string
	err := db.WithContext(ctx).
		Model(&models.Category{}).
		Where("slug = ?", f.Categoria).
		Pluck("id", &ids).Error
	if err != nil {
		return Predicate{}, &StoreError{Op: "resolve category", Err: err}
	}

	p := RefineCategory(Predicate{}, ids)
	for _, refine := range Refinements {
		p = refine(p, f)
	}
	return p, nil
}

func isNoFilterSentinel(key, value string) bool {
	return (key == "departamento" && value == AllDepartamentos) ||
		(key == "ciudad" && value == AllCiudades)
}
