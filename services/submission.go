package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/urulico/urulico-api/logger"
	"github.com/urulico/urulico-api/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Amount is a price as submitted by a form: a JSON number, a numeric string,
// an empty string or null. Input that is none of these is remembered and
// reported by validation instead of failing the whole decode.
type Amount struct {
	Value   *float64
	invalid bool
}

// UnmarshalJSON implements json.Unmarshaler
func (a *Amount) UnmarshalJSON(data []byte) error {
	a.Value, a.invalid = nil, false

	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	var raw string
	if data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			a.invalid = true
			return nil
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return nil
		}
	} else {
		raw = string(data)
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		a.invalid = true
		return nil
	}
	a.Value = &v
	return nil
}

// MarshalJSON implements json.Marshaler
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.Value)
}

// NewAmount returns an Amount holding v
func NewAmount(v float64) Amount {
	return Amount{Value: &v}
}

// CreateServiceInput is the listing submission form. Image URLs must already
// be uploaded.
type CreateServiceInput struct {
	Categoria          string               `json:"categoria" validate:"required"`
	Titulo             string               `json:"titulo" validate:"required,min=10,max=100"`
	Descripcion        *string              `json:"descripcion"`
	Precio             Amount               `json:"precio"`
	Moneda             *string              `json:"moneda" validate:"omitempty,currency"`
	Departamento       *string              `json:"departamento"`
	Ciudad             *string              `json:"ciudad"`
	Proveedor          string               `json:"proveedor" validate:"required,min=3,max=50"`
	TelefonoPrincipal  *string              `json:"telefonoPrincipal"`
	TelefonoSecundario *string              `json:"telefonoSecundario"`
	Whatsapp           bool                 `json:"whatsapp"`
	Email              string               `json:"email" validate:"required,email"`
	ContactoPor        models.ContactMethod `json:"contactoPor" validate:"omitempty,oneof=email llamada-whatsapp todos"`
	Imagenes           []string             `json:"imagenes" validate:"omitempty,dive,http_url"`
}

// fieldMessages holds the user facing message per field and failed rule.
// The "*" rule applies to any rule of that field without its own entry.
var fieldMessages = map[string]map[string]string{
	"categoria": {"*": "Por favor selecciona una categoría"},
	"titulo": {
		"required": "El título debe tener al menos 10 caracteres",
		"min":      "El título debe tener al menos 10 caracteres",
		"max":      "El título no puede tener más de 100 caracteres",
	},
	"proveedor": {
		"required": "El nombre debe tener al menos 3 caracteres",
		"min":      "El nombre debe tener al menos 3 caracteres",
		"max":      "El nombre no puede tener más de 50 caracteres",
	},
	"email":       {"*": "Por favor ingresa un email válido"},
	"moneda":      {"*": "La moneda debe ser UYU o USD"},
	"contactoPor": {"*": "Forma de contacto no válida"},
	"imagenes":    {"*": "Las imágenes deben ser URLs http(s) válidas"},
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("currency", func(fl validator.FieldLevel) bool {
		return models.IsCurrency(fl.Field().String())
	})
	return v
}

// Normalize trims text fields, turns blank optionals into nil and
// lowercases the email.
func (in *CreateServiceInput) Normalize() {
	in.Categoria = strings.TrimSpace(in.Categoria)
	in.Titulo = strings.TrimSpace(in.Titulo)
	in.Proveedor = strings.TrimSpace(in.Proveedor)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.ContactoPor = models.ContactMethod(strings.TrimSpace(string(in.ContactoPor)))

	for _, field := range []**string{
		&in.Descripcion, &in.Moneda, &in.Departamento, &in.Ciudad,
		&in.TelefonoPrincipal, &in.TelefonoSecundario,
	} {
		if *field == nil {
			continue
		}
		trimmed := strings.TrimSpace(**field)
		if trimmed == "" {
			*field = nil
			continue
		}
		*field = &trimmed
	}

	images := in.Imagenes[:0:0]
	for _, u := range in.Imagenes {
		if u = strings.TrimSpace(u); u != "" {
			images = append(images, u)
		}
	}
	in.Imagenes = images
}

// Validate checks the input and returns a ValidationError listing every
// invalid field, or nil.
func (in *CreateServiceInput) Validate() error {
	var fields []FieldError

	if err := validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return &ValidationError{Message: "Invalid request data", Fields: []FieldError{{Field: "body", Message: err.Error()}}}
		}
		seen := map[string]bool{}
		for _, fe := range verrs {
			name := fe.Field()
			if i := strings.IndexByte(name, '['); i >= 0 {
				name = name[:i]
			}
			if seen[name] {
				continue
			}
			seen[name] = true
			fields = append(fields, FieldError{Field: name, Message: messageFor(name, fe.Tag())})
		}
	}

	if in.Precio.invalid || (in.Precio.Value != nil && *in.Precio.Value < 0) {
		fields = append(fields, FieldError{Field: "precio", Message: "El precio debe ser un número mayor o igual a 0"})
	}
	if in.Departamento != nil && !models.IsDepartamento(*in.Departamento) {
		fields = append(fields, FieldError{Field: "departamento", Message: "Departamento no válido"})
	}
	if in.Ciudad != nil {
		switch {
		case in.Departamento == nil:
			fields = append(fields, FieldError{Field: "ciudad", Message: "Selecciona un departamento antes de la ciudad"})
		case models.IsDepartamento(*in.Departamento) && !models.IsCiudadOf(*in.Departamento, *in.Ciudad):
			fields = append(fields, FieldError{Field: "ciudad", Message: "La ciudad no pertenece al departamento seleccionado"})
		}
	}

	if len(fields) > 0 {
		return &ValidationError{Message: "Invalid request data", Fields: fields}
	}
	return nil
}

func messageFor(field, tag string) string {
	if msgs, ok := fieldMessages[field]; ok {
		if msg, ok := msgs[tag]; ok {
			return msg
		}
		if msg, ok := msgs["*"]; ok {
			return msg
		}
	}
	return "Valor no válido"
}

// CreateServiceResult is a created listing. Indexed is false when the store
// insert succeeded but the search index write failed; IndexErr then holds
// the IndexSyncError.
type CreateServiceResult struct {
	Service  *models.Service
	Indexed  bool
	IndexErr error
}

// indexWriteTimeout bounds the search index write after a listing is stored
const indexWriteTimeout = 10 * time.Second

// ListingSubmission validates and persists new listings
type ListingSubmission struct {
	db     *gorm.DB
	sync   *SearchSync
	logger logger.Logger
}

// NewListingSubmission creates a submission pipeline
func NewListingSubmission(db *gorm.DB, sync *SearchSync, log logger.Logger) *ListingSubmission {
	return &ListingSubmission{db: db, sync: sync, logger: log}
}

// Create validates the input, then in one transaction resolves the category
// by slug, upserts the owner by email and inserts the listing. After commit
// the listing is pushed to the search index; an index failure is reported in
// the result and never unwinds the insert.
func (p *ListingSubmission) Create(ctx context.Context, in CreateServiceInput) (*CreateServiceResult, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	service := models.Service{
		Titulo:             in.Titulo,
		Descripcion:        in.Descripcion,
		Precio:             in.Precio.Value,
		Moneda:             in.Moneda,
		Departamento:       in.Departamento,
		Ciudad:             in.Ciudad,
		Proveedor:          in.Proveedor,
		TelefonoPrincipal:  in.TelefonoPrincipal,
		TelefonoSecundario: in.TelefonoSecundario,
		Whatsapp:           in.Whatsapp,
		Email:              in.Email,
		ContactoPor:        models.ResolveContactMethod(in.ContactoPor, in.TelefonoPrincipal),
		Imagenes:           models.CapImages(in.Imagenes),
	}

	var category models.Category
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("slug = ?", in.Categoria).First(&category).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Resource: "category", Key: in.Categoria}
			}
			return &StoreError{Op: "find category", Err: err}
		}

		user, err := upsertUserByEmail(tx, in.Email)
		if err != nil {
			return err
		}

		service.CategoryID = category.ID
		service.UserID = user.ID
		if err := tx.Create(&service).Error; err != nil {
			return &StoreError{Op: "create service", Err: err}
		}
		return nil
	})
	if err != nil {
		var coded interface{ Code() string }
		if !errors.As(err, &coded) {
			err = &StoreError{Op: "create service transaction", Err: err}
		}
		return nil, err
	}
	service.Category = &category

	p.logger.Info("service created",
		logger.String("service_id", service.ID),
		logger.String("categoria", category.Slug),
		logger.Int("images", len(service.Imagenes)),
	)

	// The row is committed, so the index write outlives the request
	indexCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), indexWriteTimeout)
	defer cancel()

	result := &CreateServiceResult{Service: &service, Indexed: true}
	if err := p.sync.IndexService(indexCtx, &service); err != nil {
		p.logger.Error("service created but not indexed",
			logger.String("service_id", service.ID),
			logger.Error(err),
		)
		result.Indexed = false
		result.IndexErr = err
	}
	return result, nil
}

// upsertUserByEmail inserts the user unless the email exists, then reads it
// back. Concurrent first submissions with the same email both end up with
// the single stored row.
func upsertUserByEmail(tx *gorm.DB, email string) (*models.User, error) {
	candidate := models.User{Email: email}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoNothing: true,
	}).Create(&candidate).Error
	if err != nil {
		return nil, &StoreError{Op: "upsert user", Err: err}
	}

	var user models.User
	if err := tx.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, &StoreError{Op: "read user", Err: err}
	}
	return &user, nil
}
