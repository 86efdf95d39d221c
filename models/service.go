package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MaxImages is the largest number of image URLs a listing keeps
const MaxImages = 10

// Service is a published listing. Listings are immutable once created.
type Service struct {
	ID                 string        `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Titulo             string        `gorm:"size:100;not null" json:"titulo"`
	Descripcion        *string       `gorm:"type:text" json:"descripcion"`
	Precio             *float64      `gorm:"index" json:"precio"`
	Moneda             *string       `gorm:"size:3;index" json:"moneda"`
	Departamento       *string       `gorm:"index" json:"departamento"`
	Ciudad             *string       `gorm:"index" json:"ciudad"`
	Proveedor          string        `gorm:"size:50;not null" json:"proveedor"`
	TelefonoPrincipal  *string       `json:"telefonoPrincipal"`
	TelefonoSecundario *string       `json:"telefonoSecundario"`
	Whatsapp           bool          `gorm:"not null;default:false" json:"whatsapp"`
	Email              string        `gorm:"not null" json:"email"`
	ContactoPor        ContactMethod `gorm:"type:varchar(20);not null;default:'email'" json:"contactoPor"`
	Imagenes           []string      `gorm:"type:text;serializer:json" json:"imagenes"`
	CreatedAt          time.Time     `gorm:"index" json:"createdAt"`
	CategoryID         string        `gorm:"type:varchar(36);not null;index" json:"categoryId"`
	Category           *Category     `gorm:"foreignKey:CategoryID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"category,omitempty"`
	UserID             string        `gorm:"type:varchar(36);not null;index" json:"userId"`
	User               *User         `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
}

// TableName specifies the table name for the Service model
func (Service) TableName() string {
	return "services"
}

// BeforeCreate assigns an identifier when none was set
func (s *Service) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.Imagenes == nil {
		s.Imagenes = []string{}
	}
	return nil
}

// PrimaryImage returns the image shown in list views, or nil without images
func (s *Service) PrimaryImage() *string {
	if len(s.Imagenes) == 0 {
		return nil
	}
	return &s.Imagenes[0]
}

// HasImages reports whether the listing has at least one image
func (s *Service) HasImages() bool {
	return len(s.Imagenes) > 0
}

// CapImages keeps the first MaxImages URLs in their original order
func CapImages(urls []string) []string {
	if len(urls) > MaxImages {
		urls = urls[:MaxImages]
	}
	capped := make([]string, len(urls))
	copy(capped, urls)
	return capped
}

// AutoMigrate creates or updates the listing store tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&User{}, &Category{}, &Service{})
}
