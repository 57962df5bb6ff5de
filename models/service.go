package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	PricingFixed  = "fixed"
	PricingHourly = "hourly"
)

// Service is an offering listed by a provider
type Service struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	ProviderID  uint           `gorm:"not null;index" json:"provider_id"`
	Provider    User           `gorm:"foreignKey:ProviderID" json:"provider"`
	Title       string         `gorm:"not null" json:"title"`
	Description string         `gorm:"type:text" json:"description"`
	Category    string         `gorm:"index" json:"category"`
	Pricing     float64        `gorm:"not null;check:pricing > 0" json:"pricing"`
	PricingType string         `gorm:"not null;default:'fixed'" json:"pricing_type"` // fixed or hourly
	Location    string         `json:"location"`
	Tags        []ServiceTag   `gorm:"constraint:OnDelete:CASCADE" json:"tags"`
	Media       []ServiceMedia `gorm:"constraint:OnDelete:CASCADE" json:"media"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Service model
func (Service) TableName() string {
	return "services"
}

// ServiceTag is a free-text label attached to a service
type ServiceTag struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	ServiceID uint   `gorm:"not null;index" json:"service_id"`
	Text      string `gorm:"not null" json:"text"`
}

func (ServiceTag) TableName() string {
	return "service_tags"
}

// ServiceMedia is an image stored in object storage for a service
type ServiceMedia struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ServiceID  uint      `gorm:"not null;index" json:"service_id"`
	StorageKey string    `gorm:"not null" json:"-"`
	URL        string    `gorm:"-" json:"url,omitempty"` // computed field, presigned URL
	CreatedAt  time.Time `json:"created_at"`
}

func (ServiceMedia) TableName() string {
	return "service_media"
}
