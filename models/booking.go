package models

import (
	"time"

	"gorm.io/gorm"
)

const BookingStatusPending = "pending"

// Booking is a customer's reservation of a service
type Booking struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	ServiceID   uint           `gorm:"not null;index" json:"service_id"`
	Service     Service        `gorm:"foreignKey:ServiceID" json:"service"`
	CustomerID  uint           `gorm:"not null;index" json:"customer_id"`
	Customer    User           `gorm:"foreignKey:CustomerID" json:"customer"`
	BookingTime time.Time      `gorm:"not null" json:"booking_time"`
	Status      string         `gorm:"not null;default:'pending'" json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Booking model
func (Booking) TableName() string {
	return "bookings"
}
