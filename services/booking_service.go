package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kendall-kelly/service-marketplace-api/models"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Notifier pushes a notification to a user in the background
type Notifier interface {
	NotifyAsync(userID uint, title, description string)
}

// BookingService manages customer bookings
type BookingService struct {
	db       *gorm.DB
	notifier Notifier
}

func NewBookingService(db *gorm.DB, notifier Notifier) *BookingService {
	return &BookingService{db: db, notifier: notifier}
}

// Create books serviceID for customer and notifies the provider
func (s *BookingService) Create(ctx context.Context, customer *models.User, serviceID uint, bookingTime time.Time) (*models.Booking, error) {
	if bookingTime.IsZero() {
		return nil, InvalidInput("VALIDATION_ERROR", "booking_time is required")
	}

	var service models.Service
	if err := s.db.WithContext(ctx).First(&service, serviceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFound("SERVICE_NOT_FOUND", "Service not found")
		}
		return nil, fmt.Errorf("failed to load service: %w", err)
	}

	booking := models.Booking{
		ServiceID:   service.ID,
		CustomerID:  customer.ID,
		BookingTime: bookingTime.UTC(),
		Status:      models.BookingStatusPending,
	}
	if err := s.db.WithContext(ctx).Create(&booking).Error; err != nil {
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}

	log.Info().Uint("booking_id", booking.ID).Uint("service_id", service.ID).Uint("customer_id", customer.ID).Msg("Booking created")

	if s.notifier != nil {
		s.notifier.NotifyAsync(service.ProviderID, "New booking request",
			fmt.Sprintf("%s requested %q for %s.", customer.Name, service.Title, booking.BookingTime.Format(time.RFC1123)))
	}

	return s.load(ctx, booking.ID)
}

// List returns bookings the user made or that were made on the user's services
func (s *BookingService) List(ctx context.Context, user *models.User) ([]models.Booking, error) {
	db := s.db.WithContext(ctx)
	owned := db.Model(&models.Service{}).Select("id").Where("provider_id = ?", user.ID)

	bookings := []models.Booking{}
	if err := s.hydrated(ctx).
		Where(db.Where("customer_id = ?", user.ID).Or("service_id IN (?)", owned)).
		Order("booking_time DESC, id DESC").
		Find(&bookings).Error; err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return bookings, nil
}

// Get returns a booking visible to user: its customer, the service's
// provider, or an admin.
func (s *BookingService) Get(ctx context.Context, user *models.User, id uint) (*models.Booking, error) {
	booking, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canSeeBooking(user, booking) {
		return nil, Forbidden("FORBIDDEN", "You do not have access to this booking")
	}
	return booking, nil
}

// UpdateStatus sets the free-text status and notifies the other participant
func (s *BookingService) UpdateStatus(ctx context.Context, user *models.User, id uint, status string) (*models.Booking, error) {
	status = strings.TrimSpace(status)
	if status == "" {
		return nil, InvalidInput("VALIDATION_ERROR", "status is required")
	}

	booking, err := s.Get(ctx, user, id)
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(&models.Booking{ID: booking.ID}).Update("status", status).Error; err != nil {
		return nil, fmt.Errorf("failed to update booking: %w", err)
	}
	booking.Status = status

	if s.notifier != nil {
		recipient := booking.Service.ProviderID
		if user.ID == booking.Service.ProviderID {
			recipient = booking.CustomerID
		}
		s.notifier.NotifyAsync(recipient, "Booking updated",
			fmt.Sprintf("Booking for %q is now %s.", booking.Service.Title, status))
	}

	return booking, nil
}

func (s *BookingService) load(ctx context.Context, id uint) (*models.Booking, error) {
	var booking models.Booking
	if err := s.hydrated(ctx).First(&booking, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFound("BOOKING_NOT_FOUND", "Booking not found")
		}
		return nil, fmt.Errorf("failed to load booking: %w", err)
	}
	return &booking, nil
}

func (s *BookingService) hydrated(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Preload("Service").
		Preload("Service.Provider").
		Preload("Customer")
}

func canSeeBooking(user *models.User, booking *models.Booking) bool {
	return user.Role == models.RoleAdmin ||
		booking.CustomerID == user.ID ||
		booking.Service.ProviderID == user.ID
}
