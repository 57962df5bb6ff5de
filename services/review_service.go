package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kendall-kelly/service-marketplace-api/models"
	"gorm.io/gorm"
)

// ReviewService manages booking reviews
type ReviewService struct {
	db       *gorm.DB
	notifier Notifier
}

func NewReviewService(db *gorm.DB, notifier Notifier) *ReviewService {
	return &ReviewService{db: db, notifier: notifier}
}

// Create records the customer's review of their own booking. Each booking
// takes at most one review.
func (s *ReviewService) Create(ctx context.Context, customer *models.User, bookingID uint, rating int, comment string) (*models.Review, error) {
	if rating < 1 || rating > 5 {
		return nil, InvalidInput("INVALID_RATING", "rating must be between 1 and 5")
	}

	var booking models.Booking
	if err := s.db.WithContext(ctx).Preload("Service").First(&booking, bookingID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFound("BOOKING_NOT_FOUND", "Booking not found")
		}
		return nil, fmt.Errorf("failed to load booking: %w", err)
	}
	if booking.CustomerID != customer.ID {
		return nil, Forbidden("FORBIDDEN", "You can only review your own bookings")
	}

	review := models.Review{
		BookingID: booking.ID,
		Rating:    rating,
		Comment:   strings.TrimSpace(comment),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Review{}).Where("booking_id = ?", booking.ID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return Conflict("REVIEW_EXISTS", "This booking has already been reviewed")
		}
		return tx.Create(&review).Error
	})
	if err != nil {
		if _, ok := AsAppError(err); ok {
			return nil, err
		}
		if isUniqueViolation(err) {
			return nil, Conflict("REVIEW_EXISTS", "This booking has already been reviewed")
		}
		return nil, fmt.Errorf("failed to create review: %w", err)
	}

	if s.notifier != nil {
		s.notifier.NotifyAsync(booking.Service.ProviderID, "New review",
			fmt.Sprintf("%s rated %q %d/5.", customer.Name, booking.Service.Title, rating))
	}

	return &review, nil
}

// ListByService returns the reviews of every booking of a service, newest first
func (s *ReviewService) ListByService(ctx context.Context, serviceID uint) ([]models.Review, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Service{}).Where("id = ?", serviceID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to load service: %w", err)
	}
	if count == 0 {
		return nil, NotFound("SERVICE_NOT_FOUND", "Service not found")
	}

	reviews := []models.Review{}
	if err := s.db.WithContext(ctx).
		Select("reviews.*").
		Joins("JOIN bookings ON bookings.id = reviews.booking_id").
		Where("bookings.service_id = ?", serviceID).
		Order("reviews.created_at DESC, reviews.id DESC").
		Find(&reviews).Error; err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	return reviews, nil
}
