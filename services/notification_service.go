package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kendall-kelly/service-marketplace-api/models"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const DefaultNotificationLimit = 10

// NotificationService persists notifications and pushes them through the hub
type NotificationService struct {
	db    *gorm.DB
	hub   *NotificationHub
	users *UserStore
}

func NewNotificationService(db *gorm.DB, hub *NotificationHub, users *UserStore) *NotificationService {
	return &NotificationService{db: db, hub: hub, users: users}
}

// Hub returns the hub this service pushes through
func (s *NotificationService) Hub() *NotificationHub {
	return s.hub
}

// Notify stores a notification for user and pushes it to any open channels
func (s *NotificationService) Notify(ctx context.Context, user *models.User, title, description string) (*models.Notification, int, error) {
	n := models.Notification{
		UserID:      user.ID,
		Title:       title,
		Description: description,
	}
	if err := s.db.WithContext(ctx).Create(&n).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to create notification: %w", err)
	}

	payload, err := json.Marshal(n)
	if err != nil {
		return &n, 0, fmt.Errorf("failed to encode notification: %w", err)
	}
	return &n, s.hub.Send(user.Username, payload), nil
}

// NotifyUsername resolves username and notifies it
func (s *NotificationService) NotifyUsername(ctx context.Context, username, title, description string) (*models.Notification, int, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, 0, err
	}
	return s.Notify(ctx, user, title, description)
}

// NotifyAsync runs Notify on a background goroutine. Failures are logged.
func (s *NotificationService) NotifyAsync(userID uint, title, description string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		user, err := s.users.FindByID(ctx, userID)
		if err != nil {
			log.Warn().Err(err).Uint("user_id", userID).Msg("Skipping notification for unknown user")
			return
		}
		if _, _, err := s.Notify(ctx, user, title, description); err != nil {
			log.Error().Err(err).Uint("user_id", userID).Msg("Failed to send notification")
		}
	}()
}

// Broadcast pushes an announcement to every open channel without persisting it
func (s *NotificationService) Broadcast(message string) (int, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"title":       "Announcement",
		"description": message,
		"created_at":  time.Now().UTC(),
		"read":        false,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to encode broadcast: %w", err)
	}
	return s.hub.Broadcast(payload), nil
}

// List returns the user's notifications, newest first
func (s *NotificationService) List(ctx context.Context, userID uint, limit int) ([]models.Notification, error) {
	if limit <= 0 {
		limit = DefaultNotificationLimit
	}

	var out []models.Notification
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return out, nil
}

// MarkRead flags one of the user's notifications as read
func (s *NotificationService) MarkRead(ctx context.Context, userID, id uint) (*models.Notification, error) {
	var n models.Notification
	if err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&n).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFound("NOTIFICATION_NOT_FOUND", "Notification not found")
		}
		return nil, fmt.Errorf("failed to load notification: %w", err)
	}

	if !n.Read {
		if err := s.db.WithContext(ctx).Model(&n).Update("read", true).Error; err != nil {
			return nil, fmt.Errorf("failed to update notification: %w", err)
		}
		n.Read = true
	}
	return &n, nil
}
