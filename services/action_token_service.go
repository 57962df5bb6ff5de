package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kendall-kelly/service-marketplace-api/models"
	"gorm.io/gorm"
)

// ActionTokenService issues and redeems single-use tokens for email
// verification and password reset.
type ActionTokenService struct {
	db     *gorm.DB
	expiry time.Duration
	now    func() time.Time
}

func NewActionTokenService(db *gorm.DB, expiry time.Duration) *ActionTokenService {
	return &ActionTokenService{db: db, expiry: expiry, now: time.Now}
}

// Issue persists a new random token of kind for user
func (s *ActionTokenService) Issue(ctx context.Context, userID uint, kind string) (*models.Token, error) {
	token := models.Token{
		ID:        uuid.NewString(),
		Type:      kind,
		UserID:    userID,
		ExpiresAt: s.now().Add(s.expiry),
	}
	if err := s.db.WithContext(ctx).Create(&token).Error; err != nil {
		return nil, fmt.Errorf("failed to create action token: %w", err)
	}
	return &token, nil
}

// Redeem validates the token and runs apply inside the transaction that
// deletes it. A missing, expired or wrong-kind token is InvalidInput; a
// wrong-kind token is left in place.
func (s *ActionTokenService) Redeem(ctx context.Context, tokenID, kind string, apply func(tx *gorm.DB, user *models.User) error) (*models.User, error) {
	var user models.User

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var token models.Token
		if err := tx.Where("id = ?", tokenID).First(&token).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return InvalidInput("INVALID_TOKEN", "Invalid/Expired Token")
			}
			return err
		}
		if token.Type != kind {
			return InvalidInput("INVALID_TOKEN", "Invalid/Expired Token")
		}
		if token.Expired(s.now()) {
			return InvalidInput("INVALID_TOKEN", "Invalid/Expired Token")
		}

		if err := tx.First(&user, token.UserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return InvalidInput("INVALID_TOKEN", "Invalid/Expired Token")
			}
			return err
		}

		if apply != nil {
			if err := apply(tx, &user); err != nil {
				return err
			}
		}

		res := tx.Delete(&models.Token{}, "id = ?", token.ID)
		if res.Error != nil {
			return res.Error
		}
		// Lost a race with a concurrent redemption
		if res.RowsAffected == 0 {
			return InvalidInput("INVALID_TOKEN", "Invalid/Expired Token")
		}
		return nil
	})
	if err != nil {
		if _, ok := AsAppError(err); ok {
			return nil, err
		}
		return nil, fmt.Errorf("failed to redeem action token: %w", err)
	}

	return &user, nil
}

// PurgeExpired deletes every token that can no longer be redeemed
func (s *ActionTokenService) PurgeExpired(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Where("expires_at <= ?", s.now()).Delete(&models.Token{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to purge expired tokens: %w", res.Error)
	}
	return res.RowsAffected, nil
}
