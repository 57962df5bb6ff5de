package models

import "time"

const (
	TokenResetPassword = "reset_password"
	TokenVerifyEmail   = "verify_email"
)

// Token is a single-use action token for out-of-band flows
type Token struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Type      string    `gorm:"not null;index" json:"type"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	User      User      `gorm:"foreignKey:UserID" json:"-"`
	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for the Token model
func (Token) TableName() string {
	return "tokens"
}

// Expired reports whether the token is no longer redeemable at now
func (t Token) Expired(now time.Time) bool {
	return !t.ExpiresAt.After(now)
}
