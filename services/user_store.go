package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kendall-kelly/service-marketplace-api/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// UserStore persists user records and password hashes
type UserStore struct {
	db         *gorm.DB
	bcryptCost int
}

// NewUserStore creates a user store. A zero cost uses bcrypt.DefaultCost.
func NewUserStore(db *gorm.DB, bcryptCost int) *UserStore {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &UserStore{db: db, bcryptCost: bcryptCost}
}

// NewUser describes an account to create
type NewUser struct {
	Username string
	Email    string
	Name     string
	Password string
	Role     string
}

// Create hashes the password and inserts the user. Duplicate usernames or
// emails yield a Conflict and no row is written.
func (s *UserStore) Create(ctx context.Context, in NewUser) (*models.User, error) {
	hash, err := s.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := models.User{
		Username:     in.Username,
		Email:        strings.ToLower(in.Email),
		Name:         in.Name,
		PasswordHash: hash,
		Role:         in.Role,
		IsActive:     true,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).
			Where("username = ? OR email = ?", user.Username, user.Email).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return Conflict("USER_EXISTS", "A user with this username or email already exists")
		}
		return tx.Create(&user).Error
	})
	if err != nil {
		if _, ok := AsAppError(err); ok {
			return nil, err
		}
		if isUniqueViolation(err) {
			return nil, Conflict("USER_EXISTS", "A user with this username or email already exists")
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return &user, nil
}

// FindByUsername returns the user with the given username
func (s *UserStore) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.first(ctx, "username = ?", username)
}

// FindByEmail returns the user with the given email
func (s *UserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.first(ctx, "email = ?", strings.ToLower(email))
}

// FindByIdentifier matches identifier against the username or the email column
func (s *UserStore) FindByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	return s.first(ctx, "username = ? OR email = ?", identifier, strings.ToLower(identifier))
}

// FindByID returns the user with the given id
func (s *UserStore) FindByID(ctx context.Context, id uint) (*models.User, error) {
	return s.first(ctx, "id = ?", id)
}

func (s *UserStore) first(ctx context.Context, query string, args ...interface{}) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where(query, args...).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFound("USER_NOT_FOUND", "User not found")
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return &user, nil
}

// UpdatePassword stores a new hash for the user
func (s *UserStore) UpdatePassword(ctx context.Context, tx *gorm.DB, userID uint, password string) error {
	hash, err := s.HashPassword(password)
	if err != nil {
		return err
	}
	if tx == nil {
		tx = s.db.WithContext(ctx)
	}
	if err := tx.Model(&models.User{}).Where("id = ?", userID).Update("password_hash", hash).Error; err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

// HashPassword returns the bcrypt hash of password
func (s *UserStore) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", InvalidInput("PASSWORD_TOO_LONG", "password must be at most 72 bytes")
		}
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches the user's stored hash
func CheckPassword(user *models.User, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) == nil
}
