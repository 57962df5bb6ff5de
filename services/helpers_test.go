package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/kendall-kelly/service-marketplace-api/config"
	"github.com/kendall-kelly/service-marketplace-api/models"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "Failed to connect to test database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.AllModels()...), "Failed to migrate test database")
	return db
}

func testConfig() *config.Config {
	return &config.Config{
		GoEnv:             "test",
		JWTSecret:         "test-secret-that-is-long-enough-for-hs256",
		JWTIssuer:         "service-marketplace-api",
		JWTAudience:       "service-marketplace",
		JWTAccessExpiry:   time.Hour,
		ActionTokenExpiry: 15 * time.Minute,
		AppBaseURL:        "http://localhost:5173",
	}
}

func createTestUser(t *testing.T, store *UserStore, username, role string) *models.User {
	t.Helper()
	user, err := store.Create(context.Background(), NewUser{
		Username: username,
		Email:    username + "@example.com",
		Name:     username,
		Password: "password",
		Role:     role,
	})
	require.NoError(t, err)
	return user
}

func newTestUserStore(db *gorm.DB) *UserStore {
	return NewUserStore(db, bcrypt.MinCost)
}

type notification struct {
	UserID      uint
	Title       string
	Description string
}

// recordingNotifier captures NotifyAsync calls synchronously
type recordingNotifier struct {
	mu    sync.Mutex
	calls []notification
}

func (r *recordingNotifier) NotifyAsync(userID uint, title, description string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, notification{UserID: userID, Title: title, Description: description})
}

func (r *recordingNotifier) Calls() []notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notification(nil), r.calls...)
}
