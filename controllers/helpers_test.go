package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/service-marketplace-api/config"
	"github.com/kendall-kelly/service-marketplace-api/middleware"
	"github.com/kendall-kelly/service-marketplace-api/models"
	"github.com/kendall-kelly/service-marketplace-api/services"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testEnv bundles the services a controller test needs
type testEnv struct {
	db     *gorm.DB
	users  *services.UserStore
	auth   *services.AuthService
	mailer *services.MockMailer
	images *services.MockImageService
	notes  *services.NotificationService
}

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

	require.NoError(t, db.AutoMigrate(models.AllModels()...))
	return db
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		GoEnv:             "test",
		JWTSecret:         "test-secret-that-is-long-enough-for-hs256",
		JWTIssuer:         "service-marketplace-api",
		JWTAudience:       "service-marketplace",
		JWTAccessExpiry:   time.Hour,
		ActionTokenExpiry: 15 * time.Minute,
		AppBaseURL:        "http://localhost:5173",
	}
	tokens, err := services.NewTokenService(cfg)
	require.NoError(t, err)

	db := setupTestDB(t)
	env := &testEnv{
		db:     db,
		users:  services.NewUserStore(db, bcrypt.MinCost),
		mailer: services.NewMockMailer(),
		images: services.NewMockImageService(),
	}
	actions := services.NewActionTokenService(db, cfg.ActionTokenExpiry)
	env.auth = services.NewAuthService(env.users, tokens, actions, services.NoopRevocationStore{}, env.mailer, cfg.AppBaseURL)
	env.notes = services.NewNotificationService(db, services.NewNotificationHub(), env.users)
	return env
}

func (e *testEnv) createUser(t *testing.T, username, role string) *models.User {
	t.Helper()
	user, err := e.users.Create(context.Background(), services.NewUser{
		Username: username,
		Email:    username + "@example.com",
		Name:     username,
		Password: "password123",
		Role:     role,
	})
	require.NoError(t, err)
	return user
}

// mockAuthMiddleware simulates an authenticated request by user. A nil
// user leaves the request anonymous.
func mockAuthMiddleware(user *models.User) gin.HandlerFunc {
	return func(c *gin.Context) {
		if user != nil {
			middleware.SetCurrentUser(c, user)
		}
		c.Next()
	}
}

func performRequest(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response), "body: %s", w.Body.String())
	return response
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	response := parseResponse(t, w)
	errObj, ok := response["error"].(map[string]interface{})
	require.True(t, ok, "expected an error object in %s", w.Body.String())
	return errObj["code"].(string)
}
