package controllers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/service-marketplace-api/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupUserRouter(env *testEnv, user *models.User) *gin.Engine {
	router := gin.New()
	h := NewUserController(env.auth)

	u := router.Group("/api/v1/users")
	{
		u.POST("/sign-up", h.SignUp)
		u.POST("/sign-in", h.SignIn)
		u.POST("/verify", h.Verify)
		u.POST("/verify-email/:token", h.VerifyEmail)
		u.POST("/forgot-password", h.ForgotPassword)
		u.POST("/reset-password", h.ResetPassword)
		u.GET("/current-user", mockAuthMiddleware(user), h.CurrentUser)
		u.POST("/change-password", mockAuthMiddleware(user), h.ChangePassword)
		u.POST("/resend-verification", mockAuthMiddleware(user), h.ResendVerification)
	}
	return router
}

func TestSignUp(t *testing.T) {
	env := newTestEnv(t)
	router := setupUserRouter(env, nil)

	tests := []struct {
		name       string
		body       map[string]interface{}
		wantStatus int
		wantCode   string
	}{
		{
			name:       "customer by default",
			body:       map[string]interface{}{"username": "olivia", "email": "olivia@example.com", "password": "secret123"},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "provider",
			body:       map[string]interface{}{"username": "paul", "email": "paul@example.com", "password": "secret123", "role": "provider"},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "admin is rejected",
			body:       map[string]interface{}{"username": "quinn", "email": "quinn@example.com", "password": "secret123", "role": "admin"},
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_ROLE",
		},
		{
			name:       "missing password",
			body:       map[string]interface{}{"username": "rosa", "email": "rosa@example.com"},
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_ERROR",
		},
		{
			name:       "short username",
			body:       map[string]interface{}{"username": "ab", "email": "ab@example.com", "password": "secret123"},
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_ERROR",
		},
		{
			name:       "duplicate username",
			body:       map[string]interface{}{"username": "olivia", "email": "other@example.com", "password": "secret123"},
			wantStatus: http.StatusConflict,
			wantCode:   "USER_EXISTS",
		},
		{
			name:       "password over 72 characters",
			body:       map[string]interface{}{"username": "tara", "email": "tara@example.com", "password": strings.Repeat("a", 80)},
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_ERROR",
		},
		{
			name:       "password over 72 bytes",
			body:       map[string]interface{}{"username": "uma", "email": "uma@example.com", "password": strings.Repeat("é", 40)},
			wantStatus: http.StatusBadRequest,
			wantCode:   "PASSWORD_TOO_LONG",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := performRequest(router, "POST", "/api/v1/users/sign-up", tt.body)
			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())

			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, errorCode(t, w))
				return
			}

			data := parseResponse(t, w)["data"].(map[string]interface{})
			assert.NotEmpty(t, data["access_token"])
			assert.Equal(t, "bearer", data["token_type"])
			assert.Equal(t, float64(3600), data["expires_in"])
			user := data["user"].(map[string]interface{})
			assert.Equal(t, tt.body["username"], user["username"])
			assert.NotContains(t, user, "password_hash")
		})
	}
}

func TestSignIn(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "sam", models.RoleCustomer)
	router := setupUserRouter(env, nil)

	t.Run("json", func(t *testing.T) {
		w := performRequest(router, "POST", "/api/v1/users/sign-in",
			map[string]string{"username": "sam", "password": "password123"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		data := parseResponse(t, w)["data"].(map[string]interface{})
		assert.NotEmpty(t, data["access_token"])
		assert.Contains(t, data, "expires_at")
	})

	t.Run("form", func(t *testing.T) {
		form := url.Values{"username": {"sam@example.com"}, "password": {"password123"}}
		req, _ := http.NewRequest("POST", "/api/v1/users/sign-in", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	})

	t.Run("wrong password", func(t *testing.T) {
		w := performRequest(router, "POST", "/api/v1/users/sign-in",
			map[string]string{"username": "sam", "password": "nope"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "INVALID_CREDENTIALS", errorCode(t, w))
	})

	t.Run("missing fields", func(t *testing.T) {
		w := performRequest(router, "POST", "/api/v1/users/sign-in", map[string]string{"username": "sam"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "VALIDATION_ERROR", errorCode(t, w))
	})
}

func TestCurrentUser(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "tina", models.RoleProvider)

	w := performRequest(setupUserRouter(env, user), "GET", "/api/v1/users/current-user", nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := parseResponse(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "tina", data["username"])
	assert.Equal(t, "provider", data["role"])

	w = performRequest(setupUserRouter(env, nil), "GET", "/api/v1/users/current-user", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestVerifyEmailHandlers(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "uma", models.RoleCustomer)
	router := setupUserRouter(env, user)

	w := performRequest(router, "POST", "/api/v1/users/resend-verification", nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	var token models.Token
	require.NoError(t, env.db.Where("user_id = ? AND type = ?", user.ID, models.TokenVerifyEmail).First(&token).Error)

	w = performRequest(router, "POST", "/api/v1/users/verify-email/"+token.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = performRequest(router, "POST", "/api/v1/users/verify", map[string]string{"token": token.ID})
	assert.Equal(t, http.StatusBadRequest, w.Code, "tokens are single use")

	w = performRequest(router, "POST", "/api/v1/users/verify", map[string]string{})
	assert.Equal(t, "VALIDATION_ERROR", errorCode(t, w))

	var reloaded models.User
	require.NoError(t, env.db.First(&reloaded, user.ID).Error)
	assert.True(t, reloaded.EmailVerified)
}

func TestPasswordHandlers(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "victor", models.RoleCustomer)
	router := setupUserRouter(env, user)

	w := performRequest(router, "POST", "/api/v1/users/change-password",
		map[string]string{"current_password": "wrong", "new_password": "changed123"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = performRequest(router, "POST", "/api/v1/users/change-password",
		map[string]string{"current_password": "password123", "new_password": "abc"})
	assert.Equal(t, http.StatusBadRequest, w.Code, "new password is too short")

	w = performRequest(router, "POST", "/api/v1/users/forgot-password", map[string]string{"email": "missing@example.com"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = performRequest(router, "POST", "/api/v1/users/forgot-password", map[string]string{"email": "victor@example.com"})
	require.Equal(t, http.StatusNoContent, w.Code)

	var token models.Token
	require.NoError(t, env.db.Where("user_id = ? AND type = ?", user.ID, models.TokenResetPassword).First(&token).Error)

	w = performRequest(router, "POST", "/api/v1/users/reset-password",
		map[string]string{"token": "not-a-token", "password": "changed123"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = performRequest(router, "POST", "/api/v1/users/reset-password",
		map[string]string{"token": token.ID, "password": "changed123"})
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = performRequest(router, "POST", "/api/v1/users/sign-in",
		map[string]string{"username": "victor", "password": "changed123"})
	assert.Equal(t, http.StatusOK, w.Code)
}
