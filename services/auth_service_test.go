package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/kendall-kelly/service-marketplace-api/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type authFixture struct {
	db      *gorm.DB
	auth    *AuthService
	tokens  *TokenService
	actions *ActionTokenService
	mailer  *MockMailer
}

func setupAuth(t *testing.T) *authFixture {
	t.Helper()
	db := setupTestDB(t)
	cfg := testConfig()

	tokens, err := NewTokenService(cfg)
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	actions := NewActionTokenService(db, cfg.ActionTokenExpiry)
	mailer := NewMockMailer()
	auth := NewAuthService(newTestUserStore(db), tokens, actions, NewRedisRevocationStore(client), mailer, cfg.AppBaseURL)

	return &authFixture{db: db, auth: auth, tokens: tokens, actions: actions, mailer: mailer}
}

func (f *authFixture) signUp(t *testing.T, username, role string) *models.User {
	t.Helper()
	user, _, err := f.auth.SignUp(context.Background(), SignUpInput{
		Username: username,
		Email:    username + "@example.com",
		Password: "password",
		Role:     role,
	})
	require.NoError(t, err)
	return user
}

func TestSignUp(t *testing.T) {
	f := setupAuth(t)

	user, session, err := f.auth.SignUp(context.Background(), SignUpInput{
		Username: "johndoe",
		Email:    "johndoe@example.com",
		Password: "password",
		Role:     "customer",
	})
	require.NoError(t, err)

	assert.True(t, user.IsActive)
	assert.Equal(t, models.RoleCustomer, user.Role)
	assert.Equal(t, "johndoe", user.Name, "name defaults to the username")
	assert.Equal(t, "bearer", session.TokenType)
	assert.Equal(t, int64(3600), session.ExpiresIn)

	claims, err := f.tokens.VerifySession(context.Background(), session.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "johndoe", claims.Username)

	var tokens []models.Token
	f.db.Where("user_id = ?", user.ID).Find(&tokens)
	require.Len(t, tokens, 1)
	assert.Equal(t, models.TokenVerifyEmail, tokens[0].Type)

	require.Eventually(t, func() bool {
		return len(f.mailer.SentTo("johndoe@example.com")) == 1
	}, time.Second, 10*time.Millisecond)
	email := f.mailer.SentTo("johndoe@example.com")[0]
	assert.Equal(t, "welcome", email.Template)
	assert.Contains(t, email.Body, tokens[0].ID)
}

func TestSignUpRoles(t *testing.T) {
	tests := []struct {
		name     string
		role     string
		wantRole string
		wantCode string
	}{
		{"default role", "", models.RoleCustomer, ""},
		{"provider", "Provider", models.RoleProvider, ""},
		{"admin rejected", "admin", "", "INVALID_ROLE"},
		{"unknown rejected", "technician", "", "INVALID_ROLE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupAuth(t)
			user, _, err := f.auth.SignUp(context.Background(), SignUpInput{
				Username: "someone",
				Email:    "someone@example.com",
				Password: "password",
				Role:     tt.role,
			})
			if tt.wantCode != "" {
				appErr, ok := AsAppError(err)
				require.True(t, ok)
				assert.Equal(t, tt.wantCode, appErr.Code)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantRole, user.Role)
		})
	}
}

func TestSignUpDuplicate(t *testing.T) {
	f := setupAuth(t)
	f.signUp(t, "johndoe", models.RoleCustomer)

	_, _, err := f.auth.SignUp(context.Background(), SignUpInput{
		Username: "johndoe",
		Email:    "new@example.com",
		Password: "password",
	})
	assert.True(t, IsKind(err, KindConflict))
}

func TestSignIn(t *testing.T) {
	f := setupAuth(t)
	f.signUp(t, "johndoe", models.RoleCustomer)

	tests := []struct {
		name       string
		identifier string
		password   string
		wantErr    bool
	}{
		{"by username", "johndoe", "password", false},
		{"by email", "johndoe@example.com", "password", false},
		{"wrong password", "johndoe", "wrong", true},
		{"unknown user", "nobody", "password", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, session, err := f.auth.SignIn(context.Background(), tt.identifier, tt.password)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, IsKind(err, KindUnauthorized))
				assert.Nil(t, session, "no credential is issued")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "johndoe", user.Username)
			assert.NotEmpty(t, session.AccessToken)
		})
	}
}

func TestSignInInactiveUser(t *testing.T) {
	f := setupAuth(t)
	user := f.signUp(t, "johndoe", models.RoleCustomer)
	f.db.Model(user).Update("is_active", false)

	_, _, err := f.auth.SignIn(context.Background(), "johndoe", "password")
	assert.True(t, IsKind(err, KindUnauthorized))
}

func TestAuthenticateAndSignOut(t *testing.T) {
	f := setupAuth(t)
	ctx := context.Background()
	f.signUp(t, "johndoe", models.RoleCustomer)

	_, session, err := f.auth.SignIn(ctx, "johndoe", "password")
	require.NoError(t, err)
	claims, err := f.tokens.VerifySession(ctx, session.AccessToken)
	require.NoError(t, err)

	user, err := f.auth.Authenticate(ctx, claims)
	require.NoError(t, err)
	assert.Equal(t, "johndoe", user.Username)

	require.NoError(t, f.auth.SignOut(ctx, claims))

	_, err = f.auth.Authenticate(ctx, claims)
	assert.True(t, IsKind(err, KindUnauthorized), "a signed-out token is rejected")
}

func TestAuthenticateOpaqueFailures(t *testing.T) {
	f := setupAuth(t)
	ctx := context.Background()
	user := f.signUp(t, "johndoe", models.RoleCustomer)
	f.db.Model(user).Update("is_active", false)

	unknown, err := f.auth.Authenticate(ctx, &SessionClaims{Username: "ghost", TokenID: "a"})
	assert.Nil(t, unknown)
	unknownErr, _ := AsAppError(err)

	_, err = f.auth.Authenticate(ctx, &SessionClaims{Username: "johndoe", TokenID: "b"})
	inactiveErr, _ := AsAppError(err)

	require.NotNil(t, unknownErr)
	require.NotNil(t, inactiveErr)
	assert.Equal(t, unknownErr.Code, inactiveErr.Code)
	assert.Equal(t, unknownErr.Message, inactiveErr.Message)
}

func TestVerifyEmail(t *testing.T) {
	f := setupAuth(t)
	ctx := context.Background()
	user := f.signUp(t, "johndoe", models.RoleCustomer)

	var token models.Token
	require.NoError(t, f.db.Where("user_id = ? AND type = ?", user.ID, models.TokenVerifyEmail).First(&token).Error)

	verified, err := f.auth.VerifyEmail(ctx, token.ID)
	require.NoError(t, err)
	assert.True(t, verified.EmailVerified)

	var reloaded models.User
	f.db.First(&reloaded, user.ID)
	assert.True(t, reloaded.EmailVerified)

	_, err = f.auth.VerifyEmail(ctx, token.ID)
	assert.True(t, IsKind(err, KindInvalidInput))

	assert.True(t, IsKind(f.auth.ResendVerification(ctx, &reloaded), KindConflict))
}

func TestChangePassword(t *testing.T) {
	f := setupAuth(t)
	ctx := context.Background()
	user := f.signUp(t, "johndoe", models.RoleCustomer)

	err := f.auth.ChangePassword(ctx, user, "wrong", "new-password")
	assert.True(t, IsKind(err, KindUnauthorized))

	require.NoError(t, f.auth.ChangePassword(ctx, user, "password", "new-password"))

	_, _, err = f.auth.SignIn(ctx, "johndoe", "new-password")
	assert.NoError(t, err)
}

func TestForgotAndResetPassword(t *testing.T) {
	f := setupAuth(t)
	ctx := context.Background()
	user := f.signUp(t, "johndoe", models.RoleCustomer)

	err := f.auth.ForgotPassword(ctx, "unknown@example.com")
	assert.True(t, IsKind(err, KindNotFound))

	require.NoError(t, f.auth.ForgotPassword(ctx, "johndoe@example.com"))

	var token models.Token
	require.NoError(t, f.db.Where("user_id = ? AND type = ?", user.ID, models.TokenResetPassword).First(&token).Error)

	require.Eventually(t, func() bool {
		for _, e := range f.mailer.SentTo("johndoe@example.com") {
			if e.Template == "forgot_password" && strings.Contains(e.Body, token.ID) {
				return true
			}
		}
		return false
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, f.auth.ResetPassword(ctx, token.ID, "brand-new"))

	_, _, err = f.auth.SignIn(ctx, "johndoe", "brand-new")
	assert.NoError(t, err)

	err = f.auth.ResetPassword(ctx, token.ID, "again")
	assert.True(t, IsKind(err, KindInvalidInput), "reset tokens are single-use")
}

func TestResetPasswordRejectsVerifyToken(t *testing.T) {
	f := setupAuth(t)
	ctx := context.Background()
	user := f.signUp(t, "johndoe", models.RoleCustomer)

	var token models.Token
	require.NoError(t, f.db.Where("user_id = ? AND type = ?", user.ID, models.TokenVerifyEmail).First(&token).Error)

	err := f.auth.ResetPassword(ctx, token.ID, "hijacked")
	assert.True(t, IsKind(err, KindInvalidInput))

	_, _, err = f.auth.SignIn(ctx, "johndoe", "password")
	assert.NoError(t, err, "password is unchanged")
}
