package testutil

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kendall-kelly/service-marketplace-api/models"
	"github.com/kendall-kelly/service-marketplace-api/services"
)

// DefaultPassword is the password CreateUser assigns
const DefaultPassword = "password123"

// CreateUser inserts a user directly through the store
func (a *App) CreateUser(t *testing.T, username, role string) *models.User {
	t.Helper()

	user, err := a.Users.Create(context.Background(), services.NewUser{
		Username: username,
		Email:    username + "@example.com",
		Name:     username,
		Password: DefaultPassword,
		Role:     role,
	})
	if err != nil {
		t.Fatalf("Failed to create user %q: %v", username, err)
	}
	return user
}

// TokenFor issues a session token for user without going through sign-in
func (a *App) TokenFor(t *testing.T, user *models.User) string {
	t.Helper()

	token, _, err := a.Tokens.IssueSession(user)
	if err != nil {
		t.Fatalf("Failed to issue session for %q: %v", user.Username, err)
	}
	return token
}

// Do serves req through the router, adding a bearer token when one is given
func (a *App) Do(req *http.Request, token string) *httptest.ResponseRecorder {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.Router.ServeHTTP(w, req)
	return w
}
