package services

import (
	"context"
	"strings"
	"testing"

	"github.com/kendall-kelly/service-marketplace-api/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserStoreCreate(t *testing.T) {
	db := setupTestDB(t)
	store := newTestUserStore(db)
	ctx := context.Background()

	user, err := store.Create(ctx, NewUser{
		Username: "johndoe",
		Email:    "JohnDoe@Example.com",
		Name:     "John Doe",
		Password: "password",
		Role:     models.RoleCustomer,
	})
	require.NoError(t, err)

	assert.NotZero(t, user.ID)
	assert.True(t, user.IsActive)
	assert.False(t, user.EmailVerified)
	assert.Equal(t, "johndoe@example.com", user.Email, "email is stored lowercase")
	assert.NotEqual(t, "password", user.PasswordHash)
	assert.True(t, CheckPassword(user, "password"))
	assert.False(t, CheckPassword(user, "wrong"))
}

func TestUserStoreCreateDuplicate(t *testing.T) {
	tests := []struct {
		name     string
		username string
		email    string
	}{
		{"duplicate username", "johndoe", "other@example.com"},
		{"duplicate email", "someoneelse", "johndoe@example.com"},
		{"duplicate email different case", "someoneelse", "JOHNDOE@example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := setupTestDB(t)
			store := newTestUserStore(db)
			createTestUser(t, store, "johndoe", models.RoleCustomer)

			_, err := store.Create(context.Background(), NewUser{
				Username: tt.username,
				Email:    tt.email,
				Password: "password",
				Role:     models.RoleCustomer,
			})
			require.Error(t, err)
			assert.True(t, IsKind(err, KindConflict))

			var count int64
			db.Model(&models.User{}).Count(&count)
			assert.Equal(t, int64(1), count, "no partial record should be written")
		})
	}
}

func TestUserStoreFindByIdentifier(t *testing.T) {
	db := setupTestDB(t)
	store := newTestUserStore(db)
	ctx := context.Background()
	created := createTestUser(t, store, "johndoe", models.RoleCustomer)
	createTestUser(t, store, "janedoe", models.RoleProvider)

	byName, err := store.FindByIdentifier(ctx, "johndoe")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byName.ID)

	byEmail, err := store.FindByIdentifier(ctx, "johndoe@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)

	_, err = store.FindByIdentifier(ctx, "nobody")
	assert.True(t, IsKind(err, KindNotFound))
}

func TestUserStoreUpdatePassword(t *testing.T) {
	db := setupTestDB(t)
	store := newTestUserStore(db)
	ctx := context.Background()
	user := createTestUser(t, store, "johndoe", models.RoleCustomer)

	require.NoError(t, store.UpdatePassword(ctx, nil, user.ID, "new-password"))

	reloaded, err := store.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, CheckPassword(reloaded, "new-password"))
	assert.False(t, CheckPassword(reloaded, "password"))
}

func TestUserStoreHashPasswordTooLong(t *testing.T) {
	store := newTestUserStore(setupTestDB(t))

	_, err := store.HashPassword(strings.Repeat("x", 73))
	require.Error(t, err)
	assert.True(t, IsKind(err, KindInvalidInput))
	appErr, ok := AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, "PASSWORD_TOO_LONG", appErr.Code)

	_, err = store.HashPassword(strings.Repeat("x", 72))
	assert.NoError(t, err)
}
