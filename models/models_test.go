package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestAllModelsMigrate(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(AllModels()...))

	for _, table := range []string{"users", "services", "service_tags", "service_media", "bookings", "reviews", "tokens", "availabilities", "notifications"} {
		assert.True(t, db.Migrator().HasTable(table), "table %s should exist", table)
	}
}

func TestNormalizeDay(t *testing.T) {
	tests := []struct {
		input  string
		want   string
		wantOK bool
	}{
		{"monday", "monday", true},
		{"  Monday ", "monday", true},
		{"mon", "monday", true},
		{"THU", "thursday", true},
		{"sun", "sunday", true},
		{"mo", "", false},
		{"funday", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := NormalizeDay(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTokenExpired(t *testing.T) {
	now := time.Now()

	assert.False(t, Token{ExpiresAt: now.Add(time.Minute)}.Expired(now))
	assert.True(t, Token{ExpiresAt: now}.Expired(now), "a token expiring exactly now is expired")
	assert.True(t, Token{ExpiresAt: now.Add(-time.Second)}.Expired(now))
}
