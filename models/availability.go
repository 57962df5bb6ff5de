package models

import (
	"strings"
	"time"
)

// Weekdays lists the accepted day names in order
var Weekdays = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

// Availability is a user's working window for one day of the week
type Availability struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"not null;uniqueIndex:idx_availability_user_day" json:"user_id"`
	Day         string    `gorm:"not null;uniqueIndex:idx_availability_user_day" json:"day"`
	StartTime   string    `gorm:"not null" json:"start_time"` // HH:MM:SS
	EndTime     string    `gorm:"not null" json:"end_time"`   // HH:MM:SS
	IsAvailable bool      `gorm:"not null" json:"is_available"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName specifies the table name for the Availability model
func (Availability) TableName() string {
	return "availabilities"
}

// NormalizeDay maps "Mon", " monday " and similar inputs to the stored day name.
// The second return value is false for unknown days.
func NormalizeDay(day string) (string, bool) {
	d := strings.ToLower(strings.TrimSpace(day))
	for _, w := range Weekdays {
		if d == w || (len(d) == 3 && strings.HasPrefix(w, d)) {
			return w, true
		}
	}
	return "", false
}
