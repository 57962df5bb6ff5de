package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/kendall-kelly/service-marketplace-api/models"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const timeOfDayLayout = "15:04:05"

// AvailabilityInput is one day of a recurring availability payload
type AvailabilityInput struct {
	Day         string
	StartTime   string
	EndTime     string
	IsAvailable *bool
}

// AvailabilityService manages weekly recurring availability
type AvailabilityService struct {
	db *gorm.DB
}

func NewAvailabilityService(db *gorm.DB) *AvailabilityService {
	return &AvailabilityService{db: db}
}

// Save upserts every entry by (user, day). The whole payload is validated
// before anything is written.
func (s *AvailabilityService) Save(ctx context.Context, userID uint, entries []AvailabilityInput) error {
	if len(entries) == 0 {
		return InvalidInput("VALIDATION_ERROR", "availabilities must not be empty")
	}

	rows := make([]models.Availability, 0, len(entries))
	for _, e := range entries {
		row, err := availabilityRow(userID, e)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, row := range rows {
			var existing models.Availability
			err := tx.Where("user_id = ? AND day = ?", userID, row.Day).First(&existing).Error
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				if err := tx.Create(&row).Error; err != nil {
					return err
				}
			case err != nil:
				return err
			default:
				if err := tx.Model(&existing).Updates(map[string]interface{}{
					"start_time":   row.StartTime,
					"end_time":     row.EndTime,
					"is_available": row.IsAvailable,
				}).Error; err != nil {
					return err
				}
			}
			log.Debug().Uint("user_id", userID).Str("day", row.Day).Msg("Updated availability")
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save availability: %w", err)
	}
	return nil
}

// List returns the user's availability ordered monday to sunday
func (s *AvailabilityService) List(ctx context.Context, userID uint) ([]models.Availability, error) {
	rows := []models.Availability{}
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list availability: %w", err)
	}
	sort.Slice(rows, func(i, j int) bool {
		return dayIndex(rows[i].Day) < dayIndex(rows[j].Day)
	})
	return rows, nil
}

// Get returns the user's availability for one day
func (s *AvailabilityService) Get(ctx context.Context, userID uint, day string) (*models.Availability, error) {
	normalized, ok := models.NormalizeDay(day)
	if !ok {
		return nil, InvalidInput("INVALID_DAY", "Unknown day %q", strings.TrimSpace(day))
	}

	var row models.Availability
	if err := s.db.WithContext(ctx).Where("user_id = ? AND day = ?", userID, normalized).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFound("AVAILABILITY_NOT_FOUND", "Availability not found")
		}
		return nil, fmt.Errorf("failed to load availability: %w", err)
	}
	return &row, nil
}

// Delete removes the user's availability for one day
func (s *AvailabilityService) Delete(ctx context.Context, userID uint, day string) error {
	row, err := s.Get(ctx, userID, day)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(row).Error; err != nil {
		return fmt.Errorf("failed to delete availability: %w", err)
	}
	return nil
}

// DeleteAll removes every availability row of the user
func (s *AvailabilityService) DeleteAll(ctx context.Context, userID uint) (int64, error) {
	res := s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.Availability{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete availability: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func availabilityRow(userID uint, e AvailabilityInput) (models.Availability, error) {
	day, ok := models.NormalizeDay(e.Day)
	if !ok {
		return models.Availability{}, InvalidInput("INVALID_DAY", "Unknown day %q", strings.TrimSpace(e.Day))
	}
	start, err := parseTimeOfDay(e.StartTime)
	if err != nil {
		return models.Availability{}, InvalidInput("INVALID_TIME", "start_time for %s must be HH:MM or HH:MM:SS", day)
	}
	end, err := parseTimeOfDay(e.EndTime)
	if err != nil {
		return models.Availability{}, InvalidInput("INVALID_TIME", "end_time for %s must be HH:MM or HH:MM:SS", day)
	}
	if !start.Before(end) {
		return models.Availability{}, InvalidInput("INVALID_TIME", "start_time must be before end_time for %s", day)
	}

	available := true
	if e.IsAvailable != nil {
		available = *e.IsAvailable
	}

	return models.Availability{
		UserID:      userID,
		Day:         day,
		StartTime:   start.Format(timeOfDayLayout),
		EndTime:     end.Format(timeOfDayLayout),
		IsAvailable: available,
	}, nil
}

func parseTimeOfDay(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(timeOfDayLayout, value); err == nil {
		return t, nil
	}
	return time.Parse("15:04", value)
}

func dayIndex(day string) int {
	for i, d := range models.Weekdays {
		if d == day {
			return i
		}
	}
	return len(models.Weekdays)
}
