package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"planboard/internal/model"
	"planboard/internal/scheduler"
)

// CalendarRepository stores per-weekday capacity settings and assembles the
// in-memory calendar the scheduler core works on.
type CalendarRepository struct {
	db *gorm.DB
}

func NewCalendarRepository(db *gorm.DB) *CalendarRepository {
	return &CalendarRepository{db: db}
}

// UpsertDay creates or updates one weekday's settings for a user and mode.
func (r *CalendarRepository) UpsertDay(ctx context.Context, day *model.CalendarDay) error {
	db := r.db.WithContext(ctx)
	var existing model.CalendarDay
	err := db.Where("user_id = ? AND weekday = ? AND mode = ?", day.UserID, day.Weekday, day.Mode).
		First(&existing).Error
	switch {
	case err == nil:
		updates := map[string]interface{}{
			"capacity_hours": day.CapacityHours,
			"start_minutes":  day.StartMinutes,
		}
		if err := db.Model(&existing).Updates(updates).Error; err != nil {
			return fmt.Errorf("update calendar day: %w", err)
		}
		day.ID = existing.ID
		return nil
	case err == gorm.ErrRecordNotFound:
		if err := db.Create(day).Error; err != nil {
			return fmt.Errorf("create calendar day: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("find calendar day: %w", err)
	}
}

// Load assembles a user's full work calendar: both modes' weekday plans plus
// the lunch window from the user record. Missing weekday rows read as zero
// capacity.
func (r *CalendarRepository) Load(ctx context.Context, userID uint) (scheduler.WorkCalendar, error) {
	var cal scheduler.WorkCalendar

	var user model.User
	if err := r.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		return cal, fmt.Errorf("load user: %w", err)
	}
	cal.LunchStartMinutes = user.LunchStartMinutes
	cal.LunchDurationMinutes = user.LunchDurationMinutes

	var days []model.CalendarDay
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Find(&days).Error; err != nil {
		return cal, fmt.Errorf("load calendar days: %w", err)
	}
	for _, d := range days {
		if d.Weekday < 0 || d.Weekday > 6 {
			continue
		}
		plan := scheduler.DayPlan{
			CapacityMinutes: scheduler.Minutes(d.CapacityHours),
			StartMinutes:    d.StartMinutes,
		}
		if d.Mode == model.ModeHobby {
			cal.Hobby[d.Weekday] = plan
		} else {
			cal.Work[d.Weekday] = plan
		}
	}
	return cal, nil
}
