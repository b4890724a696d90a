package model

import "time"

// User is a member whose calendars tasks are planned on. TelegramID of 0
// disables notifications for the user.
type User struct {
	ID         uint  `gorm:"primaryKey"`
	TelegramID int64 `gorm:"index"`
	Name       string

	// Daily lunch window, applied to the work calendar only.
	// LunchDurationMinutes of 0 disables the break.
	LunchStartMinutes    int
	LunchDurationMinutes int

	CreatedAt time.Time
	UpdatedAt time.Time
}
