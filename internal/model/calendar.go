package model

import "time"

// CalendarDay holds a user's capacity and start time for one weekday in one
// mode. A fully configured user has 14 rows (7 weekdays x 2 modes); a missing
// row means zero capacity.
type CalendarDay struct {
	ID            uint `gorm:"primaryKey"`
	UserID        uint `gorm:"index:idx_calendar_day,unique"`
	Weekday       int  `gorm:"index:idx_calendar_day,unique"`
	Mode          Mode `gorm:"index:idx_calendar_day,unique"`
	CapacityHours float64
	StartMinutes  int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
