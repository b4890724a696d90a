package model

import "time"

// RecurringCommitment is a weekly fixed appointment (standup, gym class)
// that the scheduler must route around. Commitments are materialized into
// dated RecurringBlock rows ahead of time.
type RecurringCommitment struct {
	ID           uint `gorm:"primaryKey"`
	UserID       uint `gorm:"index"`
	Title        string
	Weekday      int
	StartMinutes int
	EndMinutes   int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RecurringBlock is one dated, immovable interval on a user's calendar.
// Read-only to the scheduler: it constrains allocations but is never
// displaced by them.
type RecurringBlock struct {
	ID           uint      `gorm:"primaryKey"`
	UserID       uint      `gorm:"index:idx_block_user_date"`
	Date         time.Time `gorm:"index:idx_block_user_date"`
	StartMinutes int
	EndMinutes   int
	Hours        float64
	CreatedAt    time.Time
}
