package model

import "time"

// Allocation is one contiguous time-blocked piece of a task on a user's
// calendar. Rows never cross the lunch window or a recurring block; a task
// may have several rows per date when split around either.
type Allocation struct {
	ID           uint      `gorm:"primaryKey"`
	TaskID       uint      `gorm:"index"`
	UserID       uint      `gorm:"index:idx_alloc_user_date"`
	Date         time.Time `gorm:"index:idx_alloc_user_date"`
	Hours        float64
	StartMinutes int
	EndMinutes   int
	IsManual     bool
	Mode         Mode
	CreatedAt    time.Time
}

// ChildAllocation subdivides a parent task's own allocation among its
// subtasks, at arbitrary depth. It does not consume calendar capacity; the
// parent's Allocation rows already reserve the time.
type ChildAllocation struct {
	ID           uint `gorm:"primaryKey"`
	ParentTaskID uint `gorm:"index"`
	ChildTaskID  uint `gorm:"index"`
	Date         time.Time
	Hours        float64
	Level        int
	StartMinutes int
	EndMinutes   int
	CreatedAt    time.Time
}
