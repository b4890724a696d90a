package model

import "time"

// Task is a unit of plannable work. ParentTaskID forms the task hierarchy,
// DependsOnTaskID an optional finish-to-start dependency. Planned dates are
// derived from the task's allocation rows after every scheduling operation.
type Task struct {
	ID               uint `gorm:"primaryKey"`
	ProjectID        uint `gorm:"index"`
	Title            string
	AssignedTo       uint  `gorm:"index"`
	ParentTaskID     *uint `gorm:"index"`
	DependsOnTaskID  *uint `gorm:"index"`
	EstimatedHours   float64
	PlannedStartDate *time.Time
	PlannedEndDate   *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
