package model

import "time"

// Mode selects which of a user's two parallel calendars a project draws from.
type Mode string

const (
	ModeWork  Mode = "work"
	ModeHobby Mode = "hobby"
)

// Valid reports whether the mode is one of the known values.
func (m Mode) Valid() bool {
	return m == ModeWork || m == ModeHobby
}

// Project groups tasks and fixes their planning mode.
type Project struct {
	ID        uint `gorm:"primaryKey"`
	Name      string
	Mode      Mode
	CreatedAt time.Time
	UpdatedAt time.Time
	Tasks     []Task `gorm:"foreignKey:ProjectID"`
}
