package scheduler

import (
	"sort"
	"time"

	"planboard/internal/model"
)

// DayPlan is one weekday's configuration in one mode.
type DayPlan struct {
	CapacityMinutes int
	StartMinutes    int
}

// WorkCalendar is a user's full calendar configuration: per-weekday capacity
// and start time for both modes, plus the daily lunch window. The lunch
// break applies to the work calendar only; a zero duration disables it.
type WorkCalendar struct {
	Work  [7]DayPlan
	Hobby [7]DayPlan

	LunchStartMinutes    int
	LunchDurationMinutes int
}

// Day returns the plan for the given weekday and mode.
func (c WorkCalendar) Day(w time.Weekday, mode model.Mode) DayPlan {
	if mode == model.ModeHobby {
		return c.Hobby[int(w)]
	}
	return c.Work[int(w)]
}

// Block is an immovable interval on one date.
type Block struct {
	StartMinutes int
	EndMinutes   int
}

// BlockIndex maps DateKey to that date's blocks. Built once per scheduling
// pass from persisted recurring blocks; read-only to the allocator.
type BlockIndex map[string][]Block

// Add inserts a block keeping the date's list sorted by start.
func (idx BlockIndex) Add(date time.Time, b Block) {
	key := DateKey(date)
	blocks := append(idx[key], b)
	sort.Slice(blocks, func(i, j int) bool { return blocks[i].StartMinutes < blocks[j].StartMinutes })
	idx[key] = blocks
}

// On returns the blocks for a date, sorted by start time.
func (idx BlockIndex) On(date time.Time) []Block {
	return idx[DateKey(date)]
}

// Line is one contiguous allocation emitted by the allocator.
type Line struct {
	Date         time.Time
	StartMinutes int
	EndMinutes   int
}

// Minutes returns the line's length.
func (l Line) Minutes() int {
	return l.EndMinutes - l.StartMinutes
}

// Request asks the allocator to place an amount of work starting no earlier
// than From.
type Request struct {
	Minutes int
	From    time.Time
	Mode    model.Mode
}

// Result is the outcome of one Allocate call. BoundExceeded is set when the
// day safety bound was reached before the requested minutes were fully
// placed; Lines then hold the partial allocation.
type Result struct {
	Lines         []Line
	LastDate      time.Time
	BoundExceeded bool
}

// Allocated returns the total minutes placed.
func (r Result) Allocated() int {
	total := 0
	for _, l := range r.Lines {
		total += l.Minutes()
	}
	return total
}
