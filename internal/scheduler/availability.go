package scheduler

import (
	"time"

	"planboard/internal/model"
)

// DayUsage summarizes a date's existing direct allocations for one user and
// mode. Child allocations must never be folded in here: the parent rows
// already reserve the time, and counting both would double-book the day.
type DayUsage struct {
	AllocatedMinutes int
	LatestEndMinutes int
}

// DayAvailability reports one date's capacity, load and remaining room.
// The remaining window is the free tail of the configured window after the
// latest existing allocation; this read-only view never proposes mid-day
// insertions.
type DayAvailability struct {
	Date           time.Time
	CapacityHours  float64
	AllocatedHours float64
	AvailableHours float64

	WindowStartMinutes int
	WindowEndMinutes   int
}

// Availability computes per-day figures for every date in [from, to].
// Allocated hours are the direct allocations (usage) plus the date's
// recurring block hours. Available hours are capacity minus allocated,
// further capped by the minutes left in the window after the latest
// allocation's end, with lunch and block minutes in that tail excluded.
func Availability(cal WorkCalendar, blocks BlockIndex, usage map[string]DayUsage, from, to time.Time, mode model.Mode) []DayAvailability {
	var out []DayAvailability

	for date := Midnight(from); !date.After(Midnight(to)); date = date.AddDate(0, 0, 1) {
		plan := cal.Day(date.Weekday(), mode)
		day := DayAvailability{Date: date, CapacityHours: Hours(plan.CapacityMinutes)}

		blockMinutes := 0
		for _, b := range blocks.On(date) {
			blockMinutes += b.EndMinutes - b.StartMinutes
		}
		u := usage[DateKey(date)]
		allocated := u.AllocatedMinutes + blockMinutes
		day.AllocatedHours = Hours(allocated)

		if plan.CapacityMinutes > 0 {
			winStart := plan.StartMinutes
			winEnd := winStart + plan.CapacityMinutes
			obstacles := dayObstacles(cal, blocks, date, mode, winStart, &winEnd)

			tail := winStart
			if u.LatestEndMinutes > tail {
				tail = u.LatestEndMinutes
			}
			tail = skipObstacles(obstacles, tail)

			tailMinutes := winEnd - tail
			for _, b := range obstacles {
				tailMinutes -= Overlap(tail, winEnd, b.StartMinutes, b.EndMinutes)
			}

			available := plan.CapacityMinutes - allocated
			if tailMinutes < available {
				available = tailMinutes
			}
			if available < 0 {
				available = 0
			}
			day.AvailableHours = Hours(available)
			day.WindowStartMinutes = tail
			day.WindowEndMinutes = winEnd
		}

		out = append(out, day)
	}
	return out
}

// Overlap returns the overlapping minutes of two intervals.
func Overlap(s1, e1, s2, e2 int) int {
	start := s1
	if s2 > start {
		start = s2
	}
	end := e1
	if e2 < end {
		end = e2
	}
	if end <= start {
		return 0
	}
	return end - start
}
