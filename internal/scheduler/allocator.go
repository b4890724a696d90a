// Package scheduler implements the resource-allocation core: a greedy,
// day-by-day bin-packing allocator that places required work minutes onto a
// user's calendar, an availability calculator, and the subdivision of a
// parent task's allocations among its subtasks. The package is pure: it
// operates on in-memory inputs and leaves persistence to the caller.
package scheduler

import (
	"fmt"
	"sort"
	"time"

	"planboard/internal/model"
)

// maxScheduleDays bounds how many calendar days one Allocate call may
// iterate. A calendar with zero capacity on every weekday would otherwise
// loop forever; past the bound the call stops and returns whatever was
// placed, flagging Result.BoundExceeded.
const maxScheduleDays = 365

// Allocate places req.Minutes of work onto the calendar, starting no earlier
// than req.From, routing around the lunch window and recurring blocks. The
// slot state is read and advanced so that sequential calls within one pass
// pack back-to-back.
//
// Days are tried in order; a day with zero capacity simply advances the
// date. The work window for a day is [start, start+capacity), extended by
// the lunch duration when the window spans the lunch start in work mode.
// Emitted lines are clipped at every obstacle (lunch or block) start, so a
// line never crosses either; clipped remainders are re-attempted on the
// same day after the obstacle, then on following days.
func Allocate(cal WorkCalendar, blocks BlockIndex, slots *SlotState, req Request) (Result, error) {
	if req.Minutes <= 0 {
		return Result{}, fmt.Errorf("%w: minutes must be positive", ErrInvalidInput)
	}
	if !req.Mode.Valid() {
		return Result{}, fmt.Errorf("%w: unknown mode %q", ErrInvalidInput, req.Mode)
	}
	if req.From.IsZero() {
		return Result{}, fmt.Errorf("%w: start date is required", ErrInvalidInput)
	}
	if slots == nil {
		slots = NewSlotState()
	}

	var res Result
	remaining := req.Minutes
	date := Midnight(req.From)

	for days := 0; remaining > 0; {
		if days >= maxScheduleDays {
			res.BoundExceeded = true
			break
		}

		plan := cal.Day(date.Weekday(), req.Mode)
		if plan.CapacityMinutes <= 0 {
			date = date.AddDate(0, 0, 1)
			days++
			continue
		}

		winStart := plan.StartMinutes
		winEnd := winStart + plan.CapacityMinutes
		obstacles := dayObstacles(cal, blocks, date, req.Mode, winStart, &winEnd)

		ptr, ok := slots.Get(date, req.Mode)
		if !ok || ptr < winStart {
			ptr = winStart
		}

		for remaining > 0 && ptr < winEnd {
			ptr = skipObstacles(obstacles, ptr)
			if ptr >= winEnd {
				break
			}

			end := ptr + remaining
			if end > winEnd {
				end = winEnd
			}
			for _, b := range obstacles {
				if b.StartMinutes > ptr && b.StartMinutes < end {
					end = b.StartMinutes
					break
				}
			}

			res.Lines = append(res.Lines, Line{Date: date, StartMinutes: ptr, EndMinutes: end})
			res.LastDate = date
			remaining -= end - ptr
			ptr = end
		}

		slots.Set(date, req.Mode, ptr)
		if remaining > 0 {
			date = date.AddDate(0, 0, 1)
			days++
		}
	}

	return res, nil
}

// dayObstacles merges the date's recurring blocks with the lunch window.
// The lunch break participates only in work mode and only when the day's
// raw window spans its start; in that case the window end is pushed out by
// the lunch duration so capacity is preserved.
func dayObstacles(cal WorkCalendar, blocks BlockIndex, date time.Time, mode model.Mode, winStart int, winEnd *int) []Block {
	day := blocks.On(date)
	obstacles := make([]Block, len(day))
	copy(obstacles, day)

	if mode == model.ModeWork && cal.LunchDurationMinutes > 0 &&
		winStart <= cal.LunchStartMinutes && cal.LunchStartMinutes < *winEnd {
		*winEnd += cal.LunchDurationMinutes
		obstacles = append(obstacles, Block{
			StartMinutes: cal.LunchStartMinutes,
			EndMinutes:   cal.LunchStartMinutes + cal.LunchDurationMinutes,
		})
		sort.Slice(obstacles, func(i, j int) bool { return obstacles[i].StartMinutes < obstacles[j].StartMinutes })
	}
	return obstacles
}

// skipObstacles advances the pointer past every obstacle that contains it.
// Obstacles are sorted by start, so one pass suffices.
func skipObstacles(obstacles []Block, ptr int) int {
	for _, b := range obstacles {
		if ptr >= b.StartMinutes && ptr < b.EndMinutes {
			ptr = b.EndMinutes
		}
	}
	return ptr
}
