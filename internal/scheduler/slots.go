package scheduler

import (
	"time"

	"planboard/internal/model"
)

type slotKey struct {
	date string
	mode model.Mode
}

// SlotState tracks the next free minute-of-day per (date, mode) during one
// scheduling pass. Sharing one SlotState across sequential Allocate calls is
// what packs tasks back-to-back instead of overlapping them. The state is
// transient: it is never persisted, so concurrent passes for the same user
// must be serialized by the caller.
type SlotState struct {
	next map[slotKey]int
}

func NewSlotState() *SlotState {
	return &SlotState{next: make(map[slotKey]int)}
}

// Get returns the pointer for the date and mode, and whether one was set.
func (s *SlotState) Get(date time.Time, mode model.Mode) (int, bool) {
	m, ok := s.next[slotKey{date: DateKey(date), mode: mode}]
	return m, ok
}

// Set moves the pointer for the date and mode.
func (s *SlotState) Set(date time.Time, mode model.Mode, minute int) {
	s.next[slotKey{date: DateKey(date), mode: mode}] = minute
}

// Seed raises the pointer to at least minute, used to pre-load the state
// from existing allocation end times so a new pass lands after them.
func (s *SlotState) Seed(date time.Time, mode model.Mode, minute int) {
	key := slotKey{date: DateKey(date), mode: mode}
	if cur, ok := s.next[key]; !ok || minute > cur {
		s.next[key] = minute
	}
}
