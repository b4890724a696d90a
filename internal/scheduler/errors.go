package scheduler

import "errors"

// Validation and capacity errors. Reaching the day safety bound is not an
// error: Allocate reports it through Result.BoundExceeded and returns the
// partial allocation.
var (
	ErrInvalidInput         = errors.New("invalid scheduling input")
	ErrInsufficientCapacity = errors.New("insufficient capacity")
)
