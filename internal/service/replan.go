package service

import (
	"context"
	"fmt"
	"time"

	"planboard/internal/scheduler"
)

// ReplanDependents re-plans every task that depends on the given task and
// whose current plan starts on or before the task's new end date. Each
// conflicting dependent keeps its committed workload: the sum of its
// previous allocation hours is laid out again from the day after newEnd.
// The cascade recurses through the dependency chain; dependents whose plan
// starts strictly after newEnd are left untouched.
func (s *PlannerService) ReplanDependents(ctx context.Context, callerID, taskID uint, newEnd time.Time) error {
	if taskID == 0 || newEnd.IsZero() {
		return fmt.Errorf("%w: task id and end date are required", scheduler.ErrInvalidInput)
	}
	newEnd = scheduler.Midnight(newEnd)

	dependents, err := s.tasks.ListDependents(ctx, taskID)
	if err != nil {
		return fmt.Errorf("list dependents: %w", err)
	}

	for i := range dependents {
		dep := dependents[i]

		earliest, err := s.allocs.EarliestByTask(ctx, dep.ID)
		if err != nil {
			return err
		}
		if earliest == nil || earliest.Date.After(newEnd) {
			continue
		}

		total, err := s.allocs.SumHoursByTask(ctx, dep.ID)
		if err != nil {
			return err
		}
		if total <= 0 {
			continue
		}
		mode, err := s.taskMode(ctx, &dep)
		if err != nil {
			return err
		}

		unlock := s.lockUser(dep.AssignedTo)
		res, err := s.replanTask(ctx, &dep, mode, total, newEnd.AddDate(0, 0, 1))
		unlock()
		if err != nil {
			return fmt.Errorf("replan task %d: %w", dep.ID, err)
		}
		if res.BoundExceeded {
			s.log.Warn().Uint("task", dep.ID).Msg("scheduling bound reached during replan")
		}
		s.notifyAssignment(callerID, &dep)

		refreshed, err := s.tasks.FindByID(ctx, dep.ID)
		if err != nil {
			return err
		}
		if refreshed.PlannedEndDate != nil {
			if err := s.ReplanDependents(ctx, callerID, dep.ID, *refreshed.PlannedEndDate); err != nil {
				return err
			}
		}
	}
	return nil
}
