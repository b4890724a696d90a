package service

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"planboard/internal/model"
	"planboard/internal/repository"
	"planboard/internal/scheduler"
)

// queueEntry is one already-planned task competing for calendar room on or
// after the push-forward date. Ordering by earliest (date, start) preserves
// the user's original queue order.
type queueEntry struct {
	taskID       uint
	minutes      int
	earliestDate time.Time
	earliestMin  int
}

// PushForward inserts a new task ahead of the user's already-scheduled
// queue. The new task is laid out first from the given date; every queued
// task whose plan would now collide is re-laid after it, in original queue
// order, sharing one slot state so everything packs back-to-back. Queued
// tasks starting after the new task's end keep their plan.
func (s *PlannerService) PushForward(ctx context.Context, callerID, userID uint, from time.Time, newTaskID uint, hours float64) error {
	if userID == 0 || newTaskID == 0 {
		return fmt.Errorf("%w: user id and task id are required", scheduler.ErrInvalidInput)
	}
	if hours <= 0 {
		return fmt.Errorf("%w: hours must be positive", scheduler.ErrInvalidInput)
	}
	if from.IsZero() {
		return fmt.Errorf("%w: start date is required", scheduler.ErrInvalidInput)
	}

	newTask, err := s.tasks.FindByID(ctx, newTaskID)
	if err != nil {
		return fmt.Errorf("find task: %w", err)
	}
	if newTask.AssignedTo != userID {
		return fmt.Errorf("%w: task %d is not assigned to user %d", scheduler.ErrInvalidInput, newTaskID, userID)
	}
	mode, err := s.taskMode(ctx, newTask)
	if err != nil {
		return err
	}

	unlock := s.lockUser(userID)
	defer unlock()

	from = scheduler.Midnight(from)
	queue, err := s.collectQueue(ctx, userID, mode, from, newTaskID)
	if err != nil {
		return err
	}

	cal, err := s.calendars.Load(ctx, userID)
	if err != nil {
		return err
	}
	blocks, err := s.blockIndex(ctx, userID, from)
	if err != nil {
		return err
	}

	slots := scheduler.NewSlotState()
	boundExceeded := false
	touched := []*model.Task{newTask}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		allocs := repository.NewAllocationRepository(tx)
		tasks := repository.NewTaskRepository(tx)

		// The new task claims the front of the queue.
		subtree, err := tasks.Subtree(ctx, newTaskID)
		if err != nil {
			return err
		}
		if err := allocs.DeleteByTask(ctx, newTaskID); err != nil {
			return err
		}
		if err := allocs.DeleteChildrenByTasks(ctx, taskIDs(subtree)); err != nil {
			return err
		}
		res, err := scheduler.Allocate(cal, blocks, slots, scheduler.Request{
			Minutes: scheduler.Minutes(hours),
			From:    from,
			Mode:    mode,
		})
		if err != nil {
			return err
		}
		boundExceeded = boundExceeded || res.BoundExceeded
		if err := s.persistPlan(ctx, allocs, tasks, newTask, mode, subtree, res.Lines); err != nil {
			return err
		}
		newEnd := res.LastDate

		for _, q := range queue {
			if q.earliestDate.After(newEnd) {
				continue
			}
			task, err := tasks.FindByID(ctx, q.taskID)
			if err != nil {
				return err
			}
			subtree, err := tasks.Subtree(ctx, q.taskID)
			if err != nil {
				return err
			}
			if err := allocs.DeleteByTaskFromDate(ctx, q.taskID, from); err != nil {
				return err
			}
			if err := allocs.DeleteChildrenByTasks(ctx, taskIDs(subtree)); err != nil {
				return err
			}
			res, err := scheduler.Allocate(cal, blocks, slots, scheduler.Request{
				Minutes: q.minutes,
				From:    from,
				Mode:    mode,
			})
			if err != nil {
				return err
			}
			boundExceeded = boundExceeded || res.BoundExceeded
			if err := s.persistPlan(ctx, allocs, tasks, task, mode, subtree, res.Lines); err != nil {
				return err
			}
			touched = append(touched, task)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if boundExceeded {
		s.log.Warn().Uint("user", userID).Msg("scheduling bound reached during push-forward")
	}
	for _, t := range touched {
		s.notifyAssignment(callerID, t)
	}
	return nil
}

// collectQueue aggregates the user's allocation rows on or after the date
// into per-task entries ordered by earliest (date, start). Rows arrive
// date- and start-ordered, so first occurrence per task fixes its place.
func (s *PlannerService) collectQueue(ctx context.Context, userID uint, mode model.Mode, from time.Time, skipTaskID uint) ([]queueEntry, error) {
	rows, err := s.allocs.ListForUserFromDate(ctx, userID, mode, from)
	if err != nil {
		return nil, fmt.Errorf("load queue: %w", err)
	}

	index := make(map[uint]int)
	var queue []queueEntry
	for _, row := range rows {
		if row.TaskID == skipTaskID {
			continue
		}
		i, ok := index[row.TaskID]
		if !ok {
			index[row.TaskID] = len(queue)
			queue = append(queue, queueEntry{
				taskID:       row.TaskID,
				earliestDate: row.Date,
				earliestMin:  row.StartMinutes,
			})
			i = len(queue) - 1
		}
		queue[i].minutes += row.EndMinutes - row.StartMinutes
	}
	return queue, nil
}
