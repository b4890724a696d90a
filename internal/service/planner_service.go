package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"planboard/internal/model"
	"planboard/internal/notify"
	"planboard/internal/repository"
	"planboard/internal/scheduler"
)

// horizonDays bounds how far ahead recurring blocks and existing rows are
// loaded for one scheduling pass. Matches the allocator's own day bound.
const horizonDays = 366

// PlannerService runs the scheduling operations: planning a task onto a
// user's calendar, cascading replans through dependency chains, push-forward
// reinsertion and manual entries. Operations for the same user are
// serialized with a per-user mutex because the slot state of a pass is held
// in memory only; two concurrent passes for one user could otherwise
// double-book a day.
type PlannerService struct {
	db        *gorm.DB
	users     *repository.UserRepository
	projects  *repository.ProjectRepository
	tasks     *repository.TaskRepository
	allocs    *repository.AllocationRepository
	calendars *repository.CalendarRepository
	recurring *repository.RecurringRepository
	notifier  notify.Notifier
	log       zerolog.Logger

	mu        sync.Mutex
	userLocks map[uint]*sync.Mutex
}

func NewPlannerService(db *gorm.DB, notifier notify.Notifier, log zerolog.Logger) *PlannerService {
	return &PlannerService{
		db:        db,
		users:     repository.NewUserRepository(db),
		projects:  repository.NewProjectRepository(db),
		tasks:     repository.NewTaskRepository(db),
		allocs:    repository.NewAllocationRepository(db),
		calendars: repository.NewCalendarRepository(db),
		recurring: repository.NewRecurringRepository(db),
		notifier:  notifier,
		log:       log,
		userLocks: make(map[uint]*sync.Mutex),
	}
}

// lockUser serializes scheduling operations per user. Returns the unlock.
func (s *PlannerService) lockUser(userID uint) func() {
	s.mu.Lock()
	l, ok := s.userLocks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.userLocks[userID] = l
	}
	s.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// PlanTask places hours of work for the task onto its assignee's calendar,
// starting no earlier than from. Any previous plan of the task is fully
// deleted and regenerated. Returns the task with refreshed planned dates.
func (s *PlannerService) PlanTask(ctx context.Context, callerID, taskID uint, hours float64, from time.Time) (*model.Task, error) {
	if taskID == 0 {
		return nil, fmt.Errorf("%w: task id is required", scheduler.ErrInvalidInput)
	}
	if hours <= 0 {
		return nil, fmt.Errorf("%w: hours must be positive", scheduler.ErrInvalidInput)
	}
	if from.IsZero() {
		return nil, fmt.Errorf("%w: start date is required", scheduler.ErrInvalidInput)
	}

	task, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("find task: %w", err)
	}
	mode, err := s.taskMode(ctx, task)
	if err != nil {
		return nil, err
	}

	unlock := s.lockUser(task.AssignedTo)
	defer unlock()

	res, err := s.replanTask(ctx, task, mode, hours, from)
	if err != nil {
		return nil, err
	}
	if res.BoundExceeded {
		s.log.Warn().Uint("task", taskID).Int("left_min", scheduler.Minutes(hours)-res.Allocated()).
			Msg("scheduling bound reached, allocation truncated")
	}

	s.notifyAssignment(callerID, task)
	return s.tasks.FindByID(ctx, taskID)
}

// replanTask deletes the task's existing rows and lays the hours out again
// from the given date, all within one transaction. The caller must hold the
// assignee's lock.
func (s *PlannerService) replanTask(ctx context.Context, task *model.Task, mode model.Mode, hours float64, from time.Time) (scheduler.Result, error) {
	from = scheduler.Midnight(from)

	cal, err := s.calendars.Load(ctx, task.AssignedTo)
	if err != nil {
		return scheduler.Result{}, err
	}
	blocks, err := s.blockIndex(ctx, task.AssignedTo, from)
	if err != nil {
		return scheduler.Result{}, err
	}

	var res scheduler.Result
	err = s.db.Transaction(func(tx *gorm.DB) error {
		allocs := repository.NewAllocationRepository(tx)
		tasks := repository.NewTaskRepository(tx)

		subtree, err := tasks.Subtree(ctx, task.ID)
		if err != nil {
			return err
		}
		if err := allocs.DeleteByTask(ctx, task.ID); err != nil {
			return err
		}
		if err := allocs.DeleteChildrenByTasks(ctx, taskIDs(subtree)); err != nil {
			return err
		}

		slots := scheduler.NewSlotState()
		if err := s.seedSlots(ctx, allocs, slots, task.AssignedTo, mode, from); err != nil {
			return err
		}

		res, err = scheduler.Allocate(cal, blocks, slots, scheduler.Request{
			Minutes: scheduler.Minutes(hours),
			From:    from,
			Mode:    mode,
		})
		if err != nil {
			return err
		}
		return s.persistPlan(ctx, allocs, tasks, task, mode, subtree, res.Lines)
	})
	return res, err
}

// persistPlan writes the allocation rows, regenerates the task's child
// allocations over its full remaining row set and refreshes planned dates.
// Runs inside the caller's transaction.
func (s *PlannerService) persistPlan(ctx context.Context, allocs *repository.AllocationRepository, tasks *repository.TaskRepository, task *model.Task, mode model.Mode, subtree []model.Task, lines []scheduler.Line) error {
	rows := make([]model.Allocation, 0, len(lines))
	for _, l := range lines {
		rows = append(rows, model.Allocation{
			TaskID:       task.ID,
			UserID:       task.AssignedTo,
			Date:         l.Date,
			Hours:        scheduler.Hours(l.Minutes()),
			StartMinutes: l.StartMinutes,
			EndMinutes:   l.EndMinutes,
			Mode:         mode,
		})
	}
	if err := allocs.Create(ctx, rows); err != nil {
		return err
	}

	children := childSpecs(subtree, task.ID)
	if len(children) > 0 {
		all, err := allocs.ListByTask(ctx, task.ID)
		if err != nil {
			return err
		}
		childLines := scheduler.Subdivide(task.ID, toLines(all), children, 1)
		childRows := make([]model.ChildAllocation, 0, len(childLines))
		for _, cl := range childLines {
			childRows = append(childRows, model.ChildAllocation{
				ParentTaskID: cl.ParentTaskID,
				ChildTaskID:  cl.TaskID,
				Date:         cl.Date,
				Hours:        scheduler.Hours(cl.EndMinutes - cl.StartMinutes),
				Level:        cl.Level,
				StartMinutes: cl.StartMinutes,
				EndMinutes:   cl.EndMinutes,
			})
		}
		if err := allocs.CreateChildren(ctx, childRows); err != nil {
			return err
		}
	}

	return s.refreshPlannedDates(ctx, allocs, tasks, task.ID)
}

// refreshPlannedDates recomputes a task's planned dates from the MIN/MAX of
// its allocation rows.
func (s *PlannerService) refreshPlannedDates(ctx context.Context, allocs *repository.AllocationRepository, tasks *repository.TaskRepository, taskID uint) error {
	start, end, err := allocs.DateBounds(ctx, taskID)
	if err != nil {
		return err
	}
	return tasks.UpdatePlannedDates(ctx, taskID, start, end)
}

// AllocateManual inserts one manual single-day row. The row must fit the
// day's remaining capacity and may not touch the lunch window or a
// recurring block; it is rejected rather than clipped.
func (s *PlannerService) AllocateManual(ctx context.Context, callerID, taskID uint, date time.Time, startMinutes, endMinutes int) error {
	if taskID == 0 || date.IsZero() {
		return fmt.Errorf("%w: task id and date are required", scheduler.ErrInvalidInput)
	}
	if startMinutes < 0 || endMinutes > 24*60 || endMinutes <= startMinutes {
		return fmt.Errorf("%w: end time must be after start time", scheduler.ErrInvalidInput)
	}

	task, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		return fmt.Errorf("find task: %w", err)
	}
	mode, err := s.taskMode(ctx, task)
	if err != nil {
		return err
	}

	unlock := s.lockUser(task.AssignedTo)
	defer unlock()

	date = scheduler.Midnight(date)
	cal, err := s.calendars.Load(ctx, task.AssignedTo)
	if err != nil {
		return err
	}
	if mode == model.ModeWork && cal.LunchDurationMinutes > 0 {
		lunchEnd := cal.LunchStartMinutes + cal.LunchDurationMinutes
		if scheduler.Overlap(startMinutes, endMinutes, cal.LunchStartMinutes, lunchEnd) > 0 {
			return fmt.Errorf("%w: interval crosses the lunch break", scheduler.ErrInvalidInput)
		}
	}

	blocks, err := s.recurring.ListBlocks(ctx, task.AssignedTo, date, date)
	if err != nil {
		return err
	}
	blockMinutes := 0
	for _, b := range blocks {
		if scheduler.Overlap(startMinutes, endMinutes, b.StartMinutes, b.EndMinutes) > 0 {
			return fmt.Errorf("%w: interval overlaps a recurring block", scheduler.ErrInvalidInput)
		}
		blockMinutes += b.EndMinutes - b.StartMinutes
	}

	existing, err := s.allocs.ListForUserOnDate(ctx, task.AssignedTo, mode, date)
	if err != nil {
		return err
	}
	allocated := blockMinutes
	for _, row := range existing {
		allocated += row.EndMinutes - row.StartMinutes
	}
	capacity := cal.Day(date.Weekday(), mode).CapacityMinutes
	if endMinutes-startMinutes > capacity-allocated {
		return fmt.Errorf("%w: %s left on %s", scheduler.ErrInsufficientCapacity,
			scheduler.Clock(max(0, capacity-allocated)), scheduler.DateKey(date))
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		allocs := repository.NewAllocationRepository(tx)
		tasks := repository.NewTaskRepository(tx)
		row := model.Allocation{
			TaskID:       task.ID,
			UserID:       task.AssignedTo,
			Date:         date,
			Hours:        scheduler.Hours(endMinutes - startMinutes),
			StartMinutes: startMinutes,
			EndMinutes:   endMinutes,
			IsManual:     true,
			Mode:         mode,
		}
		if err := allocs.Create(ctx, []model.Allocation{row}); err != nil {
			return err
		}
		return s.refreshPlannedDates(ctx, allocs, tasks, task.ID)
	})
	if err != nil {
		return err
	}

	s.notifyAssignment(callerID, task)
	return nil
}

// Availability reports per-day capacity, load and remaining room for every
// date in [from, to]. Read-only; excludeTaskID leaves one task's rows out of
// the figures, used when re-planning that task.
func (s *PlannerService) Availability(ctx context.Context, userID uint, mode model.Mode, from, to time.Time, excludeTaskID *uint) ([]scheduler.DayAvailability, error) {
	if userID == 0 || !mode.Valid() {
		return nil, fmt.Errorf("%w: user id and mode are required", scheduler.ErrInvalidInput)
	}
	if from.IsZero() || to.Before(from) {
		return nil, fmt.Errorf("%w: invalid date range", scheduler.ErrInvalidInput)
	}
	from, to = scheduler.Midnight(from), scheduler.Midnight(to)

	cal, err := s.calendars.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	blocks, err := s.blockIndexRange(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}

	rows, err := s.allocs.ListForUserRange(ctx, userID, mode, from, to)
	if err != nil {
		return nil, err
	}
	usage := make(map[string]scheduler.DayUsage)
	for _, row := range rows {
		if excludeTaskID != nil && row.TaskID == *excludeTaskID {
			continue
		}
		key := scheduler.DateKey(row.Date)
		u := usage[key]
		u.AllocatedMinutes += row.EndMinutes - row.StartMinutes
		if row.EndMinutes > u.LatestEndMinutes {
			u.LatestEndMinutes = row.EndMinutes
		}
		usage[key] = u
	}

	return scheduler.Availability(cal, blocks, usage, from, to, mode), nil
}

// taskMode resolves a task's mode from its owning project.
func (s *PlannerService) taskMode(ctx context.Context, task *model.Task) (model.Mode, error) {
	project, err := s.projects.FindByID(ctx, task.ProjectID)
	if err != nil {
		return "", fmt.Errorf("find project: %w", err)
	}
	if !project.Mode.Valid() {
		return "", fmt.Errorf("%w: project %d has no mode", scheduler.ErrInvalidInput, project.ID)
	}
	return project.Mode, nil
}

// blockIndex loads a user's recurring blocks from the date over the
// planning horizon.
func (s *PlannerService) blockIndex(ctx context.Context, userID uint, from time.Time) (scheduler.BlockIndex, error) {
	return s.blockIndexRange(ctx, userID, from, from.AddDate(0, 0, horizonDays))
}

func (s *PlannerService) blockIndexRange(ctx context.Context, userID uint, from, to time.Time) (scheduler.BlockIndex, error) {
	blocks, err := s.recurring.ListBlocks(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("load blocks: %w", err)
	}
	idx := scheduler.BlockIndex{}
	for _, b := range blocks {
		idx.Add(b.Date, scheduler.Block{StartMinutes: b.StartMinutes, EndMinutes: b.EndMinutes})
	}
	return idx, nil
}

// seedSlots pre-loads the pass's slot pointers from allocation rows already
// on the calendar, so new work lands after them.
func (s *PlannerService) seedSlots(ctx context.Context, allocs *repository.AllocationRepository, slots *scheduler.SlotState, userID uint, mode model.Mode, from time.Time) error {
	rows, err := allocs.ListForUserRange(ctx, userID, mode, from, from.AddDate(0, 0, horizonDays))
	if err != nil {
		return fmt.Errorf("load existing rows: %w", err)
	}
	for _, row := range rows {
		slots.Seed(row.Date, row.Mode, row.EndMinutes)
	}
	return nil
}

// notifyAssignment tells the assignee about a plan made on their calendar by
// someone else. Fire and forget: delivery failures are logged and dropped.
func (s *PlannerService) notifyAssignment(callerID uint, task *model.Task) {
	if task.AssignedTo == callerID {
		return
	}
	taskID := task.ID
	userID := task.AssignedTo
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		user, err := s.users.FindByID(ctx, userID)
		if err != nil || user.TelegramID == 0 {
			return
		}
		t, err := s.tasks.FindByID(ctx, taskID)
		if err != nil {
			return
		}
		text := fmt.Sprintf("📌 Вам назначена задача <b>%s</b>", t.Title)
		if t.PlannedStartDate != nil && t.PlannedEndDate != nil {
			text += fmt.Sprintf("\n🗓 %s — %s",
				t.PlannedStartDate.Format("02.01.2006"), t.PlannedEndDate.Format("02.01.2006"))
		}
		if err := s.notifier.Send(ctx, user.TelegramID, text); err != nil {
			s.log.Warn().Err(err).Uint("user", userID).Msg("assignment notification failed")
		}
	}()
}

func taskIDs(tasks []model.Task) []uint {
	ids := make([]uint, 0, len(tasks))
	for _, t := range tasks {
		ids = append(ids, t.ID)
	}
	return ids
}

// childSpecs builds the subdivision tree for a task from its loaded subtree.
func childSpecs(subtree []model.Task, parentID uint) []scheduler.ChildSpec {
	byParent := make(map[uint][]model.Task)
	for _, t := range subtree {
		if t.ParentTaskID != nil {
			byParent[*t.ParentTaskID] = append(byParent[*t.ParentTaskID], t)
		}
	}
	var build func(id uint) []scheduler.ChildSpec
	build = func(id uint) []scheduler.ChildSpec {
		var specs []scheduler.ChildSpec
		for _, c := range byParent[id] {
			specs = append(specs, scheduler.ChildSpec{
				TaskID:   c.ID,
				Minutes:  scheduler.Minutes(c.EstimatedHours),
				Children: build(c.ID),
			})
		}
		return specs
	}
	return build(parentID)
}

func toLines(rows []model.Allocation) []scheduler.Line {
	lines := make([]scheduler.Line, 0, len(rows))
	for _, r := range rows {
		lines = append(lines, scheduler.Line{Date: r.Date, StartMinutes: r.StartMinutes, EndMinutes: r.EndMinutes})
	}
	return lines
}
