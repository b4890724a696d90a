package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"planboard/internal/model"
)

func newTestDB(t *testing.T) *DBSet {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	return &DBSet{
		Users:       NewUserRepository(db),
		Projects:    NewProjectRepository(db),
		Tasks:       NewTaskRepository(db),
		Allocations: NewAllocationRepository(db),
		Calendars:   NewCalendarRepository(db),
		Recurring:   NewRecurringRepository(db),
	}
}

// DBSet bundles all repositories over one test database.
type DBSet struct {
	Users       *UserRepository
	Projects    *ProjectRepository
	Tasks       *TaskRepository
	Allocations *AllocationRepository
	Calendars   *CalendarRepository
	Recurring   *RecurringRepository
}

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatalf("parse date %q: %v", s, err)
	}
	return d
}

func mustCreateTask(t *testing.T, set *DBSet, task *model.Task) *model.Task {
	t.Helper()
	if err := set.Tasks.Create(context.Background(), task); err != nil {
		t.Fatalf("create task: %v", err)
	}
	return task
}

func TestTaskRepository_Subtree(t *testing.T) {
	set := newTestDB(t)
	ctx := context.Background()

	root := mustCreateTask(t, set, &model.Task{Title: "root"})
	a := mustCreateTask(t, set, &model.Task{Title: "a", ParentTaskID: &root.ID})
	b := mustCreateTask(t, set, &model.Task{Title: "b", ParentTaskID: &root.ID})
	c := mustCreateTask(t, set, &model.Task{Title: "c", ParentTaskID: &a.ID})
	mustCreateTask(t, set, &model.Task{Title: "unrelated"})

	subtree, err := set.Tasks.Subtree(ctx, root.ID)
	if err != nil {
		t.Fatalf("subtree: %v", err)
	}

	want := map[uint]bool{root.ID: true, a.ID: true, b.ID: true, c.ID: true}
	if len(subtree) != len(want) {
		t.Fatalf("subtree size = %d, want %d", len(subtree), len(want))
	}
	for _, task := range subtree {
		if !want[task.ID] {
			t.Errorf("unexpected task %d (%s) in subtree", task.ID, task.Title)
		}
	}
}

func TestTaskRepository_ListDependents(t *testing.T) {
	set := newTestDB(t)
	ctx := context.Background()

	base := mustCreateTask(t, set, &model.Task{Title: "base"})
	dep1 := mustCreateTask(t, set, &model.Task{Title: "dep1", DependsOnTaskID: &base.ID})
	dep2 := mustCreateTask(t, set, &model.Task{Title: "dep2", DependsOnTaskID: &base.ID})
	mustCreateTask(t, set, &model.Task{Title: "free"})

	deps, err := set.Tasks.ListDependents(ctx, base.ID)
	if err != nil {
		t.Fatalf("list dependents: %v", err)
	}
	if len(deps) != 2 {
		t.Fatalf("dependents = %d, want 2", len(deps))
	}
	got := map[uint]bool{deps[0].ID: true, deps[1].ID: true}
	if !got[dep1.ID] || !got[dep2.ID] {
		t.Errorf("dependents = %v, want {%d, %d}", got, dep1.ID, dep2.ID)
	}
}

func TestTaskRepository_UpdatePlannedDates(t *testing.T) {
	set := newTestDB(t)
	ctx := context.Background()

	task := mustCreateTask(t, set, &model.Task{Title: "t"})
	start := date(t, "2025-03-03")
	end := date(t, "2025-03-05")

	if err := set.Tasks.UpdatePlannedDates(ctx, task.ID, &start, &end); err != nil {
		t.Fatalf("update planned dates: %v", err)
	}
	got, err := set.Tasks.FindByID(ctx, task.ID)
	if err != nil {
		t.Fatalf("find task: %v", err)
	}
	if got.PlannedStartDate == nil || !got.PlannedStartDate.Equal(start) {
		t.Errorf("planned start = %v, want %v", got.PlannedStartDate, start)
	}
	if got.PlannedEndDate == nil || !got.PlannedEndDate.Equal(end) {
		t.Errorf("planned end = %v, want %v", got.PlannedEndDate, end)
	}

	if err := set.Tasks.UpdatePlannedDates(ctx, task.ID, nil, nil); err != nil {
		t.Fatalf("clear planned dates: %v", err)
	}
	got, err = set.Tasks.FindByID(ctx, task.ID)
	if err != nil {
		t.Fatalf("find task: %v", err)
	}
	if got.PlannedStartDate != nil || got.PlannedEndDate != nil {
		t.Errorf("planned dates = (%v, %v), want cleared", got.PlannedStartDate, got.PlannedEndDate)
	}
}

func TestAllocationRepository_SumsAndBounds(t *testing.T) {
	set := newTestDB(t)
	ctx := context.Background()

	mon := date(t, "2025-03-03")
	tue := date(t, "2025-03-04")
	rows := []model.Allocation{
		{TaskID: 1, UserID: 1, Date: tue, Hours: 2, StartMinutes: 540, EndMinutes: 660, Mode: model.ModeWork},
		{TaskID: 1, UserID: 1, Date: mon, Hours: 4, StartMinutes: 540, EndMinutes: 780, Mode: model.ModeWork},
		{TaskID: 2, UserID: 1, Date: mon, Hours: 1, StartMinutes: 780, EndMinutes: 840, Mode: model.ModeWork},
	}
	if err := set.Allocations.Create(ctx, rows); err != nil {
		t.Fatalf("create allocations: %v", err)
	}

	sum, err := set.Allocations.SumHoursByTask(ctx, 1)
	if err != nil {
		t.Fatalf("sum hours: %v", err)
	}
	if sum != 6 {
		t.Errorf("sum = %v, want 6", sum)
	}

	sum, err = set.Allocations.SumHoursByTaskFromDate(ctx, 1, tue)
	if err != nil {
		t.Fatalf("sum hours from date: %v", err)
	}
	if sum != 2 {
		t.Errorf("sum from tue = %v, want 2", sum)
	}

	sum, err = set.Allocations.SumHoursByTask(ctx, 99)
	if err != nil {
		t.Fatalf("sum hours missing task: %v", err)
	}
	if sum != 0 {
		t.Errorf("sum for missing task = %v, want 0", sum)
	}

	earliest, err := set.Allocations.EarliestByTask(ctx, 1)
	if err != nil {
		t.Fatalf("earliest: %v", err)
	}
	if earliest == nil || !earliest.Date.Equal(mon) || earliest.StartMinutes != 540 {
		t.Errorf("earliest = %+v, want monday 540", earliest)
	}

	earliest, err = set.Allocations.EarliestByTask(ctx, 99)
	if err != nil {
		t.Fatalf("earliest missing task: %v", err)
	}
	if earliest != nil {
		t.Errorf("earliest for missing task = %+v, want nil", earliest)
	}

	start, end, err := set.Allocations.DateBounds(ctx, 1)
	if err != nil {
		t.Fatalf("date bounds: %v", err)
	}
	if start == nil || end == nil {
		t.Fatalf("bounds = (%v, %v), want both set", start, end)
	}
	if !start.Equal(mon) || !end.Equal(tue) {
		t.Errorf("bounds = (%v, %v), want (%v, %v)", start, end, mon, tue)
	}

	start, end, err = set.Allocations.DateBounds(ctx, 99)
	if err != nil {
		t.Fatalf("date bounds missing task: %v", err)
	}
	if start != nil || end != nil {
		t.Errorf("bounds for missing task = (%v, %v), want nils", start, end)
	}
}

func TestAllocationRepository_Deletes(t *testing.T) {
	set := newTestDB(t)
	ctx := context.Background()

	mon := date(t, "2025-03-03")
	tue := date(t, "2025-03-04")
	wed := date(t, "2025-03-05")
	rows := []model.Allocation{
		{TaskID: 1, UserID: 1, Date: mon, Hours: 4, StartMinutes: 540, EndMinutes: 780, Mode: model.ModeWork},
		{TaskID: 1, UserID: 1, Date: tue, Hours: 4, StartMinutes: 540, EndMinutes: 780, Mode: model.ModeWork},
		{TaskID: 1, UserID: 1, Date: wed, Hours: 2, StartMinutes: 540, EndMinutes: 660, Mode: model.ModeWork},
	}
	if err := set.Allocations.Create(ctx, rows); err != nil {
		t.Fatalf("create allocations: %v", err)
	}

	if err := set.Allocations.DeleteByTaskFromDate(ctx, 1, tue); err != nil {
		t.Fatalf("delete from date: %v", err)
	}
	left, err := set.Allocations.ListByTask(ctx, 1)
	if err != nil {
		t.Fatalf("list by task: %v", err)
	}
	if len(left) != 1 || !left[0].Date.Equal(mon) {
		t.Fatalf("rows after partial delete = %+v, want only monday", left)
	}

	if err := set.Allocations.DeleteByTask(ctx, 1); err != nil {
		t.Fatalf("delete by task: %v", err)
	}
	left, err = set.Allocations.ListByTask(ctx, 1)
	if err != nil {
		t.Fatalf("list by task: %v", err)
	}
	if len(left) != 0 {
		t.Fatalf("rows after full delete = %d, want 0", len(left))
	}
}

func TestAllocationRepository_ChildRows(t *testing.T) {
	set := newTestDB(t)
	ctx := context.Background()

	mon := date(t, "2025-03-03")
	children := []model.ChildAllocation{
		{ParentTaskID: 1, ChildTaskID: 2, Date: mon, Hours: 2, Level: 1, StartMinutes: 540, EndMinutes: 660},
		{ParentTaskID: 1, ChildTaskID: 3, Date: mon, Hours: 2, Level: 1, StartMinutes: 660, EndMinutes: 780},
		{ParentTaskID: 2, ChildTaskID: 4, Date: mon, Hours: 1, Level: 2, StartMinutes: 540, EndMinutes: 600},
		{ParentTaskID: 7, ChildTaskID: 8, Date: mon, Hours: 1, Level: 1, StartMinutes: 540, EndMinutes: 600},
	}
	if err := set.Allocations.CreateChildren(ctx, children); err != nil {
		t.Fatalf("create children: %v", err)
	}

	// Deleting for tasks {1, 2} must drop rows where either side matches.
	if err := set.Allocations.DeleteChildrenByTasks(ctx, []uint{1, 2}); err != nil {
		t.Fatalf("delete children: %v", err)
	}

	var count int64
	if err := set.Allocations.db.Model(&model.ChildAllocation{}).Count(&count).Error; err != nil {
		t.Fatalf("count children: %v", err)
	}
	if count != 1 {
		t.Errorf("remaining child rows = %d, want 1", count)
	}
}

func TestAllocationRepository_UserQueries(t *testing.T) {
	set := newTestDB(t)
	ctx := context.Background()

	mon := date(t, "2025-03-03")
	tue := date(t, "2025-03-04")
	rows := []model.Allocation{
		{TaskID: 1, UserID: 1, Date: tue, Hours: 1, StartMinutes: 600, EndMinutes: 660, Mode: model.ModeWork},
		{TaskID: 2, UserID: 1, Date: mon, Hours: 1, StartMinutes: 540, EndMinutes: 600, Mode: model.ModeWork},
		{TaskID: 3, UserID: 1, Date: mon, Hours: 1, StartMinutes: 1080, EndMinutes: 1140, Mode: model.ModeHobby},
		{TaskID: 4, UserID: 2, Date: mon, Hours: 1, StartMinutes: 540, EndMinutes: 600, Mode: model.ModeWork},
	}
	if err := set.Allocations.Create(ctx, rows); err != nil {
		t.Fatalf("create allocations: %v", err)
	}

	got, err := set.Allocations.ListForUserRange(ctx, 1, model.ModeWork, mon, tue)
	if err != nil {
		t.Fatalf("list for user range: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("range rows = %d, want 2", len(got))
	}
	if got[0].TaskID != 2 || got[1].TaskID != 1 {
		t.Errorf("range order = [%d, %d], want [2, 1]", got[0].TaskID, got[1].TaskID)
	}

	got, err = set.Allocations.ListForUserFromDate(ctx, 1, model.ModeWork, tue)
	if err != nil {
		t.Fatalf("list for user from date: %v", err)
	}
	if len(got) != 1 || got[0].TaskID != 1 {
		t.Errorf("from-date rows = %+v, want only task 1", got)
	}

	got, err = set.Allocations.ListForUserOnDate(ctx, 1, model.ModeHobby, mon)
	if err != nil {
		t.Fatalf("list for user on date: %v", err)
	}
	if len(got) != 1 || got[0].TaskID != 3 {
		t.Errorf("hobby rows = %+v, want only task 3", got)
	}
}

func TestCalendarRepository_UpsertAndLoad(t *testing.T) {
	set := newTestDB(t)
	ctx := context.Background()

	user := &model.User{Name: "Аня", LunchStartMinutes: 780, LunchDurationMinutes: 60}
	if err := set.Users.Create(ctx, user); err != nil {
		t.Fatalf("create user: %v", err)
	}

	day := &model.CalendarDay{UserID: user.ID, Weekday: 1, Mode: model.ModeWork, CapacityHours: 8, StartMinutes: 540}
	if err := set.Calendars.UpsertDay(ctx, day); err != nil {
		t.Fatalf("upsert day: %v", err)
	}
	// Second upsert for the same slot must update in place, not duplicate.
	if err := set.Calendars.UpsertDay(ctx, &model.CalendarDay{UserID: user.ID, Weekday: 1, Mode: model.ModeWork, CapacityHours: 6, StartMinutes: 600}); err != nil {
		t.Fatalf("upsert day again: %v", err)
	}
	if err := set.Calendars.UpsertDay(ctx, &model.CalendarDay{UserID: user.ID, Weekday: 1, Mode: model.ModeHobby, CapacityHours: 2, StartMinutes: 1080}); err != nil {
		t.Fatalf("upsert hobby day: %v", err)
	}

	cal, err := set.Calendars.Load(ctx, user.ID)
	if err != nil {
		t.Fatalf("load calendar: %v", err)
	}

	if cal.LunchStartMinutes != 780 || cal.LunchDurationMinutes != 60 {
		t.Errorf("lunch = (%d, %d), want (780, 60)", cal.LunchStartMinutes, cal.LunchDurationMinutes)
	}
	if cal.Work[1].CapacityMinutes != 360 || cal.Work[1].StartMinutes != 600 {
		t.Errorf("work monday = %+v, want 360 minutes from 600", cal.Work[1])
	}
	if cal.Hobby[1].CapacityMinutes != 120 || cal.Hobby[1].StartMinutes != 1080 {
		t.Errorf("hobby monday = %+v, want 120 minutes from 1080", cal.Hobby[1])
	}
	if cal.Work[2].CapacityMinutes != 0 {
		t.Errorf("unconfigured tuesday capacity = %d, want 0", cal.Work[2].CapacityMinutes)
	}
}

func TestRecurringRepository_BlocksAndCommitments(t *testing.T) {
	set := newTestDB(t)
	ctx := context.Background()

	if err := set.Recurring.CreateCommitment(ctx, &model.RecurringCommitment{UserID: 1, Title: "standup", Weekday: 1, StartMinutes: 600, EndMinutes: 630}); err != nil {
		t.Fatalf("create commitment: %v", err)
	}
	commitments, err := set.Recurring.ListCommitments(ctx)
	if err != nil {
		t.Fatalf("list commitments: %v", err)
	}
	if len(commitments) != 1 || commitments[0].Title != "standup" {
		t.Fatalf("commitments = %+v, want one standup", commitments)
	}

	mon := date(t, "2025-03-03")
	block := &model.RecurringBlock{UserID: 1, Date: mon, StartMinutes: 600, EndMinutes: 630, Hours: 0.5}
	if err := set.Recurring.CreateBlock(ctx, block); err != nil {
		t.Fatalf("create block: %v", err)
	}

	exists, err := set.Recurring.BlockExists(ctx, 1, mon, 600)
	if err != nil {
		t.Fatalf("block exists: %v", err)
	}
	if !exists {
		t.Error("block exists = false, want true")
	}
	exists, err = set.Recurring.BlockExists(ctx, 1, mon, 700)
	if err != nil {
		t.Fatalf("block exists: %v", err)
	}
	if exists {
		t.Error("block exists for other start = true, want false")
	}

	blocks, err := set.Recurring.ListBlocks(ctx, 1, mon, mon.AddDate(0, 0, 7))
	if err != nil {
		t.Fatalf("list blocks: %v", err)
	}
	if len(blocks) != 1 {
		t.Fatalf("blocks in range = %d, want 1", len(blocks))
	}
	blocks, err = set.Recurring.ListBlocks(ctx, 1, mon.AddDate(0, 0, 1), mon.AddDate(0, 0, 7))
	if err != nil {
		t.Fatalf("list blocks: %v", err)
	}
	if len(blocks) != 0 {
		t.Fatalf("blocks outside range = %d, want 0", len(blocks))
	}
}

func TestUserRepository_Lookups(t *testing.T) {
	set := newTestDB(t)
	ctx := context.Background()

	withChat := &model.User{Name: "Иван", TelegramID: 42}
	silent := &model.User{Name: "Ольга"}
	if err := set.Users.Create(ctx, withChat); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if err := set.Users.Create(ctx, silent); err != nil {
		t.Fatalf("create user: %v", err)
	}

	found, err := set.Users.FindByTelegramID(ctx, 42)
	if err != nil {
		t.Fatalf("find by telegram id: %v", err)
	}
	if found.ID != withChat.ID {
		t.Errorf("found user %d, want %d", found.ID, withChat.ID)
	}

	notifiable, err := set.Users.ListNotifiable(ctx)
	if err != nil {
		t.Fatalf("list notifiable: %v", err)
	}
	if len(notifiable) != 1 || notifiable[0].ID != withChat.ID {
		t.Errorf("notifiable = %+v, want only user %d", notifiable, withChat.ID)
	}

	if err := set.Users.UpdateLunch(ctx, withChat.ID, 780, 45); err != nil {
		t.Fatalf("update lunch: %v", err)
	}
	found, err = set.Users.FindByID(ctx, withChat.ID)
	if err != nil {
		t.Fatalf("find by id: %v", err)
	}
	if found.LunchStartMinutes != 780 || found.LunchDurationMinutes != 45 {
		t.Errorf("lunch = (%d, %d), want (780, 45)", found.LunchStartMinutes, found.LunchDurationMinutes)
	}
}
