package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"planboard/internal/model"
)

// AllocationRepository persists allocation and child-allocation rows. These
// rows are the scheduler's durable state; planned task dates are recomputed
// from them after every mutation.
type AllocationRepository struct {
	db *gorm.DB
}

func NewAllocationRepository(db *gorm.DB) *AllocationRepository {
	return &AllocationRepository{db: db}
}

func (r *AllocationRepository) Create(ctx context.Context, rows []model.Allocation) error {
	if len(rows) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return fmt.Errorf("create allocations: %w", err)
	}
	return nil
}

func (r *AllocationRepository) CreateChildren(ctx context.Context, rows []model.ChildAllocation) error {
	if len(rows) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return fmt.Errorf("create child allocations: %w", err)
	}
	return nil
}

func (r *AllocationRepository) DeleteByTask(ctx context.Context, taskID uint) error {
	if err := r.db.WithContext(ctx).Where("task_id = ?", taskID).
		Delete(&model.Allocation{}).Error; err != nil {
		return fmt.Errorf("delete allocations: %w", err)
	}
	return nil
}

// DeleteByTaskFromDate removes a task's rows on or after the date, leaving
// any earlier rows in place.
func (r *AllocationRepository) DeleteByTaskFromDate(ctx context.Context, taskID uint, from time.Time) error {
	if err := r.db.WithContext(ctx).Where("task_id = ? AND date >= ?", taskID, from).
		Delete(&model.Allocation{}).Error; err != nil {
		return fmt.Errorf("delete allocations from date: %w", err)
	}
	return nil
}

// DeleteChildrenByTasks removes every child allocation touching any of the
// given tasks, as parent or as child.
func (r *AllocationRepository) DeleteChildrenByTasks(ctx context.Context, taskIDs []uint) error {
	if len(taskIDs) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Where("parent_task_id IN ? OR child_task_id IN ?", taskIDs, taskIDs).
		Delete(&model.ChildAllocation{}).Error; err != nil {
		return fmt.Errorf("delete child allocations: %w", err)
	}
	return nil
}

func (r *AllocationRepository) ListByTask(ctx context.Context, taskID uint) ([]model.Allocation, error) {
	var rows []model.Allocation
	if err := r.db.WithContext(ctx).Where("task_id = ?", taskID).
		Order("date ASC, start_minutes ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListForUserRange returns a user's rows of one mode within [from, to],
// ordered by date and start time.
func (r *AllocationRepository) ListForUserRange(ctx context.Context, userID uint, mode model.Mode, from, to time.Time) ([]model.Allocation, error) {
	var rows []model.Allocation
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND mode = ? AND date >= ? AND date <= ?", userID, mode, from, to).
		Order("date ASC, start_minutes ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListForUserFromDate returns a user's rows of one mode on or after the
// date, ordered by date and start time.
func (r *AllocationRepository) ListForUserFromDate(ctx context.Context, userID uint, mode model.Mode, from time.Time) ([]model.Allocation, error) {
	var rows []model.Allocation
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND mode = ? AND date >= ?", userID, mode, from).
		Order("date ASC, start_minutes ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListForUserOnDate returns a user's rows of one mode on a single date.
func (r *AllocationRepository) ListForUserOnDate(ctx context.Context, userID uint, mode model.Mode, date time.Time) ([]model.Allocation, error) {
	return r.ListForUserRange(ctx, userID, mode, date, date)
}

// SumHoursByTask totals a task's allocated hours.
func (r *AllocationRepository) SumHoursByTask(ctx context.Context, taskID uint) (float64, error) {
	var total float64
	if err := r.db.WithContext(ctx).Model(&model.Allocation{}).
		Where("task_id = ?", taskID).
		Select("COALESCE(SUM(hours), 0)").Scan(&total).Error; err != nil {
		return 0, fmt.Errorf("sum hours: %w", err)
	}
	return total, nil
}

// SumHoursByTaskFromDate totals a task's allocated hours on or after the date.
func (r *AllocationRepository) SumHoursByTaskFromDate(ctx context.Context, taskID uint, from time.Time) (float64, error) {
	var total float64
	if err := r.db.WithContext(ctx).Model(&model.Allocation{}).
		Where("task_id = ? AND date >= ?", taskID, from).
		Select("COALESCE(SUM(hours), 0)").Scan(&total).Error; err != nil {
		return 0, fmt.Errorf("sum hours from date: %w", err)
	}
	return total, nil
}

// EarliestByTask returns a task's earliest row by date and start time, or
// nil when the task has no allocations.
func (r *AllocationRepository) EarliestByTask(ctx context.Context, taskID uint) (*model.Allocation, error) {
	var row model.Allocation
	err := r.db.WithContext(ctx).Where("task_id = ?", taskID).
		Order("date ASC, start_minutes ASC").First(&row).Error
	switch {
	case err == nil:
		return &row, nil
	case err == gorm.ErrRecordNotFound:
		return nil, nil
	default:
		return nil, fmt.Errorf("earliest allocation: %w", err)
	}
}

// DateBounds returns the MIN and MAX allocation dates for a task, or nils
// when the task has no rows.
func (r *AllocationRepository) DateBounds(ctx context.Context, taskID uint) (*time.Time, *time.Time, error) {
	// SQLite loses the date column's declared type through MIN/MAX, so the
	// driver cannot scan the aggregates into time.Time; read the bounding
	// rows directly instead.
	var minRow model.Allocation
	err := r.db.WithContext(ctx).Where("task_id = ?", taskID).
		Order("date ASC").First(&minRow).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("allocation date bounds: %w", err)
	}
	var maxRow model.Allocation
	if err := r.db.WithContext(ctx).Where("task_id = ?", taskID).
		Order("date DESC").First(&maxRow).Error; err != nil {
		return nil, nil, fmt.Errorf("allocation date bounds: %w", err)
	}
	return &minRow.Date, &maxRow.Date, nil
}
