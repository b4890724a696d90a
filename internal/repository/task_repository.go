package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"planboard/internal/model"
)

// TaskRepository handles CRUD for tasks.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

func (r *TaskRepository) FindByID(ctx context.Context, taskID uint) (*model.Task, error) {
	var task model.Task
	if err := r.db.WithContext(ctx).First(&task, taskID).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *TaskRepository) ListByIDs(ctx context.Context, ids []uint) ([]model.Task, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var tasks []model.Task
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// ListDependents returns tasks whose finish-to-start dependency points at
// the given task.
func (r *TaskRepository) ListDependents(ctx context.Context, taskID uint) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).Where("depends_on_task_id = ?", taskID).
		Order("id ASC").Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// Subtree returns the task and all its descendants via iterative BFS over
// the parent adjacency, one IN query per level.
func (r *TaskRepository) Subtree(ctx context.Context, rootID uint) ([]model.Task, error) {
	root, err := r.FindByID(ctx, rootID)
	if err != nil {
		return nil, err
	}

	out := []model.Task{*root}
	frontier := []uint{rootID}
	seen := map[uint]bool{rootID: true}

	for len(frontier) > 0 {
		var level []model.Task
		if err := r.db.WithContext(ctx).Where("parent_task_id IN ?", frontier).
			Order("id ASC").Find(&level).Error; err != nil {
			return nil, fmt.Errorf("load subtree level: %w", err)
		}
		frontier = frontier[:0]
		for _, t := range level {
			if seen[t.ID] {
				continue
			}
			seen[t.ID] = true
			out = append(out, t)
			frontier = append(frontier, t.ID)
		}
	}
	return out, nil
}

// UpdatePlannedDates stores the derived planned start and end dates.
func (r *TaskRepository) UpdatePlannedDates(ctx context.Context, taskID uint, start, end *time.Time) error {
	updates := map[string]interface{}{
		"planned_start_date": start,
		"planned_end_date":   end,
	}
	if err := r.db.WithContext(ctx).Model(&model.Task{}).Where("id = ?", taskID).Updates(updates).Error; err != nil {
		return fmt.Errorf("update planned dates: %w", err)
	}
	return nil
}
