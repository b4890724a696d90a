package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"planboard/internal/model"
)

// RecurringRepository stores weekly commitments and their materialized
// dated blocks. Blocks are read-only to the scheduler core.
type RecurringRepository struct {
	db *gorm.DB
}

func NewRecurringRepository(db *gorm.DB) *RecurringRepository {
	return &RecurringRepository{db: db}
}

func (r *RecurringRepository) CreateCommitment(ctx context.Context, c *model.RecurringCommitment) error {
	if err := r.db.WithContext(ctx).Create(c).Error; err != nil {
		return fmt.Errorf("create commitment: %w", err)
	}
	return nil
}

func (r *RecurringRepository) ListCommitments(ctx context.Context) ([]model.RecurringCommitment, error) {
	var commitments []model.RecurringCommitment
	if err := r.db.WithContext(ctx).Order("user_id ASC, weekday ASC, start_minutes ASC").
		Find(&commitments).Error; err != nil {
		return nil, err
	}
	return commitments, nil
}

func (r *RecurringRepository) CreateBlock(ctx context.Context, b *model.RecurringBlock) error {
	if err := r.db.WithContext(ctx).Create(b).Error; err != nil {
		return fmt.Errorf("create block: %w", err)
	}
	return nil
}

// BlockExists reports whether a block for the user, date and start already
// exists; materialization uses it to stay idempotent.
func (r *RecurringRepository) BlockExists(ctx context.Context, userID uint, date time.Time, startMinutes int) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.RecurringBlock{}).
		Where("user_id = ? AND date = ? AND start_minutes = ?", userID, date, startMinutes).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("check block: %w", err)
	}
	return count > 0, nil
}

// ListBlocks returns a user's blocks within [from, to], ordered by date and
// start time.
func (r *RecurringRepository) ListBlocks(ctx context.Context, userID uint, from, to time.Time) ([]model.RecurringBlock, error) {
	var blocks []model.RecurringBlock
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND date >= ? AND date <= ?", userID, from, to).
		Order("date ASC, start_minutes ASC").Find(&blocks).Error; err != nil {
		return nil, err
	}
	return blocks, nil
}
