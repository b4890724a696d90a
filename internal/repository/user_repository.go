package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"planboard/internal/model"
)

// UserRepository handles CRUD for users.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *UserRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("telegram_id = ?", telegramID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// ListNotifiable returns users that have a Telegram chat configured.
func (r *UserRepository) ListNotifiable(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := r.db.WithContext(ctx).Where("telegram_id <> 0").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// UpdateLunch stores the user's daily lunch window.
func (r *UserRepository) UpdateLunch(ctx context.Context, userID uint, startMinutes, durationMinutes int) error {
	updates := map[string]interface{}{
		"lunch_start_minutes":    startMinutes,
		"lunch_duration_minutes": durationMinutes,
	}
	if err := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", userID).Updates(updates).Error; err != nil {
		return fmt.Errorf("update lunch: %w", err)
	}
	return nil
}
