package gormstore

import (
	"context"
	"errors"
	"fmt"

	"streakd/internal/domain"
	repository "streakd/internal/repository"

	"gorm.io/gorm"
)

// UserRepository reads users from SQL. Save exists for local setups where no auth
// service writes the table.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, userID string) (*domain.User, error) {
	var m userModel
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: user %s", repository.ErrNotFound, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &domain.User{ID: m.ID, Login: m.Login, AccessToken: m.AccessToken}, nil
}

func (r *UserRepository) Save(ctx context.Context, user domain.User) error {
	m := userModel{ID: user.ID, Login: user.Login, AccessToken: user.AccessToken}
	if err := r.db.WithContext(ctx).Save(&m).Error; err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}
