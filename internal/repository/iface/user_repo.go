package repository

import (
	"context"

	"streakd/internal/domain"
)

// UserRepository reads the user records written by the authentication subsystem.
type UserRepository interface {
	GetByID(ctx context.Context, userID string) (*domain.User, error)
}
