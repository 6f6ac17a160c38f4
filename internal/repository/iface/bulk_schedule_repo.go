package repository

import (
	"context"

	"streakd/internal/domain"
)

// BulkScheduleRepository persists bulk schedules.
type BulkScheduleRepository interface {
	Create(ctx context.Context, schedule *domain.BulkSchedule) error
	Update(ctx context.Context, schedule *domain.BulkSchedule) error
	GetByID(ctx context.Context, scheduleID string) (*domain.BulkSchedule, error)
	// ListByUser returns a user's schedules, newest first.
	ListByUser(ctx context.Context, userID string) ([]*domain.BulkSchedule, error)
	ListByStatus(ctx context.Context, status domain.ScheduleStatus) ([]*domain.BulkSchedule, error)
	Delete(ctx context.Context, scheduleID string) error
}
