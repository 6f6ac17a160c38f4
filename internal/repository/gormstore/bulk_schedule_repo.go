package gormstore

import (
	"context"
	"errors"
	"fmt"

	"streakd/internal/domain"
	"streakd/internal/logger"
	repository "streakd/internal/repository"
	repositoryIface "streakd/internal/repository/iface"

	"gorm.io/gorm"
)

type bulkScheduleRepository struct {
	db     *gorm.DB
	logger logger.Logger
}

// NewBulkScheduleRepository creates a SQL-backed bulk schedule repository
func NewBulkScheduleRepository(db *gorm.DB, log logger.Logger) repositoryIface.BulkScheduleRepository {
	return &bulkScheduleRepository{
		db:     db,
		logger: log.With(logger.String("component", "bulk_schedule_repository")),
	}
}

func (r *bulkScheduleRepository) Create(ctx context.Context, schedule *domain.BulkSchedule) error {
	m := newBulkScheduleModel(schedule)
	m.Version = 1
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		r.logger.Error("failed to create bulk schedule", logger.Error(err))
		return fmt.Errorf("failed to create bulk schedule: %w", err)
	}
	schedule.Version = 1
	return nil
}

func (r *bulkScheduleRepository) Update(ctx context.Context, schedule *domain.BulkSchedule) error {
	m := newBulkScheduleModel(schedule)
	m.Version = schedule.Version + 1

	res := r.db.WithContext(ctx).
		Model(&bulkScheduleModel{}).
		Where("id = ? AND version = ?", schedule.ID, schedule.Version).
		Select("*").
		Updates(m)
	if res.Error != nil {
		r.logger.Error("failed to update bulk schedule", logger.Error(res.Error))
		return fmt.Errorf("failed to update bulk schedule: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := r.GetByID(ctx, schedule.ID); err != nil {
			return err
		}
		r.logger.Warn("optimistic lock failed - bulk schedule was modified by another process",
			logger.String("schedule_id", schedule.ID),
			logger.Int64("expected_version", schedule.Version))
		return fmt.Errorf("%w: schedule_id=%s", repository.ErrOptimisticLockFailed, schedule.ID)
	}

	schedule.Version = m.Version
	return nil
}

func (r *bulkScheduleRepository) GetByID(ctx context.Context, scheduleID string) (*domain.BulkSchedule, error) {
	var m bulkScheduleModel
	err := r.db.WithContext(ctx).Where("id = ?", scheduleID).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: bulk schedule %s", repository.ErrNotFound, scheduleID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bulk schedule: %w", err)
	}
	return m.toDomain(), nil
}

func (r *bulkScheduleRepository) ListByUser(ctx context.Context, userID string) ([]*domain.BulkSchedule, error) {
	return r.find(r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC"))
}

func (r *bulkScheduleRepository) ListByStatus(ctx context.Context, status domain.ScheduleStatus) ([]*domain.BulkSchedule, error) {
	return r.find(r.db.WithContext(ctx).Where("status = ?", status).Order("created_at DESC"))
}

func (r *bulkScheduleRepository) Delete(ctx context.Context, scheduleID string) error {
	if err := r.db.WithContext(ctx).Where("id = ?", scheduleID).Delete(&bulkScheduleModel{}).Error; err != nil {
		return fmt.Errorf("failed to delete bulk schedule: %w", err)
	}
	return nil
}

func (r *bulkScheduleRepository) find(q *gorm.DB) ([]*domain.BulkSchedule, error) {
	var rows []bulkScheduleModel
	if err := q.Find(&rows).Error; err != nil {
		r.logger.Error("failed to query bulk schedules", logger.Error(err))
		return nil, fmt.Errorf("failed to query bulk schedules: %w", err)
	}
	schedules := make([]*domain.BulkSchedule, 0, len(rows))
	for i := range rows {
		schedules = append(schedules, rows[i].toDomain())
	}
	return schedules, nil
}
