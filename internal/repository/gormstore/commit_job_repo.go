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

type commitJobRepository struct {
	db     *gorm.DB
	logger logger.Logger
}

// NewCommitJobRepository creates a SQL-backed commit job repository
func NewCommitJobRepository(db *gorm.DB, log logger.Logger) repositoryIface.CommitJobRepository {
	return &commitJobRepository{
		db:     db,
		logger: log.With(logger.String("component", "commit_job_repository")),
	}
}

func (r *commitJobRepository) Create(ctx context.Context, job *domain.CommitJob) error {
	m := newCommitJobModel(job)
	m.Version = 1
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		r.logger.Error("failed to create commit job", logger.Error(err))
		return fmt.Errorf("failed to create commit job: %w", err)
	}
	job.Version = 1
	return nil
}

func (r *commitJobRepository) Update(ctx context.Context, job *domain.CommitJob) error {
	m := newCommitJobModel(job)
	m.Version = job.Version + 1

	res := r.db.WithContext(ctx).
		Model(&commitJobModel{}).
		Where("id = ? AND version = ?", job.ID, job.Version).
		Select("*").
		Updates(m)
	if res.Error != nil {
		r.logger.Error("failed to update commit job", logger.Error(res.Error))
		return fmt.Errorf("failed to update commit job: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := r.GetByID(ctx, job.ID); err != nil {
			return err
		}
		r.logger.Warn("optimistic lock failed - commit job was modified by another process",
			logger.String("job_id", job.ID),
			logger.Int64("expected_version", job.Version))
		return fmt.Errorf("%w: job_id=%s", repository.ErrOptimisticLockFailed, job.ID)
	}

	job.Version = m.Version
	return nil
}

func (r *commitJobRepository) GetByID(ctx context.Context, jobID string) (*domain.CommitJob, error) {
	var m commitJobModel
	err := r.db.WithContext(ctx).Where("id = ?", jobID).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: commit job %s", repository.ErrNotFound, jobID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get commit job: %w", err)
	}
	return m.toDomain()
}

func (r *commitJobRepository) ListDueCandidates(ctx context.Context, limit int) ([]*domain.CommitJob, error) {
	q := r.db.WithContext(ctx).
		Where("status = ? AND scheduled_time IS NOT NULL", domain.JobStatusPending).
		Order("scheduled_time ASC").
		Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	return r.find(q)
}

func (r *commitJobRepository) ListByUser(ctx context.Context, userID string) ([]*domain.CommitJob, error) {
	q := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("target_time DESC")
	return r.find(q)
}

func (r *commitJobRepository) CountPending(ctx context.Context, jobIDs []string) (int, error) {
	if len(jobIDs) == 0 {
		return 0, nil
	}
	var count int64
	err := r.db.WithContext(ctx).
		Model(&commitJobModel{}).
		Where("id IN ? AND status = ?", jobIDs, domain.JobStatusPending).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count pending commit jobs: %w", err)
	}
	return int(count), nil
}

func (r *commitJobRepository) DeletePendingByUser(ctx context.Context, userID string) (int, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, domain.JobStatusPending).
		Delete(&commitJobModel{})
	if res.Error != nil {
		r.logger.Error("failed to delete pending commit jobs", logger.Error(res.Error))
		return 0, fmt.Errorf("failed to delete pending commit jobs: %w", res.Error)
	}
	r.logger.Info("pending commit jobs deleted",
		logger.String("user_id", userID),
		logger.Int64("count", res.RowsAffected))
	return int(res.RowsAffected), nil
}

func (r *commitJobRepository) Delete(ctx context.Context, jobID string) error {
	if err := r.db.WithContext(ctx).Where("id = ?", jobID).Delete(&commitJobModel{}).Error; err != nil {
		return fmt.Errorf("failed to delete commit job: %w", err)
	}
	return nil
}

func (r *commitJobRepository) find(q *gorm.DB) ([]*domain.CommitJob, error) {
	var rows []commitJobModel
	if err := q.Find(&rows).Error; err != nil {
		r.logger.Error("failed to query commit jobs", logger.Error(err))
		return nil, fmt.Errorf("failed to query commit jobs: %w", err)
	}

	jobs := make([]*domain.CommitJob, 0, len(rows))
	for i := range rows {
		job, err := rows[i].toDomain()
		if err != nil {
			r.logger.Warn("skipping commit job with invalid state",
				logger.String("job_id", rows[i].ID),
				logger.Error(err))
			continue
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}
