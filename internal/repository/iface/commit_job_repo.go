package repository

import (
	"context"

	"streakd/internal/domain"
)

// CommitJobRepository persists commit jobs.
type CommitJobRepository interface {
	Create(ctx context.Context, job *domain.CommitJob) error
	// Update writes job only if the stored version still equals job.Version and then
	// advances job.Version. A stale write fails with ErrOptimisticLockFailed.
	Update(ctx context.Context, job *domain.CommitJob) error
	GetByID(ctx context.Context, jobID string) (*domain.CommitJob, error)
	// ListDueCandidates returns pending scheduled jobs ordered by scheduled time, oldest first.
	ListDueCandidates(ctx context.Context, limit int) ([]*domain.CommitJob, error)
	// ListByUser returns a user's jobs, newest target time first.
	ListByUser(ctx context.Context, userID string) ([]*domain.CommitJob, error)
	// CountPending counts how many of jobIDs are still pending. Unknown ids are ignored.
	CountPending(ctx context.Context, jobIDs []string) (int, error)
	DeletePendingByUser(ctx context.Context, userID string) (int, error)
	Delete(ctx context.Context, jobID string) error
}
