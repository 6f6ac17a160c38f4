// Package memory holds process-local stores. They back tests and the "memory" store
// driver; nothing survives a restart.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"streakd/internal/domain"
	repository "streakd/internal/repository"
	repositoryIface "streakd/internal/repository/iface"
)

type commitJobRepository struct {
	mu   sync.RWMutex
	jobs map[string]*domain.CommitJob
}

// NewCommitJobRepository creates an empty in-memory commit job store.
func NewCommitJobRepository() repositoryIface.CommitJobRepository {
	return &commitJobRepository{jobs: make(map[string]*domain.CommitJob)}
}

func (r *commitJobRepository) Create(ctx context.Context, job *domain.CommitJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.jobs[job.ID]; exists {
		return fmt.Errorf("commit job %s already exists", job.ID)
	}
	job.Version = 1
	r.jobs[job.ID] = job.Clone()
	return nil
}

func (r *commitJobRepository) Update(ctx context.Context, job *domain.CommitJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.jobs[job.ID]
	if !ok {
		return fmt.Errorf("%w: commit job %s", repository.ErrNotFound, job.ID)
	}
	if stored.Version != job.Version {
		return fmt.Errorf("%w: job_id=%s", repository.ErrOptimisticLockFailed, job.ID)
	}
	job.Version++
	r.jobs[job.ID] = job.Clone()
	return nil
}

func (r *commitJobRepository) GetByID(ctx context.Context, jobID string) (*domain.CommitJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("%w: commit job %s", repository.ErrNotFound, jobID)
	}
	return job.Clone(), nil
}

func (r *commitJobRepository) ListDueCandidates(ctx context.Context, limit int) ([]*domain.CommitJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var due []*domain.CommitJob
	for _, job := range r.jobs {
		if job.IsPending() && job.IsScheduled() {
			due = append(due, job.Clone())
		}
	}
	sort.SliceStable(due, func(i, j int) bool {
		if due[i].ScheduledTime.Equal(*due[j].ScheduledTime) {
			return due[i].CreatedAt.Before(due[j].CreatedAt)
		}
		return due[i].ScheduledTime.Before(*due[j].ScheduledTime)
	})
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (r *commitJobRepository) ListByUser(ctx context.Context, userID string) ([]*domain.CommitJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	jobs := []*domain.CommitJob{}
	for _, job := range r.jobs {
		if job.UserID == userID {
			jobs = append(jobs, job.Clone())
		}
	}
	sort.SliceStable(jobs, func(i, j int) bool {
		return jobs[i].TargetTime.After(jobs[j].TargetTime)
	})
	return jobs, nil
}

func (r *commitJobRepository) CountPending(ctx context.Context, jobIDs []string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, id := range jobIDs {
		if job, ok := r.jobs[id]; ok && job.IsPending() {
			count++
		}
	}
	return count, nil
}

func (r *commitJobRepository) DeletePendingByUser(ctx context.Context, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	deleted := 0
	for id, job := range r.jobs {
		if job.UserID == userID && job.IsPending() {
			delete(r.jobs, id)
			deleted++
		}
	}
	return deleted, nil
}

func (r *commitJobRepository) Delete(ctx context.Context, jobID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.jobs, jobID)
	return nil
}
