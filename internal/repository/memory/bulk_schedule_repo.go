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

type bulkScheduleRepository struct {
	mu        sync.RWMutex
	schedules map[string]*domain.BulkSchedule
}

// NewBulkScheduleRepository creates an empty in-memory bulk schedule store.
func NewBulkScheduleRepository() repositoryIface.BulkScheduleRepository {
	return &bulkScheduleRepository{schedules: make(map[string]*domain.BulkSchedule)}
}

func (r *bulkScheduleRepository) Create(ctx context.Context, schedule *domain.BulkSchedule) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.schedules[schedule.ID]; exists {
		return fmt.Errorf("bulk schedule %s already exists", schedule.ID)
	}
	schedule.Version = 1
	r.schedules[schedule.ID] = schedule.Clone()
	return nil
}

func (r *bulkScheduleRepository) Update(ctx context.Context, schedule *domain.BulkSchedule) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.schedules[schedule.ID]
	if !ok {
		return fmt.Errorf("%w: bulk schedule %s", repository.ErrNotFound, schedule.ID)
	}
	if stored.Version != schedule.Version {
		return fmt.Errorf("%w: schedule_id=%s", repository.ErrOptimisticLockFailed, schedule.ID)
	}
	schedule.Version++
	r.schedules[schedule.ID] = schedule.Clone()
	return nil
}

func (r *bulkScheduleRepository) GetByID(ctx context.Context, scheduleID string) (*domain.BulkSchedule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	schedule, ok := r.schedules[scheduleID]
	if !ok {
		return nil, fmt.Errorf("%w: bulk schedule %s", repository.ErrNotFound, scheduleID)
	}
	return schedule.Clone(), nil
}

func (r *bulkScheduleRepository) ListByUser(ctx context.Context, userID string) ([]*domain.BulkSchedule, error) {
	return r.list(func(s *domain.BulkSchedule) bool { return s.UserID == userID }), nil
}

func (r *bulkScheduleRepository) ListByStatus(ctx context.Context, status domain.ScheduleStatus) ([]*domain.BulkSchedule, error) {
	return r.list(func(s *domain.BulkSchedule) bool { return s.Status == status }), nil
}

func (r *bulkScheduleRepository) Delete(ctx context.Context, scheduleID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.schedules, scheduleID)
	return nil
}

func (r *bulkScheduleRepository) list(keep func(*domain.BulkSchedule) bool) []*domain.BulkSchedule {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []*domain.BulkSchedule{}
	for _, s := range r.schedules {
		if keep(s) {
			out = append(out, s.Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}
