// Package repotest holds behavioural checks every store implementation must pass.
package repotest

import (
	"context"
	"testing"
	"time"

	"streakd/internal/domain"
	repository "streakd/internal/repository"
	repositoryIface "streakd/internal/repository/iface"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newJob(userID string, scheduled *time.Time, target time.Time) *domain.CommitJob {
	return domain.NewCommitJob(domain.NewCommitJobParams{
		UserID:        userID,
		Repository:    "octo/streak",
		RepositoryURL: "https://github.com/octo/streak",
		FilePath:      "docs/log.md",
		Message:       "docs: log",
		TargetTime:    target,
		ScheduledTime: scheduled,
	}, time.Now().UTC().Truncate(time.Millisecond))
}

func ptr(t time.Time) *time.Time { return &t }

// CommitJobRepository exercises a CommitJobRepository built fresh by newRepo.
func CommitJobRepository(t *testing.T, newRepo func(t *testing.T) repositoryIface.CommitJobRepository) {
	ctx := context.Background()
	base := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)

	t.Run("create and get round trip", func(t *testing.T) {
		repo := newRepo(t)
		job := newJob("u1", ptr(base), base.AddDate(0, 0, -30))
		job.Content = "hello"
		job.RetryOf = "orig-1"
		require.NoError(t, repo.Create(ctx, job))

		got, err := repo.GetByID(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, job.ID, got.ID)
		assert.Equal(t, "u1", got.UserID)
		assert.Equal(t, "hello", got.Content)
		assert.Equal(t, "orig-1", got.RetryOf)
		assert.True(t, got.IsScheduled())
		assert.True(t, base.Equal(*got.ScheduledTime))
		assert.True(t, job.TargetTime.Equal(got.TargetTime))
		assert.Equal(t, domain.JobStatusPending, got.Status())
		assert.Equal(t, job.Version, got.Version)
	})

	t.Run("target time keeps its zone offset", func(t *testing.T) {
		repo := newRepo(t)
		ist := time.FixedZone("IST", 5*3600+1800)
		target := time.Date(2023, 11, 2, 23, 30, 0, 0, ist)
		job := newJob("u1", ptr(base), target)
		require.NoError(t, repo.Create(ctx, job))

		got, err := repo.GetByID(ctx, job.ID)
		require.NoError(t, err)
		assert.True(t, target.Equal(got.TargetTime))
		_, offset := got.TargetTime.Zone()
		assert.Equal(t, 5*3600+1800, offset)
		assert.Equal(t, 2, got.TargetTime.Day())
		assert.Equal(t, 23, got.TargetTime.Hour())
	})

	t.Run("get unknown id", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.GetByID(ctx, "missing")
		assert.True(t, repository.IsNotFoundError(err))
	})

	t.Run("update is version conditioned", func(t *testing.T) {
		repo := newRepo(t)
		job := newJob("u1", ptr(base), base)
		require.NoError(t, repo.Create(ctx, job))

		first, err := repo.GetByID(ctx, job.ID)
		require.NoError(t, err)
		second, err := repo.GetByID(ctx, job.ID)
		require.NoError(t, err)

		require.NoError(t, first.MarkProcessing(base))
		require.NoError(t, repo.Update(ctx, first))

		require.NoError(t, second.MarkProcessing(base))
		err = repo.Update(ctx, second)
		assert.True(t, repository.IsOptimisticLockError(err))

		require.NoError(t, first.Fail("push rejected", base))
		require.NoError(t, repo.Update(ctx, first))

		got, err := repo.GetByID(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.JobStatusFailed, got.Status())
		assert.Equal(t, "push rejected", got.ErrorMessage())
		require.NotNil(t, got.ProcessedAt)
	})

	t.Run("due candidates are pending scheduled jobs oldest first", func(t *testing.T) {
		repo := newRepo(t)
		late := newJob("u1", ptr(base.Add(2*time.Hour)), base)
		early := newJob("u2", ptr(base.Add(-time.Hour)), base)
		unscheduled := newJob("u1", nil, base)
		done := newJob("u1", ptr(base.Add(-2*time.Hour)), base)
		for _, j := range []*domain.CommitJob{late, early, unscheduled, done} {
			require.NoError(t, repo.Create(ctx, j))
		}
		require.NoError(t, done.Complete(base))
		require.NoError(t, repo.Update(ctx, done))

		due, err := repo.ListDueCandidates(ctx, 20)
		require.NoError(t, err)
		require.Len(t, due, 2)
		assert.Equal(t, early.ID, due[0].ID)
		assert.Equal(t, late.ID, due[1].ID)

		limited, err := repo.ListDueCandidates(ctx, 1)
		require.NoError(t, err)
		require.Len(t, limited, 1)
		assert.Equal(t, early.ID, limited[0].ID)
	})

	t.Run("list by user newest target first and count pending", func(t *testing.T) {
		repo := newRepo(t)
		older := newJob("u1", nil, base.AddDate(0, 0, -3))
		newer := newJob("u1", nil, base.AddDate(0, 0, -1))
		other := newJob("u2", nil, base)
		for _, j := range []*domain.CommitJob{older, newer, other} {
			require.NoError(t, repo.Create(ctx, j))
		}

		jobs, err := repo.ListByUser(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, jobs, 2)
		assert.Equal(t, newer.ID, jobs[0].ID)

		require.NoError(t, older.Fail("boom", base))
		require.NoError(t, repo.Update(ctx, older))

		pending, err := repo.CountPending(ctx, []string{older.ID, newer.ID, other.ID, "missing"})
		require.NoError(t, err)
		assert.Equal(t, 2, pending)

		none, err := repo.CountPending(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, 0, none)
	})

	t.Run("delete pending by user keeps terminal jobs", func(t *testing.T) {
		repo := newRepo(t)
		p1 := newJob("u1", ptr(base), base)
		p2 := newJob("u1", nil, base)
		done := newJob("u1", nil, base)
		foreign := newJob("u2", nil, base)
		for _, j := range []*domain.CommitJob{p1, p2, done, foreign} {
			require.NoError(t, repo.Create(ctx, j))
		}
		require.NoError(t, done.Complete(base))
		require.NoError(t, repo.Update(ctx, done))

		deleted, err := repo.DeletePendingByUser(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, 2, deleted)

		left, err := repo.ListByUser(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, left, 1)
		assert.Equal(t, done.ID, left[0].ID)

		_, err = repo.GetByID(ctx, foreign.ID)
		assert.NoError(t, err)

		require.NoError(t, repo.Delete(ctx, done.ID))
		_, err = repo.GetByID(ctx, done.ID)
		assert.True(t, repository.IsNotFoundError(err))
	})
}

// BulkScheduleRepository exercises a BulkScheduleRepository built fresh by newRepo.
func BulkScheduleRepository(t *testing.T, newRepo func(t *testing.T) repositoryIface.BulkScheduleRepository) {
	ctx := context.Background()
	now := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)

	newSchedule := func(userID string, created time.Time) *domain.BulkSchedule {
		return domain.NewBulkSchedule(domain.NewBulkScheduleParams{
			UserID:           userID,
			Repository:       "octo/streak",
			RepositoryURL:    "https://github.com/octo/streak",
			StartDate:        now.AddDate(0, 0, -7),
			EndDate:          now,
			TimeWindow:       domain.TimeWindow{Start: "09:00", End: "17:00"},
			MessageTemplates: []string{"chore: {date}"},
			Files:            []string{"README.md", "docs/a.md"},
			Frequency:        domain.FrequencyCustom,
			CustomDays:       []int{1, 3, 5},
			DateFilter:       "day % 2 == 0",
		}, created)
	}

	t.Run("round trip and list", func(t *testing.T) {
		repo := newRepo(t)
		older := newSchedule("u1", now.Add(-time.Hour))
		newer := newSchedule("u1", now)
		foreign := newSchedule("u2", now)
		for _, s := range []*domain.BulkSchedule{older, newer, foreign} {
			require.NoError(t, repo.Create(ctx, s))
		}

		newer.Commits = []string{"j1", "j2"}
		require.NoError(t, repo.Update(ctx, newer))

		got, err := repo.GetByID(ctx, newer.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"j1", "j2"}, got.Commits)
		assert.Equal(t, []int{1, 3, 5}, got.CustomDays)
		assert.Equal(t, domain.TimeWindow{Start: "09:00", End: "17:00"}, got.TimeWindow)
		assert.Equal(t, "day % 2 == 0", got.DateFilter)
		assert.Equal(t, domain.FrequencyCustom, got.Frequency)

		mine, err := repo.ListByUser(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, mine, 2)
		assert.Equal(t, newer.ID, mine[0].ID)

		require.NoError(t, older.Cancel(now))
		require.NoError(t, repo.Update(ctx, older))
		active, err := repo.ListByStatus(ctx, domain.ScheduleStatusActive)
		require.NoError(t, err)
		assert.Len(t, active, 2)

		require.NoError(t, repo.Delete(ctx, foreign.ID))
		_, err = repo.GetByID(ctx, foreign.ID)
		assert.True(t, repository.IsNotFoundError(err))
	})

	t.Run("update is version conditioned", func(t *testing.T) {
		repo := newRepo(t)
		schedule := newSchedule("u1", now)
		require.NoError(t, repo.Create(ctx, schedule))
		assert.Equal(t, int64(1), schedule.Version)

		attach, err := repo.GetByID(ctx, schedule.ID)
		require.NoError(t, err)
		cancel, err := repo.GetByID(ctx, schedule.ID)
		require.NoError(t, err)

		require.NoError(t, cancel.Cancel(now))
		require.NoError(t, repo.Update(ctx, cancel))
		assert.Equal(t, int64(2), cancel.Version)

		attach.Commits = []string{"j1"}
		err = repo.Update(ctx, attach)
		assert.True(t, repository.IsOptimisticLockError(err))

		got, err := repo.GetByID(ctx, schedule.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.ScheduleStatusCancelled, got.Status)
		assert.Empty(t, got.Commits)
		assert.Equal(t, int64(2), got.Version)
	})
}
