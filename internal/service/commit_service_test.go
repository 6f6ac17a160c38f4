package service

import (
	"context"
	"testing"
	"time"

	"streakd/internal/domain"

	cerrors "github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func commitRequest() ScheduleCommitRequest {
	return ScheduleCommitRequest{
		UserID:     "u1",
		Repository: "octo/repo",
		FilePath:   "README.md",
		Message:    "backdated",
		TargetTime: time.Date(2023, 12, 24, 18, 0, 0, 0, time.UTC),
	}
}

func TestScheduleCommit(t *testing.T) {
	f := newFixture()
	svc := f.service()
	ctx := context.Background()

	t.Run("defaults to running now", func(t *testing.T) {
		job, err := svc.ScheduleCommit(ctx, commitRequest())
		require.NoError(t, err)

		stored := f.job(t, job.ID)
		require.True(t, stored.IsScheduled())
		assert.Equal(t, testNow, *stored.ScheduledTime)
		assert.Equal(t, "octo/repo", stored.RepositoryURL)
		assert.True(t, stored.IsPending())
	})

	t.Run("explicit run time", func(t *testing.T) {
		req := commitRequest()
		req.RunAt = at(2 * time.Hour)

		job, err := svc.ScheduleCommit(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, *at(2 * time.Hour), *job.ScheduledTime)
	})

	t.Run("missing fields", func(t *testing.T) {
		req := commitRequest()
		req.Message = ""
		req.TargetTime = time.Time{}

		_, err := svc.ScheduleCommit(ctx, req)
		require.Error(t, err)
		assert.True(t, cerrors.Is(err, domain.ErrValidation))
		assert.Contains(t, err.Error(), "commit message, target time")
	})
}

func TestCreateImmediateCommit(t *testing.T) {
	ctx := context.Background()

	t.Run("executes synchronously", func(t *testing.T) {
		f := newFixture()
		res, err := f.service().CreateImmediateCommit(ctx, commitRequest())
		require.NoError(t, err)

		assert.Equal(t, "hash-backdated", res.Result.CommitHash)
		stored := f.job(t, res.Job.ID)
		assert.Equal(t, domain.JobStatusCompleted, stored.Status())
		assert.False(t, stored.IsScheduled())
	})

	t.Run("missing token fails before any record", func(t *testing.T) {
		f := newFixture()
		req := commitRequest()
		req.UserID = "u2"

		_, err := f.service().CreateImmediateCommit(ctx, req)
		require.Error(t, err)
		assert.True(t, cerrors.Is(err, domain.ErrAuth))

		jobs, _ := f.jobs.ListByUser(ctx, "u2")
		assert.Empty(t, jobs)
		assert.Empty(t, f.exec.calls)
	})

	t.Run("executor failure is recorded and returned", func(t *testing.T) {
		f := newFixture()
		f.exec.fail["backdated"] = domain.Upstreamf("push rejected")

		res, err := f.service().CreateImmediateCommit(ctx, commitRequest())
		require.Error(t, err)
		assert.True(t, cerrors.Is(err, domain.ErrUpstream))
		require.NotNil(t, res)
		assert.Equal(t, "push rejected", f.job(t, res.Job.ID).ErrorMessage())
	})
}

func TestCreateImmediateCommitRecordsOutcomeAfterCallerGivesUp(t *testing.T) {
	f := newFixture()
	jobs := ctxJobs{CommitJobRepository: f.jobs}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc := NewCommitService(CommitServiceDeps{
		Jobs:      jobs,
		Schedules: f.schedules,
		Users:     f.users,
		Executor:  cancellingExecutor{cancel: cancel, err: domain.Upstreamf("push aborted")},
		Notifier:  f.notifier,
		Clock:     f.clock,
	}, f.log)

	res, err := svc.CreateImmediateCommit(ctx, commitRequest())
	require.Error(t, err)
	assert.True(t, cerrors.Is(err, domain.ErrUpstream))
	require.NotNil(t, res)

	stored := f.job(t, res.Job.ID)
	assert.Equal(t, domain.JobStatusFailed, stored.Status())
	assert.Equal(t, "push aborted", stored.ErrorMessage())
	assert.Len(t, f.notifier.events, 1)
}

func TestCancelCommit(t *testing.T) {
	f := newFixture()
	svc := f.service()
	ctx := context.Background()

	t.Run("pending job", func(t *testing.T) {
		job := f.addJob(t, "u1", "cancel-me", at(time.Hour))

		require.NoError(t, svc.CancelCommit(ctx, job.ID, "u1"))

		stored := f.job(t, job.ID)
		assert.Equal(t, domain.JobStatusFailed, stored.Status())
		assert.Equal(t, "Cancelled by user", stored.ErrorMessage())
	})

	t.Run("completed job is a conflict and stays completed", func(t *testing.T) {
		job := f.addJob(t, "u1", "done", at(time.Hour))
		job.State = domain.Completed{At: testNow}
		require.NoError(t, f.jobs.Update(ctx, job))

		err := svc.CancelCommit(ctx, job.ID, "u1")

		assert.True(t, cerrors.Is(err, domain.ErrConflict))
		assert.Equal(t, domain.JobStatusCompleted, f.job(t, job.ID).Status())
	})

	t.Run("someone else's job", func(t *testing.T) {
		job := f.addJob(t, "u1", "mine", at(time.Hour))

		err := svc.CancelCommit(ctx, job.ID, "u2")

		assert.True(t, cerrors.Is(err, domain.ErrNotFound))
		assert.True(t, f.job(t, job.ID).IsPending())
	})

	t.Run("unknown job", func(t *testing.T) {
		assert.True(t, cerrors.Is(svc.CancelCommit(ctx, "missing", "u1"), domain.ErrNotFound))
	})
}

func TestCancelBulkSchedule(t *testing.T) {
	f := newFixture()
	svc := f.service()
	ctx := context.Background()

	res, err := svc.ScheduleBulkCommits(ctx, weekdayRequest())
	require.NoError(t, err)

	done := f.job(t, res.Jobs[0].ID)
	require.NoError(t, done.Complete(testNow))
	require.NoError(t, f.jobs.Update(ctx, done))

	assert.True(t, cerrors.Is(svc.CancelBulkSchedule(ctx, res.Schedule.ID, "u2"), domain.ErrNotFound))

	require.NoError(t, svc.CancelBulkSchedule(ctx, res.Schedule.ID, "u1"))

	stored, err := f.schedules.GetByID(ctx, res.Schedule.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ScheduleStatusCancelled, stored.Status)

	assert.Equal(t, domain.JobStatusCompleted, f.job(t, res.Jobs[0].ID).Status())
	for _, j := range res.Jobs[1:] {
		assert.Equal(t, "Cancelled by user", f.job(t, j.ID).ErrorMessage())
	}

	assert.True(t, cerrors.Is(svc.CancelBulkSchedule(ctx, res.Schedule.ID, "u1"), domain.ErrConflict))
}

func TestGetUserBulkSchedulesAndCommits(t *testing.T) {
	f := newFixture()
	svc := f.service()
	ctx := context.Background()

	_, err := svc.ScheduleBulkCommits(ctx, weekdayRequest())
	require.NoError(t, err)
	f.addJob(t, "u2", "other", nil)

	schedules, err := svc.GetUserBulkSchedules(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, schedules, 1)

	commits, err := svc.GetUserCommits(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, commits, 5)
	assert.True(t, commits[0].TargetTime.After(commits[4].TargetTime))
}

func TestCleanupPendingCommits(t *testing.T) {
	f := newFixture()
	svc := f.service()
	ctx := context.Background()

	res, err := svc.ScheduleBulkCommits(ctx, weekdayRequest())
	require.NoError(t, err)
	kept := f.job(t, res.Jobs[0].ID)
	require.NoError(t, kept.Fail("boom", testNow))
	require.NoError(t, f.jobs.Update(ctx, kept))
	other := f.addJob(t, "u2", "not mine", at(time.Hour))

	out, err := svc.CleanupPendingCommits(ctx, "u1")
	require.NoError(t, err)

	assert.Equal(t, &CleanupResult{DeletedCount: 4, CancelledSchedules: 1}, out)
	assert.Equal(t, domain.JobStatusFailed, f.job(t, kept.ID).Status())
	assert.True(t, f.job(t, other.ID).IsPending())
}

func TestRetryCommit(t *testing.T) {
	f := newFixture()
	svc := f.service()
	ctx := context.Background()

	failed := f.addJob(t, "u1", "flaky", at(-time.Hour))
	require.NoError(t, failed.Fail("timeout", testNow))
	require.NoError(t, f.jobs.Update(ctx, failed))

	retry, err := svc.RetryCommit(ctx, failed.ID, "u1")
	require.NoError(t, err)

	assert.NotEqual(t, failed.ID, retry.ID)
	assert.Equal(t, failed.ID, retry.RetryOf)
	assert.Equal(t, testNow, *retry.ScheduledTime)
	assert.Equal(t, failed.TargetTime, retry.TargetTime)
	assert.Equal(t, "timeout", f.job(t, failed.ID).ErrorMessage())

	_, err = svc.RetryCommit(ctx, retry.ID, "u1")
	assert.True(t, cerrors.Is(err, domain.ErrConflict))

	_, err = svc.RetryCommit(ctx, failed.ID, "u2")
	assert.True(t, cerrors.Is(err, domain.ErrNotFound))
}

func TestSuggestedFilePathsIsACopy(t *testing.T) {
	svc := newFixture().service()

	paths := svc.SuggestedFilePaths()
	require.Len(t, paths, 13)
	paths[0] = "changed"

	assert.Equal(t, "README.md", svc.SuggestedFilePaths()[0])
}

func TestCancelledJobIsNotExecutedByNextTick(t *testing.T) {
	f := newFixture()
	svc := f.service()
	ctx := context.Background()
	job := f.addJob(t, "u1", "never", at(-time.Minute))

	require.NoError(t, svc.CancelCommit(ctx, job.ID, "u1"))
	RunTick(ctx, testNow, f.tickDeps())

	assert.Empty(t, f.exec.calls)
}
