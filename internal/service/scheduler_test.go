package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"streakd/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLease struct {
	ok       bool
	err      error
	released int
}

func (l *stubLease) Acquire(context.Context) (func(), bool, error) {
	return func() { l.released++ }, l.ok, l.err
}

func newTestScheduler(f *fixture, enabled bool) (*Scheduler, *fakeTicker) {
	ticker := &fakeTicker{}
	s := NewScheduler(SchedulerDeps{
		Jobs:      f.jobs,
		Schedules: f.schedules,
		Users:     f.users,
		Executor:  f.exec,
		Notifier:  f.notifier,
		Ticker:    ticker,
		Clock:     f.clock,
	}, SchedulerConfig{Enabled: enabled}, f.log)
	return s, ticker
}

func TestSchedulerLifecycle(t *testing.T) {
	f := newFixture()
	s, ticker := newTestScheduler(f, true)
	ctx := context.Background()

	require.NoError(t, s.Start(ctx))
	assert.True(t, s.IsRunning())

	t.Run("init is idempotent", func(t *testing.T) {
		require.NoError(t, s.Init())
		require.NoError(t, s.Enable())
		assert.Equal(t, 1, ticker.starts)
	})

	t.Run("stop is idempotent", func(t *testing.T) {
		s.Stop()
		s.Stop()
		assert.False(t, s.IsRunning())
		assert.Equal(t, 1, ticker.stops)
	})

	t.Run("disable then enable", func(t *testing.T) {
		require.NoError(t, s.Init())
		s.Disable()
		assert.Equal(t, SchedulerStatus{Running: false, Enabled: false}, s.Status())

		require.NoError(t, s.Enable())
		assert.Equal(t, SchedulerStatus{Running: true, Enabled: true}, s.Status())
	})

	require.NoError(t, s.Shutdown(ctx))
	assert.False(t, s.IsRunning())
}

func TestSchedulerStartDisabled(t *testing.T) {
	f := newFixture()
	s, ticker := newTestScheduler(f, false)

	require.NoError(t, s.Start(context.Background()))

	assert.False(t, s.IsRunning())
	assert.Equal(t, 0, ticker.starts)
}

func TestSchedulerTickProcessesDueJobs(t *testing.T) {
	f := newFixture()
	s, ticker := newTestScheduler(f, true)
	require.NoError(t, s.Start(context.Background()))
	job := f.addJob(t, "u1", "tick", at(-time.Minute))

	require.True(t, ticker.Fire())

	assert.Equal(t, domain.JobStatusCompleted, f.job(t, job.ID).Status())
}

func TestSchedulerTickPicksUpJobAfterClockAdvances(t *testing.T) {
	f := newFixture()
	s, ticker := newTestScheduler(f, true)
	require.NoError(t, s.Start(context.Background()))
	job := f.addJob(t, "u1", "soon", at(90*time.Second))

	ticker.Fire()
	assert.True(t, f.job(t, job.ID).IsPending())

	f.clock.Advance(2 * time.Minute)
	ticker.Fire()
	assert.Equal(t, domain.JobStatusCompleted, f.job(t, job.ID).Status())
}

func TestSchedulerDisabledDoesNotTick(t *testing.T) {
	f := newFixture()
	s, ticker := newTestScheduler(f, true)
	require.NoError(t, s.Start(context.Background()))
	f.addJob(t, "u1", "ignored", at(-time.Minute))

	s.Disable()

	assert.False(t, ticker.Fire())
	assert.Empty(t, f.exec.calls)
}

func TestSchedulerRespectsTickLease(t *testing.T) {
	f := newFixture()
	f.addJob(t, "u1", "leased", at(-time.Minute))

	t.Run("denied", func(t *testing.T) {
		lease := &stubLease{ok: false}
		s := NewScheduler(SchedulerDeps{
			Jobs: f.jobs, Schedules: f.schedules, Users: f.users,
			Executor: f.exec, Ticker: &fakeTicker{}, Lease: lease, Clock: f.clock,
		}, SchedulerConfig{Enabled: true}, f.log)

		report := s.ProcessScheduledCommits(context.Background())

		assert.True(t, report.LeaseDenied)
		assert.Empty(t, f.exec.calls)
	})

	t.Run("lease store down runs anyway", func(t *testing.T) {
		lease := &stubLease{err: errors.New("redis down")}
		s := NewScheduler(SchedulerDeps{
			Jobs: f.jobs, Schedules: f.schedules, Users: f.users,
			Executor: f.exec, Ticker: &fakeTicker{}, Lease: lease, Clock: f.clock,
		}, SchedulerConfig{Enabled: true}, f.log)

		report := s.ProcessScheduledCommits(context.Background())

		assert.Equal(t, 1, report.Completed)
		assert.Equal(t, 1, lease.released)
	})
}

func TestProcessCommitByID(t *testing.T) {
	f := newFixture()
	s, _ := newTestScheduler(f, true)
	ctx := context.Background()

	t.Run("unknown id", func(t *testing.T) {
		res := s.ProcessCommitByID(ctx, "nope")
		assert.Equal(t, ProcessResult{Success: false, Message: "Commit not found"}, res)
	})

	t.Run("runs a future job now", func(t *testing.T) {
		job := f.addJob(t, "u1", "manual", at(24*time.Hour))

		res := s.ProcessCommitByID(ctx, job.ID)

		assert.Equal(t, ProcessResult{Success: true, Message: "Commit processed successfully"}, res)
		assert.Equal(t, domain.JobStatusCompleted, f.job(t, job.ID).Status())
	})

	t.Run("rejects a job that is not pending", func(t *testing.T) {
		job := f.addJob(t, "u1", "again", nil)
		require.True(t, s.ProcessCommitByID(ctx, job.ID).Success)

		res := s.ProcessCommitByID(ctx, job.ID)

		assert.Equal(t, ProcessResult{Success: false, Message: "Commit is already completed"}, res)
	})

	t.Run("missing user", func(t *testing.T) {
		job := f.addJob(t, "ghost", "orphan", nil)

		res := s.ProcessCommitByID(ctx, job.ID)

		assert.Equal(t, ProcessResult{Success: false, Message: "User not found"}, res)
		assert.Equal(t, domain.JobStatusFailed, f.job(t, job.ID).Status())
	})

	t.Run("missing token", func(t *testing.T) {
		job := f.addJob(t, "u2", "tokenless", nil)

		res := s.ProcessCommitByID(ctx, job.ID)

		assert.Equal(t, ProcessResult{Success: false, Message: "User access token not found"}, res)
	})

	t.Run("executor failure", func(t *testing.T) {
		job := f.addJob(t, "u1", "broken", nil)
		f.exec.fail["broken"] = errors.New("remote hung up")

		res := s.ProcessCommitByID(ctx, job.ID)

		assert.False(t, res.Success)
		assert.Equal(t, "Error processing commit: remote hung up", res.Message)
		assert.Equal(t, "remote hung up", f.job(t, job.ID).ErrorMessage())
	})
}

func TestProcessCommitByIDCompletesFinishedSchedule(t *testing.T) {
	f := newFixture()
	s, _ := newTestScheduler(f, true)
	ctx := context.Background()

	schedule := domain.NewBulkSchedule(domain.NewBulkScheduleParams{UserID: "u1"}, testNow)
	require.NoError(t, f.schedules.Create(ctx, schedule))

	job := domain.NewCommitJob(domain.NewCommitJobParams{
		UserID: "u1", Repository: "octo/repo", RepositoryURL: "octo/repo",
		FilePath: "README.md", Message: "only", TargetTime: testNow,
		ScheduledTime: at(time.Hour), BulkScheduleID: schedule.ID,
	}, testNow)
	require.NoError(t, f.jobs.Create(ctx, job))
	schedule.Commits = []string{job.ID}
	require.NoError(t, f.schedules.Update(ctx, schedule))

	require.True(t, s.ProcessCommitByID(ctx, job.ID).Success)

	got, err := f.schedules.GetByID(ctx, schedule.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ScheduleStatusCompleted, got.Status)
}
