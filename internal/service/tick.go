package service

import (
	"context"
	"time"

	"streakd/internal/domain"
	"streakd/internal/executor"
	"streakd/internal/logger"
	"streakd/internal/notify"
	"streakd/internal/repository"
	repositoryIface "streakd/internal/repository/iface"
)

const DefaultBatchSize = 20

// DuePredicate decides whether a pending scheduled job should run now. With a zero
// Offset a job is due once its scheduled time has passed in UTC. A positive Offset
// lets jobs fire that much earlier.
type DuePredicate struct {
	Offset time.Duration
}

func (p DuePredicate) IsDue(job *domain.CommitJob, now time.Time) bool {
	if !job.IsPending() || !job.IsScheduled() {
		return false
	}
	return !job.ScheduledTime.After(now.UTC().Add(p.Offset))
}

// TickDeps is everything one tick touches
type TickDeps struct {
	Jobs      repositoryIface.CommitJobRepository
	Schedules repositoryIface.BulkScheduleRepository
	Users     repositoryIface.UserRepository
	Executor  executor.CommitExecutor
	Notifier  notify.Notifier
	Due       DuePredicate
	BatchSize int
	Clock     Clock
	Logger    logger.Logger
}

type TickReport struct {
	Candidates         int
	Due                int
	Completed          int
	Failed             int
	Skipped            int
	Errors             int
	SchedulesCompleted int
	// LeaseDenied is set when another instance held the tick lease
	LeaseDenied bool
}

// RunTick processes the due jobs of one tick, one at a time, and then rolls up
// active bulk schedules. Per-job problems are logged and counted, never returned.
func RunTick(ctx context.Context, now time.Time, deps TickDeps) TickReport {
	log := deps.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}
	clock := deps.Clock
	if clock == nil {
		clock = SystemClock{}
	}
	batch := deps.BatchSize
	if batch <= 0 {
		batch = DefaultBatchSize
	}

	runner := &jobRunner{
		jobs:     deps.Jobs,
		users:    deps.Users,
		executor: deps.Executor,
		notifier: deps.Notifier,
		clock:    clock,
		logger:   log,
	}

	var report TickReport

	candidates, err := deps.Jobs.ListDueCandidates(ctx, batch)
	if err != nil {
		log.Error("failed to list due commit jobs", logger.Error(err))
		report.Errors++
	}
	report.Candidates = len(candidates)

	for _, job := range candidates {
		if ctx.Err() != nil {
			log.Warn("tick cancelled, leaving remaining jobs for the next tick")
			break
		}
		if !deps.Due.IsDue(job, now) {
			continue
		}
		report.Due++

		outcome, err := runner.run(ctx, job)
		switch {
		case err != nil:
			log.Error("failed to process commit job",
				logger.String("job_id", job.ID),
				logger.Error(err))
			report.Errors++
		case outcome.Skipped:
			report.Skipped++
		case outcome.Err != nil:
			report.Failed++
		default:
			report.Completed++
		}
	}

	report.SchedulesCompleted = rollupSchedules(ctx, deps.Jobs, deps.Schedules, clock, log)

	if report.Due > 0 || report.SchedulesCompleted > 0 {
		log.Info("tick finished",
			logger.Int("candidates", report.Candidates),
			logger.Int("due", report.Due),
			logger.Int("completed", report.Completed),
			logger.Int("failed", report.Failed),
			logger.Int("skipped", report.Skipped),
			logger.Int("errors", report.Errors),
			logger.Int("schedules_completed", report.SchedulesCompleted))
	}
	return report
}

// rollupSchedules completes every active schedule with no pending jobs left
func rollupSchedules(
	ctx context.Context,
	jobs repositoryIface.CommitJobRepository,
	schedules repositoryIface.BulkScheduleRepository,
	clock Clock,
	log logger.Logger,
) int {
	if schedules == nil {
		return 0
	}

	active, err := schedules.ListByStatus(ctx, domain.ScheduleStatusActive)
	if err != nil {
		log.Error("failed to list active bulk schedules", logger.Error(err))
		return 0
	}

	completed := 0
	for _, s := range active {
		// still being populated by the orchestrator
		if len(s.Commits) == 0 {
			continue
		}
		pending, err := jobs.CountPending(ctx, s.Commits)
		if err != nil {
			log.Error("failed to count pending jobs of bulk schedule",
				logger.String("schedule_id", s.ID),
				logger.Error(err))
			continue
		}
		if pending > 0 {
			continue
		}
		if err := s.Complete(clock.Now()); err != nil {
			continue
		}
		if err := schedules.Update(ctx, s); err != nil {
			if repository.IsOptimisticLockError(err) {
				log.Info("bulk schedule changed concurrently, left for the next tick",
					logger.String("schedule_id", s.ID))
				continue
			}
			log.Error("failed to complete bulk schedule",
				logger.String("schedule_id", s.ID),
				logger.Error(err))
			continue
		}
		log.Info("bulk schedule completed", logger.String("schedule_id", s.ID))
		completed++
	}
	return completed
}
