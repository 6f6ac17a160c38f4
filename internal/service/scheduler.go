package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"streakd/internal/domain"
	"streakd/internal/executor"
	"streakd/internal/logger"
	"streakd/internal/notify"
	"streakd/internal/repository"
	repositoryIface "streakd/internal/repository/iface"
)

type SchedulerConfig struct {
	Enabled   bool
	BatchSize int
	DueOffset time.Duration
}

// ProcessResult is the outcome of a direct trigger
type ProcessResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	// Retryable is set when the job was left pending by a store error
	Retryable bool `json:"-"`
}

type SchedulerStatus struct {
	Running bool `json:"running"`
	Enabled bool `json:"enabled"`
}

type IScheduler interface {
	Start(ctx context.Context) error
	Shutdown(ctx context.Context) error
	Init() error
	Stop()
	Enable() error
	Disable()
	IsRunning() bool
	IsEnabled() bool
	Status() SchedulerStatus
	ProcessScheduledCommits(ctx context.Context) TickReport
	ProcessCommitByID(ctx context.Context, jobID string) ProcessResult
}

// Scheduler owns the periodic loop that executes due commit jobs
type Scheduler struct {
	jobs      repositoryIface.CommitJobRepository
	schedules repositoryIface.BulkScheduleRepository
	users     repositoryIface.UserRepository
	executor  executor.CommitExecutor
	notifier  notify.Notifier
	ticker    Ticker
	lease     TickLease
	clock     Clock
	config    SchedulerConfig
	logger    logger.Logger

	mu      sync.Mutex
	enabled bool
	running bool

	// tickCtx is cancelled on Shutdown so a running tick stops between jobs
	tickCtx    context.Context
	cancelTick context.CancelFunc
}

type SchedulerDeps struct {
	Jobs      repositoryIface.CommitJobRepository
	Schedules repositoryIface.BulkScheduleRepository
	Users     repositoryIface.UserRepository
	Executor  executor.CommitExecutor
	Notifier  notify.Notifier
	Ticker    Ticker
	Lease     TickLease
	Clock     Clock
}

// NewScheduler creates a stopped scheduler
func NewScheduler(deps SchedulerDeps, cfg SchedulerConfig, log logger.Logger) *Scheduler {
	if deps.Clock == nil {
		deps.Clock = SystemClock{}
	}
	if deps.Lease == nil {
		deps.Lease = NewLocalLease()
	}
	if deps.Notifier == nil {
		deps.Notifier = notify.NewNopNotifier()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		jobs:       deps.Jobs,
		schedules:  deps.Schedules,
		users:      deps.Users,
		executor:   deps.Executor,
		notifier:   deps.Notifier,
		ticker:     deps.Ticker,
		lease:      deps.Lease,
		clock:      deps.Clock,
		config:     cfg,
		logger:     log.With(logger.String("component", "scheduler")),
		enabled:    cfg.Enabled,
		tickCtx:    ctx,
		cancelTick: cancel,
	}
}

// Start registers the loop when the scheduler is enabled
func (s *Scheduler) Start(ctx context.Context) error {
	if !s.IsEnabled() {
		s.logger.Info("scheduler disabled by configuration, not starting")
		return nil
	}
	return s.Init()
}

// Shutdown stops the loop and waits for an in-flight tick
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.cancelTick()

	s.mu.Lock()
	done := s.stopLocked()
	s.mu.Unlock()

	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return fmt.Errorf("timed out waiting for running tick: %w", ctx.Err())
	}
}

// Init registers the periodic tick. It is a no-op when already running.
func (s *Scheduler) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}
	if err := s.ticker.Start(s.onTick); err != nil {
		return fmt.Errorf("failed to start scheduler ticker: %w", err)
	}
	s.running = true
	s.logger.Info("scheduler started",
		logger.Int("batch_size", s.config.BatchSize),
		logger.Duration("due_offset", s.config.DueOffset))
	return nil
}

// Stop cancels the periodic tick. It is a no-op when already stopped.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Scheduler) stopLocked() context.Context {
	if !s.running {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		return ctx
	}
	s.running = false
	s.logger.Info("scheduler stopped")
	return s.ticker.Stop()
}

func (s *Scheduler) Enable() error {
	s.mu.Lock()
	s.enabled = true
	s.mu.Unlock()
	return s.Init()
}

func (s *Scheduler) Disable() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = false
	s.stopLocked()
}

func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) IsEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

func (s *Scheduler) Status() SchedulerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SchedulerStatus{Running: s.running, Enabled: s.enabled}
}

func (s *Scheduler) onTick() {
	if !s.IsEnabled() {
		return
	}
	s.ProcessScheduledCommits(s.tickCtx)
}

// ProcessScheduledCommits runs one tick now. It never fails; problems are logged
// and reflected in the report.
func (s *Scheduler) ProcessScheduledCommits(ctx context.Context) TickReport {
	release, ok, err := s.lease.Acquire(ctx)
	if err != nil {
		// claims still guard each job, so run without the lease
		s.logger.Warn("tick lease unavailable, running unguarded", logger.Error(err))
	} else if !ok {
		s.logger.Debug("tick lease held by another instance, skipping tick")
		return TickReport{LeaseDenied: true}
	}
	defer release()

	return RunTick(ctx, s.clock.Now(), TickDeps{
		Jobs:      s.jobs,
		Schedules: s.schedules,
		Users:     s.users,
		Executor:  s.executor,
		Notifier:  s.notifier,
		Due:       DuePredicate{Offset: s.config.DueOffset},
		BatchSize: s.config.BatchSize,
		Clock:     s.clock,
		Logger:    s.logger,
	})
}

// ProcessCommitByID runs one pending job immediately regardless of its scheduled time
func (s *Scheduler) ProcessCommitByID(ctx context.Context, jobID string) ProcessResult {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		if repository.IsNotFoundError(err) {
			return ProcessResult{Success: false, Message: "Commit not found"}
		}
		return ProcessResult{Success: false, Message: "Error processing commit: " + err.Error(), Retryable: true}
	}
	if !job.IsPending() {
		return ProcessResult{Success: false, Message: fmt.Sprintf("Commit is already %s", job.Status())}
	}

	runner := &jobRunner{
		jobs:     s.jobs,
		users:    s.users,
		executor: s.executor,
		notifier: s.notifier,
		clock:    s.clock,
		logger:   s.logger,
	}
	outcome, err := runner.run(ctx, job)
	switch {
	case err != nil:
		return ProcessResult{Success: false, Message: "Error processing commit: " + err.Error(), Retryable: true}
	case outcome.Skipped:
		return ProcessResult{Success: false, Message: "Commit is already being processed"}
	case outcome.Prerequisite:
		return ProcessResult{Success: false, Message: outcome.Err.Error()}
	case outcome.Err != nil:
		return ProcessResult{Success: false, Message: "Error processing commit: " + outcome.Err.Error()}
	}

	s.rollup(ctx, job)
	return ProcessResult{Success: true, Message: "Commit processed successfully"}
}

// rollup completes the job's schedule when a direct trigger finished its last job
func (s *Scheduler) rollup(ctx context.Context, job *domain.CommitJob) {
	if job.BulkScheduleID == "" || s.schedules == nil {
		return
	}
	schedule, err := s.schedules.GetByID(ctx, job.BulkScheduleID)
	if err != nil || !schedule.IsActive() || len(schedule.Commits) == 0 {
		return
	}
	pending, err := s.jobs.CountPending(ctx, schedule.Commits)
	if err != nil || pending > 0 {
		return
	}
	if err := schedule.Complete(s.clock.Now()); err != nil {
		return
	}
	if err := s.schedules.Update(ctx, schedule); err != nil {
		if repository.IsOptimisticLockError(err) {
			s.logger.Info("bulk schedule changed concurrently, left for the next tick",
				logger.String("schedule_id", schedule.ID))
			return
		}
		s.logger.Warn("failed to complete bulk schedule",
			logger.String("schedule_id", schedule.ID),
			logger.Error(err))
	}
}
