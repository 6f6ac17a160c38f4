package service

import (
	"context"
	"strings"
	"time"

	"streakd/internal/domain"
	"streakd/internal/executor"
	"streakd/internal/logger"
	"streakd/internal/notify"
	"streakd/internal/repository"
	repositoryIface "streakd/internal/repository/iface"

	"github.com/cockroachdb/errors"
)

type ScheduleCommitRequest struct {
	UserID        string
	Repository    string
	RepositoryURL string
	FilePath      string
	Message       string
	// TargetTime is the backdate written into the commit
	TargetTime time.Time
	// RunAt is when the scheduler should execute it; now when nil
	RunAt   *time.Time
	Content string
}

type ExecutionResult struct {
	Job    *domain.CommitJob `json:"job"`
	Result *executor.Result  `json:"result,omitempty"`
}

type CleanupResult struct {
	DeletedCount       int `json:"deleted_count"`
	CancelledSchedules int `json:"cancelled_schedules"`
}

// CommitService is the job-control surface used by the HTTP API and the CLI
type CommitService struct {
	jobs      repositoryIface.CommitJobRepository
	schedules repositoryIface.BulkScheduleRepository
	users     repositoryIface.UserRepository
	executor  executor.CommitExecutor
	notifier  notify.Notifier
	bulk      *BulkOrchestrator
	clock     Clock
	logger    logger.Logger
}

type CommitServiceDeps struct {
	Jobs      repositoryIface.CommitJobRepository
	Schedules repositoryIface.BulkScheduleRepository
	Users     repositoryIface.UserRepository
	Executor  executor.CommitExecutor
	Notifier  notify.Notifier
	Bulk      *BulkOrchestrator
	Clock     Clock
}

func NewCommitService(deps CommitServiceDeps, log logger.Logger) *CommitService {
	if deps.Clock == nil {
		deps.Clock = SystemClock{}
	}
	if deps.Notifier == nil {
		deps.Notifier = notify.NewNopNotifier()
	}
	if deps.Bulk == nil {
		deps.Bulk = NewBulkOrchestrator(deps.Jobs, deps.Schedules, nil, deps.Clock, log)
	}
	return &CommitService{
		jobs:      deps.Jobs,
		schedules: deps.Schedules,
		users:     deps.Users,
		executor:  deps.Executor,
		notifier:  deps.Notifier,
		bulk:      deps.Bulk,
		clock:     deps.Clock,
		logger:    log.With(logger.String("component", "commit_service")),
	}
}

func validateCommitRequest(req ScheduleCommitRequest) error {
	var missing []string
	if strings.TrimSpace(req.UserID) == "" {
		missing = append(missing, "user id")
	}
	if strings.TrimSpace(req.Repository) == "" {
		missing = append(missing, "repository")
	}
	if strings.TrimSpace(req.FilePath) == "" {
		missing = append(missing, "file path")
	}
	if strings.TrimSpace(req.Message) == "" {
		missing = append(missing, "commit message")
	}
	if req.TargetTime.IsZero() {
		missing = append(missing, "target time")
	}
	if len(missing) > 0 {
		return domain.Validationf("missing required fields: %s", strings.Join(missing, ", "))
	}
	return nil
}

func newJobFromRequest(req ScheduleCommitRequest, scheduled *time.Time, now time.Time) *domain.CommitJob {
	repoURL := req.RepositoryURL
	if repoURL == "" {
		repoURL = req.Repository
	}
	return domain.NewCommitJob(domain.NewCommitJobParams{
		UserID:        req.UserID,
		Repository:    req.Repository,
		RepositoryURL: repoURL,
		FilePath:      req.FilePath,
		Message:       req.Message,
		TargetTime:    req.TargetTime,
		Content:       req.Content,
		ScheduledTime: scheduled,
	}, now)
}

// ScheduleCommit stores a pending job for the scheduler loop
func (s *CommitService) ScheduleCommit(ctx context.Context, req ScheduleCommitRequest) (*domain.CommitJob, error) {
	if err := validateCommitRequest(req); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	runAt := now
	if req.RunAt != nil {
		runAt = *req.RunAt
	}

	job := newJobFromRequest(req, &runAt, now)
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, err
	}

	s.logger.Info("commit scheduled",
		logger.String("job_id", job.ID),
		logger.String("user_id", job.UserID),
		logger.Time("run_at", runAt),
		logger.Time("target_time", job.TargetTime))
	return job, nil
}

// CreateImmediateCommit records an unscheduled job and executes it synchronously.
// The executor's error is returned after the failure has been recorded on the job.
func (s *CommitService) CreateImmediateCommit(ctx context.Context, req ScheduleCommitRequest) (*ExecutionResult, error) {
	if err := validateCommitRequest(req); err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, req.UserID)
	if err != nil {
		if repository.IsNotFoundError(err) {
			return nil, domain.Authf("user %s not found", req.UserID)
		}
		return nil, err
	}
	if user.AccessToken == "" {
		return nil, domain.Authf("access token not available")
	}

	job := newJobFromRequest(req, nil, s.clock.Now())
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, err
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
	if err != nil {
		return nil, err
	}
	res := &ExecutionResult{Job: outcome.Job, Result: outcome.Result}
	if outcome.Err != nil {
		return res, outcome.Err
	}
	return res, nil
}

func (s *CommitService) ScheduleBulkCommits(ctx context.Context, req BulkRequest) (*BulkResult, error) {
	return s.bulk.ScheduleBulkCommits(ctx, req)
}

// CancelCommit fails a pending job owned by userID with the cancel reason
func (s *CommitService) CancelCommit(ctx context.Context, jobID, userID string) error {
	job, err := s.ownedJob(ctx, jobID, userID)
	if err != nil {
		return err
	}
	if err := job.Cancel(s.clock.Now()); err != nil {
		return err
	}
	if err := s.jobs.Update(ctx, job); err != nil {
		if repository.IsOptimisticLockError(err) {
			return domain.Conflictf("commit %s changed while cancelling", jobID)
		}
		return err
	}
	s.logger.Info("commit cancelled", logger.String("job_id", jobID), logger.String("user_id", userID))
	return nil
}

// CancelBulkSchedule cancels the schedule and every job of it still pending
func (s *CommitService) CancelBulkSchedule(ctx context.Context, scheduleID, userID string) error {
	schedule, err := s.schedules.GetByID(ctx, scheduleID)
	if err != nil {
		if repository.IsNotFoundError(err) {
			return domain.NotFoundf("bulk schedule %s not found", scheduleID)
		}
		return err
	}
	if !schedule.OwnedBy(userID) {
		return domain.NotFoundf("bulk schedule %s not found", scheduleID)
	}
	schedule, err = mutateSchedule(ctx, s.schedules, schedule, func(cur *domain.BulkSchedule) error {
		return cur.Cancel(s.clock.Now())
	})
	if err != nil {
		if repository.IsOptimisticLockError(err) {
			return domain.Conflictf("bulk schedule %s changed while cancelling", scheduleID)
		}
		return err
	}

	cancelled := 0
	for _, id := range schedule.Commits {
		if s.cancelIfPending(ctx, id) {
			cancelled++
		}
	}

	s.logger.Info("bulk schedule cancelled",
		logger.String("schedule_id", scheduleID),
		logger.Int("jobs_cancelled", cancelled))
	return nil
}

func (s *CommitService) cancelIfPending(ctx context.Context, jobID string) bool {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		if !repository.IsNotFoundError(err) {
			s.logger.Warn("failed to load job of cancelled schedule",
				logger.String("job_id", jobID),
				logger.Error(err))
		}
		return false
	}
	if job.Cancel(s.clock.Now()) != nil {
		return false
	}
	if err := s.jobs.Update(ctx, job); err != nil {
		// a tick claimed it; the running attempt decides its outcome
		s.logger.Warn("failed to cancel job of cancelled schedule",
			logger.String("job_id", jobID),
			logger.Error(err))
		return false
	}
	return true
}

func (s *CommitService) GetUserBulkSchedules(ctx context.Context, userID string) ([]*domain.BulkSchedule, error) {
	return s.schedules.ListByUser(ctx, userID)
}

// GetUserCommits returns the user's jobs, newest target time first
func (s *CommitService) GetUserCommits(ctx context.Context, userID string) ([]*domain.CommitJob, error) {
	return s.jobs.ListByUser(ctx, userID)
}

// CleanupPendingCommits deletes the user's pending jobs and cancels their active schedules
func (s *CommitService) CleanupPendingCommits(ctx context.Context, userID string) (*CleanupResult, error) {
	deleted, err := s.jobs.DeletePendingByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	schedules, err := s.schedules.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	cancelled := 0
	for _, schedule := range schedules {
		if !schedule.IsActive() {
			continue
		}
		_, err := mutateSchedule(ctx, s.schedules, schedule, func(cur *domain.BulkSchedule) error {
			return cur.Cancel(s.clock.Now())
		})
		if err != nil {
			if errors.Is(err, domain.ErrConflict) || repository.IsOptimisticLockError(err) {
				// closed by someone else in the meantime
				continue
			}
			return nil, err
		}
		cancelled++
	}

	s.logger.Info("pending commits cleaned up",
		logger.String("user_id", userID),
		logger.Int("deleted", deleted),
		logger.Int("schedules_cancelled", cancelled))
	return &CleanupResult{DeletedCount: deleted, CancelledSchedules: cancelled}, nil
}

// RetryCommit schedules a new job copying a failed one. The failed job is left as is.
func (s *CommitService) RetryCommit(ctx context.Context, jobID, userID string) (*domain.CommitJob, error) {
	original, err := s.ownedJob(ctx, jobID, userID)
	if err != nil {
		return nil, err
	}
	if original.Status() != domain.JobStatusFailed {
		return nil, domain.Conflictf("only failed commits can be retried; commit %s is %s", jobID, original.Status())
	}

	now := s.clock.Now()
	retry := domain.NewCommitJob(domain.NewCommitJobParams{
		UserID:        original.UserID,
		Repository:    original.Repository,
		RepositoryURL: original.RepositoryURL,
		FilePath:      original.FilePath,
		Message:       original.Message,
		TargetTime:    original.TargetTime,
		Content:       original.Content,
		ScheduledTime: &now,
		RetryOf:       original.ID,
	}, now)
	if err := s.jobs.Create(ctx, retry); err != nil {
		return nil, err
	}

	s.logger.Info("commit retry scheduled",
		logger.String("job_id", retry.ID),
		logger.String("retry_of", original.ID))
	return retry, nil
}

func (s *CommitService) SuggestedFilePaths() []string {
	return append([]string(nil), SuggestedFilePaths...)
}

func (s *CommitService) ownedJob(ctx context.Context, jobID, userID string) (*domain.CommitJob, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		if repository.IsNotFoundError(err) {
			return nil, domain.NotFoundf("commit %s not found", jobID)
		}
		return nil, err
	}
	if !job.OwnedBy(userID) {
		return nil, domain.NotFoundf("commit %s not found", jobID)
	}
	return job, nil
}
