package service

import (
	"context"
	"strings"
	"time"

	"streakd/internal/datetime"
	"streakd/internal/domain"
	"streakd/internal/logger"
	"streakd/internal/repository"
	repositoryIface "streakd/internal/repository/iface"

	"github.com/cockroachdb/errors"
)

// scheduleUpdateAttempts bounds the reload-and-reapply loop of mutateSchedule
const scheduleUpdateAttempts = 3

var errScheduleClosed = errors.New("bulk schedule is no longer active")

type BulkRequest struct {
	UserID           string
	Repository       string
	RepositoryURL    string
	StartDate        time.Time
	EndDate          time.Time
	TimeWindow       domain.TimeWindow
	MessageTemplates []string
	Files            []string
	Frequency        domain.Frequency
	CustomDays       []int
	// DateFilter is an optional expression evaluated per generated date
	DateFilter string
}

type BulkResult struct {
	Schedule       *domain.BulkSchedule
	Jobs           []*domain.CommitJob
	TotalScheduled int
}

// BulkOrchestrator expands a date-range request into a schedule and its jobs
type BulkOrchestrator struct {
	jobs      repositoryIface.CommitJobRepository
	schedules repositoryIface.BulkScheduleRepository
	rand      datetime.Rand
	clock     Clock
	logger    logger.Logger
}

// NewBulkOrchestrator uses the process-wide random source when r is nil
func NewBulkOrchestrator(
	jobs repositoryIface.CommitJobRepository,
	schedules repositoryIface.BulkScheduleRepository,
	r datetime.Rand,
	clock Clock,
	log logger.Logger,
) *BulkOrchestrator {
	if r == nil {
		r = globalRand{}
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &BulkOrchestrator{
		jobs:      jobs,
		schedules: schedules,
		rand:      r,
		clock:     clock,
		logger:    log.With(logger.String("component", "bulk_orchestrator")),
	}
}

// ScheduleBulkCommits validates req, then persists the schedule followed by one job
// per generated date. Any failure while creating jobs rolls back everything
// created so far. If the schedule is cancelled before its jobs are attached, the
// jobs are cancelled too and a conflict is returned.
func (o *BulkOrchestrator) ScheduleBulkCommits(ctx context.Context, req BulkRequest) (*BulkResult, error) {
	dates, err := o.plan(req)
	if err != nil {
		return nil, err
	}
	req.MessageTemplates = nonBlank(req.MessageTemplates)
	req.Files = nonBlank(req.Files)

	now := o.clock.Now()
	repoURL := req.RepositoryURL
	if repoURL == "" {
		repoURL = req.Repository
	}

	schedule := domain.NewBulkSchedule(domain.NewBulkScheduleParams{
		UserID:           req.UserID,
		Repository:       req.Repository,
		RepositoryURL:    repoURL,
		StartDate:        req.StartDate,
		EndDate:          req.EndDate,
		TimeWindow:       req.TimeWindow,
		MessageTemplates: req.MessageTemplates,
		Files:            req.Files,
		Frequency:        req.Frequency,
		CustomDays:       req.CustomDays,
		DateFilter:       req.DateFilter,
	}, now)

	log := o.logger.With(
		logger.String("schedule_id", schedule.ID),
		logger.String("user_id", req.UserID),
		logger.String("repository", req.Repository))

	if err := o.schedules.Create(ctx, schedule); err != nil {
		return nil, err
	}

	jobs := make([]*domain.CommitJob, 0, len(dates))
	for _, date := range dates {
		at, err := o.pickTime(date, req.TimeWindow)
		if err != nil {
			o.rollback(ctx, schedule, jobs, log)
			return nil, err
		}

		job := domain.NewCommitJob(domain.NewCommitJobParams{
			UserID:         req.UserID,
			Repository:     req.Repository,
			RepositoryURL:  repoURL,
			FilePath:       pick(o.rand, req.Files),
			Message:        RenderMessage(pick(o.rand, req.MessageTemplates), date, o.rand),
			TargetTime:     at,
			ScheduledTime:  &at,
			BulkScheduleID: schedule.ID,
		}, now)

		if err := o.jobs.Create(ctx, job); err != nil {
			log.Error("failed to create bulk commit job, rolling back",
				logger.Int("created", len(jobs)),
				logger.Error(err))
			o.rollback(ctx, schedule, jobs, log)
			return nil, err
		}
		jobs = append(jobs, job)
	}

	ids := make([]string, len(jobs))
	for i, j := range jobs {
		ids[i] = j.ID
	}
	attached, err := mutateSchedule(ctx, o.schedules, schedule, func(cur *domain.BulkSchedule) error {
		if !cur.IsActive() {
			return errScheduleClosed
		}
		cur.Commits = ids
		cur.UpdatedAt = o.clock.Now()
		return nil
	})
	switch {
	case errors.Is(err, errScheduleClosed):
		log.Warn("bulk schedule closed while its jobs were being created, cancelling them",
			logger.String("status", string(attached.Status)),
			logger.Int("jobs", len(jobs)))
		o.abandon(ctx, attached, jobs, log)
		return nil, domain.Conflictf("bulk schedule %s was %s while its commits were being created",
			schedule.ID, attached.Status)
	case err != nil:
		log.Error("failed to attach jobs to bulk schedule, rolling back", logger.Error(err))
		o.rollback(ctx, schedule, jobs, log)
		return nil, err
	}
	schedule = attached

	log.Info("bulk schedule created", logger.Int("jobs", len(jobs)))
	return &BulkResult{Schedule: schedule, Jobs: jobs, TotalScheduled: len(jobs)}, nil
}

// plan validates req and returns the dates to schedule
func (o *BulkOrchestrator) plan(req BulkRequest) ([]time.Time, error) {
	if strings.TrimSpace(req.UserID) == "" {
		return nil, domain.Validationf("user id is required")
	}
	if strings.TrimSpace(req.Repository) == "" {
		return nil, domain.Validationf("repository is required")
	}
	if len(nonBlank(req.MessageTemplates)) == 0 {
		return nil, domain.Validationf("at least one message template is required")
	}
	if len(nonBlank(req.Files)) == 0 {
		return nil, domain.Validationf("at least one file path is required")
	}
	if !req.Frequency.Valid() {
		return nil, domain.Validationf("unknown frequency %q", req.Frequency)
	}
	if req.Frequency == domain.FrequencyCustom {
		if len(req.CustomDays) == 0 {
			return nil, domain.Validationf("custom frequency needs at least one weekday")
		}
		for _, d := range req.CustomDays {
			if d < 0 || d > 6 {
				return nil, domain.Validationf("weekday %d out of range 0-6", d)
			}
		}
	}
	if req.StartDate.IsZero() || req.EndDate.IsZero() {
		return nil, domain.Validationf("start and end dates are required")
	}
	if req.EndDate.Before(req.StartDate) {
		return nil, domain.Validationf("end date is before start date")
	}
	if err := validateWindow(req.TimeWindow); err != nil {
		return nil, err
	}

	filter, err := datetime.CompileDateFilter(req.DateFilter)
	if err != nil {
		return nil, err
	}

	dates := datetime.GenerateCommitDates(req.StartDate, req.EndDate, req.Frequency, req.CustomDays)
	dates, err = filter.Apply(dates)
	if err != nil {
		return nil, err
	}
	if len(dates) == 0 {
		return nil, domain.Validationf("no valid dates for given criteria")
	}
	return dates, nil
}

func validateWindow(w domain.TimeWindow) error {
	if w.HasTimes() {
		for _, t := range w.Times {
			if _, _, _, err := datetime.ParseClock(t); err != nil {
				return err
			}
		}
		return nil
	}
	if (w.Start == "") != (w.End == "") {
		return domain.Validationf("time window needs both start and end")
	}
	if w.HasRange() {
		for _, t := range []string{w.Start, w.End} {
			if _, _, _, err := datetime.ParseClock(t); err != nil {
				return err
			}
		}
	}
	return nil
}

// pickTime prefers the explicit list, then the range, then noon
func (o *BulkOrchestrator) pickTime(date time.Time, w domain.TimeWindow) (time.Time, error) {
	switch {
	case w.HasTimes():
		return datetime.PickTimeFromList(o.rand, date, w.Times)
	case w.HasRange():
		return datetime.PickTimeInRange(o.rand, date, w.Start, w.End)
	default:
		return datetime.Noon(date), nil
	}
}

func (o *BulkOrchestrator) rollback(ctx context.Context, schedule *domain.BulkSchedule, jobs []*domain.CommitJob, log logger.Logger) {
	// the caller's context may be the reason we are here
	ctx = context.WithoutCancel(ctx)
	for _, j := range jobs {
		if err := o.jobs.Delete(ctx, j.ID); err != nil {
			log.Error("rollback: failed to delete commit job",
				logger.String("job_id", j.ID),
				logger.Error(err))
		}
	}
	if err := o.schedules.Delete(ctx, schedule.ID); err != nil {
		log.Error("rollback: failed to delete bulk schedule", logger.Error(err))
	}
}

// abandon cancels jobs created for a schedule that was closed before they were
// attached, then records them on the closed schedule
func (o *BulkOrchestrator) abandon(ctx context.Context, schedule *domain.BulkSchedule, jobs []*domain.CommitJob, log logger.Logger) {
	ctx = context.WithoutCancel(ctx)
	ids := make([]string, 0, len(jobs))
	for _, j := range jobs {
		ids = append(ids, j.ID)
		if j.Cancel(o.clock.Now()) != nil {
			continue
		}
		if err := o.jobs.Update(ctx, j); err != nil {
			log.Error("failed to cancel job of closed bulk schedule",
				logger.String("job_id", j.ID),
				logger.Error(err))
		}
	}

	schedule.Commits = ids
	schedule.UpdatedAt = o.clock.Now()
	if err := o.schedules.Update(ctx, schedule); err != nil {
		log.Warn("failed to record jobs on closed bulk schedule", logger.Error(err))
	}
}

// mutateSchedule applies fn and writes the schedule back. When another writer
// got there first it reloads the stored schedule and applies fn again. The
// returned schedule is the last one fn saw.
func mutateSchedule(
	ctx context.Context,
	schedules repositoryIface.BulkScheduleRepository,
	schedule *domain.BulkSchedule,
	fn func(*domain.BulkSchedule) error,
) (*domain.BulkSchedule, error) {
	current := schedule
	for attempt := 1; ; attempt++ {
		if err := fn(current); err != nil {
			return current, err
		}
		err := schedules.Update(ctx, current)
		if err == nil {
			return current, nil
		}
		if !repository.IsOptimisticLockError(err) || attempt == scheduleUpdateAttempts {
			return current, err
		}
		reloaded, getErr := schedules.GetByID(ctx, schedule.ID)
		if getErr != nil {
			return current, getErr
		}
		current = reloaded
	}
}

func nonBlank(items []string) []string {
	out := make([]string, 0, len(items))
	for _, s := range items {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}
