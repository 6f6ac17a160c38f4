package service

import (
	"context"
	"fmt"

	"streakd/internal/domain"
	"streakd/internal/executor"
	"streakd/internal/logger"
	"streakd/internal/notify"
	"streakd/internal/repository"
	repositoryIface "streakd/internal/repository/iface"
)

const (
	reasonUserNotFound  = "User not found"
	reasonTokenNotFound = "User access token not found"
)

// runOutcome describes what happened to one job. Store failures are returned as
// errors instead and leave the job untouched.
type runOutcome struct {
	Job    *domain.CommitJob
	Result *executor.Result
	// Skipped means another worker claimed or changed the job first
	Skipped bool
	// Prerequisite means the job failed before the executor ran
	Prerequisite bool
	// Err is the failure recorded on the job
	Err error
}

// jobRunner executes one pending job and records its outcome. Both the tick and
// the direct trigger go through it.
type jobRunner struct {
	jobs     repositoryIface.CommitJobRepository
	users    repositoryIface.UserRepository
	executor executor.CommitExecutor
	notifier notify.Notifier
	clock    Clock
	logger   logger.Logger
}

func (r *jobRunner) run(ctx context.Context, job *domain.CommitJob) (runOutcome, error) {
	log := r.logger.With(
		logger.String("job_id", job.ID),
		logger.String("user_id", job.UserID),
		logger.String("repository", job.Repository))

	user, err := r.users.GetByID(ctx, job.UserID)
	if err != nil {
		if !repository.IsNotFoundError(err) {
			return runOutcome{Job: job}, fmt.Errorf("failed to load user %s: %w", job.UserID, err)
		}
		log.Warn("owner of commit job not found")
		return r.failPrerequisite(ctx, job, domain.NotFoundf("%s", reasonUserNotFound))
	}
	if user.AccessToken == "" {
		log.Warn("owner of commit job has no access token")
		return r.failPrerequisite(ctx, job, domain.Authf("%s", reasonTokenNotFound))
	}

	if err := job.MarkProcessing(r.clock.Now()); err != nil {
		return runOutcome{Job: job, Skipped: true}, nil
	}
	if err := r.jobs.Update(ctx, job); err != nil {
		if repository.IsOptimisticLockError(err) {
			log.Info("commit job claimed elsewhere, skipping")
			return runOutcome{Job: job, Skipped: true}, nil
		}
		return runOutcome{Job: job}, fmt.Errorf("failed to claim commit job %s: %w", job.ID, err)
	}

	log.Info("executing commit job",
		logger.String("file_path", job.FilePath),
		logger.Time("target_time", job.TargetTime))

	result, execErr := r.execute(ctx, job, user.AccessToken)

	// the outcome must land even when the caller gave up during execution
	storeCtx := context.WithoutCancel(ctx)
	now := r.clock.Now()
	if execErr != nil {
		log.Error("commit job failed",
			logger.String("kind", domain.ErrorKind(execErr)),
			logger.Error(execErr))
		_ = job.Fail(execErr.Error(), now)
	} else {
		log.Info("commit job completed", logger.String("commit_hash", result.CommitHash))
		_ = job.Complete(now)
	}

	if err := r.jobs.Update(storeCtx, job); err != nil {
		if repository.IsOptimisticLockError(err) {
			// a cancel landed while the executor was running; the stored state wins
			log.Warn("commit job changed during execution, outcome not recorded",
				logger.String("outcome", string(job.Status())))
			return runOutcome{Job: job, Result: result, Skipped: true, Err: execErr}, nil
		}
		return runOutcome{Job: job, Result: result, Err: execErr},
			fmt.Errorf("failed to record outcome of commit job %s: %w", job.ID, err)
	}

	r.publish(storeCtx, job, result)
	return runOutcome{Job: job, Result: result, Err: execErr}, nil
}

// execute converts a panicking executor into a recorded failure
func (r *jobRunner) execute(ctx context.Context, job *domain.CommitJob, token string) (result *executor.Result, err error) {
	defer func() {
		if p := recover(); p != nil {
			result = nil
			err = fmt.Errorf("commit executor panicked: %v", p)
		}
	}()
	return r.executor.Execute(ctx, executor.Request{
		RepoURL:     job.RepositoryURL,
		FilePath:    job.FilePath,
		Message:     job.Message,
		Timestamp:   job.TargetTime,
		Content:     job.Content,
		AccessToken: token,
	})
}

func (r *jobRunner) failPrerequisite(ctx context.Context, job *domain.CommitJob, cause error) (runOutcome, error) {
	if err := job.Fail(cause.Error(), r.clock.Now()); err != nil {
		return runOutcome{Job: job, Skipped: true}, nil
	}
	ctx = context.WithoutCancel(ctx)
	if err := r.jobs.Update(ctx, job); err != nil {
		if repository.IsOptimisticLockError(err) {
			return runOutcome{Job: job, Skipped: true}, nil
		}
		return runOutcome{Job: job}, fmt.Errorf("failed to record failure of commit job %s: %w", job.ID, err)
	}
	r.publish(ctx, job, nil)
	return runOutcome{Job: job, Prerequisite: true, Err: cause}, nil
}

func (r *jobRunner) publish(ctx context.Context, job *domain.CommitJob, result *executor.Result) {
	if r.notifier == nil {
		return
	}
	hash := ""
	if result != nil {
		hash = result.CommitHash
	}
	ev, ok := notify.EventFor(job, hash)
	if !ok {
		return
	}
	if err := r.notifier.Notify(ctx, ev); err != nil {
		r.logger.Warn("failed to deliver commit event",
			logger.String("job_id", job.ID),
			logger.Error(err))
	}
}
