package handler

import (
	"context"

	"streakd/commons/error_handler"
	"streakd/commons/handler"
	"streakd/internal/dto"
	"streakd/internal/logger"
	"streakd/internal/service"
)

// ClusterSwitch publishes the enabled flag to every instance
type ClusterSwitch interface {
	Set(enabled bool) error
}

type SchedulerHandler struct {
	scheduler service.IScheduler
	// cluster is nil when the flag is local to this process
	cluster ClusterSwitch
	logger  logger.Logger
}

func NewSchedulerHandler(scheduler service.IScheduler, cluster ClusterSwitch, log logger.Logger) *SchedulerHandler {
	return &SchedulerHandler{
		scheduler: scheduler,
		cluster:   cluster,
		logger:    log.With(logger.String("component", "scheduler_handler")),
	}
}

func (h *SchedulerHandler) StatusService(
	ctx context.Context,
	ioutil *handler.RequestIo[dto.EmptyRequest],
) (dto.SchedulerStatusResponse, *error_handler.ErrorCollection) {
	return dto.NewSchedulerStatusResponse(h.scheduler.Status()), nil
}

func (h *SchedulerHandler) EnableService(
	ctx context.Context,
	ioutil *handler.RequestIo[dto.EmptyRequest],
) (dto.SchedulerStatusResponse, *error_handler.ErrorCollection) {
	return h.setEnabled(ctx, true)
}

func (h *SchedulerHandler) DisableService(
	ctx context.Context,
	ioutil *handler.RequestIo[dto.EmptyRequest],
) (dto.SchedulerStatusResponse, *error_handler.ErrorCollection) {
	return h.setEnabled(ctx, false)
}

func (h *SchedulerHandler) setEnabled(ctx context.Context, enabled bool) (dto.SchedulerStatusResponse, *error_handler.ErrorCollection) {
	log := h.logger.WithContext(ctx)
	log.Info("scheduler toggle requested", logger.Bool("enabled", enabled))

	if h.cluster != nil {
		if err := h.cluster.Set(enabled); err != nil {
			return dto.SchedulerStatusResponse{}, toErrorCollection(log, "failed to publish scheduler toggle", err)
		}
		return dto.NewSchedulerStatusResponse(h.scheduler.Status()), nil
	}

	if enabled {
		if err := h.scheduler.Enable(); err != nil {
			return dto.SchedulerStatusResponse{}, toErrorCollection(log, "failed to enable scheduler", err)
		}
	} else {
		h.scheduler.Disable()
	}
	return dto.NewSchedulerStatusResponse(h.scheduler.Status()), nil
}

// TickService runs one pass over the due jobs now, regardless of the cron
func (h *SchedulerHandler) TickService(
	ctx context.Context,
	ioutil *handler.RequestIo[dto.EmptyRequest],
) (dto.TickResponse, *error_handler.ErrorCollection) {
	report := h.scheduler.ProcessScheduledCommits(ctx)
	h.logger.WithContext(ctx).Info("manual tick finished",
		logger.Int("due", report.Due),
		logger.Int("completed", report.Completed),
		logger.Int("failed", report.Failed))
	return dto.NewTickResponse(report), nil
}

// ProcessCommitService runs a single job by id. A job that cannot be processed
// is reported with success=false rather than as an error.
func (h *SchedulerHandler) ProcessCommitService(
	ctx context.Context,
	ioutil *handler.RequestIo[dto.EmptyRequest],
) (dto.ProcessCommitResponse, *error_handler.ErrorCollection) {
	jobID := ioutil.PathParams["id"]
	if jobID == "" {
		return dto.ProcessCommitResponse{}, validationError("commit id is required")
	}

	result := h.scheduler.ProcessCommitByID(ctx, jobID)
	return dto.ProcessCommitResponse{
		JobID:   jobID,
		Success: result.Success,
		Message: result.Message,
	}, nil
}
