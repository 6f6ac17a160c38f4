package handler

import (
	"context"

	"streakd/commons/error_handler"
	"streakd/commons/handler"
	"streakd/internal/dto"
	"streakd/internal/logger"
	"streakd/internal/service"
)

type HealthHandler struct {
	logger      logger.Logger
	serviceName string
	scheduler   service.IScheduler
}

func NewHealthHandler(log logger.Logger, serviceName string, scheduler service.IScheduler) *HealthHandler {
	return &HealthHandler{
		logger:      log.With(logger.String("component", "health_handler")),
		serviceName: serviceName,
		scheduler:   scheduler,
	}
}

func (h *HealthHandler) HealthService(
	ctx context.Context,
	ioutil *handler.RequestIo[dto.EmptyRequest],
) (dto.HealthCheckResponse, *error_handler.ErrorCollection) {
	h.logger.Debug("health check requested")

	return dto.HealthCheckResponse{
		Status:    "healthy",
		Service:   h.serviceName,
		Scheduler: dto.NewSchedulerStatusResponse(h.scheduler.Status()),
	}, nil
}
