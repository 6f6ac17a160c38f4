package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"streakd/commons/error_handler"
	"streakd/commons/handler"
	"streakd/internal/domain"
	"streakd/internal/dto"
	"streakd/internal/logger"
	"streakd/internal/service"
)

type BulkScheduleHandler struct {
	commits *service.CommitService
	logger  logger.Logger
}

func NewBulkScheduleHandler(commits *service.CommitService, log logger.Logger) *BulkScheduleHandler {
	return &BulkScheduleHandler{
		commits: commits,
		logger:  log.With(logger.String("component", "bulk_schedule_handler")),
	}
}

// parseDate accepts YYYY-MM-DD, read as midnight in loc, or a full RFC 3339
// timestamp kept in its own offset
func parseDate(field, value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("%s is required", field)
	}
	if t, err := time.ParseInLocation(dto.DateLayout, value, loc); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s must be a date (YYYY-MM-DD)", field)
	}
	return t, nil
}

func (h *BulkScheduleHandler) CreateBulkScheduleService(
	ctx context.Context,
	ioutil *handler.RequestIo[dto.CreateBulkScheduleRequest],
) (dto.CreateBulkScheduleResponse, *error_handler.ErrorCollection) {
	log := h.logger.WithContext(ctx)
	body := ioutil.Body

	start, err := parseDate("start_date", body.StartDate, time.UTC)
	if err != nil {
		return dto.CreateBulkScheduleResponse{}, validationError(err.Error())
	}
	end, err := parseDate("end_date", body.EndDate, start.Location())
	if err != nil {
		return dto.CreateBulkScheduleResponse{}, validationError(err.Error())
	}

	res, err := h.commits.ScheduleBulkCommits(ctx, service.BulkRequest{
		UserID:        ioutil.UserID(),
		Repository:    body.Repository,
		RepositoryURL: body.RepositoryURL,
		StartDate:     start,
		EndDate:       end,
		TimeWindow: domain.TimeWindow{
			Start: body.TimeWindow.Start,
			End:   body.TimeWindow.End,
			Times: body.TimeWindow.Times,
		},
		MessageTemplates: body.MessageTemplates,
		Files:            body.Files,
		Frequency:        domain.Frequency(body.Frequency),
		CustomDays:       body.CustomDays,
		DateFilter:       body.DateFilter,
	})
	if err != nil {
		return dto.CreateBulkScheduleResponse{}, toErrorCollection(log, "failed to schedule bulk commits", err)
	}

	return dto.CreateBulkScheduleResponse{
		Schedule:       dto.NewBulkScheduleResponse(res.Schedule),
		Commits:        dto.NewCommitJobResponses(res.Jobs),
		TotalScheduled: res.TotalScheduled,
	}, nil
}

func (h *BulkScheduleHandler) ListBulkSchedulesService(
	ctx context.Context,
	ioutil *handler.RequestIo[dto.EmptyRequest],
) (dto.ListBulkSchedulesResponse, *error_handler.ErrorCollection) {
	log := h.logger.WithContext(ctx)

	schedules, err := h.commits.GetUserBulkSchedules(ctx, ioutil.UserID())
	if err != nil {
		return dto.ListBulkSchedulesResponse{}, toErrorCollection(log, "failed to list bulk schedules", err)
	}

	out := make([]dto.BulkScheduleResponse, 0, len(schedules))
	for _, s := range schedules {
		out = append(out, dto.NewBulkScheduleResponse(s))
	}
	return dto.ListBulkSchedulesResponse{Schedules: out, Count: len(out)}, nil
}

func (h *BulkScheduleHandler) CancelBulkScheduleService(
	ctx context.Context,
	ioutil *handler.RequestIo[dto.EmptyRequest],
) (dto.CancelBulkScheduleResponse, *error_handler.ErrorCollection) {
	log := h.logger.WithContext(ctx)
	scheduleID := ioutil.PathParams["id"]
	if scheduleID == "" {
		return dto.CancelBulkScheduleResponse{}, validationError("bulk schedule id is required")
	}

	if err := h.commits.CancelBulkSchedule(ctx, scheduleID, ioutil.UserID()); err != nil {
		return dto.CancelBulkScheduleResponse{}, toErrorCollection(log, "failed to cancel bulk schedule", err)
	}
	return dto.CancelBulkScheduleResponse{ScheduleID: scheduleID, Message: "Bulk schedule cancelled"}, nil
}
