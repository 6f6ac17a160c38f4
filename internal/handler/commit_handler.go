package handler

import (
	"context"

	"streakd/commons/error_handler"
	"streakd/commons/handler"
	"streakd/internal/dto"
	"streakd/internal/logger"
	"streakd/internal/service"
)

type CommitHandler struct {
	commits *service.CommitService
	logger  logger.Logger
}

func NewCommitHandler(commits *service.CommitService, log logger.Logger) *CommitHandler {
	return &CommitHandler{
		commits: commits,
		logger:  log.With(logger.String("component", "commit_handler")),
	}
}

func toScheduleCommitRequest(userID string, body dto.ScheduleCommitRequest) service.ScheduleCommitRequest {
	return service.ScheduleCommitRequest{
		UserID:        userID,
		Repository:    body.Repository,
		RepositoryURL: body.RepositoryURL,
		FilePath:      body.FilePath,
		Message:       body.Message,
		TargetTime:    body.TargetTime,
		RunAt:         body.RunAt,
		Content:       body.Content,
	}
}

func (h *CommitHandler) ScheduleCommitService(
	ctx context.Context,
	ioutil *handler.RequestIo[dto.ScheduleCommitRequest],
) (dto.CommitJobResponse, *error_handler.ErrorCollection) {
	log := h.logger.WithContext(ctx)

	job, err := h.commits.ScheduleCommit(ctx, toScheduleCommitRequest(ioutil.UserID(), ioutil.Body))
	if err != nil {
		return dto.CommitJobResponse{}, toErrorCollection(log, "failed to schedule commit", err)
	}
	return dto.NewCommitJobResponse(job), nil
}

// ImmediateCommitService executes the commit inside the request. A failed
// execution still returns the recorded job alongside the error.
func (h *CommitHandler) ImmediateCommitService(
	ctx context.Context,
	ioutil *handler.RequestIo[dto.ScheduleCommitRequest],
) (dto.ImmediateCommitResponse, *error_handler.ErrorCollection) {
	log := h.logger.WithContext(ctx)

	req := toScheduleCommitRequest(ioutil.UserID(), ioutil.Body)
	req.RunAt = nil

	res, err := h.commits.CreateImmediateCommit(ctx, req)

	var out dto.ImmediateCommitResponse
	if res != nil {
		if res.Job != nil {
			job := dto.NewCommitJobResponse(res.Job)
			out.Commit = &job
		}
		if res.Result != nil {
			out.CommitHash = res.Result.CommitHash
			out.Branch = res.Result.Branch
			out.Verified = res.Result.Verified
			out.ForcedAdd = res.Result.ForcedAdd
		}
	}
	if err != nil {
		return out, toErrorCollection(log, "immediate commit failed", err)
	}
	return out, nil
}

func (h *CommitHandler) ListCommitsService(
	ctx context.Context,
	ioutil *handler.RequestIo[dto.EmptyRequest],
) (dto.ListCommitsResponse, *error_handler.ErrorCollection) {
	log := h.logger.WithContext(ctx)

	jobs, err := h.commits.GetUserCommits(ctx, ioutil.UserID())
	if err != nil {
		return dto.ListCommitsResponse{}, toErrorCollection(log, "failed to list commits", err)
	}
	return dto.ListCommitsResponse{
		Commits: dto.NewCommitJobResponses(jobs),
		Count:   len(jobs),
	}, nil
}

func (h *CommitHandler) CancelCommitService(
	ctx context.Context,
	ioutil *handler.RequestIo[dto.EmptyRequest],
) (dto.CancelCommitResponse, *error_handler.ErrorCollection) {
	log := h.logger.WithContext(ctx)
	jobID := ioutil.PathParams["id"]
	if jobID == "" {
		return dto.CancelCommitResponse{}, validationError("commit id is required")
	}

	if err := h.commits.CancelCommit(ctx, jobID, ioutil.UserID()); err != nil {
		return dto.CancelCommitResponse{}, toErrorCollection(log, "failed to cancel commit", err)
	}
	return dto.CancelCommitResponse{JobID: jobID, Message: "Commit cancelled"}, nil
}

func (h *CommitHandler) RetryCommitService(
	ctx context.Context,
	ioutil *handler.RequestIo[dto.EmptyRequest],
) (dto.CommitJobResponse, *error_handler.ErrorCollection) {
	log := h.logger.WithContext(ctx)
	jobID := ioutil.PathParams["id"]
	if jobID == "" {
		return dto.CommitJobResponse{}, validationError("commit id is required")
	}

	retry, err := h.commits.RetryCommit(ctx, jobID, ioutil.UserID())
	if err != nil {
		return dto.CommitJobResponse{}, toErrorCollection(log, "failed to retry commit", err)
	}
	return dto.NewCommitJobResponse(retry), nil
}

func (h *CommitHandler) CleanupPendingService(
	ctx context.Context,
	ioutil *handler.RequestIo[dto.EmptyRequest],
) (dto.CleanupPendingResponse, *error_handler.ErrorCollection) {
	log := h.logger.WithContext(ctx)

	res, err := h.commits.CleanupPendingCommits(ctx, ioutil.UserID())
	if err != nil {
		return dto.CleanupPendingResponse{}, toErrorCollection(log, "failed to clean up pending commits", err)
	}
	return dto.CleanupPendingResponse{
		DeletedCount:       res.DeletedCount,
		CancelledSchedules: res.CancelledSchedules,
	}, nil
}

func (h *CommitHandler) SuggestedFilesService(
	ctx context.Context,
	ioutil *handler.RequestIo[dto.EmptyRequest],
) (dto.SuggestedFilesResponse, *error_handler.ErrorCollection) {
	return dto.SuggestedFilesResponse{Files: h.commits.SuggestedFilePaths()}, nil
}
