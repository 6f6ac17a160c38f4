package dto

import (
	"time"

	"streakd/internal/domain"
)

// ScheduleCommitRequest is shared by the scheduled and immediate commit routes.
// RunAt is ignored for immediate commits.
type ScheduleCommitRequest struct {
	Repository    string     `json:"repository"`
	RepositoryURL string     `json:"repository_url,omitempty"`
	FilePath      string     `json:"file_path"`
	Message       string     `json:"message"`
	TargetTime    time.Time  `json:"target_time"`
	RunAt         *time.Time `json:"run_at,omitempty"`
	Content       string     `json:"content,omitempty"`
}

type CommitJobResponse struct {
	JobID          string     `json:"job_id"`
	UserID         string     `json:"user_id"`
	Repository     string     `json:"repository"`
	RepositoryURL  string     `json:"repository_url"`
	FilePath       string     `json:"file_path"`
	Message        string     `json:"message"`
	TargetTime     time.Time  `json:"target_time"`
	IsScheduled    bool       `json:"is_scheduled"`
	ScheduledTime  *time.Time `json:"scheduled_time,omitempty"`
	Status         string     `json:"status"`
	ErrorMessage   string     `json:"error_message,omitempty"`
	ProcessedAt    *time.Time `json:"processed_at,omitempty"`
	BulkScheduleID string     `json:"bulk_schedule_id,omitempty"`
	RetryOf        string     `json:"retry_of,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func NewCommitJobResponse(job *domain.CommitJob) CommitJobResponse {
	return CommitJobResponse{
		JobID:          job.ID,
		UserID:         job.UserID,
		Repository:     job.Repository,
		RepositoryURL:  job.RepositoryURL,
		FilePath:       job.FilePath,
		Message:        job.Message,
		TargetTime:     job.TargetTime.UTC(),
		IsScheduled:    job.IsScheduled(),
		ScheduledTime:  timePtr(job.ScheduledTime),
		Status:         string(job.Status()),
		ErrorMessage:   job.ErrorMessage(),
		ProcessedAt:    timePtr(job.ProcessedAt),
		BulkScheduleID: job.BulkScheduleID,
		RetryOf:        job.RetryOf,
		CreatedAt:      job.CreatedAt.UTC(),
		UpdatedAt:      job.UpdatedAt.UTC(),
	}
}

func NewCommitJobResponses(jobs []*domain.CommitJob) []CommitJobResponse {
	out := make([]CommitJobResponse, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, NewCommitJobResponse(job))
	}
	return out
}

type ListCommitsResponse struct {
	Commits []CommitJobResponse `json:"commits"`
	Count   int                 `json:"count"`
}

type ImmediateCommitResponse struct {
	Commit     *CommitJobResponse `json:"commit,omitempty"`
	CommitHash string             `json:"commit_hash,omitempty"`
	Branch     string             `json:"branch,omitempty"`
	Verified   bool               `json:"verified"`
	ForcedAdd  bool               `json:"forced_add"`
}

type CancelCommitResponse struct {
	JobID   string `json:"job_id"`
	Message string `json:"message"`
}

type CleanupPendingResponse struct {
	DeletedCount       int `json:"deleted_count"`
	CancelledSchedules int `json:"cancelled_schedules"`
}

type SuggestedFilesResponse struct {
	Files []string `json:"files"`
}
