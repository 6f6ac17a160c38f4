package dynamodb

import (
	"time"

	"streakd/internal/domain"
)

// dueKeyPending is the only partition of the sparse due_index. The attribute is written
// for pending scheduled jobs and removed once they leave pending.
const dueKeyPending = "pending"

type commitJobRecord struct {
	JobID          string `dynamodbav:"job_id"`
	UserID         string `dynamodbav:"user_id"`
	Repository     string `dynamodbav:"repository"`
	RepositoryURL  string `dynamodbav:"repository_url"`
	FilePath       string `dynamodbav:"file_path"`
	Message        string `dynamodbav:"message"`
	TargetTime     int64  `dynamodbav:"target_time"`
	TargetOffset   int    `dynamodbav:"target_tz_offset,omitempty"`
	Content        string `dynamodbav:"content,omitempty"`
	IsScheduled    bool   `dynamodbav:"is_scheduled"`
	ScheduledTime  *int64 `dynamodbav:"scheduled_time,omitempty"`
	DueKey         string `dynamodbav:"due_key,omitempty"`
	Status         string `dynamodbav:"status"`
	ErrorMessage   string `dynamodbav:"error_message,omitempty"`
	ProcessedAt    *int64 `dynamodbav:"processed_at,omitempty"`
	FinishedAt     *int64 `dynamodbav:"finished_at,omitempty"`
	BulkScheduleID string `dynamodbav:"bulk_schedule_id,omitempty"`
	RetryOf        string `dynamodbav:"retry_of,omitempty"`
	CreatedAt      int64  `dynamodbav:"created_at"`
	UpdatedAt      int64  `dynamodbav:"updated_at"`
	Version        int64  `dynamodbav:"version"`
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// zoneOffset is the target time's offset from UTC in seconds; git signatures carry it
func zoneOffset(t time.Time) int {
	_, offset := t.Zone()
	return offset
}

func fromMillisAt(ms int64, offset int) time.Time {
	if offset == 0 {
		return fromMillis(ms)
	}
	return time.UnixMilli(ms).In(time.FixedZone("", offset))
}

func optMillis(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	ms := t.UnixMilli()
	return &ms
}

func optTime(ms *int64) *time.Time {
	if ms == nil {
		return nil
	}
	t := fromMillis(*ms)
	return &t
}

func newCommitJobRecord(job *domain.CommitJob) commitJobRecord {
	rec := commitJobRecord{
		JobID:          job.ID,
		UserID:         job.UserID,
		Repository:     job.Repository,
		RepositoryURL:  job.RepositoryURL,
		FilePath:       job.FilePath,
		Message:        job.Message,
		TargetTime:     toMillis(job.TargetTime),
		TargetOffset:   zoneOffset(job.TargetTime),
		Content:        job.Content,
		IsScheduled:    job.IsScheduled(),
		ScheduledTime:  optMillis(job.ScheduledTime),
		Status:         string(job.Status()),
		ErrorMessage:   job.ErrorMessage(),
		ProcessedAt:    optMillis(job.ProcessedAt),
		BulkScheduleID: job.BulkScheduleID,
		RetryOf:        job.RetryOf,
		CreatedAt:      toMillis(job.CreatedAt),
		UpdatedAt:      toMillis(job.UpdatedAt),
		Version:        job.Version,
	}
	if job.IsPending() && job.IsScheduled() {
		rec.DueKey = dueKeyPending
	}
	switch s := job.State.(type) {
	case domain.Completed:
		rec.FinishedAt = optMillis(&s.At)
	case domain.Failed:
		rec.FinishedAt = optMillis(&s.At)
	}
	return rec
}

func (rec commitJobRecord) toDomain() (*domain.CommitJob, error) {
	var finished time.Time
	if rec.FinishedAt != nil {
		finished = fromMillis(*rec.FinishedAt)
	}
	state, err := domain.RestoreJobState(domain.JobStatus(rec.Status), rec.ErrorMessage, finished)
	if err != nil {
		return nil, err
	}
	return &domain.CommitJob{
		ID:             rec.JobID,
		UserID:         rec.UserID,
		Repository:     rec.Repository,
		RepositoryURL:  rec.RepositoryURL,
		FilePath:       rec.FilePath,
		Message:        rec.Message,
		TargetTime:     fromMillisAt(rec.TargetTime, rec.TargetOffset),
		Content:        rec.Content,
		ScheduledTime:  optTime(rec.ScheduledTime),
		State:          state,
		ProcessedAt:    optTime(rec.ProcessedAt),
		BulkScheduleID: rec.BulkScheduleID,
		RetryOf:        rec.RetryOf,
		CreatedAt:      fromMillis(rec.CreatedAt),
		UpdatedAt:      fromMillis(rec.UpdatedAt),
		Version:        rec.Version,
	}, nil
}

type bulkScheduleRecord struct {
	ScheduleID       string            `dynamodbav:"schedule_id"`
	UserID           string            `dynamodbav:"user_id"`
	Repository       string            `dynamodbav:"repository"`
	RepositoryURL    string            `dynamodbav:"repository_url"`
	StartDate        int64             `dynamodbav:"start_date"`
	EndDate          int64             `dynamodbav:"end_date"`
	DateOffset       int               `dynamodbav:"date_tz_offset,omitempty"`
	TimeWindow       domain.TimeWindow `dynamodbav:"time_window"`
	MessageTemplates []string          `dynamodbav:"message_templates"`
	Files            []string          `dynamodbav:"files"`
	Frequency        string            `dynamodbav:"frequency"`
	CustomDays       []int             `dynamodbav:"custom_days,omitempty"`
	DateFilter       string            `dynamodbav:"date_filter,omitempty"`
	Status           string            `dynamodbav:"status"`
	Commits          []string          `dynamodbav:"commits"`
	CreatedAt        int64             `dynamodbav:"created_at"`
	UpdatedAt        int64             `dynamodbav:"updated_at"`
	Version          int64             `dynamodbav:"version"`
}

func newBulkScheduleRecord(s *domain.BulkSchedule) bulkScheduleRecord {
	commits := s.Commits
	if commits == nil {
		commits = []string{}
	}
	return bulkScheduleRecord{
		ScheduleID:       s.ID,
		UserID:           s.UserID,
		Repository:       s.Repository,
		RepositoryURL:    s.RepositoryURL,
		StartDate:        toMillis(s.StartDate),
		EndDate:          toMillis(s.EndDate),
		DateOffset:       zoneOffset(s.StartDate),
		TimeWindow:       s.TimeWindow,
		MessageTemplates: s.MessageTemplates,
		Files:            s.Files,
		Frequency:        string(s.Frequency),
		CustomDays:       s.CustomDays,
		DateFilter:       s.DateFilter,
		Status:           string(s.Status),
		Commits:          commits,
		CreatedAt:        toMillis(s.CreatedAt),
		UpdatedAt:        toMillis(s.UpdatedAt),
		Version:          s.Version,
	}
}

func (rec bulkScheduleRecord) toDomain() *domain.BulkSchedule {
	commits := rec.Commits
	if commits == nil {
		commits = []string{}
	}
	return &domain.BulkSchedule{
		ID:               rec.ScheduleID,
		UserID:           rec.UserID,
		Repository:       rec.Repository,
		RepositoryURL:    rec.RepositoryURL,
		StartDate:        fromMillisAt(rec.StartDate, rec.DateOffset),
		EndDate:          fromMillisAt(rec.EndDate, rec.DateOffset),
		TimeWindow:       rec.TimeWindow,
		MessageTemplates: rec.MessageTemplates,
		Files:            rec.Files,
		Frequency:        domain.Frequency(rec.Frequency),
		CustomDays:       rec.CustomDays,
		DateFilter:       rec.DateFilter,
		Status:           domain.ScheduleStatus(rec.Status),
		Commits:          commits,
		CreatedAt:        fromMillis(rec.CreatedAt),
		UpdatedAt:        fromMillis(rec.UpdatedAt),
		Version:          rec.Version,
	}
}
