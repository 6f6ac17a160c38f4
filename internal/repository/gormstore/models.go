package gormstore

import (
	"time"

	"streakd/internal/domain"
)

type commitJobModel struct {
	ID             string     `gorm:"column:id;primaryKey;size:36"`
	UserID         string     `gorm:"column:user_id;index;not null"`
	Repository     string     `gorm:"column:repository;not null"`
	RepositoryURL  string     `gorm:"column:repository_url;not null"`
	FilePath       string     `gorm:"column:file_path;not null"`
	Message        string     `gorm:"column:message;type:text;not null"`
	TargetTime     time.Time  `gorm:"column:target_time;index"`
	TargetOffset   int        `gorm:"column:target_tz_offset;not null;default:0"`
	Content        string     `gorm:"column:content;type:text"`
	ScheduledTime  *time.Time `gorm:"column:scheduled_time;index"`
	Status         string     `gorm:"column:status;size:20;index;not null"`
	ErrorMessage   string     `gorm:"column:error_message;type:text"`
	ProcessedAt    *time.Time `gorm:"column:processed_at"`
	FinishedAt     *time.Time `gorm:"column:finished_at"`
	BulkScheduleID string     `gorm:"column:bulk_schedule_id;index"`
	RetryOf        string     `gorm:"column:retry_of"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime:false"`
	UpdatedAt      time.Time  `gorm:"column:updated_at;autoUpdateTime:false"`
	Version        int64      `gorm:"column:version;not null"`
}

func (commitJobModel) TableName() string { return "commit_jobs" }

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func targetOffset(t time.Time) int {
	_, offset := t.Zone()
	return offset
}

// inOffset restores the zone offset the target time was scheduled in
func inOffset(t time.Time, offset int) time.Time {
	if offset == 0 {
		return t.UTC()
	}
	return t.In(time.FixedZone("", offset))
}

func newCommitJobModel(job *domain.CommitJob) *commitJobModel {
	m := &commitJobModel{
		ID:             job.ID,
		UserID:         job.UserID,
		Repository:     job.Repository,
		RepositoryURL:  job.RepositoryURL,
		FilePath:       job.FilePath,
		Message:        job.Message,
		TargetTime:     job.TargetTime.UTC(),
		TargetOffset:   targetOffset(job.TargetTime),
		Content:        job.Content,
		ScheduledTime:  utcPtr(job.ScheduledTime),
		Status:         string(job.Status()),
		ErrorMessage:   job.ErrorMessage(),
		ProcessedAt:    utcPtr(job.ProcessedAt),
		BulkScheduleID: job.BulkScheduleID,
		RetryOf:        job.RetryOf,
		CreatedAt:      job.CreatedAt.UTC(),
		UpdatedAt:      job.UpdatedAt.UTC(),
		Version:        job.Version,
	}
	switch s := job.State.(type) {
	case domain.Completed:
		m.FinishedAt = utcPtr(&s.At)
	case domain.Failed:
		m.FinishedAt = utcPtr(&s.At)
	}
	return m
}

func (m *commitJobModel) toDomain() (*domain.CommitJob, error) {
	var finished time.Time
	if m.FinishedAt != nil {
		finished = m.FinishedAt.UTC()
	}
	state, err := domain.RestoreJobState(domain.JobStatus(m.Status), m.ErrorMessage, finished)
	if err != nil {
		return nil, err
	}
	return &domain.CommitJob{
		ID:             m.ID,
		UserID:         m.UserID,
		Repository:     m.Repository,
		RepositoryURL:  m.RepositoryURL,
		FilePath:       m.FilePath,
		Message:        m.Message,
		TargetTime:     inOffset(m.TargetTime, m.TargetOffset),
		Content:        m.Content,
		ScheduledTime:  utcPtr(m.ScheduledTime),
		State:          state,
		ProcessedAt:    utcPtr(m.ProcessedAt),
		BulkScheduleID: m.BulkScheduleID,
		RetryOf:        m.RetryOf,
		CreatedAt:      m.CreatedAt.UTC(),
		UpdatedAt:      m.UpdatedAt.UTC(),
		Version:        m.Version,
	}, nil
}

type bulkScheduleModel struct {
	ID               string            `gorm:"column:id;primaryKey;size:36"`
	UserID           string            `gorm:"column:user_id;index;not null"`
	Repository       string            `gorm:"column:repository;not null"`
	RepositoryURL    string            `gorm:"column:repository_url;not null"`
	StartDate        time.Time         `gorm:"column:start_date"`
	EndDate          time.Time         `gorm:"column:end_date"`
	DateOffset       int               `gorm:"column:date_tz_offset;not null;default:0"`
	TimeWindow       domain.TimeWindow `gorm:"column:time_window;serializer:json"`
	MessageTemplates []string          `gorm:"column:message_templates;serializer:json"`
	Files            []string          `gorm:"column:files;serializer:json"`
	Frequency        string            `gorm:"column:frequency;size:20"`
	CustomDays       []int             `gorm:"column:custom_days;serializer:json"`
	DateFilter       string            `gorm:"column:date_filter;type:text"`
	Status           string            `gorm:"column:status;size:20;index"`
	Commits          []string          `gorm:"column:commits;serializer:json"`
	CreatedAt        time.Time         `gorm:"column:created_at;autoCreateTime:false"`
	UpdatedAt        time.Time         `gorm:"column:updated_at;autoUpdateTime:false"`
	Version          int64             `gorm:"column:version;not null;default:1"`
}

func (bulkScheduleModel) TableName() string { return "bulk_schedules" }

func newBulkScheduleModel(s *domain.BulkSchedule) *bulkScheduleModel {
	return &bulkScheduleModel{
		ID:               s.ID,
		UserID:           s.UserID,
		Repository:       s.Repository,
		RepositoryURL:    s.RepositoryURL,
		StartDate:        s.StartDate.UTC(),
		EndDate:          s.EndDate.UTC(),
		DateOffset:       targetOffset(s.StartDate),
		TimeWindow:       s.TimeWindow,
		MessageTemplates: s.MessageTemplates,
		Files:            s.Files,
		Frequency:        string(s.Frequency),
		CustomDays:       s.CustomDays,
		DateFilter:       s.DateFilter,
		Status:           string(s.Status),
		Commits:          s.Commits,
		CreatedAt:        s.CreatedAt.UTC(),
		UpdatedAt:        s.UpdatedAt.UTC(),
		Version:          s.Version,
	}
}

func (m *bulkScheduleModel) toDomain() *domain.BulkSchedule {
	commits := m.Commits
	if commits == nil {
		commits = []string{}
	}
	return &domain.BulkSchedule{
		ID:               m.ID,
		UserID:           m.UserID,
		Repository:       m.Repository,
		RepositoryURL:    m.RepositoryURL,
		StartDate:        inOffset(m.StartDate, m.DateOffset),
		EndDate:          inOffset(m.EndDate, m.DateOffset),
		TimeWindow:       m.TimeWindow,
		MessageTemplates: m.MessageTemplates,
		Files:            m.Files,
		Frequency:        domain.Frequency(m.Frequency),
		CustomDays:       m.CustomDays,
		DateFilter:       m.DateFilter,
		Status:           domain.ScheduleStatus(m.Status),
		Commits:          commits,
		CreatedAt:        m.CreatedAt.UTC(),
		UpdatedAt:        m.UpdatedAt.UTC(),
		Version:          m.Version,
	}
}

type userModel struct {
	ID          string `gorm:"column:user_id;primaryKey"`
	Login       string `gorm:"column:login"`
	AccessToken string `gorm:"column:access_token"`
}

func (userModel) TableName() string { return "users" }
