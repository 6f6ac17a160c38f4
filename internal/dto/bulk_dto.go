package dto

import (
	"time"

	"streakd/internal/domain"
)

type TimeWindowDto struct {
	Start string   `json:"start,omitempty"`
	End   string   `json:"end,omitempty"`
	Times []string `json:"times,omitempty"`
}

// CreateBulkScheduleRequest takes calendar dates as YYYY-MM-DD
type CreateBulkScheduleRequest struct {
	Repository       string        `json:"repository"`
	RepositoryURL    string        `json:"repository_url,omitempty"`
	StartDate        string        `json:"start_date"`
	EndDate          string        `json:"end_date"`
	TimeWindow       TimeWindowDto `json:"time_window"`
	MessageTemplates []string      `json:"message_templates"`
	Files            []string      `json:"files"`
	Frequency        string        `json:"frequency"`
	CustomDays       []int         `json:"custom_days,omitempty"`
	DateFilter       string        `json:"date_filter,omitempty"`
}

type BulkScheduleResponse struct {
	ScheduleID       string        `json:"schedule_id"`
	UserID           string        `json:"user_id"`
	Repository       string        `json:"repository"`
	RepositoryURL    string        `json:"repository_url"`
	StartDate        string        `json:"start_date"`
	EndDate          string        `json:"end_date"`
	TimeWindow       TimeWindowDto `json:"time_window"`
	MessageTemplates []string      `json:"message_templates"`
	Files            []string      `json:"files"`
	Frequency        string        `json:"frequency"`
	CustomDays       []int         `json:"custom_days,omitempty"`
	DateFilter       string        `json:"date_filter,omitempty"`
	Status           string        `json:"status"`
	Commits          []string      `json:"commits"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

func NewBulkScheduleResponse(s *domain.BulkSchedule) BulkScheduleResponse {
	return BulkScheduleResponse{
		ScheduleID:    s.ID,
		UserID:        s.UserID,
		Repository:    s.Repository,
		RepositoryURL: s.RepositoryURL,
		StartDate:     s.StartDate.Format(DateLayout),
		EndDate:       s.EndDate.Format(DateLayout),
		TimeWindow: TimeWindowDto{
			Start: s.TimeWindow.Start,
			End:   s.TimeWindow.End,
			Times: s.TimeWindow.Times,
		},
		MessageTemplates: s.MessageTemplates,
		Files:            s.Files,
		Frequency:        string(s.Frequency),
		CustomDays:       s.CustomDays,
		DateFilter:       s.DateFilter,
		Status:           string(s.Status),
		Commits:          s.Commits,
		CreatedAt:        s.CreatedAt.UTC(),
		UpdatedAt:        s.UpdatedAt.UTC(),
	}
}

type CreateBulkScheduleResponse struct {
	Schedule       BulkScheduleResponse `json:"schedule"`
	Commits        []CommitJobResponse  `json:"commits"`
	TotalScheduled int                  `json:"total_scheduled"`
}

type ListBulkSchedulesResponse struct {
	Schedules []BulkScheduleResponse `json:"schedules"`
	Count     int                    `json:"count"`
}

type CancelBulkScheduleResponse struct {
	ScheduleID string `json:"schedule_id"`
	Message    string `json:"message"`
}
