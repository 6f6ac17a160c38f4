package domain

import (
	"time"

	"github.com/google/uuid"
)

type ScheduleStatus string

const (
	ScheduleStatusActive    ScheduleStatus = "active"
	ScheduleStatusCompleted ScheduleStatus = "completed"
	ScheduleStatusCancelled ScheduleStatus = "cancelled"
)

type Frequency string

const (
	FrequencyDaily    Frequency = "daily"
	FrequencyWeekdays Frequency = "weekdays"
	FrequencyWeekends Frequency = "weekends"
	FrequencyCustom   Frequency = "custom"
)

func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekdays, FrequencyWeekends, FrequencyCustom:
		return true
	}
	return false
}

// TimeWindow is either a Start/End "HH:MM" range or an explicit list of candidate
// times. Times wins when both are set.
type TimeWindow struct {
	Start string   `json:"start,omitempty" dynamodbav:"start,omitempty"`
	End   string   `json:"end,omitempty" dynamodbav:"end,omitempty"`
	Times []string `json:"times,omitempty" dynamodbav:"times,omitempty"`
}

func (w TimeWindow) HasTimes() bool {
	return len(w.Times) > 0
}

func (w TimeWindow) HasRange() bool {
	return w.Start != "" && w.End != ""
}

// BulkSchedule groups the jobs generated from one date-range request.
type BulkSchedule struct {
	ID               string
	UserID           string
	Repository       string
	RepositoryURL    string
	StartDate        time.Time
	EndDate          time.Time
	TimeWindow       TimeWindow
	MessageTemplates []string
	Files            []string
	Frequency        Frequency
	CustomDays       []int
	DateFilter       string
	Status           ScheduleStatus
	// Commits is fixed once the schedule's jobs have been created.
	Commits   []string
	CreatedAt time.Time
	UpdatedAt time.Time
	// Version guards updates; repositories reject a write carrying a stale value.
	Version int64
}

type NewBulkScheduleParams struct {
	UserID           string
	Repository       string
	RepositoryURL    string
	StartDate        time.Time
	EndDate          time.Time
	TimeWindow       TimeWindow
	MessageTemplates []string
	Files            []string
	Frequency        Frequency
	CustomDays       []int
	DateFilter       string
}

func NewBulkSchedule(p NewBulkScheduleParams, now time.Time) *BulkSchedule {
	return &BulkSchedule{
		ID:               uuid.New().String(),
		UserID:           p.UserID,
		Repository:       p.Repository,
		RepositoryURL:    p.RepositoryURL,
		StartDate:        p.StartDate,
		EndDate:          p.EndDate,
		TimeWindow:       p.TimeWindow,
		MessageTemplates: p.MessageTemplates,
		Files:            p.Files,
		Frequency:        p.Frequency,
		CustomDays:       p.CustomDays,
		DateFilter:       p.DateFilter,
		Status:           ScheduleStatusActive,
		Commits:          []string{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func (s *BulkSchedule) IsActive() bool {
	return s.Status == ScheduleStatusActive
}

func (s *BulkSchedule) OwnedBy(userID string) bool {
	return userID != "" && s.UserID == userID
}

func (s *BulkSchedule) Complete(now time.Time) error {
	if !s.IsActive() {
		return Conflictf("bulk schedule %s is already %s", s.ID, s.Status)
	}
	s.Status = ScheduleStatusCompleted
	s.UpdatedAt = now
	return nil
}

func (s *BulkSchedule) Cancel(now time.Time) error {
	if !s.IsActive() {
		return Conflictf("bulk schedule %s is already %s", s.ID, s.Status)
	}
	s.Status = ScheduleStatusCancelled
	s.UpdatedAt = now
	return nil
}

func (s *BulkSchedule) Clone() *BulkSchedule {
	c := *s
	c.TimeWindow.Times = append([]string(nil), s.TimeWindow.Times...)
	c.MessageTemplates = append([]string(nil), s.MessageTemplates...)
	c.Files = append([]string(nil), s.Files...)
	c.CustomDays = append([]int(nil), s.CustomDays...)
	c.Commits = append([]string{}, s.Commits...)
	return &c
}
