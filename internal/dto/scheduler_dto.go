package dto

import "streakd/internal/service"

type SchedulerStatusResponse struct {
	Running bool `json:"running"`
	Enabled bool `json:"enabled"`
}

func NewSchedulerStatusResponse(s service.SchedulerStatus) SchedulerStatusResponse {
	return SchedulerStatusResponse{Running: s.Running, Enabled: s.Enabled}
}

// TickResponse summarises one manual pass over the due jobs
type TickResponse struct {
	Candidates         int  `json:"candidates"`
	Due                int  `json:"due"`
	Completed          int  `json:"completed"`
	Failed             int  `json:"failed"`
	Skipped            int  `json:"skipped"`
	Errors             int  `json:"errors"`
	SchedulesCompleted int  `json:"schedules_completed"`
	LeaseDenied        bool `json:"lease_denied"`
}

func NewTickResponse(r service.TickReport) TickResponse {
	return TickResponse{
		Candidates:         r.Candidates,
		Due:                r.Due,
		Completed:          r.Completed,
		Failed:             r.Failed,
		Skipped:            r.Skipped,
		Errors:             r.Errors,
		SchedulesCompleted: r.SchedulesCompleted,
		LeaseDenied:        r.LeaseDenied,
	}
}

type ProcessCommitResponse struct {
	JobID   string `json:"job_id"`
	Success bool   `json:"success"`
	Message string `json:"message"`
}
