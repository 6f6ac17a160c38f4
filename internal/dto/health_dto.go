package dto

// HealthCheckResponse represents response for health check
type HealthCheckResponse struct {
	Status    string                  `json:"status"`
	Service   string                  `json:"service"`
	Scheduler SchedulerStatusResponse `json:"scheduler"`
}
