package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	commonsHandler "streakd/commons/handler"
	"streakd/commons/routes"
	"streakd/internal/domain"
	"streakd/internal/executor"
	"streakd/internal/handler"
	"streakd/internal/logger"
	"streakd/internal/repository/memory"
	internalRoutes "streakd/internal/routes"
	"streakd/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

type fixedClock struct{}

func (fixedClock) Now() time.Time { return testNow }

type stubExecutor struct {
	err error
}

func (s *stubExecutor) Execute(ctx context.Context, req executor.Request) (*executor.Result, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &executor.Result{CommitHash: "abc123", Branch: "main", Verified: true}, nil
}

type stubScheduler struct {
	service.IScheduler
	enabled   bool
	running   bool
	report    service.TickReport
	processed []string
}

func (s *stubScheduler) Enable() error {
	s.enabled, s.running = true, true
	return nil
}

func (s *stubScheduler) Disable() {
	s.enabled, s.running = false, false
}

func (s *stubScheduler) Status() service.SchedulerStatus {
	return service.SchedulerStatus{Running: s.running, Enabled: s.enabled}
}

func (s *stubScheduler) ProcessScheduledCommits(ctx context.Context) service.TickReport {
	return s.report
}

func (s *stubScheduler) ProcessCommitByID(ctx context.Context, jobID string) service.ProcessResult {
	s.processed = append(s.processed, jobID)
	if jobID == "missing" {
		return service.ProcessResult{Success: false, Message: "Commit not found"}
	}
	return service.ProcessResult{Success: true, Message: "Commit processed successfully"}
}

type stubSwitch struct {
	values []bool
}

func (s *stubSwitch) Set(enabled bool) error {
	s.values = append(s.values, enabled)
	return nil
}

type testServer struct {
	router    *gin.Engine
	exec      *stubExecutor
	scheduler *stubScheduler
}

func newTestServer(t *testing.T, cluster handler.ClusterSwitch) *testServer {
	t.Helper()
	log := logger.NewNopLogger()

	jobs := memory.NewCommitJobRepository()
	schedules := memory.NewBulkScheduleRepository()
	users := memory.NewUserRepository(
		domain.User{ID: "u1", Login: "octo", AccessToken: "tok"},
		domain.User{ID: "u2", Login: "tokenless"},
	)
	exec := &stubExecutor{}
	commits := service.NewCommitService(service.CommitServiceDeps{
		Jobs:      jobs,
		Schedules: schedules,
		Users:     users,
		Executor:  exec,
		Clock:     fixedClock{},
	}, log)
	scheduler := &stubScheduler{enabled: true, running: true}

	deps := routes.RouteDependencies{Logger: log}
	router := routes.NewRouter(routes.RouterConfig{ServiceName: "test", Version: "v1", Mode: gin.TestMode}, deps)
	api := routes.CreateAPIGroup(router, "v1")
	internalRoutes.InitHealthRoutes(api, handler.NewHealthHandler(log, "test", scheduler), deps)
	internalRoutes.InitCommitRoutes(api, handler.NewCommitHandler(commits, log), deps)
	internalRoutes.InitBulkScheduleRoutes(api, handler.NewBulkScheduleHandler(commits, log), deps)
	internalRoutes.InitSchedulerRoutes(api, handler.NewSchedulerHandler(scheduler, cluster, log), deps)

	return &testServer{router: router, exec: exec, scheduler: scheduler}
}

type envelope struct {
	Status    string          `json:"status"`
	ErrorCode int             `json:"errorCode"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
	Errors    []struct {
		ErrorCode int               `json:"errorCode"`
		Message   string            `json:"message"`
		Data      map[string]string `json:"data"`
	} `json:"errors"`
	RequestID string `json:"requestId"`
}

func (s *testServer) do(t *testing.T, method, path, userID string, body interface{}) (int, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set(commonsHandler.UserIDHeader, userID)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

type commitView struct {
	JobID         string     `json:"job_id"`
	Status        string     `json:"status"`
	IsScheduled   bool       `json:"is_scheduled"`
	ScheduledTime *time.Time `json:"scheduled_time"`
	TargetTime    time.Time  `json:"target_time"`
	ErrorMessage  string     `json:"error_message"`
	RetryOf       string     `json:"retry_of"`
}

func scheduleBody() map[string]interface{} {
	return map[string]interface{}{
		"repository":  "octo/streak",
		"file_path":   "README.md",
		"message":     "docs: tidy",
		"target_time": "2023-12-25T09:30:00Z",
		"run_at":      "2024-03-02T08:00:00Z",
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)

	code, env := s.do(t, http.MethodGet, "/api/v1/health", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "SUCCESS", env.Status)
	assert.NotEmpty(t, env.RequestID)

	health := decode[struct {
		Status    string `json:"status"`
		Service   string `json:"service"`
		Scheduler struct {
			Running bool `json:"running"`
			Enabled bool `json:"enabled"`
		} `json:"scheduler"`
	}](t, env)
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "test", health.Service)
	assert.True(t, health.Scheduler.Running)
}

func TestRoutingErrors(t *testing.T) {
	s := newTestServer(t, nil)

	code, env := s.do(t, http.MethodGet, "/api/v1/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "FAILED", env.Status)

	code, _ = s.do(t, http.MethodPut, "/api/v1/commits", "u1", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, code)
}

func TestCommitRoutesRequireUser(t *testing.T) {
	s := newTestServer(t, nil)

	code, env := s.do(t, http.MethodPost, "/api/v1/commits", "", scheduleBody())
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, 401, env.ErrorCode)

	code, _ = s.do(t, http.MethodGet, "/api/v1/commits", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestScheduleAndListCommits(t *testing.T) {
	s := newTestServer(t, nil)

	code, env := s.do(t, http.MethodPost, "/api/v1/commits", "u1", scheduleBody())
	require.Equal(t, http.StatusOK, code, env.Message)
	job := decode[commitView](t, env)
	assert.NotEmpty(t, job.JobID)
	assert.Equal(t, "pending", job.Status)
	assert.True(t, job.IsScheduled)
	require.NotNil(t, job.ScheduledTime)
	assert.True(t, job.ScheduledTime.Equal(time.Date(2024, 3, 2, 8, 0, 0, 0, time.UTC)))
	assert.True(t, job.TargetTime.Equal(time.Date(2023, 12, 25, 9, 30, 0, 0, time.UTC)))

	code, env = s.do(t, http.MethodGet, "/api/v1/commits", "u1", nil)
	require.Equal(t, http.StatusOK, code)
	list := decode[struct {
		Commits []commitView `json:"commits"`
		Count   int          `json:"count"`
	}](t, env)
	assert.Equal(t, 1, list.Count)
	assert.Equal(t, job.JobID, list.Commits[0].JobID)

	// another user sees nothing
	_, env = s.do(t, http.MethodGet, "/api/v1/commits", "u2", nil)
	assert.Equal(t, 0, decode[struct {
		Count int `json:"count"`
	}](t, env).Count)
}

func TestScheduleCommitValidation(t *testing.T) {
	s := newTestServer(t, nil)

	code, env := s.do(t, http.MethodPost, "/api/v1/commits", "u1", map[string]interface{}{
		"repository":  "octo/streak",
		"target_time": "2023-12-25T09:30:00Z",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "missing required fields: file path, commit message", env.Message)

	code, _ = s.do(t, http.MethodPost, "/api/v1/commits", "u1", map[string]interface{}{
		"target_time": "not a time",
	})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestCancelAndRetryCommit(t *testing.T) {
	s := newTestServer(t, nil)

	_, env := s.do(t, http.MethodPost, "/api/v1/commits", "u1", scheduleBody())
	job := decode[commitView](t, env)

	// pending jobs cannot be retried
	code, _ := s.do(t, http.MethodPost, "/api/v1/commits/"+job.JobID+"/retry", "u1", nil)
	assert.Equal(t, http.StatusConflict, code)

	// other users cannot see the job
	code, _ = s.do(t, http.MethodPost, "/api/v1/commits/"+job.JobID+"/cancel", "u2", nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = s.do(t, http.MethodPost, "/api/v1/commits/"+job.JobID+"/cancel", "u1", nil)
	require.Equal(t, http.StatusOK, code)

	code, _ = s.do(t, http.MethodPost, "/api/v1/commits/"+job.JobID+"/cancel", "u1", nil)
	assert.Equal(t, http.StatusConflict, code)

	code, env = s.do(t, http.MethodPost, "/api/v1/commits/"+job.JobID+"/retry", "u1", nil)
	require.Equal(t, http.StatusOK, code)
	retry := decode[commitView](t, env)
	assert.Equal(t, job.JobID, retry.RetryOf)
	assert.Equal(t, "pending", retry.Status)
	assert.NotEqual(t, job.JobID, retry.JobID)

	_, env = s.do(t, http.MethodGet, "/api/v1/commits", "u1", nil)
	list := decode[struct {
		Commits []commitView `json:"commits"`
	}](t, env)
	require.Len(t, list.Commits, 2)
	for _, c := range list.Commits {
		if c.JobID == job.JobID {
			assert.Equal(t, "failed", c.Status)
			assert.Equal(t, domain.CancelledByUserReason, c.ErrorMessage)
		}
	}
}

func TestCleanupPendingCommits(t *testing.T) {
	s := newTestServer(t, nil)

	for i := 0; i < 3; i++ {
		code, _ := s.do(t, http.MethodPost, "/api/v1/commits", "u1", scheduleBody())
		require.Equal(t, http.StatusOK, code)
	}

	code, env := s.do(t, http.MethodDelete, "/api/v1/commits/pending", "u1", nil)
	require.Equal(t, http.StatusOK, code)
	res := decode[struct {
		DeletedCount int `json:"deleted_count"`
	}](t, env)
	assert.Equal(t, 3, res.DeletedCount)
}

func TestImmediateCommit(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		s := newTestServer(t, nil)

		code, env := s.do(t, http.MethodPost, "/api/v1/commits/immediate", "u1", scheduleBody())
		require.Equal(t, http.StatusOK, code, env.Message)
		res := decode[struct {
			Commit     commitView `json:"commit"`
			CommitHash string     `json:"commit_hash"`
			Verified   bool       `json:"verified"`
		}](t, env)
		assert.Equal(t, "abc123", res.CommitHash)
		assert.True(t, res.Verified)
		assert.Equal(t, "completed", res.Commit.Status)
		assert.False(t, res.Commit.IsScheduled)
	})

	t.Run("missing token", func(t *testing.T) {
		s := newTestServer(t, nil)

		code, env := s.do(t, http.MethodPost, "/api/v1/commits/immediate", "u2", scheduleBody())
		assert.Equal(t, http.StatusUnauthorized, code)
		require.Len(t, env.Errors, 1)
		assert.NotEmpty(t, env.Errors[0].Data["hint"])
	})

	t.Run("upstream failure keeps the failed job", func(t *testing.T) {
		s := newTestServer(t, nil)
		s.exec.err = domain.Upstreamf("push rejected")

		code, env := s.do(t, http.MethodPost, "/api/v1/commits/immediate", "u1", scheduleBody())
		assert.Equal(t, http.StatusBadGateway, code)
		res := decode[struct {
			Commit commitView `json:"commit"`
		}](t, env)
		assert.Equal(t, "failed", res.Commit.Status)
		assert.Contains(t, res.Commit.ErrorMessage, "push rejected")
	})
}

func bulkBody() map[string]interface{} {
	return map[string]interface{}{
		"repository":        "octo/streak",
		"start_date":        "2024-03-04",
		"end_date":          "2024-03-08",
		"time_window":       map[string]interface{}{"times": []string{"09:00", "17:30"}},
		"message_templates": []string{"progress on {date}"},
		"files":             []string{"README.md"},
		"frequency":         "weekdays",
	}
}

func TestBulkSchedules(t *testing.T) {
	s := newTestServer(t, nil)

	code, env := s.do(t, http.MethodPost, "/api/v1/bulk-schedules", "u1", bulkBody())
	require.Equal(t, http.StatusOK, code, env.Message)
	created := decode[struct {
		Schedule struct {
			ScheduleID string   `json:"schedule_id"`
			Status     string   `json:"status"`
			StartDate  string   `json:"start_date"`
			Commits    []string `json:"commits"`
		} `json:"schedule"`
		Commits        []commitView `json:"commits"`
		TotalScheduled int          `json:"total_scheduled"`
	}](t, env)
	assert.Equal(t, 5, created.TotalScheduled)
	assert.Len(t, created.Commits, 5)
	assert.Len(t, created.Schedule.Commits, 5)
	assert.Equal(t, "active", created.Schedule.Status)
	assert.Equal(t, "2024-03-04", created.Schedule.StartDate)

	code, env = s.do(t, http.MethodGet, "/api/v1/bulk-schedules", "u1", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, decode[struct {
		Count int `json:"count"`
	}](t, env).Count)

	code, _ = s.do(t, http.MethodPost, "/api/v1/bulk-schedules/"+created.Schedule.ScheduleID+"/cancel", "u2", nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = s.do(t, http.MethodPost, "/api/v1/bulk-schedules/"+created.Schedule.ScheduleID+"/cancel", "u1", nil)
	require.Equal(t, http.StatusOK, code)

	_, env = s.do(t, http.MethodGet, "/api/v1/commits", "u1", nil)
	list := decode[struct {
		Commits []commitView `json:"commits"`
	}](t, env)
	require.Len(t, list.Commits, 5)
	for _, c := range list.Commits {
		assert.Equal(t, "failed", c.Status)
		assert.Equal(t, domain.CancelledByUserReason, c.ErrorMessage)
	}
}

func TestBulkSchedulesKeepCallerOffset(t *testing.T) {
	s := newTestServer(t, nil)

	body := bulkBody()
	body["start_date"] = "2024-03-04T00:00:00+05:30"
	body["end_date"] = "2024-03-04"
	body["frequency"] = "daily"
	body["time_window"] = map[string]interface{}{"times": []string{"09:00"}}

	code, env := s.do(t, http.MethodPost, "/api/v1/bulk-schedules", "u1", body)
	require.Equal(t, http.StatusOK, code, env.Message)
	created := decode[struct {
		Schedule struct {
			StartDate string `json:"start_date"`
			EndDate   string `json:"end_date"`
		} `json:"schedule"`
		Commits        []commitView `json:"commits"`
		TotalScheduled int          `json:"total_scheduled"`
	}](t, env)

	assert.Equal(t, 1, created.TotalScheduled)
	assert.Equal(t, "2024-03-04", created.Schedule.StartDate)
	assert.Equal(t, "2024-03-04", created.Schedule.EndDate)
	require.Len(t, created.Commits, 1)
	want := time.Date(2024, 3, 4, 9, 0, 0, 0, time.FixedZone("", 5*3600+1800))
	assert.True(t, want.Equal(created.Commits[0].TargetTime), created.Commits[0].TargetTime)
}

func TestBulkScheduleValidation(t *testing.T) {
	s := newTestServer(t, nil)

	body := bulkBody()
	body["start_date"] = "March 4th"
	code, env := s.do(t, http.MethodPost, "/api/v1/bulk-schedules", "u1", body)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, env.Message, "start_date")

	body = bulkBody()
	body["frequency"] = "hourly"
	code, _ = s.do(t, http.MethodPost, "/api/v1/bulk-schedules", "u1", body)
	assert.Equal(t, http.StatusBadRequest, code)

	body = bulkBody()
	body["date_filter"] = "weekday == 0"
	code, env = s.do(t, http.MethodPost, "/api/v1/bulk-schedules", "u1", body)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "no valid dates for given criteria", env.Message)
}

func TestSchedulerRoutes(t *testing.T) {
	t.Run("local toggle", func(t *testing.T) {
		s := newTestServer(t, nil)

		code, env := s.do(t, http.MethodPost, "/api/v1/scheduler/disable", "", nil)
		require.Equal(t, http.StatusOK, code)
		status := decode[struct {
			Running bool `json:"running"`
			Enabled bool `json:"enabled"`
		}](t, env)
		assert.False(t, status.Enabled)
		assert.False(t, s.scheduler.enabled)

		code, _ = s.do(t, http.MethodPost, "/api/v1/scheduler/enable", "", nil)
		require.Equal(t, http.StatusOK, code)
		assert.True(t, s.scheduler.enabled)
	})

	t.Run("cluster toggle", func(t *testing.T) {
		cluster := &stubSwitch{}
		s := newTestServer(t, cluster)

		code, _ := s.do(t, http.MethodPost, "/api/v1/scheduler/disable", "", nil)
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, []bool{false}, cluster.values)
		// the watch applies it, not the handler
		assert.True(t, s.scheduler.enabled)
	})

	t.Run("tick", func(t *testing.T) {
		s := newTestServer(t, nil)
		s.scheduler.report = service.TickReport{Candidates: 4, Due: 3, Completed: 2, Failed: 1}

		code, env := s.do(t, http.MethodPost, "/api/v1/scheduler/tick", "", nil)
		require.Equal(t, http.StatusOK, code)
		report := decode[struct {
			Due       int `json:"due"`
			Completed int `json:"completed"`
			Failed    int `json:"failed"`
		}](t, env)
		assert.Equal(t, 3, report.Due)
		assert.Equal(t, 2, report.Completed)
		assert.Equal(t, 1, report.Failed)
	})

	t.Run("process", func(t *testing.T) {
		s := newTestServer(t, nil)

		code, env := s.do(t, http.MethodPost, "/api/v1/commits/missing/process", "", nil)
		require.Equal(t, http.StatusOK, code)
		res := decode[struct {
			Success bool   `json:"success"`
			Message string `json:"message"`
		}](t, env)
		assert.False(t, res.Success)
		assert.Equal(t, "Commit not found", res.Message)
		assert.Equal(t, []string{"missing"}, s.scheduler.processed)
	})
}

func TestSuggestedFiles(t *testing.T) {
	s := newTestServer(t, nil)

	code, env := s.do(t, http.MethodGet, "/api/v1/files/suggested", "", nil)
	require.Equal(t, http.StatusOK, code)
	files := decode[struct {
		Files []string `json:"files"`
	}](t, env)
	assert.Contains(t, files.Files, "README.md")
	assert.Equal(t, service.SuggestedFilePaths, files.Files)
}
