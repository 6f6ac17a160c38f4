package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"streakd/internal/domain"
	"streakd/internal/executor"
	"streakd/internal/logger"
	"streakd/internal/notify"
	repositoryIface "streakd/internal/repository/iface"
	"streakd/internal/repository/memory"

	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeExecutor records requests; fail and panicOn select per-message behaviour
type fakeExecutor struct {
	mu      sync.Mutex
	calls   []executor.Request
	fail    map[string]error
	panicOn map[string]bool
}

func (e *fakeExecutor) Execute(ctx context.Context, req executor.Request) (*executor.Result, error) {
	e.mu.Lock()
	e.calls = append(e.calls, req)
	e.mu.Unlock()

	if e.panicOn[req.Message] {
		panic("exploded")
	}
	if err := e.fail[req.Message]; err != nil {
		return nil, err
	}
	return &executor.Result{CommitHash: "hash-" + req.Message, Branch: "main"}, nil
}

func (e *fakeExecutor) Messages() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.calls))
	for i, c := range e.calls {
		out[i] = c.Message
	}
	return out
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (n *recordingNotifier) Notify(ctx context.Context, ev notify.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	return nil
}

type fakeTicker struct {
	mu     sync.Mutex
	fn     func()
	starts int
	stops  int
}

func (t *fakeTicker) Start(fn func()) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.fn != nil {
		return errors.New("already started")
	}
	t.fn = fn
	t.starts++
	return nil
}

func (t *fakeTicker) Stop() context.Context {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.fn = nil
	t.stops++
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}

// Fire runs the registered callback, if any, and reports whether it ran
func (t *fakeTicker) Fire() bool {
	t.mu.Lock()
	fn := t.fn
	t.mu.Unlock()
	if fn == nil {
		return false
	}
	fn()
	return true
}

type fixture struct {
	jobs      repositoryIface.CommitJobRepository
	schedules repositoryIface.BulkScheduleRepository
	users     *memory.UserRepository
	exec      *fakeExecutor
	notifier  *recordingNotifier
	clock     *fakeClock
	log       logger.Logger
}

func newFixture() *fixture {
	return &fixture{
		jobs:      memory.NewCommitJobRepository(),
		schedules: memory.NewBulkScheduleRepository(),
		users: memory.NewUserRepository(
			domain.User{ID: "u1", Login: "octocat", AccessToken: "tok"},
			domain.User{ID: "u2", Login: "notoken"},
		),
		exec:     &fakeExecutor{fail: map[string]error{}, panicOn: map[string]bool{}},
		notifier: &recordingNotifier{},
		clock:    &fakeClock{now: testNow},
		log:      logger.NewNopLogger(),
	}
}

func (f *fixture) tickDeps() TickDeps {
	return TickDeps{
		Jobs:      f.jobs,
		Schedules: f.schedules,
		Users:     f.users,
		Executor:  f.exec,
		Notifier:  f.notifier,
		Clock:     f.clock,
		Logger:    f.log,
	}
}

func (f *fixture) service() *CommitService {
	return NewCommitService(CommitServiceDeps{
		Jobs:      f.jobs,
		Schedules: f.schedules,
		Users:     f.users,
		Executor:  f.exec,
		Notifier:  f.notifier,
		Clock:     f.clock,
	}, f.log)
}

// addJob stores a pending job; a nil runAt makes it unscheduled
func (f *fixture) addJob(t *testing.T, userID, message string, runAt *time.Time) *domain.CommitJob {
	t.Helper()
	job := domain.NewCommitJob(domain.NewCommitJobParams{
		UserID:        userID,
		Repository:    "octo/repo",
		RepositoryURL: "octo/repo",
		FilePath:      "README.md",
		Message:       message,
		TargetTime:    time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC),
		ScheduledTime: runAt,
	}, f.clock.Now())
	require.NoError(t, f.jobs.Create(context.Background(), job))
	return job
}

func (f *fixture) job(t *testing.T, id string) *domain.CommitJob {
	t.Helper()
	job, err := f.jobs.GetByID(context.Background(), id)
	require.NoError(t, err)
	return job
}

func at(d time.Duration) *time.Time {
	t := testNow.Add(d)
	return &t
}

// ctxJobs fails every call once the caller's context is done, like a network-backed store
type ctxJobs struct {
	repositoryIface.CommitJobRepository
}

func (r ctxJobs) Update(ctx context.Context, job *domain.CommitJob) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.CommitJobRepository.Update(ctx, job)
}

// cancellingExecutor cancels the caller's context before reporting err
type cancellingExecutor struct {
	cancel context.CancelFunc
	err    error
}

func (e cancellingExecutor) Execute(ctx context.Context, req executor.Request) (*executor.Result, error) {
	e.cancel()
	return nil, e.err
}
