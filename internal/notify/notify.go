// Package notify publishes one event per finished commit job.
package notify

import (
	"context"
	"time"

	"streakd/internal/domain"
	"streakd/internal/logger"
	queue "streakd/internal/queue/iface"
)

type EventType string

const (
	EventCommitCompleted EventType = "commit.completed"
	EventCommitFailed    EventType = "commit.failed"
)

// Event is the message body written to the events queue
type Event struct {
	Type       EventType `json:"type"`
	JobID      string    `json:"job_id"`
	UserID     string    `json:"user_id"`
	Repository string    `json:"repository"`
	CommitHash string    `json:"commit_hash,omitempty"`
	Error      string    `json:"error,omitempty"`
	TargetTime time.Time `json:"target_time"`
	At         time.Time `json:"at"`
}

// EventFor builds the event for a job that has left pending. ok is false for a
// pending job.
func EventFor(job *domain.CommitJob, commitHash string) (Event, bool) {
	ev := Event{
		JobID:      job.ID,
		UserID:     job.UserID,
		Repository: job.Repository,
		TargetTime: job.TargetTime,
	}
	switch s := job.State.(type) {
	case domain.Completed:
		ev.Type = EventCommitCompleted
		ev.CommitHash = commitHash
		ev.At = s.At
	case domain.Failed:
		ev.Type = EventCommitFailed
		ev.Error = s.Reason
		ev.At = s.At
	default:
		return Event{}, false
	}
	return ev, true
}

// Notifier receives job outcomes. Implementations must not block job processing
// on delivery problems for long; callers log and ignore returned errors.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

type sqsNotifier struct {
	publisher queue.Publisher
	logger    logger.Logger
}

// NewSQSNotifier sends events through publisher with a "type" attribute
func NewSQSNotifier(publisher queue.Publisher, log logger.Logger) Notifier {
	return &sqsNotifier{
		publisher: publisher,
		logger:    log.With(logger.String("component", "sqs_notifier")),
	}
}

func (n *sqsNotifier) Notify(ctx context.Context, event Event) error {
	err := n.publisher.Publish(ctx, event, map[string]string{"type": string(event.Type)})
	if err != nil {
		n.logger.Error("failed to publish commit event",
			logger.String("job_id", event.JobID),
			logger.String("type", string(event.Type)),
			logger.Error(err))
		return err
	}
	return nil
}

type logNotifier struct {
	logger logger.Logger
}

// NewLogNotifier writes events to the log; used when no events queue is configured
func NewLogNotifier(log logger.Logger) Notifier {
	return &logNotifier{logger: log.With(logger.String("component", "log_notifier"))}
}

func (n *logNotifier) Notify(ctx context.Context, event Event) error {
	n.logger.Info("commit event",
		logger.String("type", string(event.Type)),
		logger.String("job_id", event.JobID),
		logger.String("user_id", event.UserID),
		logger.String("repository", event.Repository),
		logger.String("commit_hash", event.CommitHash),
		logger.String("error", event.Error))
	return nil
}

type nopNotifier struct{}

func NewNopNotifier() Notifier { return nopNotifier{} }

func (nopNotifier) Notify(context.Context, Event) error { return nil }
