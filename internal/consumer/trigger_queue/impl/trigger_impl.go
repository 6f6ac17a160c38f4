package trigger

import (
	"context"
	"fmt"
	"strings"

	trigger "streakd/internal/consumer/trigger_queue/iface"
	"streakd/internal/logger"
	queue "streakd/internal/queue/iface"
	"streakd/internal/service"
)

// CommitProcessor is the part of the scheduler the consumer drives
type CommitProcessor interface {
	ProcessCommitByID(ctx context.Context, jobID string) service.ProcessResult
}

type triggerConsumer struct {
	logger    logger.Logger
	processor CommitProcessor
	publisher queue.Publisher
}

// NewTriggerConsumer creates a consumer. publisher may be nil when the
// process only consumes.
func NewTriggerConsumer(log logger.Logger, processor CommitProcessor, publisher queue.Publisher) trigger.TriggerConsumer {
	return &triggerConsumer{
		logger:    log.With(logger.String("component", "trigger_consumer")),
		processor: processor,
		publisher: publisher,
	}
}

// ProcessMessage runs the job. Only store errors that left the job pending keep
// the message for redelivery; every other outcome is final.
func (t *triggerConsumer) ProcessMessage(ctx context.Context, message trigger.TriggerMessage) bool {
	jobID := strings.TrimSpace(message.JobID)
	if jobID == "" {
		t.logger.Warn("dropping trigger message without job id")
		return true
	}

	t.logger.Info("processing trigger message", logger.String("job_id", jobID))

	result := t.processor.ProcessCommitByID(ctx, jobID)
	if result.Success {
		t.logger.Info("triggered commit processed", logger.String("job_id", jobID))
		return true
	}

	t.logger.Warn("triggered commit not processed",
		logger.String("job_id", jobID),
		logger.String("reason", result.Message),
		logger.Bool("retryable", result.Retryable))
	return !result.Retryable
}

func (t *triggerConsumer) SendMessage(ctx context.Context, message trigger.TriggerMessage) error {
	if t.publisher == nil {
		return fmt.Errorf("trigger queue publisher not configured")
	}
	if strings.TrimSpace(message.JobID) == "" {
		return fmt.Errorf("job id is required")
	}

	if err := t.publisher.Publish(ctx, message, nil); err != nil {
		t.logger.Error("failed to send trigger message",
			logger.String("job_id", message.JobID),
			logger.Error(err))
		return err
	}

	t.logger.Debug("trigger message sent", logger.String("job_id", message.JobID))
	return nil
}
