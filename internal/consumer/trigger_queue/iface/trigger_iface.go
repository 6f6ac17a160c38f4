package trigger_queue

import (
	"context"
)

// TriggerMessage asks the service to run one pending commit now
type TriggerMessage struct {
	JobID string `json:"job_id"`
}

// TriggerConsumer processes run-now requests and can enqueue new ones
type TriggerConsumer interface {
	// ProcessMessage returns true when the message should be deleted
	ProcessMessage(ctx context.Context, message TriggerMessage) bool

	// SendMessage enqueues a run-now request
	SendMessage(ctx context.Context, message TriggerMessage) error
}
