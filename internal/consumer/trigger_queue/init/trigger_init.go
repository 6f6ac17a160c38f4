package trigger_queue

import (
	"context"

	settings "streakd/internal/config"
	trigger "streakd/internal/consumer/trigger_queue/iface"
	triggerImpl "streakd/internal/consumer/trigger_queue/impl"
	"streakd/internal/logger"
	queue "streakd/internal/queue/iface"
	"streakd/internal/queue/sqs"
	"streakd/internal/service"

	awssqs "github.com/aws/aws-sdk-go-v2/service/sqs"
	"go.uber.org/fx"
)

// TriggerQueueParams holds dependencies for the trigger queue
type TriggerQueueParams struct {
	fx.In

	Logger    logger.Logger
	Settings  *settings.Settings
	SQSClient *awssqs.Client
	Scheduler *service.Scheduler
}

// TriggerQueueResult holds what this module provides
type TriggerQueueResult struct {
	fx.Out

	Consumer trigger.TriggerConsumer
	Queue    queue.Consumer `name:"trigger_queue"`
}

// ProvideTriggerQueueAndConsumer wires the consumer to the scheduler. Without a
// configured queue URL the queue is nil and nothing is polled.
func ProvideTriggerQueueAndConsumer(params TriggerQueueParams) TriggerQueueResult {
	url := params.Settings.Events.TriggerQueueURL
	if url == "" {
		return TriggerQueueResult{
			Consumer: triggerImpl.NewTriggerConsumer(params.Logger, params.Scheduler, nil),
		}
	}

	publisher := sqs.NewSQSPublisher(params.SQSClient, url, params.Logger)
	consumer := triggerImpl.NewTriggerConsumer(params.Logger, params.Scheduler, publisher)

	q := sqs.NewSQSConsumer[trigger.TriggerMessage](
		params.SQSClient,
		sqs.ConsumerConfig{
			QueueURL:        url,
			WorkerCount:     params.Settings.Events.TriggerWorkers,
			MaxMessages:     1,
			WaitTimeSeconds: 20,
		},
		queue.MessageProcessorFunc[trigger.TriggerMessage](consumer.ProcessMessage),
		params.Logger,
	)

	return TriggerQueueResult{
		Consumer: consumer,
		Queue:    q,
	}
}

// TriggerQueueModule provides the FX module for the trigger queue
func TriggerQueueModule() fx.Option {
	return fx.Options(
		fx.Provide(
			ProvideTriggerQueueAndConsumer,
		),
		fx.Invoke(func(params struct {
			fx.In
			Lifecycle fx.Lifecycle
			Queue     queue.Consumer `name:"trigger_queue"`
			Logger    logger.Logger
		}) {
			if params.Queue == nil {
				params.Logger.Info("trigger queue not configured")
				return
			}
			params.Lifecycle.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					params.Logger.Info("starting trigger queue consumer")
					return params.Queue.StartConsumer(ctx)
				},
				OnStop: func(ctx context.Context) error {
					params.Logger.Info("stopping trigger queue consumer")
					return params.Queue.StopConsumer(ctx)
				},
			})
		}),
	)
}
