package sqs

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"streakd/internal/logger"
	queue "streakd/internal/queue/iface"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// ConsumerConfig holds polling settings for one queue
type ConsumerConfig struct {
	QueueURL          string
	WorkerCount       int
	MaxMessages       int32
	WaitTimeSeconds   int32
	VisibilityTimeout int32
}

// SQSConsumer long-polls a queue and hands decoded messages to a processor
type SQSConsumer[T any] struct {
	client    *sqs.Client
	config    ConsumerConfig
	processor queue.MessageProcessor[T]
	logger    logger.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewSQSConsumer creates a consumer; it does nothing until StartConsumer
func NewSQSConsumer[T any](
	client *sqs.Client,
	config ConsumerConfig,
	processor queue.MessageProcessor[T],
	log logger.Logger,
) *SQSConsumer[T] {
	if config.WorkerCount <= 0 {
		config.WorkerCount = 1
	}
	if config.MaxMessages <= 0 {
		config.MaxMessages = 1
	}
	if config.WaitTimeSeconds <= 0 {
		config.WaitTimeSeconds = 20
	}
	if config.VisibilityTimeout <= 0 {
		// a commit can take minutes; keep the message hidden until it finishes
		config.VisibilityTimeout = 300
	}

	return &SQSConsumer[T]{
		client:    client,
		config:    config,
		processor: processor,
		logger:    log.With(logger.String("component", "sqs_consumer")),
	}
}

func (q *SQSConsumer[T]) StartConsumer(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.running {
		return fmt.Errorf("consumer already running")
	}

	// workers outlive the startup context
	workerCtx, cancel := context.WithCancel(context.Background())
	q.cancel = cancel
	q.running = true

	q.logger.Info("starting SQS consumer",
		logger.String("queue_url", q.config.QueueURL),
		logger.Int("worker_count", q.config.WorkerCount))

	for i := 0; i < q.config.WorkerCount; i++ {
		q.wg.Add(1)
		go q.worker(workerCtx, i+1)
	}
	return nil
}

func (q *SQSConsumer[T]) StopConsumer(ctx context.Context) error {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return nil
	}
	q.running = false
	q.cancel()
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.logger.Info("SQS consumer stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("timed out waiting for SQS workers: %w", ctx.Err())
	}
}

func (q *SQSConsumer[T]) worker(ctx context.Context, workerID int) {
	defer q.wg.Done()

	for ctx.Err() == nil {
		q.poll(ctx, workerID)
	}
	q.logger.Debug("worker stopped", logger.Int("worker_id", workerID))
}

func (q *SQSConsumer[T]) poll(ctx context.Context, workerID int) {
	result, err := q.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(q.config.QueueURL),
		MaxNumberOfMessages: q.config.MaxMessages,
		WaitTimeSeconds:     q.config.WaitTimeSeconds,
		VisibilityTimeout:   q.config.VisibilityTimeout,
	})
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		q.logger.Error("failed to receive messages",
			logger.Int("worker_id", workerID),
			logger.Error(err))
		select {
		case <-ctx.Done():
		case <-time.After(time.Second):
		}
		return
	}

	for _, msg := range result.Messages {
		// a message in hand is finished even during shutdown
		q.handle(context.WithoutCancel(ctx), msg, workerID)
	}
}

func (q *SQSConsumer[T]) handle(ctx context.Context, msg types.Message, workerID int) {
	messageID := aws.ToString(msg.MessageId)

	var message T
	if err := json.Unmarshal([]byte(aws.ToString(msg.Body)), &message); err != nil {
		q.logger.Error("dropping undecodable message",
			logger.Int("worker_id", workerID),
			logger.String("message_id", messageID),
			logger.Error(err))
		q.delete(ctx, msg)
		return
	}

	if q.processor.ProcessMessage(ctx, message) {
		q.delete(ctx, msg)
		return
	}
	q.logger.Warn("message processing failed, leaving for redelivery",
		logger.Int("worker_id", workerID),
		logger.String("message_id", messageID))
}

func (q *SQSConsumer[T]) delete(ctx context.Context, msg types.Message) {
	_, err := q.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(q.config.QueueURL),
		ReceiptHandle: msg.ReceiptHandle,
	})
	if err != nil {
		q.logger.Error("failed to delete message",
			logger.String("message_id", aws.ToString(msg.MessageId)),
			logger.Error(err))
	}
}
