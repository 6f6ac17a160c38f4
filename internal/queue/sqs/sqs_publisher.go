package sqs

import (
	"context"
	"encoding/json"
	"fmt"

	"streakd/internal/logger"
	queue "streakd/internal/queue/iface"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

type sqsPublisher struct {
	client   *sqs.Client
	queueURL string
	logger   logger.Logger
}

// NewSQSPublisher creates a publisher for one queue URL
func NewSQSPublisher(client *sqs.Client, queueURL string, log logger.Logger) queue.Publisher {
	return &sqsPublisher{
		client:   client,
		queueURL: queueURL,
		logger:   log.With(logger.String("component", "sqs_publisher")),
	}
}

func (p *sqsPublisher) Publish(ctx context.Context, message interface{}, attributes map[string]string) error {
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
	}
	if len(attributes) > 0 {
		input.MessageAttributes = make(map[string]types.MessageAttributeValue, len(attributes))
		for k, v := range attributes {
			input.MessageAttributes[k] = types.MessageAttributeValue{
				DataType:    aws.String("String"),
				StringValue: aws.String(v),
			}
		}
	}

	out, err := p.client.SendMessage(ctx, input)
	if err != nil {
		p.logger.Error("failed to send message to SQS",
			logger.String("queue_url", p.queueURL),
			logger.Error(err))
		return fmt.Errorf("failed to send message: %w", err)
	}

	p.logger.Debug("message sent to queue",
		logger.String("queue_url", p.queueURL),
		logger.String("message_id", aws.ToString(out.MessageId)))
	return nil
}
