package queue

import (
	"context"
)

// MessageProcessor handles one decoded message. Returning true acknowledges it;
// false leaves it on the queue for redelivery.
type MessageProcessor[T any] interface {
	ProcessMessage(ctx context.Context, message T) bool
}

// MessageProcessorFunc allows functions to implement MessageProcessor
type MessageProcessorFunc[T any] func(ctx context.Context, message T) bool

func (f MessageProcessorFunc[T]) ProcessMessage(ctx context.Context, message T) bool {
	return f(ctx, message)
}

// Publisher sends JSON messages. attributes become string message attributes.
type Publisher interface {
	Publish(ctx context.Context, message interface{}, attributes map[string]string) error
}

// Consumer polls a queue until stopped.
type Consumer interface {
	StartConsumer(ctx context.Context) error
	StopConsumer(ctx context.Context) error
}
