// Package mq is the broker boundary for the ingestion task queue. The
// pipeline publishes and consumes through these interfaces only, so the
// kafka adapter stays swappable and the worker testable with in-memory
// fakes.
package mq

import "context"

// Message is one task record on the queue. Key carries the Drive file id
// for partition affinity; Headers carry trace fields like task_id.
type Message struct {
	Topic   string
	Key     []byte
	Value   []byte
	Headers map[string]string
}

type PublishResult struct {
	Partition int32
	Offset    int64
}

type Publisher interface {
	Publish(ctx context.Context, msg Message) (PublishResult, error)
	Close() error
}

// Handler processes one delivered message. Returning nil acknowledges the
// message; returning an error leaves it unacknowledged for redelivery.
type Handler interface {
	Handle(ctx context.Context, msg Message) error
}

// Consumer feeds delivered messages to a Handler until the context ends.
type Consumer interface {
	Run(ctx context.Context, handler Handler) error
	Close() error
}
