package ingest

import "context"

// Queue accepts a message body for durable, asynchronous processing.
// Ordering is only kept between bodies sharing a partition key.
type Queue interface {
	Enqueue(ctx context.Context, partitionKey string, body []byte) error
}

// BatchHandler processes one delivered batch. Returning an error fails the
// whole batch and the queue delivers it again.
type BatchHandler func(ctx context.Context, bodies [][]byte) error

// Consumer feeds batches to a handler until ctx is cancelled. Delivery is
// at-least-once.
type Consumer interface {
	Consume(ctx context.Context, handler BatchHandler) error
}
