package ingest

import (
	"context"
	"fmt"

	"github.com/hilthontt/teamrelay/internal/domain"
	"github.com/hilthontt/teamrelay/internal/infrastructure/metrics"
)

type Publisher struct {
	queue Queue
}

func NewPublisher(queue Queue) *Publisher {
	return &Publisher{queue: queue}
}

// Publish enqueues the message partitioned by its team code.
func (p *Publisher) Publish(ctx context.Context, message *domain.Message) error {
	body, err := EncodeRecord(message)
	if err != nil {
		return err
	}

	if err := p.queue.Enqueue(ctx, message.TeamCode, body); err != nil {
		metrics.MessagesEnqueuedTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("enqueue message: %w", err)
	}

	metrics.MessagesEnqueuedTotal.WithLabelValues("success").Inc()
	return nil
}
