package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hilthontt/teamrelay/internal/infrastructure/configs"
	"github.com/hilthontt/teamrelay/internal/infrastructure/logging"
	"github.com/hilthontt/teamrelay/internal/ingest"
	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitMQ is the durable queue. Publishes wait for broker confirms; each
// Consume call runs on its own channel.
type RabbitMQ struct {
	conn    *amqp.Connection
	Channel *amqp.Channel

	publishMu sync.Mutex
	cfg       configs.QueueConfig
	logger    logging.Logger
}

func NewRabbitMQ(cfg configs.QueueConfig, logger logging.Logger) (*RabbitMQ, error) {
	conn, err := amqp.Dial(cfg.URI)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}

	rmq := &RabbitMQ{
		conn:    conn,
		Channel: ch,
		cfg:     cfg,
		logger:  logger,
	}

	if err := rmq.setupExchangesAndQueues(); err != nil {
		rmq.Close()
		return nil, err
	}

	if err := ch.Confirm(false); err != nil {
		rmq.Close()
		return nil, fmt.Errorf("failed to enable publisher confirms: %w", err)
	}

	return rmq, nil
}

func (r *RabbitMQ) Close() {
	if r.Channel != nil {
		r.Channel.Close()
	}
	if r.conn != nil {
		r.conn.Close()
	}
}

// Enqueue publishes a persistent message and returns once the broker has
// confirmed it.
func (r *RabbitMQ) Enqueue(ctx context.Context, partitionKey string, body []byte) error {
	r.publishMu.Lock()
	defer r.publishMu.Unlock()

	confirm, err := r.Channel.PublishWithDeferredConfirmWithContext(ctx,
		r.cfg.Exchange,   // exchange
		EventMessageSent, // routing key
		false,            // mandatory
		false,            // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    uuid.NewString(),
			Timestamp:    time.Now().UTC(),
			Headers: amqp.Table{
				GroupHeader: partitionKey,
			},
			Body: body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to confirm message: %w", err)
	}
	if !acked {
		return errors.New("broker rejected message")
	}

	return nil
}

// Consume delivers batches of up to BatchSize bodies, closing a partial batch
// after BatchWindow. A successful batch is acked; a failed one is requeued
// once and dead-lettered on its second failure.
func (r *RabbitMQ) Consume(ctx context.Context, handler ingest.BatchHandler) error {
	ch, err := r.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to create consumer channel: %w", err)
	}
	defer ch.Close()

	batchSize := max(r.cfg.BatchSize, 1)
	if err := ch.Qos(batchSize, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	deliveries, err := ch.ConsumeWithContext(ctx,
		r.cfg.Queue, // queue
		"",          // consumer
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	for {
		// An unfinished batch stays unacked and returns to the queue when
		// the channel closes.
		batch, ok := collectBatch(ctx, deliveries, batchSize, r.cfg.BatchWindow)
		if !ok {
			if ctx.Err() != nil {
				return nil
			}
			return errors.New("delivery channel closed")
		}

		r.settle(ctx, batch, handler)
	}
}

func (r *RabbitMQ) settle(ctx context.Context, batch []amqp.Delivery, handler ingest.BatchHandler) {
	bodies := make([][]byte, len(batch))
	for i, d := range batch {
		bodies[i] = d.Body
	}

	if err := handler(ctx, bodies); err != nil {
		r.logger.Warn(logging.RabbitMQ, logging.Consume, "batch failed, returning to queue", map[logging.ExtraKey]any{
			logging.BatchSize:    len(batch),
			logging.ErrorMessage: err.Error(),
		})
		for _, d := range batch {
			if nackErr := d.Nack(false, !d.Redelivered); nackErr != nil {
				r.logger.Error(logging.RabbitMQ, logging.Consume, "failed to nack delivery", map[logging.ExtraKey]any{
					logging.ErrorMessage: nackErr.Error(),
				})
			}
		}
		return
	}

	if err := batch[len(batch)-1].Ack(true); err != nil {
		r.logger.Error(logging.RabbitMQ, logging.Consume, "failed to ack batch", map[logging.ExtraKey]any{
			logging.BatchSize:    len(batch),
			logging.ErrorMessage: err.Error(),
		})
	}
}

// collectBatch blocks for the first delivery, then gathers more until the
// batch is full or the window closes. ok is false once ctx is done or the
// delivery channel is closed.
func collectBatch(ctx context.Context, deliveries <-chan amqp.Delivery, size int, window time.Duration) ([]amqp.Delivery, bool) {
	var batch []amqp.Delivery

	select {
	case <-ctx.Done():
		return nil, false
	case d, open := <-deliveries:
		if !open {
			return nil, false
		}
		batch = append(batch, d)
	}

	timer := time.NewTimer(window)
	defer timer.Stop()

	for len(batch) < size {
		select {
		case <-ctx.Done():
			return batch, false
		case <-timer.C:
			return batch, true
		case d, open := <-deliveries:
			if !open {
				return batch, false
			}
			batch = append(batch, d)
		}
	}

	return batch, true
}

func (r *RabbitMQ) setupExchangesAndQueues() error {
	if err := r.Channel.ExchangeDeclare(
		r.cfg.Exchange, // name
		"topic",        // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	); err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", r.cfg.Exchange, err)
	}

	if err := r.Channel.ExchangeDeclare(DeadLetterExchange, "fanout", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare dead letter exchange: %w", err)
	}

	if _, err := r.Channel.QueueDeclare(DeadLetterQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare dead letter queue: %w", err)
	}
	if err := r.Channel.QueueBind(DeadLetterQueue, "", DeadLetterExchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind dead letter queue: %w", err)
	}

	return r.declareAndBindQueue(r.cfg.Queue, []string{EventMessageSent}, r.cfg.Exchange)
}

func (r *RabbitMQ) declareAndBindQueue(queueName string, messageTypes []string, exchange string) error {
	// Add dead letter configuration
	args := amqp.Table{
		"x-dead-letter-exchange": DeadLetterExchange,
	}

	q, err := r.Channel.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		args,      // arguments with DLX config
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", queueName, err)
	}

	for _, msg := range messageTypes {
		if err := r.Channel.QueueBind(
			q.Name,   // queue name
			msg,      // routing key
			exchange, // exchange
			false,
			nil,
		); err != nil {
			return fmt.Errorf("failed to bind queue to %s: %w", queueName, err)
		}
	}

	return nil
}
