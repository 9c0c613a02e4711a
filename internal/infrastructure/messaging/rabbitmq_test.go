package messaging

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hilthontt/teamrelay/internal/infrastructure/configs"
	"github.com/hilthontt/teamrelay/internal/infrastructure/logging"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/rabbitmq"
)

func setupRabbitMQ(t *testing.T, queue string) *RabbitMQ {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	ctx := context.Background()

	container, err := rabbitmq.Run(ctx, "rabbitmq:3.13-management-alpine")
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	uri, err := container.AmqpURL(ctx)
	require.NoError(t, err)

	rmq, err := NewRabbitMQ(configs.QueueConfig{
		URI:         uri,
		Exchange:    "teamrelay",
		Queue:       queue,
		BatchSize:   10,
		BatchWindow: 50 * time.Millisecond,
	}, logging.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(rmq.Close)

	return rmq
}

type batches struct {
	mu     sync.Mutex
	bodies []string
	calls  int
	fail   int
}

func (b *batches) handle(_ context.Context, bodies [][]byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.calls++
	if b.fail > 0 {
		b.fail--
		return errors.New("handler failed")
	}
	for _, body := range bodies {
		b.bodies = append(b.bodies, string(body))
	}
	return nil
}

func (b *batches) received() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.bodies...)
}

func TestRabbitMQEnqueueAndConsume(t *testing.T) {
	rmq := setupRabbitMQ(t, "messages")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for _, body := range []string{"one", "two", "three"} {
		require.NoError(t, rmq.Enqueue(ctx, "T1", []byte(body)))
	}

	handler := &batches{}
	done := make(chan error, 1)
	go func() { done <- rmq.Consume(ctx, handler.handle) }()

	require.Eventually(t, func() bool { return len(handler.received()) == 3 }, 10*time.Second, 50*time.Millisecond)
	assert.Equal(t, []string{"one", "two", "three"}, handler.received())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("consumer did not stop")
	}
}

func TestRabbitMQRedeliversFailedBatch(t *testing.T) {
	rmq := setupRabbitMQ(t, "messages")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, rmq.Enqueue(ctx, "T1", []byte("retry-me")))

	handler := &batches{fail: 1}
	go func() { _ = rmq.Consume(ctx, handler.handle) }()

	require.Eventually(t, func() bool { return len(handler.received()) == 1 }, 10*time.Second, 50*time.Millisecond)
	assert.Equal(t, []string{"retry-me"}, handler.received())
}

func TestRabbitMQTagsGroupHeader(t *testing.T) {
	rmq := setupRabbitMQ(t, "messages")
	ctx := context.Background()

	require.NoError(t, rmq.Enqueue(ctx, "T42", []byte("tagged")))

	var delivery amqp.Delivery
	require.Eventually(t, func() bool {
		d, ok, err := rmq.Channel.Get("messages", true)
		if err != nil || !ok {
			return false
		}
		delivery = d
		return true
	}, 10*time.Second, 50*time.Millisecond)

	assert.Equal(t, "T42", delivery.Headers[GroupHeader])
	assert.Equal(t, uint8(amqp.Persistent), delivery.DeliveryMode)
}

func TestCollectBatch(t *testing.T) {
	ctx := context.Background()

	t.Run("stops at size", func(t *testing.T) {
		deliveries := make(chan amqp.Delivery, 5)
		for range 5 {
			deliveries <- amqp.Delivery{}
		}

		batch, ok := collectBatch(ctx, deliveries, 3, time.Second)
		assert.True(t, ok)
		assert.Len(t, batch, 3)
	})

	t.Run("closes partial batch after window", func(t *testing.T) {
		deliveries := make(chan amqp.Delivery, 1)
		deliveries <- amqp.Delivery{}

		batch, ok := collectBatch(ctx, deliveries, 3, 10*time.Millisecond)
		assert.True(t, ok)
		assert.Len(t, batch, 1)
	})

	t.Run("reports closed channel", func(t *testing.T) {
		deliveries := make(chan amqp.Delivery)
		close(deliveries)

		_, ok := collectBatch(ctx, deliveries, 3, time.Second)
		assert.False(t, ok)
	})

	t.Run("reports cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		_, ok := collectBatch(cctx, make(chan amqp.Delivery), 3, time.Second)
		assert.False(t, ok)
	})
}
