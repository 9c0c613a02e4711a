package ingest

import (
	"context"
	"sync"
	"time"

	"github.com/hilthontt/teamrelay/internal/infrastructure/logging"
	"github.com/hilthontt/teamrelay/internal/infrastructure/metrics"
	"github.com/jonboulle/clockwork"
)

const (
	// maxDeliveryAttempts matches the broker: one requeue, then the record is
	// dead-lettered.
	maxDeliveryAttempts = 2

	minRetryDelay = 50 * time.Millisecond
)

type memoryItem struct {
	partitionKey string
	body         []byte

	// attempts counts failed deliveries of this item on its own.
	attempts int
	// isolate delivers the item alone so a failure can be pinned on it.
	isolate bool
}

// MemoryQueue is an in-process Queue and Consumer. A failed batch goes back
// to the head of the queue and its items are redelivered one at a time after
// a retry delay. An item that fails twice on its own is dropped. Nothing
// survives a restart.
type MemoryQueue struct {
	mu     sync.Mutex
	items  []memoryItem
	notify chan struct{}

	batchSize   int
	batchWindow time.Duration
	clock       clockwork.Clock
	logger      logging.Logger
}

func NewMemoryQueue(batchSize int, batchWindow time.Duration, clock clockwork.Clock, logger logging.Logger) *MemoryQueue {
	if batchSize <= 0 {
		batchSize = 1
	}
	return &MemoryQueue{
		notify:      make(chan struct{}, 1),
		batchSize:   batchSize,
		batchWindow: batchWindow,
		clock:       clock,
		logger:      logger,
	}
}

func (q *MemoryQueue) Enqueue(ctx context.Context, partitionKey string, body []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	q.mu.Lock()
	q.items = append(q.items, memoryItem{partitionKey: partitionKey, body: body})
	q.mu.Unlock()

	q.signal()
	return nil
}

// Len reports how many items are waiting for delivery.
func (q *MemoryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Consume returns nil once ctx is cancelled.
func (q *MemoryQueue) Consume(ctx context.Context, handler BatchHandler) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		batch, ok := q.next(ctx)
		if !ok {
			return nil
		}

		bodies := make([][]byte, len(batch))
		for i, item := range batch {
			bodies[i] = item.body
		}

		if err := handler(ctx, bodies); err != nil {
			q.retry(batch, err)

			select {
			case <-ctx.Done():
				return nil
			case <-q.clock.After(q.retryDelay()):
			}
		}
	}
}

func (q *MemoryQueue) retryDelay() time.Duration {
	return max(q.batchWindow, minRetryDelay)
}

func (q *MemoryQueue) next(ctx context.Context) ([]memoryItem, bool) {
	for q.Len() == 0 {
		select {
		case <-ctx.Done():
			return nil, false
		case <-q.notify:
		}
	}

	if q.batchWindow > 0 && !q.headIsolated() && q.Len() < q.batchSize {
		timer := q.clock.NewTimer(q.batchWindow)
		defer timer.Stop()

	fill:
		for q.Len() < q.batchSize {
			select {
			case <-ctx.Done():
				return nil, false
			case <-timer.Chan():
				break fill
			case <-q.notify:
			}
		}
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	// Requeued items always sit at the head.
	n := min(q.batchSize, len(q.items))
	if q.items[0].isolate {
		n = 1
	}

	batch := make([]memoryItem, n)
	copy(batch, q.items[:n])
	q.items = q.items[n:]
	return batch, true
}

func (q *MemoryQueue) headIsolated() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) > 0 && q.items[0].isolate
}

// retry puts a failed batch back at the head. A multi-item batch is split so
// every item is tried alone; a lone item that has used up its attempts is
// dropped.
func (q *MemoryQueue) retry(batch []memoryItem, cause error) {
	requeue := make([]memoryItem, 0, len(batch))

	for _, item := range batch {
		if len(batch) == 1 {
			item.attempts++
		}
		if item.attempts >= maxDeliveryAttempts {
			metrics.MessagesPersistedTotal.WithLabelValues("dropped").Inc()
			q.logger.Error(logging.Internal, logging.Consume, "dropping record after repeated failures", map[logging.ExtraKey]any{
				logging.TeamCode:     item.partitionKey,
				logging.ErrorMessage: cause.Error(),
				"Body":               string(item.body),
			})
			continue
		}

		item.isolate = true
		requeue = append(requeue, item)
	}

	q.mu.Lock()
	q.items = append(requeue, q.items...)
	q.mu.Unlock()

	q.signal()
}

func (q *MemoryQueue) signal() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}
