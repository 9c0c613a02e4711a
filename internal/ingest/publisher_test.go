package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/hilthontt/teamrelay/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureQueue struct {
	partitions []string
	bodies     [][]byte
	err        error
}

func (q *captureQueue) Enqueue(_ context.Context, partitionKey string, body []byte) error {
	if q.err != nil {
		return q.err
	}
	q.partitions = append(q.partitions, partitionKey)
	q.bodies = append(q.bodies, body)
	return nil
}

func TestPublisherPartitionsByTeam(t *testing.T) {
	queue := &captureQueue{}

	err := NewPublisher(queue).Publish(context.Background(), &domain.Message{TeamCode: "T9", UserID: "U1"})
	require.NoError(t, err)

	assert.Equal(t, []string{"T9"}, queue.partitions)
	decoded, err := DecodeRecord(queue.bodies[0])
	require.NoError(t, err)
	assert.Equal(t, "T9", decoded.TeamCode)
}

func TestPublisherWrapsQueueError(t *testing.T) {
	boom := errors.New("broker down")

	err := NewPublisher(&captureQueue{err: boom}).Publish(context.Background(), &domain.Message{TeamCode: "T1", UserID: "U1"})
	assert.ErrorIs(t, err, boom)
}
