package messaging

import (
	"testing"
	"time"

	"github.com/hilthontt/teamrelay/internal/infrastructure/configs"
	"github.com/hilthontt/teamrelay/internal/infrastructure/logging"
	"github.com/hilthontt/teamrelay/internal/ingest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewQueueMemory(t *testing.T) {
	q, closeFn, err := NewQueue(configs.QueueConfig{
		Driver:      configs.DriverMemory,
		BatchSize:   5,
		BatchWindow: time.Millisecond,
	}, logging.NewNopLogger())
	require.NoError(t, err)
	defer closeFn()

	assert.IsType(t, &ingest.MemoryQueue{}, q)
}

func TestNewQueueUnknownDriver(t *testing.T) {
	_, _, err := NewQueue(configs.QueueConfig{Driver: "kafka"}, logging.NewNopLogger())
	assert.ErrorContains(t, err, "kafka")
}
