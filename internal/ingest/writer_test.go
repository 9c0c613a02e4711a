package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/hilthontt/teamrelay/internal/domain"
	"github.com/hilthontt/teamrelay/internal/infrastructure/logging"
	"github.com/hilthontt/teamrelay/internal/persistence/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingLog struct {
	err error
}

func (f failingLog) Append(context.Context, *domain.Message) error {
	return f.err
}

func record(t *testing.T, team, user, content string) []byte {
	t.Helper()
	body, err := EncodeRecord(&domain.Message{
		TeamCode:    team,
		UserID:      user,
		Content:     content,
		ContentType: "text",
		CreatedAt:   "2024-05-01T10:00:00.000Z",
	})
	require.NoError(t, err)
	return body
}

func TestWriterAppendsBatchInOrder(t *testing.T) {
	log := repository.NewMemoryMessageLog()
	writer := NewWriter(log, logging.NewNopLogger())

	err := writer.Handle(context.Background(), [][]byte{
		record(t, "T1", "U1", "first"),
		record(t, "T1", "U2", "second"),
	})
	require.NoError(t, err)

	messages := log.Messages()
	require.Len(t, messages, 2)
	assert.Equal(t, "first", messages[0].Content)
	assert.Equal(t, "second", messages[1].Content)
}

func TestWriterFailsBatchOnStorageError(t *testing.T) {
	boom := errors.New("log unavailable")
	writer := NewWriter(failingLog{err: boom}, logging.NewNopLogger())

	err := writer.Handle(context.Background(), [][]byte{record(t, "T1", "U1", "hi")})
	assert.ErrorIs(t, err, boom)
}

func TestWriterFailsBatchOnInvalidRecord(t *testing.T) {
	log := repository.NewMemoryMessageLog()
	writer := NewWriter(log, logging.NewNopLogger())

	err := writer.Handle(context.Background(), [][]byte{
		record(t, "T1", "U1", "ok"),
		[]byte(`not json`),
	})
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Len(t, log.Messages(), 1)
}
