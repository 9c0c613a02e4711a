package ingest

import (
	"context"
	"fmt"

	"github.com/hilthontt/teamrelay/internal/domain"
	"github.com/hilthontt/teamrelay/internal/infrastructure/logging"
	"github.com/hilthontt/teamrelay/internal/infrastructure/metrics"
)

// Writer persists queued records to the message log.
type Writer struct {
	log    domain.MessageLog
	logger logging.Logger
}

func NewWriter(log domain.MessageLog, logger logging.Logger) *Writer {
	return &Writer{
		log:    log,
		logger: logger,
	}
}

// Handle appends every body in order and stops at the first failure. Items
// appended before the failure will be appended again on redelivery.
func (w *Writer) Handle(ctx context.Context, bodies [][]byte) error {
	metrics.ConsumerBatchSize.Observe(float64(len(bodies)))

	for i, body := range bodies {
		message, err := DecodeRecord(body)
		if err != nil {
			metrics.MessagesPersistedTotal.WithLabelValues("invalid").Inc()
			w.logger.Error(logging.Validation, logging.Consume, "undecodable queue record", map[logging.ExtraKey]any{
				logging.ErrorMessage: err.Error(),
				logging.BatchSize:    len(bodies),
			})
			return fmt.Errorf("record %d: %w", i, err)
		}

		if err := w.log.Append(ctx, message); err != nil {
			metrics.MessagesPersistedTotal.WithLabelValues("error").Inc()
			w.logger.Error(logging.Internal, logging.Persist, "failed to append message", map[logging.ExtraKey]any{
				logging.TeamCode:     message.TeamCode,
				logging.UserID:       message.UserID,
				logging.ErrorMessage: err.Error(),
			})
			return fmt.Errorf("record %d: %w", i, err)
		}

		metrics.MessagesPersistedTotal.WithLabelValues("success").Inc()
	}

	w.logger.Debug(logging.Internal, logging.Persist, "batch persisted", map[logging.ExtraKey]any{
		logging.BatchSize: len(bodies),
	})
	return nil
}
