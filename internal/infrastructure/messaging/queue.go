package messaging

import (
	"fmt"

	"github.com/hilthontt/teamrelay/internal/infrastructure/configs"
	"github.com/hilthontt/teamrelay/internal/infrastructure/logging"
	"github.com/hilthontt/teamrelay/internal/ingest"
	"github.com/jonboulle/clockwork"
)

// Queue is a durable queue that can both accept and deliver records.
type Queue interface {
	ingest.Queue
	ingest.Consumer
}

// NewQueue builds the queue named by cfg.Driver. The returned close func
// releases the broker connection, if any.
func NewQueue(cfg configs.QueueConfig, logger logging.Logger) (Queue, func(), error) {
	switch cfg.Driver {
	case configs.DriverMemory:
		return ingest.NewMemoryQueue(cfg.BatchSize, cfg.BatchWindow, clockwork.NewRealClock(), logger), func() {}, nil
	case configs.DriverRabbitMQ:
		rmq, err := NewRabbitMQ(cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		return rmq, rmq.Close, nil
	}

	return nil, nil, fmt.Errorf("unsupported queue driver %q", cfg.Driver)
}
