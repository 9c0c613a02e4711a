package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hilthontt/teamrelay/internal/infrastructure/configs"
	"github.com/hilthontt/teamrelay/internal/infrastructure/logging"
	"github.com/hilthontt/teamrelay/internal/infrastructure/messaging"
	"github.com/hilthontt/teamrelay/internal/infrastructure/tracing"
	"github.com/hilthontt/teamrelay/internal/ingest"
	"github.com/hilthontt/teamrelay/internal/persistence/repository"
	"github.com/joho/godotenv"
)

// writer drains the message queue into the message log. It only makes sense
// against a broker shared with the relay processes.
func main() {
	_ = godotenv.Load()

	cfg, err := configs.Load(configs.DetermineConfigPath())
	if err != nil {
		log.Fatal(err)
	}
	if cfg.Queue.Driver != configs.DriverRabbitMQ {
		log.Fatalf("writer requires queue.driver=%s, got %q", configs.DriverRabbitMQ, cfg.Queue.Driver)
	}

	logger := logging.NewLogger(&cfg.Logger)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := tracing.InitTracer(ctx, cfg.Tracing)
	if err != nil {
		logger.Fatal(logging.General, logging.Startup, "failed to init tracer", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracer(shutdownCtx)
	}()

	stores := repository.NewStores(cfg)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = stores.Close(closeCtx)
	}()

	messageLog, err := stores.MessageLog(ctx)
	if err != nil {
		logger.Fatal(logging.General, logging.Startup, "failed to open message log", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
	}

	queue, closeQueue, err := messaging.NewQueue(cfg.Queue, logger)
	if err != nil {
		logger.Fatal(logging.RabbitMQ, logging.Startup, "failed to open queue", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
	}
	defer closeQueue()

	writer := ingest.NewWriter(messageLog, logger)

	logger.Info(logging.RabbitMQ, logging.Startup, "writer has started", map[logging.ExtraKey]any{
		"queue": cfg.Queue.Queue,
	})

	if err := queue.Consume(ctx, writer.Handle); err != nil {
		logger.Error(logging.RabbitMQ, logging.Consume, "consumer stopped", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
	}

	logger.Info(logging.RabbitMQ, logging.Shutdown, "writer has stopped", nil)
}
