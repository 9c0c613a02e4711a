package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hilthontt/teamrelay/internal/broadcast"
	"github.com/hilthontt/teamrelay/internal/infrastructure/configs"
	"github.com/hilthontt/teamrelay/internal/infrastructure/logging"
	"github.com/hilthontt/teamrelay/internal/infrastructure/messaging"
	"github.com/hilthontt/teamrelay/internal/infrastructure/tracing"
	"github.com/hilthontt/teamrelay/internal/infrastructure/ws"
	"github.com/hilthontt/teamrelay/internal/ingest"
	"github.com/hilthontt/teamrelay/internal/persistence/repository"
	"github.com/hilthontt/teamrelay/internal/presence"
	"github.com/hilthontt/teamrelay/internal/presentation/api"
	healthHandler "github.com/hilthontt/teamrelay/internal/presentation/handler/health"
	messagesHandler "github.com/hilthontt/teamrelay/internal/presentation/handler/messages"
	teamsHandler "github.com/hilthontt/teamrelay/internal/presentation/handler/teams"
	wsHandler "github.com/hilthontt/teamrelay/internal/presentation/handler/ws"
	"github.com/hilthontt/teamrelay/internal/relay"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
)

func main() {
	_ = godotenv.Load()

	cfg, err := configs.Load(configs.DetermineConfigPath())
	if err != nil {
		log.Fatal(err)
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
		if err := stores.Close(closeCtx); err != nil {
			logger.Error(logging.General, logging.Shutdown, "failed to close stores", map[logging.ExtraKey]any{
				logging.ErrorMessage: err.Error(),
			})
		}
	}()

	registry, err := stores.ConnectionRegistry(ctx)
	if err != nil {
		logger.Fatal(logging.General, logging.Startup, "failed to open connection registry", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
	}

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

	hub := ws.NewHub()

	service := relay.NewService(
		registry,
		presence.NewResolver(registry),
		broadcast.NewDispatcher(hub, registry, cfg.Broadcast.MaxConcurrency, logger),
		ingest.NewPublisher(queue),
		ingest.NewWriter(messageLog, logger),
		clockwork.NewRealClock(),
		logger,
	)

	consumerDone := make(chan struct{})
	if cfg.Queue.EmbeddedConsumer {
		go func() {
			defer close(consumerDone)
			if err := queue.Consume(ctx, service.BatchHandler()); err != nil {
				logger.Error(logging.RabbitMQ, logging.Consume, "consumer stopped", map[logging.ExtraKey]any{
					logging.ErrorMessage: err.Error(),
				})
			}
		}()
	} else {
		close(consumerDone)
	}

	app := api.NewApplication(
		*cfg,
		healthHandler.NewHandler(),
		messagesHandler.NewHandler(service),
		teamsHandler.NewHandler(service),
		wsHandler.NewHandler(service, hub, *cfg, logger),
		hub,
		logger,
	)

	if err := app.Run(ctx, app.Mount()); err != nil {
		logger.Error(logging.General, logging.Shutdown, "server stopped with error", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
	}

	stop()
	<-consumerDone
}
