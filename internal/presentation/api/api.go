package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hilthontt/teamrelay/internal/infrastructure/configs"
	"github.com/hilthontt/teamrelay/internal/infrastructure/logging"
	"github.com/hilthontt/teamrelay/internal/infrastructure/ws"
	healthHandler "github.com/hilthontt/teamrelay/internal/presentation/handler/health"
	messagesHandler "github.com/hilthontt/teamrelay/internal/presentation/handler/messages"
	teamsHandler "github.com/hilthontt/teamrelay/internal/presentation/handler/teams"
	wsHandler "github.com/hilthontt/teamrelay/internal/presentation/handler/ws"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type Application struct {
	config          configs.Config
	healthHandler   *healthHandler.Handler
	messagesHandler *messagesHandler.Handler
	teamsHandler    *teamsHandler.Handler
	wsHandler       *wsHandler.Handler
	hub             *ws.Hub
	logger          logging.Logger
}

func NewApplication(
	config configs.Config,
	healthHandler *healthHandler.Handler,
	messagesHandler *messagesHandler.Handler,
	teamsHandler *teamsHandler.Handler,
	wsHandler *wsHandler.Handler,
	hub *ws.Hub,
	logger logging.Logger,
) *Application {
	return &Application{
		config:          config,
		healthHandler:   healthHandler,
		messagesHandler: messagesHandler,
		teamsHandler:    teamsHandler,
		wsHandler:       wsHandler,
		hub:             hub,
		logger:          logger,
	}
}

func (app *Application) Mount() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(app.loggerMiddleware)
	r.Use(app.prometheusMiddleware)
	r.Use(app.enableCors)

	r.Get("/ws", app.wsHandler.ConnectHandler)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/healthz", app.healthHandler.GetHealth)
	r.Get("/ready", app.healthHandler.GetHealth)
	r.Get("/live", app.healthHandler.GetHealth)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))

		r.Post("/messages", app.messagesHandler.CreateMessageHandler)
		r.Get("/teams/{team_code}/active-users", app.teamsHandler.GetActiveUsersHandler)

		r.Get("/health", app.healthHandler.GetHealth)
	})

	return otelhttp.NewHandler(r, "teamrelay",
		otelhttp.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != "/metrics" && r.URL.Path != "/ws"
		}),
	)
}

// Run serves until ctx is cancelled, then drains requests and closes every
// open socket.
func (app *Application) Run(ctx context.Context, mux http.Handler) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", app.config.HTTP.Host, app.config.HTTP.Port),
		Handler:      mux,
		WriteTimeout: app.config.HTTP.WriteTimeout,
		ReadTimeout:  app.config.HTTP.ReadTimeout,
		IdleTimeout:  time.Minute,
	}

	shutdown := make(chan error, 1)

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		app.logger.Info(logging.General, logging.Shutdown, "shutting down server", map[logging.ExtraKey]any{
			"addr": srv.Addr,
		})

		err := srv.Shutdown(shutdownCtx)
		app.hub.CloseAll()
		app.wsHandler.Wait(shutdownCtx)
		shutdown <- err
	}()

	app.logger.Info(logging.General, logging.Startup, "server has started", map[logging.ExtraKey]any{
		"addr": srv.Addr,
	})

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	if err := <-shutdown; err != nil {
		return err
	}

	app.logger.Info(logging.General, logging.Shutdown, "server has stopped", map[logging.ExtraKey]any{
		"addr": srv.Addr,
	})

	return nil
}
