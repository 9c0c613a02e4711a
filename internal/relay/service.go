package relay

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/hilthontt/teamrelay/internal/broadcast"
	"github.com/hilthontt/teamrelay/internal/domain"
	"github.com/hilthontt/teamrelay/internal/infrastructure/logging"
	"github.com/hilthontt/teamrelay/internal/infrastructure/metrics"
	"github.com/hilthontt/teamrelay/internal/infrastructure/tracing"
	"github.com/hilthontt/teamrelay/internal/ingest"
	"github.com/hilthontt/teamrelay/internal/presence"
	"github.com/jonboulle/clockwork"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Service handles every inbound trigger: socket open and close, message
// sends, queue batches and presence lookups. Each call is independent.
type Service struct {
	registry   domain.ConnectionRegistry
	presence   *presence.Resolver
	dispatcher *broadcast.Dispatcher
	publisher  *ingest.Publisher
	writer     *ingest.Writer
	clock      clockwork.Clock
	logger     logging.Logger
	tracer     trace.Tracer
}

func NewService(
	registry domain.ConnectionRegistry,
	resolver *presence.Resolver,
	dispatcher *broadcast.Dispatcher,
	publisher *ingest.Publisher,
	writer *ingest.Writer,
	clock clockwork.Clock,
	logger logging.Logger,
) *Service {
	return &Service{
		registry:   registry,
		presence:   resolver,
		dispatcher: dispatcher,
		publisher:  publisher,
		writer:     writer,
		clock:      clock,
		logger:     logger,
		tracer:     tracing.GetTracer("relay"),
	}
}

// Connect registers the connection and tells the rest of the team.
func (s *Service) Connect(ctx context.Context, req ConnectRequest) Result {
	ctx, span := s.tracer.Start(ctx, "relay.Connect", trace.WithAttributes(
		attribute.String("team_code", req.TeamCode),
		attribute.String("connection_id", req.ConnectionID),
	))
	defer span.End()

	conn, err := domain.NewConnection(req.ConnectionID, req.TeamCode, req.UserID)
	if err != nil {
		s.logValidation(err, req.ConnectionID)
		return badRequest(errIdentityRequired)
	}

	if err := s.registry.Put(ctx, conn); err != nil {
		s.fail(span, logging.Join, "failed to register connection", err, conn)
		return internalError(errConnectFailed)
	}

	s.logger.Info(logging.WebSocket, logging.Join, "connection registered", map[logging.ExtraKey]any{
		logging.ConnectionID: conn.ConnectionID,
		logging.TeamCode:     conn.TeamCode,
		logging.UserID:       conn.UserID,
	})

	if err := s.broadcastPresence(ctx, domain.ActionJoin, conn); err != nil {
		s.fail(span, logging.Join, "failed to broadcast join", err, conn)
		return internalError(errConnectFailed)
	}

	return ok(msgConnected)
}

// Disconnect removes the connection and tells whoever is left. An unknown
// connection is not an error.
func (s *Service) Disconnect(ctx context.Context, connectionID string) Result {
	ctx, span := s.tracer.Start(ctx, "relay.Disconnect", trace.WithAttributes(
		attribute.String("connection_id", connectionID),
	))
	defer span.End()

	if connectionID == "" {
		return badRequest(errConnectionRequired)
	}

	conn, err := s.registry.Get(ctx, connectionID)
	if errors.Is(err, domain.ErrConnectionNotFound) {
		return ok(msgNoConnections)
	}
	if err != nil {
		s.fail(span, logging.Leave, "failed to look up connection", err, domain.Connection{ConnectionID: connectionID})
		return internalError(errDisconnectFailed)
	}

	if err := s.registry.Delete(ctx, connectionID); err != nil {
		s.fail(span, logging.Leave, "failed to remove connection", err, conn)
		return internalError(errDisconnectFailed)
	}

	s.logger.Info(logging.WebSocket, logging.Leave, "connection removed", map[logging.ExtraKey]any{
		logging.ConnectionID: conn.ConnectionID,
		logging.TeamCode:     conn.TeamCode,
		logging.UserID:       conn.UserID,
	})

	if err := s.broadcastPresence(ctx, domain.ActionDisconnect, conn); err != nil {
		s.fail(span, logging.Leave, "failed to broadcast disconnect", err, conn)
		return internalError(errDisconnectFailed)
	}

	return ok(msgDisconnected)
}

// SendMessage stamps created_at, enqueues the message for persistence and
// echoes it to every live connection of the team, sender included.
func (s *Service) SendMessage(ctx context.Context, req SendMessageRequest) Result {
	ctx, span := s.tracer.Start(ctx, "relay.SendMessage", trace.WithAttributes(
		attribute.String("team_code", req.TeamCode),
		attribute.String("connection_id", req.ConnectionID),
	))
	defer span.End()

	message, err := domain.NewMessage(req.TeamCode, req.UserID, req.Content, req.ContentType, req.ConnectionID, s.clock.Now())
	if err != nil {
		s.logValidation(err, req.ConnectionID)
		if req.TeamCode == "" || req.UserID == "" {
			return badRequest(errIdentityRequired)
		}
		return badRequest(errInvalidMessage)
	}

	sender := domain.Connection{ConnectionID: req.ConnectionID, TeamCode: req.TeamCode, UserID: req.UserID}

	if err := s.publisher.Publish(ctx, message); err != nil {
		s.fail(span, logging.Enqueue, "failed to enqueue message", err, sender)
		return internalError(errSendFailed)
	}

	targets, members, err := s.presence.Snapshot(ctx, message.TeamCode)
	if err != nil {
		s.fail(span, logging.Broadcast, "failed to resolve presence", err, sender)
		return internalError(errSendFailed)
	}

	payload, err := domain.NewMessagePayload(members, message).Encode()
	if err != nil {
		s.fail(span, logging.Broadcast, "failed to encode payload", err, sender)
		return internalError(errSendFailed)
	}

	s.dispatch(ctx, domain.ActionMessage, targets, payload, sender)

	return ok(msgMessagesProcessed)
}

// WriteMessages persists one queue batch.
func (s *Service) WriteMessages(ctx context.Context, bodies [][]byte) Result {
	ctx, span := s.tracer.Start(ctx, "relay.WriteMessages", trace.WithAttributes(
		attribute.Int("batch_size", len(bodies)),
	))
	defer span.End()

	if err := s.writer.Handle(ctx, bodies); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return internalError(errWriteFailed)
	}

	return ok(msgMessagesSaved)
}

// BatchHandler adapts WriteMessages to a queue consumer: anything but 200
// fails the batch.
func (s *Service) BatchHandler() ingest.BatchHandler {
	return func(ctx context.Context, bodies [][]byte) error {
		result := s.WriteMessages(ctx, bodies)
		if !result.OK() {
			return fmt.Errorf("write messages: status %d", result.Status)
		}
		return nil
	}
}

// ActiveUsers lists one entry per live connection of the team.
func (s *Service) ActiveUsers(ctx context.Context, teamCode string) Result {
	ctx, span := s.tracer.Start(ctx, "relay.ActiveUsers", trace.WithAttributes(
		attribute.String("team_code", teamCode),
	))
	defer span.End()

	if teamCode == "" {
		return badRequest(errTeamCodeRequired)
	}

	conns, _, err := s.presence.Snapshot(ctx, teamCode)
	if err != nil {
		s.fail(span, logging.ExternalService, "failed to fetch active users", err, domain.Connection{TeamCode: teamCode})
		return internalError(errActiveUsersFailed)
	}

	users := lo.Map(conns, func(c domain.Connection, _ int) ActiveUser {
		return ActiveUser{TeamCode: c.TeamCode, UserID: c.UserID}
	})

	return Result{Status: http.StatusOK, Body: users}
}

func (s *Service) broadcastPresence(ctx context.Context, action domain.Action, sender domain.Connection) error {
	targets, members, err := s.presence.Snapshot(ctx, sender.TeamCode)
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		return nil
	}

	var payload domain.Payload
	if action == domain.ActionJoin {
		payload = domain.NewJoinPayload(members)
	} else {
		payload = domain.NewDisconnectPayload(members)
	}

	body, err := payload.Encode()
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", action, err)
	}

	s.dispatch(ctx, action, targets, body, sender)
	return nil
}

func (s *Service) dispatch(ctx context.Context, action domain.Action, targets []domain.Connection, payload []byte, sender domain.Connection) {
	exclude := ""
	if action.ExcludesSender() {
		exclude = sender.ConnectionID
	}

	report := s.dispatcher.Dispatch(ctx, targets, payload, exclude)
	metrics.BroadcastsTotal.WithLabelValues(string(action)).Inc()

	s.logger.Debug(logging.WebSocket, logging.Broadcast, "broadcast settled", map[logging.ExtraKey]any{
		logging.Action:   string(action),
		logging.TeamCode: sender.TeamCode,
		"targets":        report.Targets,
		"skipped":        report.Skipped,
		"delivered":      report.Delivered,
		"evicted":        report.Evicted,
		"failed":         report.Failed,
	})
}

func (s *Service) fail(span trace.Span, sub logging.SubCategory, msg string, err error, conn domain.Connection) {
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)

	s.logger.Error(logging.Internal, sub, msg, map[logging.ExtraKey]any{
		logging.ConnectionID: conn.ConnectionID,
		logging.TeamCode:     conn.TeamCode,
		logging.UserID:       conn.UserID,
		logging.ErrorMessage: err.Error(),
	})
}

func (s *Service) logValidation(err error, connectionID string) {
	s.logger.Warn(logging.Validation, logging.ExternalService, "rejected invalid request", map[logging.ExtraKey]any{
		logging.ConnectionID: connectionID,
		logging.ErrorMessage: err.Error(),
	})
}
