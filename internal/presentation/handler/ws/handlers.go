package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/hilthontt/teamrelay/internal/infrastructure/configs"
	jsonutil "github.com/hilthontt/teamrelay/internal/infrastructure/json"
	"github.com/hilthontt/teamrelay/internal/infrastructure/logging"
	"github.com/hilthontt/teamrelay/internal/infrastructure/metrics"
	"github.com/hilthontt/teamrelay/internal/infrastructure/ws"
	"github.com/hilthontt/teamrelay/internal/relay"
)

type Relay interface {
	Connect(ctx context.Context, req relay.ConnectRequest) relay.Result
	Disconnect(ctx context.Context, connectionID string) relay.Result
	SendMessage(ctx context.Context, req relay.SendMessageRequest) relay.Result
}

type Handler struct {
	relay    Relay
	hub      *ws.Hub
	upgrader websocket.Upgrader
	cfg      configs.WSConfig
	logger   logging.Logger

	mu      sync.Mutex
	closing bool
	active  sync.WaitGroup
}

func NewHandler(relay Relay, hub *ws.Hub, cfg configs.Config, logger logging.Logger) *Handler {
	origins := cfg.HTTP.AllowedOrigins

	return &Handler{
		relay: relay,
		hub:   hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || slices.Contains(origins, "*") || slices.Contains(origins, origin)
			},
		},
		cfg:    cfg.WS,
		logger: logger,
	}
}

// ConnectHandler upgrades /ws?team_code=&user_id= and keeps the socket in
// the hub for as long as it is open.
func (h *Handler) ConnectHandler(w http.ResponseWriter, r *http.Request) {
	teamCode := r.URL.Query().Get("team_code")
	userID := r.URL.Query().Get("user_id")
	if teamCode == "" || userID == "" {
		jsonutil.WriteBadRequestError(w, "team_code and user_id are required.")
		return
	}

	if !h.track() {
		jsonutil.WriteError(w, http.StatusServiceUnavailable, "server is shutting down")
		return
	}
	defer h.active.Done()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		metrics.WebSocketConnectionsTotal.WithLabelValues("upgrade_failed").Inc()
		h.logger.Warn(logging.WebSocket, logging.Join, "websocket upgrade failed", map[logging.ExtraKey]any{
			logging.TeamCode:     teamCode,
			logging.ErrorMessage: err.Error(),
		})
		return
	}

	// The request context ends with the handler; the socket outlives it.
	ctx := context.WithoutCancel(r.Context())

	client := ws.NewClient(conn, uuid.NewString(), teamCode, userID, h.cfg, h.logger)
	h.hub.Register(client)

	result := h.relay.Connect(ctx, relay.ConnectRequest{
		ConnectionID: client.ID,
		TeamCode:     teamCode,
		UserID:       userID,
	})
	if !result.OK() {
		metrics.WebSocketConnectionsTotal.WithLabelValues("rejected").Inc()
		h.hub.Unregister(client.ID)

		code := websocket.CloseInternalServerErr
		if result.Status == http.StatusBadRequest {
			code = websocket.ClosePolicyViolation
		}
		_ = client.CloseWith(code, http.StatusText(result.Status))
		return
	}

	metrics.WebSocketConnectionsTotal.WithLabelValues("accepted").Inc()

	client.ReadMessage(ctx, h.handleFrame)

	h.hub.Unregister(client.ID)
	h.relay.Disconnect(ctx, client.ID)
}

func (h *Handler) handleFrame(ctx context.Context, c *ws.Client, frame ws.Frame) {
	switch frame.Action {
	case ws.ActionSendMessage:
		var req relay.SendMessageRequest
		if err := json.Unmarshal(frame.Data, &req); err != nil {
			_ = c.SendJSON(ws.NewErrorFrame("malformed message data"))
			return
		}
		req.ConnectionID = c.ID
		if req.TeamCode == "" {
			req.TeamCode = c.TeamCode
		}
		if req.UserID == "" {
			req.UserID = c.UserID
		}

		result := h.relay.SendMessage(ctx, req)
		if !result.OK() {
			if body, ok := result.Body.(jsonutil.ErrorBody); ok {
				_ = c.SendJSON(ws.NewErrorFrame(body.Error))
			}
		}
	default:
		_ = c.SendJSON(ws.NewErrorFrame("unknown action"))
	}
}

// track registers a socket handler unless shutdown has started.
func (h *Handler) track() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closing {
		return false
	}
	h.active.Add(1)
	return true
}

// Wait refuses new sockets, then blocks until every socket handler has
// finished its disconnect work or ctx expires.
func (h *Handler) Wait(ctx context.Context) {
	h.mu.Lock()
	h.closing = true
	h.mu.Unlock()

	done := make(chan struct{})
	go func() {
		h.active.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
	}
}
