package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hilthontt/teamrelay/internal/broadcast"
	"github.com/hilthontt/teamrelay/internal/domain"
	"github.com/hilthontt/teamrelay/internal/infrastructure/configs"
	"github.com/hilthontt/teamrelay/internal/infrastructure/logging"
	"github.com/hilthontt/teamrelay/internal/infrastructure/ws"
	"github.com/hilthontt/teamrelay/internal/ingest"
	"github.com/hilthontt/teamrelay/internal/persistence/repository"
	healthHandler "github.com/hilthontt/teamrelay/internal/presentation/handler/health"
	messagesHandler "github.com/hilthontt/teamrelay/internal/presentation/handler/messages"
	teamsHandler "github.com/hilthontt/teamrelay/internal/presentation/handler/teams"
	wsHandler "github.com/hilthontt/teamrelay/internal/presentation/handler/ws"
	"github.com/hilthontt/teamrelay/internal/presence"
	"github.com/hilthontt/teamrelay/internal/relay"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	srv      *httptest.Server
	registry domain.ConnectionRegistry
	queue    *ingest.MemoryQueue
	log      *repository.MemoryMessageLog
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg := configs.Config{
		HTTP: configs.HTTPConfig{
			AllowedOrigins: []string{"*"},
			AllowedHeaders: []string{"Content-Type"},
		},
		WS: configs.WSConfig{
			WriteTimeout:   time.Second,
			PongWait:       time.Minute,
			MaxMessageSize: 4096,
		},
	}
	logger := logging.NewNopLogger()
	clock := clockwork.NewFakeClockAt(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC))

	registry := repository.NewMemoryConnectionRegistry()
	log := repository.NewMemoryMessageLog()
	queue := ingest.NewMemoryQueue(10, 0, clock, logger)
	hub := ws.NewHub()

	service := relay.NewService(
		registry,
		presence.NewResolver(registry),
		broadcast.NewDispatcher(hub, registry, 8, logger),
		ingest.NewPublisher(queue),
		ingest.NewWriter(log, logger),
		clock,
		logger,
	)

	app := NewApplication(
		cfg,
		healthHandler.NewHandler(),
		messagesHandler.NewHandler(service),
		teamsHandler.NewHandler(service),
		wsHandler.NewHandler(service, hub, cfg, logger),
		hub,
		logger,
	)

	srv := httptest.NewServer(app.Mount())
	t.Cleanup(func() {
		hub.CloseAll()
		srv.Close()
	})

	return &testServer{srv: srv, registry: registry, queue: queue, log: log}
}

func (s *testServer) dial(t *testing.T, team, user string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(s.srv.URL, "http") + "/ws?team_code=" + team + "&user_id=" + user
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

func (s *testServer) waitMembers(t *testing.T, team string, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		conns, err := s.registry.ScanByGroup(context.Background(), team)
		return err == nil && len(conns) == n
	}, 2*time.Second, 5*time.Millisecond)
}

func readPayload(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(data, &payload))
	return payload
}

func TestRelayOverWebsocket(t *testing.T) {
	s := newTestServer(t)

	alice := s.dial(t, "T1", "U1")
	s.waitMembers(t, "T1", 1)

	bob := s.dial(t, "T1", "U2")
	s.waitMembers(t, "T1", 2)

	joined := readPayload(t, alice)
	assert.Equal(t, "join", joined["action"])
	assert.Equal(t, map[string]any{"activeUserIds": []any{"U1", "U2"}}, joined["data"])

	require.NoError(t, bob.WriteJSON(map[string]any{
		"action": "sendMessage",
		"data": map[string]any{
			"team_code":    "T1",
			"user_id":      "U2",
			"content":      "hello",
			"content_type": "text",
		},
	}))

	for _, conn := range []*websocket.Conn{alice, bob} {
		msg := readPayload(t, conn)
		assert.Equal(t, "message", msg["action"])
		data := msg["data"].(map[string]any)
		assert.Equal(t, map[string]any{
			"user_id":      "U2",
			"content":      "hello",
			"content_type": "text",
			"created_at":   "2024-05-01T10:00:00.000Z",
		}, data["messages"])
	}
	assert.Equal(t, 1, s.queue.Len())

	require.NoError(t, bob.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	s.waitMembers(t, "T1", 1)

	left := readPayload(t, alice)
	assert.Equal(t, "disconnect", left["action"])
	assert.Equal(t, map[string]any{"activeUserIds": []any{"U1"}}, left["data"])
}

func TestWebsocketRequiresIdentity(t *testing.T) {
	s := newTestServer(t)

	url := "ws" + strings.TrimPrefix(s.srv.URL, "http") + "/ws?team_code=T1"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestActiveUsersEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.dial(t, "T1", "U1")
	s.dial(t, "T1", "U2")
	s.waitMembers(t, "T1", 2)

	resp, err := http.Get(s.srv.URL + "/api/teams/T1/active-users")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[{"team_code":"T1","user_id":"U1"},{"team_code":"T1","user_id":"U2"}]`, string(body))
}

func TestActiveUsersEndpointEmptyTeam(t *testing.T) {
	s := newTestServer(t)

	resp, err := http.Get(s.srv.URL + "/api/teams/nobody/active-users")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[]`, string(body))
}

func TestPostMessageEndpoint(t *testing.T) {
	s := newTestServer(t)
	alice := s.dial(t, "T1", "U1")
	s.waitMembers(t, "T1", 1)

	resp, err := http.Post(s.srv.URL+"/api/messages", "application/json",
		strings.NewReader(`{"team_code":"T1","user_id":"U9","content":"from rest","content_type":"text"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"message":"Messages processed successfully!"}`, string(body))

	msg := readPayload(t, alice)
	assert.Equal(t, "message", msg["action"])
	assert.Equal(t, 1, s.queue.Len())
}

func TestPostMessageValidation(t *testing.T) {
	s := newTestServer(t)

	resp, err := http.Post(s.srv.URL+"/api/messages", "application/json", strings.NewReader(`{"content":"x"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, 0, s.queue.Len())
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/api/health", "/healthz", "/ready", "/live", "/metrics"} {
		resp, err := http.Get(s.srv.URL + path)
		require.NoError(t, err, path)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
}

func TestWebsocketRejectsBadFrames(t *testing.T) {
	s := newTestServer(t)
	conn := s.dial(t, "T1", "U1")
	s.waitMembers(t, "T1", 1)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"action":"shout"}`)))
	assert.Equal(t, map[string]any{"action": "error", "error": "unknown action"}, readPayload(t, conn))

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`not json`)))
	assert.Equal(t, map[string]any{"action": "error", "error": "malformed frame"}, readPayload(t, conn))

	assert.Equal(t, 0, s.queue.Len())
}

func TestWebsocketFrameDefaultsIdentityFromConnection(t *testing.T) {
	s := newTestServer(t)
	conn := s.dial(t, "T1", "U1")
	s.waitMembers(t, "T1", 1)

	require.NoError(t, conn.WriteJSON(map[string]any{
		"action": "sendMessage",
		"data":   map[string]any{"content": "hi"},
	}))

	msg := readPayload(t, conn)
	assert.Equal(t, "message", msg["action"])
	data := msg["data"].(map[string]any)
	assert.Equal(t, []any{"U1"}, data["activeUserIds"])
	assert.Equal(t, "U1", data["messages"].(map[string]any)["user_id"])
}
