package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hilthontt/teamrelay/internal/infrastructure/configs"
	"github.com/hilthontt/teamrelay/internal/infrastructure/logging"
	"github.com/hilthontt/teamrelay/internal/infrastructure/ws"
	"github.com/hilthontt/teamrelay/internal/relay"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRelay struct {
	mu          sync.Mutex
	connects    int
	disconnects int
}

func (f *fakeRelay) Connect(context.Context, relay.ConnectRequest) relay.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connects++
	return relay.Result{Status: http.StatusOK}
}

func (f *fakeRelay) Disconnect(context.Context, string) relay.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnects++
	return relay.Result{Status: http.StatusOK}
}

func (f *fakeRelay) SendMessage(context.Context, relay.SendMessageRequest) relay.Result {
	return relay.Result{Status: http.StatusOK}
}

func (f *fakeRelay) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connects, f.disconnects
}

func newTestHandler(r Relay) *Handler {
	cfg := configs.Config{
		WS: configs.WSConfig{WriteTimeout: time.Second, PongWait: time.Minute, MaxMessageSize: 4096},
	}
	return NewHandler(r, ws.NewHub(), cfg, logging.NewNopLogger())
}

func TestConnectHandlerRefusesAfterShutdown(t *testing.T) {
	r := &fakeRelay{}
	h := newTestHandler(r)

	h.Wait(context.Background())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ws?team_code=T1&user_id=U1", nil)
	h.ConnectHandler(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"error":"server is shutting down"}`, rec.Body.String())
	connects, _ := r.counts()
	assert.Zero(t, connects)
}

func TestConnectHandlerMissingIdentity(t *testing.T) {
	h := newTestHandler(&fakeRelay{})

	rec := httptest.NewRecorder()
	h.ConnectHandler(rec, httptest.NewRequest(http.MethodGet, "/ws?user_id=U1", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWaitReturnsAfterSocketsClose(t *testing.T) {
	r := &fakeRelay{}
	h := newTestHandler(r)

	srv := httptest.NewServer(http.HandlerFunc(h.ConnectHandler))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?team_code=T1&user_id=U1"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		connects, _ := r.counts()
		return connects == 1
	}, 2*time.Second, 5*time.Millisecond)

	waited := make(chan struct{})
	go func() {
		h.Wait(context.Background())
		close(waited)
	}()

	require.NoError(t, conn.Close())

	select {
	case <-waited:
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not return after the socket closed")
	}
	_, disconnects := r.counts()
	assert.Equal(t, 1, disconnects)
}
