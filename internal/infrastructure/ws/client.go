package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hilthontt/teamrelay/internal/infrastructure/configs"
	"github.com/hilthontt/teamrelay/internal/infrastructure/logging"
)

// FrameHandler receives each well-formed inbound frame.
type FrameHandler func(ctx context.Context, c *Client, frame Frame)

type Client struct {
	ID       string
	TeamCode string
	UserID   string

	conn   *connWrapper
	closed atomic.Bool
	cfg    configs.WSConfig
	logger logging.Logger
}

func NewClient(conn *websocket.Conn, id, teamCode, userID string, cfg configs.WSConfig, logger logging.Logger) *Client {
	return &Client{
		ID:       id,
		TeamCode: teamCode,
		UserID:   userID,
		conn:     newConnWrapper(conn, cfg.WriteTimeout),
		cfg:      cfg,
		logger:   logger,
	}
}

// Send writes one text frame synchronously.
func (c *Client) Send(payload []byte) error {
	if c.closed.Load() {
		return errClientClosed
	}
	return c.conn.WriteText(payload)
}

// SendJSON is used for replies to the client's own frames.
func (c *Client) SendJSON(v any) error {
	if c.closed.Load() {
		return errClientClosed
	}
	return c.conn.WriteJSON(v)
}

func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	return c.conn.Close()
}

func (c *Client) CloseWith(code int, text string) error {
	if c.closed.Swap(true) {
		return nil
	}
	return c.conn.CloseWith(code, text)
}

// ReadMessage blocks reading frames until the socket fails or closes, then
// closes the client. Pings keep idle sockets alive within PongWait.
func (c *Client) ReadMessage(ctx context.Context, handle FrameHandler) {
	defer func() {
		_ = c.Close()
	}()

	raw := c.conn.conn
	if c.cfg.MaxMessageSize > 0 {
		raw.SetReadLimit(c.cfg.MaxMessageSize)
	}
	if c.cfg.PongWait > 0 {
		_ = raw.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
		raw.SetPongHandler(func(string) error {
			return raw.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
		})

		stop := make(chan struct{})
		defer close(stop)
		go c.pingLoop(stop)
	}

	for {
		_, data, err := raw.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				c.logger.Warn(logging.WebSocket, logging.Leave, "websocket read error", map[logging.ExtraKey]any{
					logging.ConnectionID: c.ID,
					logging.ErrorMessage: err.Error(),
				})
			}
			return
		}

		var frame Frame
		if err := json.Unmarshal(data, &frame); err != nil || frame.Action == "" {
			_ = c.SendJSON(NewErrorFrame("malformed frame"))
			continue
		}

		handle(ctx, c, frame)
	}
}

func (c *Client) pingLoop(stop <-chan struct{}) {
	ticker := time.NewTicker(c.cfg.PongWait * 9 / 10)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := c.conn.Ping(); err != nil {
				return
			}
		}
	}
}

var errClientClosed = errors.New("client closed")

// isGone reports whether a write error means the peer is no longer there, as
// opposed to a slow or transiently failing write.
func isGone(err error) bool {
	switch {
	case errors.Is(err, errClientClosed),
		errors.Is(err, websocket.ErrCloseSent),
		errors.Is(err, net.ErrClosed),
		errors.Is(err, syscall.EPIPE),
		errors.Is(err, syscall.ECONNRESET):
		return true
	}

	var closeErr *websocket.CloseError
	return errors.As(err, &closeErr)
}
