package messages

import (
	"context"
	"net/http"

	"github.com/hilthontt/teamrelay/internal/infrastructure/json"
	"github.com/hilthontt/teamrelay/internal/relay"
)

// ConnectionHeader optionally names the sender's socket so the queued record
// carries it.
const ConnectionHeader = "X-Connection-Id"

type Sender interface {
	SendMessage(ctx context.Context, req relay.SendMessageRequest) relay.Result
}

type Handler struct {
	relay Sender
}

func NewHandler(relay Sender) *Handler {
	return &Handler{relay: relay}
}

func (h *Handler) CreateMessageHandler(w http.ResponseWriter, r *http.Request) {
	var req relay.SendMessageRequest
	if err := json.Read(w, r, &req); err != nil {
		json.WriteBadRequestError(w, "malformed request body")
		return
	}
	req.ConnectionID = r.Header.Get(ConnectionHeader)

	result := h.relay.SendMessage(r.Context(), req)
	json.Write(w, result.Status, result.Body)
}
