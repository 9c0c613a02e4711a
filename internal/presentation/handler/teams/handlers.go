package teams

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hilthontt/teamrelay/internal/infrastructure/json"
	"github.com/hilthontt/teamrelay/internal/relay"
)

type PresenceReader interface {
	ActiveUsers(ctx context.Context, teamCode string) relay.Result
}

type Handler struct {
	relay PresenceReader
}

func NewHandler(relay PresenceReader) *Handler {
	return &Handler{relay: relay}
}

func (h *Handler) GetActiveUsersHandler(w http.ResponseWriter, r *http.Request) {
	result := h.relay.ActiveUsers(r.Context(), chi.URLParam(r, "team_code"))
	json.Write(w, result.Status, result.Body)
}
