package relay

import (
	"net/http"

	jsonutil "github.com/hilthontt/teamrelay/internal/infrastructure/json"
)

// Result is the outcome of one inbound trigger, independent of transport.
type Result struct {
	Status int
	Body   any
}

func (r Result) OK() bool {
	return r.Status == http.StatusOK
}

type ConnectRequest struct {
	ConnectionID string
	TeamCode     string
	UserID       string
}

type SendMessageRequest struct {
	ConnectionID string `json:"-"`
	TeamCode     string `json:"team_code"`
	UserID       string `json:"user_id"`
	Content      string `json:"content"`
	ContentType  string `json:"content_type"`
}

type ActiveUser struct {
	TeamCode string `json:"team_code"`
	UserID   string `json:"user_id"`
}

const (
	msgConnected          = "Connection successful!"
	msgDisconnected       = "Disconnection and session removal successful!"
	msgNoConnections      = "No active connections found."
	msgMessagesProcessed  = "Messages processed successfully!"
	msgMessagesSaved      = "The message is saved."
	errIdentityRequired   = "team_code and user_id are required."
	errConnectionRequired = "Missing connection id."
	errInvalidMessage     = "Invalid message."
	errTeamCodeRequired   = "Missing 'team_code' path parameter."
	errConnectFailed      = "Failed to process connection."
	errDisconnectFailed   = "Failed to process disconnection."
	errSendFailed         = "Internal Server Error"
	errWriteFailed        = "An error occurred while processing the message."
	errActiveUsersFailed  = "Failed to fetch active user data."
)

func ok(message string) Result {
	return Result{Status: http.StatusOK, Body: jsonutil.MessageBody{Message: message}}
}

func badRequest(message string) Result {
	return Result{Status: http.StatusBadRequest, Body: jsonutil.ErrorBody{Error: message}}
}

func internalError(message string) Result {
	return Result{Status: http.StatusInternalServerError, Body: jsonutil.ErrorBody{Error: message}}
}
