package ws

import "encoding/json"

// Inbound frame actions
const (
	ActionSendMessage = "sendMessage"
)

// Frame is what a client sends over the socket.
type Frame struct {
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data"`
}

// ErrorFrame is written back when an inbound frame is rejected.
type ErrorFrame struct {
	Action string `json:"action"`
	Error  string `json:"error"`
}

func NewErrorFrame(msg string) ErrorFrame {
	return ErrorFrame{Action: "error", Error: msg}
}
