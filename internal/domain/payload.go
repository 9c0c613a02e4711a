package domain

import "encoding/json"

// Action tags a broadcast payload.
type Action string

const (
	ActionJoin       Action = "join"
	ActionDisconnect Action = "disconnect"
	ActionMessage    Action = "message"
)

// ExcludesSender reports whether the connection that triggered the event is
// left out of the fan-out. Joins skip the joining socket, disconnects skip the
// already-deleted socket, messages echo back to the sender.
func (a Action) ExcludesSender() bool {
	switch a {
	case ActionJoin, ActionDisconnect:
		return true
	default:
		return false
	}
}

type Payload struct {
	Action Action `json:"action"`
	Data   any    `json:"data"`
}

type PresenceData struct {
	ActiveUserIDs []string `json:"activeUserIds"`
}

type MessageData struct {
	ActiveUserIDs []string    `json:"activeUserIds"`
	Messages      MessageBody `json:"messages"`
}

type MessageBody struct {
	UserID      string `json:"user_id"`
	Content     string `json:"content"`
	ContentType string `json:"content_type"`
	CreatedAt   string `json:"created_at"`
}

func NewJoinPayload(activeUserIDs []string) Payload {
	return Payload{
		Action: ActionJoin,
		Data:   PresenceData{ActiveUserIDs: nonNil(activeUserIDs)},
	}
}

func NewDisconnectPayload(activeUserIDs []string) Payload {
	return Payload{
		Action: ActionDisconnect,
		Data:   PresenceData{ActiveUserIDs: nonNil(activeUserIDs)},
	}
}

func NewMessagePayload(activeUserIDs []string, message *Message) Payload {
	return Payload{
		Action: ActionMessage,
		Data: MessageData{
			ActiveUserIDs: nonNil(activeUserIDs),
			Messages: MessageBody{
				UserID:      message.UserID,
				Content:     message.Content,
				ContentType: message.ContentType,
				CreatedAt:   message.CreatedAt,
			},
		},
	}
}

func (p Payload) Encode() ([]byte, error) {
	return json.Marshal(p)
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
