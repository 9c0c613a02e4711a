package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/hilthontt/teamrelay/internal/infrastructure/validate"
)

// TimestampLayout renders created_at as ISO-8601 UTC with millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Message is one chat event. CreatedAt is assigned once at ingestion and the
// persisted row is never modified.
type Message struct {
	TeamCode     string `json:"team_code" bson:"team_code" validate:"required,max=128"`
	CreatedAt    string `json:"created_at" bson:"created_at"`
	Content      string `json:"content" bson:"content" validate:"max=5000"`
	ContentType  string `json:"content_type" bson:"content_type" validate:"max=64"`
	UserID       string `json:"user_id" bson:"user_id" validate:"required,max=128"`
	ConnectionID string `json:"connection_id,omitempty" bson:"connection_id,omitempty"`
}

// MessageLog is the append-only message history.
type MessageLog interface {
	Append(ctx context.Context, message *Message) error
}

func NewMessage(teamCode, userID, content, contentType, connectionID string, at time.Time) (*Message, error) {
	message := &Message{
		TeamCode:     teamCode,
		CreatedAt:    FormatTimestamp(at),
		Content:      content,
		ContentType:  contentType,
		UserID:       userID,
		ConnectionID: connectionID,
	}

	if err := message.Validate(); err != nil {
		return nil, err
	}

	return message, nil
}

func (m *Message) Validate() error {
	if err := validate.Struct(m); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}

func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}
