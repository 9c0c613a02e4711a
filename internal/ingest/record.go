package ingest

import (
	"encoding/json"
	"fmt"

	"github.com/hilthontt/teamrelay/internal/domain"
)

// EncodeRecord renders the queued form of a message: every message field
// plus the sender's connection_id.
func EncodeRecord(message *domain.Message) ([]byte, error) {
	body, err := json.Marshal(message)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	return body, nil
}

func DecodeRecord(body []byte) (*domain.Message, error) {
	var message domain.Message
	if err := json.Unmarshal(body, &message); err != nil {
		return nil, fmt.Errorf("%w: decode record: %v", domain.ErrValidation, err)
	}

	if err := message.Validate(); err != nil {
		return nil, err
	}
	return &message, nil
}
