package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/hilthontt/teamrelay/internal/domain"
)

// badgerMessageLog appends under msg\x00{team_code}\x00{created_at}\x00{uuid}
// so a team's history iterates in creation order. Redelivered duplicates get
// distinct keys.
type badgerMessageLog struct {
	db *badger.DB
}

func NewBadgerMessageLog(db *badger.DB) domain.MessageLog {
	return &badgerMessageLog{db: db}
}

func messagePrefix(teamCode string) []byte {
	return []byte("msg" + keySep + teamCode + keySep)
}

func (l *badgerMessageLog) Append(_ context.Context, message *domain.Message) error {
	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	key := append(messagePrefix(message.TeamCode), message.CreatedAt+keySep+uuid.NewString()...)

	if err := l.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	}); err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}
