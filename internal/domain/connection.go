package domain

import (
	"context"
	"fmt"

	"github.com/hilthontt/teamrelay/internal/infrastructure/validate"
)

// Connection is one live client socket registered to a team. The row exists
// for as long as the socket is believed live.
type Connection struct {
	ConnectionID string `json:"connection_id" bson:"_id" validate:"required"`
	TeamCode     string `json:"team_code" bson:"team_code" validate:"required,max=128"`
	UserID       string `json:"user_id" bson:"user_id" validate:"required,max=128"`
}

// ConnectionRegistry is the durable presence store. Put is an unconditional
// upsert keyed by ConnectionID, Delete is idempotent, and ScanByGroup returns
// every row of a team in no particular order.
type ConnectionRegistry interface {
	Put(ctx context.Context, conn Connection) error
	Get(ctx context.Context, connectionID string) (Connection, error)
	Delete(ctx context.Context, connectionID string) error
	ScanByGroup(ctx context.Context, teamCode string) ([]Connection, error)
}

func NewConnection(connectionID, teamCode, userID string) (Connection, error) {
	conn := Connection{
		ConnectionID: connectionID,
		TeamCode:     teamCode,
		UserID:       userID,
	}

	if err := validate.Struct(conn); err != nil {
		return Connection{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	return conn, nil
}
