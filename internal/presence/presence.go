package presence

import (
	"context"
	"fmt"

	"github.com/hilthontt/teamrelay/internal/domain"
	"github.com/samber/lo"
)

// Resolver derives a team's member list from the connection registry. Members
// are not deduplicated: a user with two sockets appears twice.
type Resolver struct {
	registry domain.ConnectionRegistry
}

func NewResolver(registry domain.ConnectionRegistry) *Resolver {
	return &Resolver{registry: registry}
}

func (r *Resolver) ActiveMembers(ctx context.Context, teamCode string) ([]string, error) {
	_, members, err := r.Snapshot(ctx, teamCode)
	return members, err
}

// Snapshot returns the scanned connections and their user ids from one scan,
// so a broadcast targets exactly the connections its payload describes.
func (r *Resolver) Snapshot(ctx context.Context, teamCode string) ([]domain.Connection, []string, error) {
	conns, err := r.registry.ScanByGroup(ctx, teamCode)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve presence for %s: %w", teamCode, err)
	}

	members := lo.Map(conns, func(c domain.Connection, _ int) string {
		return c.UserID
	})
	return conns, members, nil
}
