package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/hilthontt/teamrelay/internal/domain"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "teamrelay:"

// redisConnectionRegistry keeps each row in a hash and a per-team set of
// connection ids as the secondary index.
type redisConnectionRegistry struct {
	rdb *redis.Client
}

func NewRedisConnectionRegistry(rdb *redis.Client) domain.ConnectionRegistry {
	return &redisConnectionRegistry{rdb: rdb}
}

func redisConnKey(connectionID string) string {
	return redisKeyPrefix + "conn:" + connectionID
}

func redisTeamKey(teamCode string) string {
	return redisKeyPrefix + "team:{" + teamCode + "}"
}

func (r *redisConnectionRegistry) Put(ctx context.Context, conn domain.Connection) error {
	previousTeam, err := r.rdb.HGet(ctx, redisConnKey(conn.ConnectionID), "team_code").Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("put connection: %w", err)
	}

	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if previousTeam != "" && previousTeam != conn.TeamCode {
			pipe.SRem(ctx, redisTeamKey(previousTeam), conn.ConnectionID)
		}
		pipe.HSet(ctx, redisConnKey(conn.ConnectionID),
			"connection_id", conn.ConnectionID,
			"team_code", conn.TeamCode,
			"user_id", conn.UserID,
		)
		pipe.SAdd(ctx, redisTeamKey(conn.TeamCode), conn.ConnectionID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("put connection: %w", err)
	}
	return nil
}

func (r *redisConnectionRegistry) Get(ctx context.Context, connectionID string) (domain.Connection, error) {
	fields, err := r.rdb.HGetAll(ctx, redisConnKey(connectionID)).Result()
	if err != nil {
		return domain.Connection{}, fmt.Errorf("get connection: %w", err)
	}
	if len(fields) == 0 {
		return domain.Connection{}, domain.ErrConnectionNotFound
	}
	return connectionFromHash(fields), nil
}

func (r *redisConnectionRegistry) Delete(ctx context.Context, connectionID string) error {
	teamCode, err := r.rdb.HGet(ctx, redisConnKey(connectionID), "team_code").Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("delete connection: %w", err)
	}

	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, redisConnKey(connectionID))
		pipe.SRem(ctx, redisTeamKey(teamCode), connectionID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete connection: %w", err)
	}
	return nil
}

func (r *redisConnectionRegistry) ScanByGroup(ctx context.Context, teamCode string) ([]domain.Connection, error) {
	ids, err := r.rdb.SMembers(ctx, redisTeamKey(teamCode)).Result()
	if err != nil {
		return nil, fmt.Errorf("scan connections: %w", err)
	}

	conns := make([]domain.Connection, 0, len(ids))
	if len(ids) == 0 {
		return conns, nil
	}

	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err = r.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, redisConnKey(id))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan connections: %w", err)
	}

	for _, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 || fields["team_code"] != teamCode {
			continue
		}
		conns = append(conns, connectionFromHash(fields))
	}
	return conns, nil
}

func connectionFromHash(fields map[string]string) domain.Connection {
	return domain.Connection{
		ConnectionID: fields["connection_id"],
		TeamCode:     fields["team_code"],
		UserID:       fields["user_id"],
	}
}
