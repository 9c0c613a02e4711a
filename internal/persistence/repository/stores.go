package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/hilthontt/teamrelay/internal/domain"
	"github.com/hilthontt/teamrelay/internal/infrastructure/configs"
	"github.com/hilthontt/teamrelay/internal/persistence/db"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

// Stores opens backing clients on first use and shares them between the
// registry and the message log when both pick the same driver.
type Stores struct {
	cfg *configs.Config

	badger *badger.DB
	mongo  *mongo.Client
	redis  *redis.Client
}

func NewStores(cfg *configs.Config) *Stores {
	return &Stores{cfg: cfg}
}

func (s *Stores) ConnectionRegistry(ctx context.Context) (domain.ConnectionRegistry, error) {
	switch s.cfg.Registry.Driver {
	case configs.DriverMemory:
		return NewMemoryConnectionRegistry(), nil
	case configs.DriverBadger:
		bdb, err := s.openBadger()
		if err != nil {
			return nil, err
		}
		return NewBadgerConnectionRegistry(bdb), nil
	case configs.DriverMongo:
		database, err := s.openMongo(ctx)
		if err != nil {
			return nil, err
		}
		registry := NewMongoConnectionRegistry(database, s.cfg.Mongo.ConnectionsCollection)
		if err := registry.EnsureIndexes(ctx); err != nil {
			return nil, fmt.Errorf("ensure connection indexes: %w", err)
		}
		return registry, nil
	case configs.DriverRedis:
		rdb, err := s.openRedis(ctx)
		if err != nil {
			return nil, err
		}
		return NewRedisConnectionRegistry(rdb), nil
	}

	return nil, fmt.Errorf("unsupported registry driver %q", s.cfg.Registry.Driver)
}

func (s *Stores) MessageLog(ctx context.Context) (domain.MessageLog, error) {
	switch s.cfg.MessageLog.Driver {
	case configs.DriverMemory:
		return NewMemoryMessageLog(), nil
	case configs.DriverBadger:
		bdb, err := s.openBadger()
		if err != nil {
			return nil, err
		}
		return NewBadgerMessageLog(bdb), nil
	case configs.DriverMongo:
		database, err := s.openMongo(ctx)
		if err != nil {
			return nil, err
		}
		log := NewMongoMessageLog(database, s.cfg.Mongo.MessagesCollection)
		if err := log.EnsureIndexes(ctx); err != nil {
			return nil, fmt.Errorf("ensure message indexes: %w", err)
		}
		return log, nil
	}

	return nil, fmt.Errorf("unsupported message log driver %q", s.cfg.MessageLog.Driver)
}

func (s *Stores) Close(ctx context.Context) error {
	var errs []error

	if s.badger != nil {
		errs = append(errs, s.badger.Close())
	}
	if s.mongo != nil {
		errs = append(errs, db.DisconnectMongo(ctx, s.mongo))
	}
	if s.redis != nil {
		errs = append(errs, s.redis.Close())
	}

	return errors.Join(errs...)
}

func (s *Stores) openBadger() (*badger.DB, error) {
	if s.badger == nil {
		bdb, err := db.OpenBadger(s.cfg.Badger)
		if err != nil {
			return nil, err
		}
		s.badger = bdb
	}
	return s.badger, nil
}

func (s *Stores) openMongo(ctx context.Context) (*mongo.Database, error) {
	if s.mongo == nil {
		client, err := db.NewMongoClient(ctx, s.cfg.Mongo)
		if err != nil {
			return nil, err
		}
		s.mongo = client
	}
	return s.mongo.Database(s.cfg.Mongo.Database), nil
}

func (s *Stores) openRedis(ctx context.Context) (*redis.Client, error) {
	if s.redis == nil {
		rdb, err := db.NewRedisClient(ctx, s.cfg.Redis)
		if err != nil {
			return nil, err
		}
		s.redis = rdb
	}
	return s.redis, nil
}
