package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/hilthontt/teamrelay/internal/domain"
)

// Keys:
//
//	conn\x00{connection_id}            -> JSON Connection
//	team\x00{team_code}\x00{conn_id}   -> empty (secondary index)
const keySep = "\x00"

type badgerConnectionRegistry struct {
	db *badger.DB
}

func NewBadgerConnectionRegistry(db *badger.DB) domain.ConnectionRegistry {
	return &badgerConnectionRegistry{db: db}
}

func connKey(connectionID string) []byte {
	return []byte("conn" + keySep + connectionID)
}

func teamPrefix(teamCode string) []byte {
	return []byte("team" + keySep + teamCode + keySep)
}

func teamKey(teamCode, connectionID string) []byte {
	return append(teamPrefix(teamCode), connectionID...)
}

func (r *badgerConnectionRegistry) Put(_ context.Context, conn domain.Connection) error {
	data, err := json.Marshal(conn)
	if err != nil {
		return fmt.Errorf("marshal connection: %w", err)
	}

	err = r.db.Update(func(txn *badger.Txn) error {
		previous, err := getConnection(txn, conn.ConnectionID)
		switch {
		case err == nil && previous.TeamCode != conn.TeamCode:
			if err := txn.Delete(teamKey(previous.TeamCode, previous.ConnectionID)); err != nil {
				return err
			}
		case err != nil && !errors.Is(err, domain.ErrConnectionNotFound):
			return err
		}

		if err := txn.Set(connKey(conn.ConnectionID), data); err != nil {
			return err
		}
		return txn.Set(teamKey(conn.TeamCode, conn.ConnectionID), nil)
	})
	if err != nil {
		return fmt.Errorf("put connection: %w", err)
	}
	return nil
}

func (r *badgerConnectionRegistry) Get(_ context.Context, connectionID string) (domain.Connection, error) {
	var conn domain.Connection
	err := r.db.View(func(txn *badger.Txn) error {
		var err error
		conn, err = getConnection(txn, connectionID)
		return err
	})
	if errors.Is(err, domain.ErrConnectionNotFound) {
		return domain.Connection{}, err
	}
	if err != nil {
		return domain.Connection{}, fmt.Errorf("get connection: %w", err)
	}
	return conn, nil
}

func (r *badgerConnectionRegistry) Delete(_ context.Context, connectionID string) error {
	err := r.db.Update(func(txn *badger.Txn) error {
		conn, err := getConnection(txn, connectionID)
		if errors.Is(err, domain.ErrConnectionNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		if err := txn.Delete(teamKey(conn.TeamCode, connectionID)); err != nil {
			return err
		}
		return txn.Delete(connKey(connectionID))
	})
	if err != nil {
		return fmt.Errorf("delete connection: %w", err)
	}
	return nil
}

func (r *badgerConnectionRegistry) ScanByGroup(_ context.Context, teamCode string) ([]domain.Connection, error) {
	conns := make([]domain.Connection, 0)

	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := teamPrefix(teamCode)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			connectionID := string(it.Item().Key()[len(prefix):])

			conn, err := getConnection(txn, connectionID)
			if errors.Is(err, domain.ErrConnectionNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			conns = append(conns, conn)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan connections: %w", err)
	}
	return conns, nil
}

func getConnection(txn *badger.Txn, connectionID string) (domain.Connection, error) {
	var conn domain.Connection

	item, err := txn.Get(connKey(connectionID))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return conn, domain.ErrConnectionNotFound
	}
	if err != nil {
		return conn, err
	}

	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &conn)
	})
	return conn, err
}
