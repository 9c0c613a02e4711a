package repository

import (
	"context"
	"testing"

	"github.com/hilthontt/teamrelay/internal/infrastructure/configs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoresMemory(t *testing.T) {
	ctx := context.Background()
	stores := NewStores(&configs.Config{
		Registry:   configs.StoreConfig{Driver: configs.DriverMemory},
		MessageLog: configs.StoreConfig{Driver: configs.DriverMemory},
	})

	registry, err := stores.ConnectionRegistry(ctx)
	require.NoError(t, err)
	assert.NotNil(t, registry)

	log, err := stores.MessageLog(ctx)
	require.NoError(t, err)
	assert.IsType(t, &MemoryMessageLog{}, log)

	require.NoError(t, stores.Close(ctx))
}

func TestStoresShareBadger(t *testing.T) {
	ctx := context.Background()
	stores := NewStores(&configs.Config{
		Registry:   configs.StoreConfig{Driver: configs.DriverBadger},
		MessageLog: configs.StoreConfig{Driver: configs.DriverBadger},
		Badger:     configs.BadgerConfig{InMemory: true},
	})

	_, err := stores.ConnectionRegistry(ctx)
	require.NoError(t, err)
	first := stores.badger

	_, err = stores.MessageLog(ctx)
	require.NoError(t, err)
	assert.Same(t, first, stores.badger)

	require.NoError(t, stores.Close(ctx))
}

func TestStoresUnknownDriver(t *testing.T) {
	stores := NewStores(&configs.Config{
		Registry:   configs.StoreConfig{Driver: "dynamo"},
		MessageLog: configs.StoreConfig{Driver: configs.DriverRedis},
	})

	_, err := stores.ConnectionRegistry(context.Background())
	require.Error(t, err)

	_, err = stores.MessageLog(context.Background())
	require.Error(t, err)
}
