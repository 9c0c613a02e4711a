package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/hilthontt/teamrelay/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runConnectionRegistryContract exercises the behaviour every registry
// backend must share. Team codes are unique per subtest so one store can be
// reused across all of them.
func runConnectionRegistryContract(t *testing.T, registry domain.ConnectionRegistry) {
	t.Helper()
	ctx := context.Background()

	t.Run("put then scan", func(t *testing.T) {
		conn := domain.Connection{ConnectionID: "c-join", TeamCode: "T-join", UserID: "U1"}
		require.NoError(t, registry.Put(ctx, conn))

		conns, err := registry.ScanByGroup(ctx, "T-join")
		require.NoError(t, err)
		assert.Equal(t, []domain.Connection{conn}, conns)

		got, err := registry.Get(ctx, "c-join")
		require.NoError(t, err)
		assert.Equal(t, conn, got)
	})

	t.Run("delete hides row from scan", func(t *testing.T) {
		conn := domain.Connection{ConnectionID: "c-leave", TeamCode: "T-leave", UserID: "U1"}
		require.NoError(t, registry.Put(ctx, conn))
		require.NoError(t, registry.Delete(ctx, "c-leave"))

		conns, err := registry.ScanByGroup(ctx, "T-leave")
		require.NoError(t, err)
		assert.Empty(t, conns)

		_, err = registry.Get(ctx, "c-leave")
		assert.ErrorIs(t, err, domain.ErrConnectionNotFound)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		require.NoError(t, registry.Delete(ctx, "c-never-existed"))
		require.NoError(t, registry.Delete(ctx, "c-never-existed"))
	})

	t.Run("get unknown connection", func(t *testing.T) {
		_, err := registry.Get(ctx, "c-unknown")
		assert.ErrorIs(t, err, domain.ErrConnectionNotFound)
	})

	t.Run("last put wins", func(t *testing.T) {
		require.NoError(t, registry.Put(ctx, domain.Connection{ConnectionID: "c-rejoin", TeamCode: "T-rejoin", UserID: "U1"}))
		require.NoError(t, registry.Put(ctx, domain.Connection{ConnectionID: "c-rejoin", TeamCode: "T-rejoin", UserID: "U2"}))

		conns, err := registry.ScanByGroup(ctx, "T-rejoin")
		require.NoError(t, err)
		require.Len(t, conns, 1)
		assert.Equal(t, "U2", conns[0].UserID)
	})

	t.Run("moving team updates both scans", func(t *testing.T) {
		require.NoError(t, registry.Put(ctx, domain.Connection{ConnectionID: "c-move", TeamCode: "T-from", UserID: "U1"}))
		require.NoError(t, registry.Put(ctx, domain.Connection{ConnectionID: "c-move", TeamCode: "T-to", UserID: "U1"}))

		from, err := registry.ScanByGroup(ctx, "T-from")
		require.NoError(t, err)
		assert.Empty(t, from)

		to, err := registry.ScanByGroup(ctx, "T-to")
		require.NoError(t, err)
		assert.Len(t, to, 1)
	})

	t.Run("scan isolates teams", func(t *testing.T) {
		require.NoError(t, registry.Put(ctx, domain.Connection{ConnectionID: "c-a1", TeamCode: "T-a", UserID: "U1"}))
		require.NoError(t, registry.Put(ctx, domain.Connection{ConnectionID: "c-a2", TeamCode: "T-a", UserID: "U1"}))
		require.NoError(t, registry.Put(ctx, domain.Connection{ConnectionID: "c-ab", TeamCode: "T-ab", UserID: "U3"}))

		conns, err := registry.ScanByGroup(ctx, "T-a")
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"c-a1", "c-a2"}, connectionIDs(conns))
	})

	t.Run("concurrent puts", func(t *testing.T) {
		var wg sync.WaitGroup
		for i := range 20 {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				assert.NoError(t, registry.Put(ctx, domain.Connection{
					ConnectionID: fmt.Sprintf("c-conc-%d", i),
					TeamCode:     "T-conc",
					UserID:       fmt.Sprintf("U%d", i),
				}))
			}(i)
		}
		wg.Wait()

		conns, err := registry.ScanByGroup(ctx, "T-conc")
		require.NoError(t, err)
		assert.Len(t, conns, 20)
	})
}

func connectionIDs(conns []domain.Connection) []string {
	ids := make([]string, len(conns))
	for i, c := range conns {
		ids[i] = c.ConnectionID
	}
	return ids
}
