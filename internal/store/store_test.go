package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/thesandboxgame/ownership-gatherer/internal/store/schema"
)

// RunStoreTests runs the store behavior tests against a store implementation
func RunStoreTests(t *testing.T, initDB func(*testing.T) Store) {
	t.Run("BlockCursor", func(t *testing.T) {
		s := initDB(t)
		testBlockCursor(t, s)
	})

	t.Run("SaveSnapshot", func(t *testing.T) {
		s := initDB(t)
		testSaveSnapshot(t, s)
	})

	t.Run("LatestSnapshot", func(t *testing.T) {
		s := initDB(t)
		testLatestSnapshot(t, s)
	})
}

func testBlockCursor(t *testing.T, s Store) {
	ctx := context.Background()

	block, err := s.GetBlockCursor(ctx, "mainnet:owners")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), block)

	require.NoError(t, s.SetBlockCursor(ctx, "mainnet:owners", 19_000_000))
	block, err = s.GetBlockCursor(ctx, "mainnet:owners")
	require.NoError(t, err)
	assert.Equal(t, uint64(19_000_000), block)

	// Upsert
	require.NoError(t, s.SetBlockCursor(ctx, "mainnet:owners", 19_000_500))
	block, err = s.GetBlockCursor(ctx, "mainnet:owners")
	require.NoError(t, err)
	assert.Equal(t, uint64(19_000_500), block)

	// Jobs are independent
	block, err = s.GetBlockCursor(ctx, "polygon:owners")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), block)
}

func testSaveSnapshot(t *testing.T, s Store) {
	ctx := context.Background()

	snapshot := &schema.Snapshot{
		Network:     "mainnet",
		Name:        "landOwners",
		BlockNumber: 12_345,
		Owners:      1,
		Document:    datatypes.JSON(`{"0xa11ce00000000000000000000000000000000001":{"assets":[],"lands":[]}}`),
	}
	require.NoError(t, s.SaveSnapshot(ctx, snapshot))
	assert.Len(t, snapshot.ID, 26)

	latest, err := s.LatestSnapshot(ctx, "mainnet", "landOwners")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, snapshot.ID, latest.ID)
	assert.Equal(t, uint64(12_345), latest.BlockNumber)
	assert.JSONEq(t, string(snapshot.Document), string(latest.Document))
}

func testLatestSnapshot(t *testing.T, s Store) {
	ctx := context.Background()

	latest, err := s.LatestSnapshot(ctx, "sepolia", "owners")
	require.NoError(t, err)
	assert.Nil(t, latest)

	for i, id := range []string{"01HZX0000000000000000000A1", "01HZX0000000000000000000B2", "01HZX0000000000000000000A3"} {
		require.NoError(t, s.SaveSnapshot(ctx, &schema.Snapshot{
			ID:          id,
			Network:     "sepolia",
			Name:        "owners",
			BlockNumber: uint64(100 + i),
			Document:    datatypes.JSON(`{}`),
			CreatedAt:   time.Now(),
		}))
	}
	require.NoError(t, s.SaveSnapshot(ctx, &schema.Snapshot{
		ID:       "01HZX0000000000000000000Z9",
		Network:  "sepolia",
		Name:     "landOwners",
		Document: datatypes.JSON(`{}`),
	}))

	latest, err = s.LatestSnapshot(ctx, "sepolia", "owners")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "01HZX0000000000000000000B2", latest.ID)
	assert.Equal(t, uint64(101), latest.BlockNumber)
}
