package clickhouse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"morpho-exposure-lab/internal/domain"
	"morpho-exposure-lab/internal/storage"
)

func TestAllocationPointStore_InsertBulk(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewAllocationPointStore(conn)
	ctx := context.Background()

	// Empty insert is a no-op
	err := store.InsertBulk(ctx, nil)
	assert.NoError(t, err)

	points := []*domain.AllocationPoint{
		{
			VaultAddress:    "0xVaultA",
			ChainID:         1,
			MarketUniqueKey: "0xMarket1",
			Timestamp:       1762214400,
			SupplyAssetsUSD: 1500000.0,
			SupplyCap:       ptr(2000000.0),
		},
	}

	err = store.InsertBulk(ctx, points)
	require.NoError(t, err)

	got, err := store.GetByVault(ctx, "0xvaulta", 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "0xvaulta", got[0].VaultAddress)
	assert.Equal(t, "0xmarket1", got[0].MarketUniqueKey)
	assert.Equal(t, int64(1762214400), got[0].Timestamp)
	assert.Equal(t, 1500000.0, got[0].SupplyAssetsUSD)
	require.NotNil(t, got[0].SupplyCap)
	assert.Equal(t, 2000000.0, *got[0].SupplyCap)
}

func TestAllocationPointStore_InsertBulk_NilCap(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewAllocationPointStore(conn)
	ctx := context.Background()

	points := []*domain.AllocationPoint{
		{VaultAddress: "0xvaulta", ChainID: 1, MarketUniqueKey: "0xmarket1", Timestamp: 1000, SupplyAssetsUSD: 10.0},
	}

	err := store.InsertBulk(ctx, points)
	require.NoError(t, err)

	got, err := store.GetByVault(ctx, "0xvaulta", 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Nil(t, got[0].SupplyCap)
}

func TestAllocationPointStore_InsertBulk_DuplicateKey(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewAllocationPointStore(conn)
	ctx := context.Background()

	points := []*domain.AllocationPoint{
		{VaultAddress: "0xvaulta", ChainID: 1, MarketUniqueKey: "0xmarket1", Timestamp: 1000, SupplyAssetsUSD: 10.0},
	}

	err := store.InsertBulk(ctx, points)
	require.NoError(t, err)

	// Re-inserting the same key fails, case-insensitively
	dup := []*domain.AllocationPoint{
		{VaultAddress: "0xVAULTA", ChainID: 1, MarketUniqueKey: "0xMARKET1", Timestamp: 1000, SupplyAssetsUSD: 20.0},
	}
	err = store.InsertBulk(ctx, dup)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestAllocationPointStore_InsertBulk_IntraBatchDuplicate(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewAllocationPointStore(conn)
	ctx := context.Background()

	points := []*domain.AllocationPoint{
		{VaultAddress: "0xvaulta", ChainID: 1, MarketUniqueKey: "0xmarket1", Timestamp: 1000, SupplyAssetsUSD: 10.0},
		{VaultAddress: "0xVaultA", ChainID: 1, MarketUniqueKey: "0xMarket1", Timestamp: 1000, SupplyAssetsUSD: 20.0},
	}

	err := store.InsertBulk(ctx, points)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestAllocationPointStore_InsertBulk_InvalidInput(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewAllocationPointStore(conn)
	ctx := context.Background()

	points := []*domain.AllocationPoint{
		{VaultAddress: "", ChainID: 1, MarketUniqueKey: "0xmarket1", Timestamp: 1000},
	}

	err := store.InsertBulk(ctx, points)
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestAllocationPointStore_GetByVaultMarket(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewAllocationPointStore(conn)
	ctx := context.Background()

	points := []*domain.AllocationPoint{
		{VaultAddress: "0xvaulta", ChainID: 1, MarketUniqueKey: "0xmarket1", Timestamp: 2000, SupplyAssetsUSD: 20.0},
		{VaultAddress: "0xvaulta", ChainID: 1, MarketUniqueKey: "0xmarket1", Timestamp: 1000, SupplyAssetsUSD: 10.0},
		{VaultAddress: "0xvaulta", ChainID: 1, MarketUniqueKey: "0xmarket2", Timestamp: 1500, SupplyAssetsUSD: 15.0},
		{VaultAddress: "0xvaultb", ChainID: 1, MarketUniqueKey: "0xmarket1", Timestamp: 1000, SupplyAssetsUSD: 30.0},
	}

	err := store.InsertBulk(ctx, points)
	require.NoError(t, err)

	got, err := store.GetByVaultMarket(ctx, "0xvaulta", 1, "0xmarket1")
	require.NoError(t, err)
	require.Len(t, got, 2)

	// Ordered by timestamp ascending
	assert.Equal(t, int64(1000), got[0].Timestamp)
	assert.Equal(t, int64(2000), got[1].Timestamp)

	// Other vault untouched
	got, err = store.GetByVault(ctx, "0xvaultb", 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 30.0, got[0].SupplyAssetsUSD)
}

func TestAllocationPointStore_DeleteAll(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewAllocationPointStore(conn)
	ctx := context.Background()

	points := []*domain.AllocationPoint{
		{VaultAddress: "0xvaulta", ChainID: 1, MarketUniqueKey: "0xmarket1", Timestamp: 1000, SupplyAssetsUSD: 10.0},
		{VaultAddress: "0xvaultb", ChainID: 8453, MarketUniqueKey: "0xmarket2", Timestamp: 2000, SupplyAssetsUSD: 20.0},
	}

	err := store.InsertBulk(ctx, points)
	require.NoError(t, err)

	err = store.DeleteAll(ctx)
	require.NoError(t, err)

	got, err := store.GetByVault(ctx, "0xvaulta", 1)
	require.NoError(t, err)
	assert.Empty(t, got)

	// Fresh inserts work after a wipe
	err = store.InsertBulk(ctx, points[:1])
	require.NoError(t, err)
}
