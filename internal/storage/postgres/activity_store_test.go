package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-token-sale/internal/domain"
	"solana-token-sale/internal/storage"
)

func TestActivityStore_InsertAndQuery(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewActivityStore(pool)
	ctx := context.Background()

	deposit := &domain.Activity{
		ActivityID: "act-2",
		RunID:      "run-1",
		Sale:       key(1),
		Investor:   key(2),
		Kind:       domain.ActivityDeposit,
		Sequence:   2,
		Units:      1000,
		Payment:    5000,
		Timestamp:  1500,
	}
	initialize := &domain.Activity{
		ActivityID: "act-1",
		RunID:      "run-1",
		Sale:       key(1),
		Investor:   key(9),
		Kind:       domain.ActivityInitializeSale,
		Sequence:   1,
		Timestamp:  1400,
	}
	require.NoError(t, store.Insert(ctx, deposit))
	require.NoError(t, store.Insert(ctx, initialize))

	bySale, err := store.GetBySale(ctx, key(1))
	require.NoError(t, err)
	require.Len(t, bySale, 2)
	assert.Equal(t, initialize, bySale[0])
	assert.Equal(t, deposit, bySale[1])

	byParticipant, err := store.GetByParticipant(ctx, key(1), key(2))
	require.NoError(t, err)
	require.Len(t, byParticipant, 1)
	assert.Equal(t, deposit, byParticipant[0])
}

func TestActivityStore_InsertDuplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewActivityStore(pool)
	ctx := context.Background()

	a := &domain.Activity{ActivityID: "dup", Sale: key(1), Kind: domain.ActivityClaim}
	require.NoError(t, store.Insert(ctx, a))
	assert.ErrorIs(t, store.Insert(ctx, a), storage.ErrDuplicateKey)
}

func TestSyncProgressStore(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSyncProgressStore(pool)
	ctx := context.Background()

	_, err := store.GetLastSynced(ctx, key(1))
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, store.SetLastSynced(ctx, &storage.SyncProgress{Account: key(1), Slot: 100}))
	require.NoError(t, store.SetLastSynced(ctx, &storage.SyncProgress{Account: key(1), Slot: 105}))

	got, err := store.GetLastSynced(ctx, key(1))
	require.NoError(t, err)
	assert.Equal(t, uint64(105), got.Slot)
}
