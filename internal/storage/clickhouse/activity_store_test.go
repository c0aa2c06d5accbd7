package clickhouse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-token-sale/internal/domain"
	"solana-token-sale/internal/solana"
	"solana-token-sale/internal/storage"
)

func key(b byte) solana.PublicKey {
	var k solana.PublicKey
	for i := range k {
		k[i] = b
	}
	return k
}

func TestActivityStore_InsertAndQuery(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewActivityStore(conn)
	ctx := context.Background()

	activities := []*domain.Activity{
		{ActivityID: "a3", RunID: "r", Sale: key(1), Investor: key(2), Kind: domain.ActivityClaim, Sequence: 3, Units: 280, Timestamp: 5000},
		{ActivityID: "a1", RunID: "r", Sale: key(1), Investor: key(9), Kind: domain.ActivityInitializeSale, Sequence: 1, Timestamp: 1400},
		{ActivityID: "a2", RunID: "r", Sale: key(1), Investor: key(2), Kind: domain.ActivityDeposit, Sequence: 2, Units: 1000, Payment: 5000, Timestamp: 1500},
	}
	for _, a := range activities {
		require.NoError(t, store.Insert(ctx, a))
	}

	bySale, err := store.GetBySale(ctx, key(1))
	require.NoError(t, err)
	require.Len(t, bySale, 3)
	assert.Equal(t, activities[1], bySale[0])
	assert.Equal(t, activities[2], bySale[1])
	assert.Equal(t, activities[0], bySale[2])

	byParticipant, err := store.GetByParticipant(ctx, key(1), key(2))
	require.NoError(t, err)
	require.Len(t, byParticipant, 2)
	assert.Equal(t, domain.ActivityDeposit, byParticipant[0].Kind)
}

func TestActivityStore_InsertDuplicate(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewActivityStore(conn)
	ctx := context.Background()

	a := &domain.Activity{ActivityID: "dup", Sale: key(1), Kind: domain.ActivityDeposit}
	require.NoError(t, store.Insert(ctx, a))
	assert.ErrorIs(t, store.Insert(ctx, a), storage.ErrDuplicateKey)
}
