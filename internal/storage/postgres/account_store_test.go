package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

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

func TestAccountStore_PutAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewAccountStore(pool)
	ctx := context.Background()

	acc := solana.KeyedAccount{
		Pubkey: key(1),
		Account: solana.AccountInfo{
			Lamports: 1 << 63, // above BIGINT max, stored bit-for-bit
			Owner:    key(9),
			Data:     []byte{2, 0, 1},
		},
	}
	require.NoError(t, store.Put(ctx, acc))

	got, err := store.Get(ctx, key(1))
	require.NoError(t, err)
	assert.Equal(t, acc.Account, *got)

	acc.Account.Data = []byte{2, 0, 2}
	require.NoError(t, store.Put(ctx, acc))
	got, err = store.Get(ctx, key(1))
	require.NoError(t, err)
	assert.Equal(t, []byte{2, 0, 2}, got.Data)
}

func TestAccountStore_GetNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := NewAccountStore(pool).Get(context.Background(), key(3))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestAccountStore_PutBulkAndList(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewAccountStore(pool)
	ctx := context.Background()

	err := store.PutBulk(ctx, []solana.KeyedAccount{
		{Pubkey: key(5), Account: solana.AccountInfo{Owner: key(9), Lamports: 5}},
		{Pubkey: key(3), Account: solana.AccountInfo{Owner: key(9), Lamports: 3}},
		{Pubkey: key(4), Account: solana.AccountInfo{Owner: key(8), Lamports: 4}},
	})
	require.NoError(t, err)

	owned, err := store.ListByOwner(ctx, key(9))
	require.NoError(t, err)
	require.Len(t, owned, 2)
	assert.Equal(t, key(3), owned[0].Pubkey)
	assert.Equal(t, key(5), owned[1].Pubkey)
	assert.Empty(t, owned[0].Account.Data)

	err = store.PutBulk(ctx, []solana.KeyedAccount{
		{Pubkey: key(3), Account: solana.AccountInfo{Owner: key(9), Lamports: 30}},
		{Pubkey: key(3), Account: solana.AccountInfo{Owner: key(9), Lamports: 31}},
	})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
	got, err := store.Get(ctx, key(3))
	require.NoError(t, err)
	assert.Equal(t, uint64(3), got.Lamports)
}
