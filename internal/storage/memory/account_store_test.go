package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

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
	store := NewAccountStore()
	ctx := context.Background()

	acc := solana.KeyedAccount{
		Pubkey:  key(1),
		Account: solana.AccountInfo{Lamports: 42, Owner: key(9), Data: []byte{1, 2, 3}},
	}
	if err := store.Put(ctx, acc); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := store.Get(ctx, key(1))
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Lamports != 42 || got.Owner != key(9) {
		t.Errorf("account mismatch: got %+v", got)
	}

	// Mutating the returned copy must not leak into the store.
	got.Data[0] = 0xFF
	again, _ := store.Get(ctx, key(1))
	if again.Data[0] != 1 {
		t.Errorf("stored data was mutated through a returned copy")
	}

	// Mutating the caller's slice after Put must not leak either.
	acc.Account.Data[1] = 0xFF
	again, _ = store.Get(ctx, key(1))
	if again.Data[1] != 2 {
		t.Errorf("stored data was mutated through the input slice")
	}
}

func TestAccountStore_NotFound(t *testing.T) {
	store := NewAccountStore()

	_, err := store.Get(context.Background(), key(7))
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestAccountStore_PutBulk(t *testing.T) {
	store := NewAccountStore()
	ctx := context.Background()

	err := store.PutBulk(ctx, []solana.KeyedAccount{
		{Pubkey: key(1), Account: solana.AccountInfo{Lamports: 1}},
		{Pubkey: key(2), Account: solana.AccountInfo{Lamports: 2}},
	})
	if err != nil {
		t.Fatalf("PutBulk failed: %v", err)
	}

	// A batch with a repeated address is rejected as a whole.
	err = store.PutBulk(ctx, []solana.KeyedAccount{
		{Pubkey: key(1), Account: solana.AccountInfo{Lamports: 10}},
		{Pubkey: key(1), Account: solana.AccountInfo{Lamports: 11}},
	})
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Fatalf("Expected ErrInvalidInput, got %v", err)
	}
	got, _ := store.Get(ctx, key(1))
	if got.Lamports != 1 {
		t.Errorf("rejected batch was partially applied: lamports %d", got.Lamports)
	}
}

func TestAccountStore_ListByOwner(t *testing.T) {
	store := NewAccountStore()
	ctx := context.Background()

	for _, b := range []byte{5, 3, 4} {
		_ = store.Put(ctx, solana.KeyedAccount{Pubkey: key(b), Account: solana.AccountInfo{Owner: key(9)}})
	}
	_ = store.Put(ctx, solana.KeyedAccount{Pubkey: key(1), Account: solana.AccountInfo{Owner: key(8)}})

	got, err := store.ListByOwner(ctx, key(9))
	if err != nil {
		t.Fatalf("ListByOwner failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Expected 3 accounts, got %d", len(got))
	}
	for i, want := range []byte{3, 4, 5} {
		if got[i].Pubkey != key(want) {
			t.Errorf("position %d: got %s, want %s", i, got[i].Pubkey, key(want))
		}
	}
}

func TestAccountStore_ConcurrentAccess(t *testing.T) {
	store := NewAccountStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(b byte) {
			defer wg.Done()
			_ = store.Put(ctx, solana.KeyedAccount{Pubkey: key(b), Account: solana.AccountInfo{Lamports: uint64(b)}})
			_, _ = store.Get(ctx, key(b))
		}(byte(i))
	}
	wg.Wait()

	for i := 0; i < 50; i++ {
		if _, err := store.Get(ctx, key(byte(i))); err != nil {
			t.Errorf("account %d missing: %v", i, err)
		}
	}
}
