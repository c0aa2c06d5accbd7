package storage_test

import (
	"context"
	"errors"
	"testing"

	"solana-token-sale/internal/solana"
	"solana-token-sale/internal/storage"
	"solana-token-sale/internal/storage/memory"
)

type query struct {
	database  string
	operation string
	failed    bool
}

type queryLog struct {
	queries []query
}

func (l *queryLog) RecordDBQuery(database, operation string, seconds float64, err error) {
	l.queries = append(l.queries, query{database: database, operation: operation, failed: err != nil})
}

func TestInstrumentAccounts(t *testing.T) {
	rec := &queryLog{}
	store := storage.InstrumentAccounts(memory.NewAccountStore(), rec, "memory")
	ctx := context.Background()

	var k solana.PublicKey
	k[0] = 1
	if err := store.Put(ctx, solana.KeyedAccount{Pubkey: k, Account: solana.AccountInfo{Lamports: 1}}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if _, err := store.Get(ctx, k); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	var missing solana.PublicKey
	if _, err := store.Get(ctx, missing); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}

	want := []query{
		{"memory", "accounts_put", false},
		{"memory", "accounts_get", false},
		{"memory", "accounts_get", false},
	}
	if len(rec.queries) != len(want) {
		t.Fatalf("Expected %d queries, got %d", len(want), len(rec.queries))
	}
	for i, q := range want {
		if rec.queries[i] != q {
			t.Errorf("Query %d: expected %+v, got %+v", i, q, rec.queries[i])
		}
	}
}

func TestInstrumentProgress_ReportsFailures(t *testing.T) {
	rec := &queryLog{}
	store := storage.InstrumentProgress(memory.NewSyncProgressStore(), rec, "memory")

	if err := store.SetLastSynced(context.Background(), nil); err == nil {
		t.Fatal("Expected error for nil progress")
	}
	if len(rec.queries) != 1 || !rec.queries[0].failed {
		t.Errorf("Expected one failed query, got %+v", rec.queries)
	}
}
