package memory

import (
	"context"
	"errors"
	"testing"

	"solana-token-sale/internal/domain"
	"solana-token-sale/internal/storage"
)

func TestActivityStore_InsertAndQuery(t *testing.T) {
	store := NewActivityStore()
	ctx := context.Background()

	activities := []*domain.Activity{
		{ActivityID: "c", Sale: key(1), Investor: key(2), Kind: domain.ActivityClaim, Sequence: 3, Units: 280},
		{ActivityID: "a", Sale: key(1), Investor: key(9), Kind: domain.ActivityInitializeSale, Sequence: 1},
		{ActivityID: "b", Sale: key(1), Investor: key(2), Kind: domain.ActivityDeposit, Sequence: 2, Units: 1000, Payment: 5000},
		{ActivityID: "d", Sale: key(4), Investor: key(2), Kind: domain.ActivityDeposit, Sequence: 4, Units: 1},
	}
	for _, a := range activities {
		if err := store.Insert(ctx, a); err != nil {
			t.Fatalf("Insert %s failed: %v", a.ActivityID, err)
		}
	}

	bySale, err := store.GetBySale(ctx, key(1))
	if err != nil {
		t.Fatalf("GetBySale failed: %v", err)
	}
	if len(bySale) != 3 {
		t.Fatalf("Expected 3 activities, got %d", len(bySale))
	}
	for i, want := range []string{"a", "b", "c"} {
		if bySale[i].ActivityID != want {
			t.Errorf("position %d: got %s, want %s", i, bySale[i].ActivityID, want)
		}
	}

	byParticipant, err := store.GetByParticipant(ctx, key(1), key(2))
	if err != nil {
		t.Fatalf("GetByParticipant failed: %v", err)
	}
	if len(byParticipant) != 2 {
		t.Fatalf("Expected 2 activities, got %d", len(byParticipant))
	}
	if byParticipant[1].Units != 280 {
		t.Errorf("Expected claim of 280, got %d", byParticipant[1].Units)
	}
}

func TestActivityStore_DuplicateKey(t *testing.T) {
	store := NewActivityStore()
	ctx := context.Background()

	a := &domain.Activity{ActivityID: "x", Sale: key(1), Kind: domain.ActivityDeposit}
	if err := store.Insert(ctx, a); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}
	if err := store.Insert(ctx, a); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestActivityStore_InvalidInput(t *testing.T) {
	store := NewActivityStore()
	ctx := context.Background()

	tests := []struct {
		name string
		a    *domain.Activity
	}{
		{"nil", nil},
		{"missing id", &domain.Activity{Kind: domain.ActivityDeposit}},
		{"unknown kind", &domain.Activity{ActivityID: "x", Kind: "refund"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := store.Insert(ctx, tt.a); !errors.Is(err, storage.ErrInvalidInput) {
				t.Errorf("Expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestSyncProgressStore(t *testing.T) {
	store := NewSyncProgressStore()
	ctx := context.Background()

	if _, err := store.GetLastSynced(ctx, key(1)); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
	if err := store.SetLastSynced(ctx, &storage.SyncProgress{Account: key(1), Slot: 10}); err != nil {
		t.Fatalf("SetLastSynced failed: %v", err)
	}
	if err := store.SetLastSynced(ctx, &storage.SyncProgress{Account: key(1), Slot: 12}); err != nil {
		t.Fatalf("SetLastSynced failed: %v", err)
	}
	got, err := store.GetLastSynced(ctx, key(1))
	if err != nil {
		t.Fatalf("GetLastSynced failed: %v", err)
	}
	if got.Slot != 12 {
		t.Errorf("Expected slot 12, got %d", got.Slot)
	}
	if err := store.SetLastSynced(ctx, nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}
