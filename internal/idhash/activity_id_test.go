package idhash

import (
	"testing"

	"solana-token-sale/internal/domain"
	"solana-token-sale/internal/solana"
)

func key(b byte) solana.PublicKey {
	var k solana.PublicKey
	for i := range k {
		k[i] = b
	}
	return k
}

func TestComputeActivityID(t *testing.T) {
	tests := []struct {
		name      string
		sale      solana.PublicKey
		investor  solana.PublicKey
		kind      domain.ActivityKind
		sequence  uint64
		timestamp int64
	}{
		{
			name:      "deposit",
			sale:      key(1),
			investor:  key(2),
			kind:      domain.ActivityDeposit,
			sequence:  3,
			timestamp: 1704067200,
		},
		{
			name:      "claim",
			sale:      key(1),
			investor:  key(2),
			kind:      domain.ActivityClaim,
			sequence:  9,
			timestamp: 1706659200,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeActivityID(tt.sale, tt.investor, tt.kind, tt.sequence, tt.timestamp)
			if len(got) != 64 {
				t.Errorf("ComputeActivityID() length = %d, want 64", len(got))
			}

			got2 := ComputeActivityID(tt.sale, tt.investor, tt.kind, tt.sequence, tt.timestamp)
			if got != got2 {
				t.Errorf("ComputeActivityID() not deterministic: %s != %s", got, got2)
			}
		})
	}
}

func TestComputeActivityID_DifferentInputs(t *testing.T) {
	base := ComputeActivityID(key(1), key(2), domain.ActivityDeposit, 1, 1000)

	variants := map[string]string{
		"sale":      ComputeActivityID(key(9), key(2), domain.ActivityDeposit, 1, 1000),
		"investor":  ComputeActivityID(key(1), key(9), domain.ActivityDeposit, 1, 1000),
		"kind":      ComputeActivityID(key(1), key(2), domain.ActivityClaim, 1, 1000),
		"sequence":  ComputeActivityID(key(1), key(2), domain.ActivityDeposit, 2, 1000),
		"timestamp": ComputeActivityID(key(1), key(2), domain.ActivityDeposit, 1, 2000),
	}
	for field, got := range variants {
		if got == base {
			t.Errorf("different %s should produce different hash", field)
		}
	}
}
