package domain

import "solana-token-sale/internal/solana"

// ActivityKind names the operation an Activity records.
type ActivityKind string

const (
	ActivityInitializeSale ActivityKind = "initialize_sale"
	ActivityDeposit        ActivityKind = "deposit"
	ActivitySetTGE         ActivityKind = "set_tge"
	ActivityClaim          ActivityKind = "claim"
)

// String returns the kind as stored.
func (k ActivityKind) String() string {
	return string(k)
}

// IsValid reports whether k is a known kind.
func (k ActivityKind) IsValid() bool {
	switch k {
	case ActivityInitializeSale, ActivityDeposit, ActivitySetTGE, ActivityClaim:
		return true
	}
	return false
}

// Activity is one successful request against a sale, appended by the ledger.
type Activity struct {
	ActivityID string // deterministic hash, see idhash.ComputeActivityID
	RunID      string // simulation run or watch session
	Sale       solana.PublicKey
	Investor   solana.PublicKey // signer of the request; admin for sale-level kinds
	Kind       ActivityKind
	Sequence   uint64 // position in the bank's request log
	Units      uint64 // sale-token units purchased or claimed
	Payment    uint64 // payment-token units transferred by a deposit
	Timestamp  int64  // cluster time, unix seconds
}
