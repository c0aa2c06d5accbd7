package solana

import "context"

// RPCClient defines the read-only Solana RPC surface used to inspect sale accounts.
type RPCClient interface {
	// GetAccountInfo returns the account at key, or nil if it does not exist.
	GetAccountInfo(ctx context.Context, key PublicKey) (*AccountInfo, error)

	// GetProgramAccounts returns all accounts owned by program that match every filter.
	GetProgramAccounts(ctx context.Context, program PublicKey, filters ...AccountFilter) ([]KeyedAccount, error)

	// GetSlot returns the current slot.
	GetSlot(ctx context.Context) (int64, error)

	// GetBlockTime returns the estimated unix time of slot, or nil if unavailable.
	GetBlockTime(ctx context.Context, slot int64) (*int64, error)
}

// AccountInfo represents an on-chain account with decoded data.
type AccountInfo struct {
	Lamports   uint64
	Owner      PublicKey
	Data       []byte
	Executable bool
	RentEpoch  uint64
}

// KeyedAccount pairs an account with its address.
type KeyedAccount struct {
	Pubkey  PublicKey
	Account AccountInfo
}

// AccountFilter narrows getProgramAccounts results. Exactly one of DataSize or
// Memcmp is set.
type AccountFilter struct {
	DataSize uint64
	Memcmp   *MemcmpFilter
}

// MemcmpFilter matches accounts whose data at Offset equals Bytes.
type MemcmpFilter struct {
	Offset uint64
	Bytes  []byte
}
