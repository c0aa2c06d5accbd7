package processor

import (
	"context"

	"solana-token-sale/internal/solana"
)

// AccountInfo is a handle to one account referenced by a request. Operations
// read and overwrite Data in place; the host persists the handles only if the
// whole request succeeds.
type AccountInfo struct {
	Key        solana.PublicKey
	Owner      solana.PublicKey
	Lamports   uint64
	Data       []byte
	IsSigner   bool
	IsWritable bool
}

// TransferParams describes a token transfer. AuthoritySeeds is nil when the
// authority signed the request, and holds the derivation seeds (bump included)
// when the program signs for a derived authority.
type TransferParams struct {
	Source         *AccountInfo
	Destination    *AccountInfo
	Authority      *AccountInfo
	Amount         uint64
	AuthoritySeeds [][]byte
}

// TokenProgram moves fungible token units between token accounts.
type TokenProgram interface {
	Transfer(ctx context.Context, params TransferParams) error
}

// AllocateParams describes creation of a program-owned account at a derived
// address. Payer funds the rent-exempt minimum.
type AllocateParams struct {
	Payer   *AccountInfo
	Account *AccountInfo
	Owner   solana.PublicKey
	Size    int
	Seeds   [][]byte
}

// SystemProgram creates accounts.
type SystemProgram interface {
	Allocate(ctx context.Context, params AllocateParams) error
}

// Clock returns the current unix time in seconds.
type Clock interface {
	Now(ctx context.Context) (int64, error)
}

// Rent decides whether a balance keeps storage of the given size alive.
type Rent interface {
	IsExempt(lamports uint64, size int) bool
}

// Observer receives the outcome of every processed request. units is the
// amount moved by the request's token transfer, zero if none.
type Observer interface {
	Observe(op string, err error, units uint64)
}
