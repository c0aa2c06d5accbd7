package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/bits"

	"solana-token-sale/internal/domain"
	"solana-token-sale/internal/solana"
	"solana-token-sale/internal/storage"
)

// The helpers below write state directly, outside any request. They set up
// wallets, mints and token accounts for simulations and tests.

// Fund credits lamports to a system-owned wallet, creating it if needed.
func (b *Bank) Fund(ctx context.Context, wallet solana.PublicKey, lamports uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	acc, err := b.get(ctx, wallet)
	if err != nil {
		return err
	}
	if acc == nil {
		acc = &solana.AccountInfo{Owner: solana.SystemProgramID}
	}
	sum, carry := bits.Add64(acc.Lamports, lamports, 0)
	if carry != 0 {
		return fmt.Errorf("fund %s: lamports overflow", wallet)
	}
	acc.Lamports = sum
	return b.accounts.Put(ctx, solana.KeyedAccount{Pubkey: wallet, Account: *acc})
}

// CreateMint writes an initialized mint with the given decimals.
func (b *Bank) CreateMint(ctx context.Context, mint solana.PublicKey, decimals uint8, authority solana.PublicKey) error {
	m := &solana.Mint{MintAuthority: &authority, Decimals: decimals, IsInitialized: true}
	data, err := m.Encode()
	if err != nil {
		return err
	}
	return b.create(ctx, mint, solana.TokenProgramID, data)
}

// CreateTokenAccount writes an initialized token account holding amount and
// adds amount to the mint's supply.
func (b *Bank) CreateTokenAccount(ctx context.Context, key, mint, owner solana.PublicKey, amount uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.addSupply(ctx, mint, amount); err != nil {
		return err
	}
	ta := &solana.TokenAccount{Mint: mint, Owner: owner, Amount: amount, State: solana.TokenAccountInitialized}
	data, err := ta.Encode()
	if err != nil {
		return err
	}
	return b.createLocked(ctx, key, solana.TokenProgramID, data)
}

// MintTo adds amount to an existing token account and to its mint's supply.
func (b *Bank) MintTo(ctx context.Context, key solana.PublicKey, amount uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	acc, err := b.get(ctx, key)
	if err != nil {
		return err
	}
	if acc == nil || acc.Owner != solana.TokenProgramID {
		return fmt.Errorf("mint to %s: %w", key, ErrNotTokenAccount)
	}
	ta, err := solana.DecodeTokenAccount(acc.Data)
	if err != nil {
		return fmt.Errorf("mint to %s: %w", key, err)
	}
	sum, carry := bits.Add64(ta.Amount, amount, 0)
	if carry != 0 {
		return fmt.Errorf("mint to %s: balance overflow", key)
	}
	if err := b.addSupply(ctx, ta.Mint, amount); err != nil {
		return err
	}
	ta.Amount = sum
	if acc.Data, err = ta.Encode(); err != nil {
		return err
	}
	return b.accounts.Put(ctx, solana.KeyedAccount{Pubkey: key, Account: *acc})
}

// CreateProgramAccount allocates zeroed, rent-exempt storage owned by the
// sale program, ready for InitializeSale.
func (b *Bank) CreateProgramAccount(ctx context.Context, key solana.PublicKey, size int) error {
	return b.create(ctx, key, b.programID, make([]byte, size))
}

// Account returns the stored account, or storage.ErrNotFound.
func (b *Bank) Account(ctx context.Context, key solana.PublicKey) (*solana.AccountInfo, error) {
	return b.accounts.Get(ctx, key)
}

// TokenBalance returns the amount held by a token account.
func (b *Bank) TokenBalance(ctx context.Context, key solana.PublicKey) (uint64, error) {
	acc, err := b.accounts.Get(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("token balance %s: %w", key, err)
	}
	ta, err := solana.DecodeTokenAccount(acc.Data)
	if err != nil {
		return 0, fmt.Errorf("token balance %s: %w", key, err)
	}
	return ta.Amount, nil
}

// Sale decodes the sale record at key.
func (b *Bank) Sale(ctx context.Context, key solana.PublicKey) (*domain.Sale, error) {
	acc, err := b.accounts.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("sale %s: %w", key, err)
	}
	return domain.DecodeSale(acc.Data)
}

// Participant decodes the participant record at key.
func (b *Bank) Participant(ctx context.Context, key solana.PublicKey) (*domain.Participant, error) {
	acc, err := b.accounts.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("participant %s: %w", key, err)
	}
	return domain.DecodeParticipant(acc.Data)
}

func (b *Bank) create(ctx context.Context, key, owner solana.PublicKey, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.createLocked(ctx, key, owner, data)
}

func (b *Bank) createLocked(ctx context.Context, key, owner solana.PublicKey, data []byte) error {
	existing, err := b.get(ctx, key)
	if err != nil {
		return err
	}
	if existing != nil && (existing.Owner != solana.SystemProgramID || len(existing.Data) > 0) {
		return fmt.Errorf("create %s: %w", key, ErrAccountInUse)
	}
	acc := solana.AccountInfo{
		Owner:    owner,
		Lamports: b.rent.MinimumBalance(len(data)),
		Data:     data,
	}
	return b.accounts.Put(ctx, solana.KeyedAccount{Pubkey: key, Account: acc})
}

func (b *Bank) addSupply(ctx context.Context, mint solana.PublicKey, amount uint64) error {
	acc, err := b.get(ctx, mint)
	if err != nil {
		return err
	}
	if acc == nil {
		return fmt.Errorf("mint %s: %w", mint, storage.ErrNotFound)
	}
	m, err := solana.DecodeMint(acc.Data)
	if err != nil {
		return fmt.Errorf("mint %s: %w", mint, err)
	}
	sum, carry := bits.Add64(m.Supply, amount, 0)
	if carry != 0 {
		return fmt.Errorf("mint %s: supply overflow", mint)
	}
	m.Supply = sum
	if acc.Data, err = m.Encode(); err != nil {
		return err
	}
	return b.accounts.Put(ctx, solana.KeyedAccount{Pubkey: mint, Account: *acc})
}

// get returns nil without error when key does not exist.
func (b *Bank) get(ctx context.Context, key solana.PublicKey) (*solana.AccountInfo, error) {
	acc, err := b.accounts.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	return acc, nil
}
