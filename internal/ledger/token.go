package ledger

import (
	"context"
	"fmt"
	"math/bits"

	"solana-token-sale/internal/processor"
	"solana-token-sale/internal/solana"
)

// tokenProgram executes SPL token transfers against request handles. Program
// signatures are proved through the calling program's address derivation.
type tokenProgram struct {
	caller solana.PublicKey
}

var _ processor.TokenProgram = (*tokenProgram)(nil)

func (t *tokenProgram) Transfer(_ context.Context, p processor.TransferParams) error {
	if !p.Source.IsWritable {
		return fmt.Errorf("source %s: %w", p.Source.Key, ErrNotWritable)
	}
	if !p.Destination.IsWritable {
		return fmt.Errorf("destination %s: %w", p.Destination.Key, ErrNotWritable)
	}
	if err := t.checkAuthority(p.Authority, p.AuthoritySeeds); err != nil {
		return err
	}

	src, err := loadToken(p.Source)
	if err != nil {
		return err
	}
	dst, err := loadToken(p.Destination)
	if err != nil {
		return err
	}
	if src.Mint != dst.Mint {
		return fmt.Errorf("%s -> %s: %w", src.Mint, dst.Mint, ErrMintMismatch)
	}
	if src.Owner != p.Authority.Key {
		return fmt.Errorf("source owned by %s, authority %s: %w", src.Owner, p.Authority.Key, ErrOwnerMismatch)
	}
	if src.State == solana.TokenAccountFrozen || dst.State == solana.TokenAccountFrozen {
		return fmt.Errorf("token account frozen")
	}
	if src.Amount < p.Amount {
		return fmt.Errorf("balance %d, transfer %d: %w", src.Amount, p.Amount, ErrInsufficientFunds)
	}
	if p.Source == p.Destination || p.Source.Key == p.Destination.Key {
		return nil
	}

	sum, carry := bits.Add64(dst.Amount, p.Amount, 0)
	if carry != 0 {
		return fmt.Errorf("destination balance overflow")
	}
	src.Amount -= p.Amount
	dst.Amount = sum

	if err := storeToken(p.Source, src); err != nil {
		return err
	}
	return storeToken(p.Destination, dst)
}

func (t *tokenProgram) checkAuthority(auth *processor.AccountInfo, seeds [][]byte) error {
	if seeds == nil {
		if !auth.IsSigner {
			return fmt.Errorf("authority %s: %w", auth.Key, ErrMissingSignature)
		}
		return nil
	}
	derived, err := solana.CreateProgramAddress(seeds, t.caller)
	if err != nil {
		return fmt.Errorf("authority seeds: %w", err)
	}
	if derived != auth.Key {
		return fmt.Errorf("authority %s, seeds give %s: %w", auth.Key, derived, ErrAddressMismatch)
	}
	return nil
}

func loadToken(acc *processor.AccountInfo) (*solana.TokenAccount, error) {
	if acc.Owner != solana.TokenProgramID {
		return nil, fmt.Errorf("%s: %w", acc.Key, ErrNotTokenAccount)
	}
	ta, err := solana.DecodeTokenAccount(acc.Data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", acc.Key, err)
	}
	return ta, nil
}

func storeToken(acc *processor.AccountInfo, ta *solana.TokenAccount) error {
	data, err := ta.Encode()
	if err != nil {
		return err
	}
	copy(acc.Data, data)
	return nil
}
