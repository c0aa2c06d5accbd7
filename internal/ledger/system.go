package ledger

import (
	"context"
	"fmt"

	"solana-token-sale/internal/processor"
	"solana-token-sale/internal/solana"
)

// systemProgram creates program-owned accounts at derived addresses, funding
// the rent-exempt minimum from the payer.
type systemProgram struct {
	rent Rent
}

var _ processor.SystemProgram = (*systemProgram)(nil)

func (s *systemProgram) Allocate(_ context.Context, p processor.AllocateParams) error {
	if !p.Payer.IsSigner {
		return fmt.Errorf("payer %s: %w", p.Payer.Key, ErrMissingSignature)
	}
	if !p.Payer.IsWritable {
		return fmt.Errorf("payer %s: %w", p.Payer.Key, ErrNotWritable)
	}
	if !p.Account.IsWritable {
		return fmt.Errorf("account %s: %w", p.Account.Key, ErrNotWritable)
	}

	addr, err := solana.CreateProgramAddress(p.Seeds, p.Owner)
	if err != nil {
		return fmt.Errorf("derive %s: %w", p.Account.Key, err)
	}
	if addr != p.Account.Key {
		return fmt.Errorf("account %s, seeds give %s: %w", p.Account.Key, addr, ErrAddressMismatch)
	}
	if p.Account.Owner != solana.SystemProgramID || len(p.Account.Data) > 0 {
		return fmt.Errorf("account %s: %w", p.Account.Key, ErrAccountInUse)
	}

	need := s.rent.MinimumBalance(p.Size)
	if p.Account.Lamports < need {
		topUp := need - p.Account.Lamports
		if p.Payer.Lamports < topUp {
			return fmt.Errorf("payer holds %d lamports, rent needs %d: %w", p.Payer.Lamports, topUp, ErrInsufficientFunds)
		}
		p.Payer.Lamports -= topUp
		p.Account.Lamports += topUp
	}
	p.Account.Owner = p.Owner
	p.Account.Data = make([]byte, p.Size)
	return nil
}
