package processor

import (
	"context"

	errorsmod "cosmossdk.io/errors"

	"solana-token-sale/internal/authority"
	"solana-token-sale/internal/domain"
	"solana-token-sale/internal/programerr"
	"solana-token-sale/internal/solana"
	"solana-token-sale/internal/vesting"
)

// claim transfers the currently unlocked amount from the sale vault to the
// payer's destination. It returns the units transferred.
func (p *Processor) claim(ctx context.Context, req Request) (uint64, error) {
	a := req.Accounts
	payer, saleAcc, saleMint, saleAuth, saleVault, tokenProgram, partAcc, dest, clockSysvar :=
		a[0], a[1], a[2], a[3], a[4], a[5], a[6], a[7], a[8]

	if err := requireSigner(payer, "payer"); err != nil {
		return 0, err
	}
	if err := requireOwner(saleAcc, req.ProgramID, "sale"); err != nil {
		return 0, err
	}
	sale, err := domain.DecodeSale(saleAcc.Data)
	if err != nil {
		return 0, err
	}
	phase, ok := sale.TGE()
	if !ok {
		return 0, errorsmod.Wrapf(programerr.ErrNothingToClaim, "sale %s has no tge", saleAcc.Key)
	}

	if err := requireKey(saleMint, phase.SaleMint, "sale mint"); err != nil {
		return 0, err
	}
	if _, err := authority.VerifyParticipant(req.ProgramID, saleAcc.Key, payer.Key, partAcc.Key); err != nil {
		return 0, err
	}
	if err := requireKey(saleVault, phase.SaleVault, "sale vault"); err != nil {
		return 0, err
	}
	if err := requireKey(tokenProgram, solana.TokenProgramID, "token program"); err != nil {
		return 0, err
	}
	if err := requireKey(clockSysvar, solana.SysvarClockID, "clock sysvar"); err != nil {
		return 0, err
	}

	mint, err := loadMint(saleMint, "sale mint")
	if err != nil {
		return 0, err
	}
	if err := requireOwner(partAcc, req.ProgramID, "participant"); err != nil {
		return 0, err
	}
	part, err := domain.DecodeParticipant(partAcc.Data)
	if err != nil {
		return 0, err
	}
	if part.Owner != payer.Key || part.Sale != saleAcc.Key {
		return 0, errorsmod.Wrapf(programerr.ErrInvalidAccount, "participant %s belongs to %s in sale %s", partAcc.Key, part.Owner, part.Sale)
	}

	now, err := p.now(ctx)
	if err != nil {
		return 0, err
	}
	schedule := vesting.Schedule{
		TGE:            phase.TGE,
		UpfrontPercent: sale.Config.UpfrontPercent,
		VestingMonths:  sale.Config.VestingMonths,
		TokenScale:     mint.Decimals,
		Formula:        p.opts.Formula,
	}
	amount, err := schedule.Unlocked(part.Purchased, part.Claimed, now)
	if err != nil {
		return 0, err
	}
	if amount == 0 {
		return 0, errorsmod.Wrapf(programerr.ErrNothingToClaim, "purchased %d, claimed %d at %d", part.Purchased, part.Claimed, now)
	}

	auth, err := authority.VerifySaleAuthority(req.ProgramID, saleAcc.Key, saleAuth.Key)
	if err != nil {
		return 0, err
	}
	err = p.token.Transfer(ctx, TransferParams{
		Source:         saleVault,
		Destination:    dest,
		Authority:      saleAuth,
		Amount:         amount,
		AuthoritySeeds: auth.Seeds,
	})
	if err != nil {
		return 0, errorsmod.Wrapf(programerr.ErrTokenTransferFailed, "claim: %v", err)
	}

	if err := part.RecordClaim(amount); err != nil {
		return 0, err
	}
	data, err := part.Encode()
	if err != nil {
		return 0, errorsmod.Wrap(programerr.ErrDeserializationFailed, err.Error())
	}
	if err := store(partAcc, data); err != nil {
		return 0, err
	}

	p.logger.Printf("[processor] Claim %d units for %s (%d/%d)", amount, payer.Key, part.Claimed, part.Purchased)
	return amount, nil
}
