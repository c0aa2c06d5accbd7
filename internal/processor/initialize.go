package processor

import (
	"context"

	errorsmod "cosmossdk.io/errors"

	"solana-token-sale/internal/authority"
	"solana-token-sale/internal/domain"
	"solana-token-sale/internal/instruction"
	"solana-token-sale/internal/programerr"
	"solana-token-sale/internal/solana"
)

// initializeSale turns uninitialized, rent-exempt sale storage into a
// Configured sale administered by the payer.
func (p *Processor) initializeSale(ctx context.Context, req Request, ix instruction.InitializeSale) error {
	a := req.Accounts
	payer, sale, saleVault, saleMint, paymentMint, paymentDest, rentSysvar, clockSysvar :=
		a[0], a[1], a[2], a[3], a[4], a[5], a[6], a[7]

	if err := requireSigner(payer, "payer"); err != nil {
		return err
	}
	if err := requireOwner(sale, req.ProgramID, "sale"); err != nil {
		return err
	}
	if err := requireKey(rentSysvar, solana.SysvarRentID, "rent sysvar"); err != nil {
		return err
	}
	if err := requireKey(clockSysvar, solana.SysvarClockID, "clock sysvar"); err != nil {
		return err
	}
	if !p.rent.IsExempt(sale.Lamports, len(sale.Data)) {
		return errorsmod.Wrapf(programerr.ErrNotRentExempt, "sale %s has %d lamports for %d bytes", sale.Key, sale.Lamports, len(sale.Data))
	}

	kind, err := domain.PeekKind(sale.Data, domain.SaleSize)
	if err != nil {
		return err
	}
	if kind != domain.KindUninitialized {
		return errorsmod.Wrapf(programerr.ErrAccountInitialized, "sale %s is a %s record", sale.Key, kind)
	}

	now, err := p.now(ctx)
	if err != nil {
		return err
	}
	p.logger.Printf("[processor] Init sale %s now=%d start=%d end=%d", sale.Key, now, ix.SaleStart, ix.SaleEnd)
	if now > ix.SaleEnd {
		return errorsmod.Wrapf(programerr.ErrInvalidEndTimestamp, "end %d already passed at %d", ix.SaleEnd, now)
	}

	cfg := domain.SaleConfig{
		Admin:              payer.Key,
		PaymentMint:        paymentMint.Key,
		PaymentDestination: paymentDest.Key,
		ExchangeRate:       ix.ExchangeRate,
		SaleStart:          ix.SaleStart,
		SaleEnd:            ix.SaleEnd,
		UpfrontPercent:     ix.UpfrontPercent,
		VestingMonths:      ix.VestingMonths,
		MinDeposit:         ix.MinDeposit,
		TotalAllocated:     ix.TotalAmount,
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	auth, err := authority.SaleAuthority(req.ProgramID, sale.Key)
	if err != nil {
		return errorsmod.Wrap(programerr.ErrInvalidAccount, err.Error())
	}
	vault, err := loadTokenAccount(saleVault, "sale vault")
	if err != nil {
		return err
	}
	if vault.Owner != auth.Address {
		return errorsmod.Wrapf(programerr.ErrInvalidOwner, "sale vault owned by %s, want sale authority %s", vault.Owner, auth.Address)
	}
	if vault.Amount == 0 {
		return errorsmod.Wrapf(programerr.ErrNoTokensInVault, "sale vault %s is empty", saleVault.Key)
	}
	if vault.Mint != saleMint.Key {
		return errorsmod.Wrapf(programerr.ErrWrongMint, "sale vault mint %s, want %s", vault.Mint, saleMint.Key)
	}

	dest, err := loadTokenAccount(paymentDest, "payment destination")
	if err != nil {
		return err
	}
	if dest.Mint != paymentMint.Key {
		return errorsmod.Wrapf(programerr.ErrWrongMint, "payment destination mint %s, want %s", dest.Mint, paymentMint.Key)
	}

	data, err := domain.NewSale(cfg).Encode()
	if err != nil {
		return errorsmod.Wrap(programerr.ErrDeserializationFailed, err.Error())
	}
	return store(sale, data)
}
