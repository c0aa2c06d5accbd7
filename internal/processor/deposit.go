package processor

import (
	"context"
	"math/bits"

	errorsmod "cosmossdk.io/errors"

	"solana-token-sale/internal/authority"
	"solana-token-sale/internal/domain"
	"solana-token-sale/internal/instruction"
	"solana-token-sale/internal/programerr"
	"solana-token-sale/internal/solana"
)

// deposit buys ix.Amount sale-token units for the payer at the sale's exchange
// rate. It returns the payment units transferred.
func (p *Processor) deposit(ctx context.Context, req Request, ix instruction.Deposit) (uint64, error) {
	a := req.Accounts
	payer, paymentSource, saleAcc, paymentDest, transferAuth, tokenProgram, partAcc, rentSysvar, clockSysvar, systemProgram :=
		a[0], a[1], a[2], a[3], a[4], a[5], a[6], a[7], a[8], a[9]

	if err := requireSigner(payer, "payer"); err != nil {
		return 0, err
	}
	if err := requireKey(tokenProgram, solana.TokenProgramID, "token program"); err != nil {
		return 0, err
	}
	if err := requireKey(rentSysvar, solana.SysvarRentID, "rent sysvar"); err != nil {
		return 0, err
	}
	if err := requireKey(clockSysvar, solana.SysvarClockID, "clock sysvar"); err != nil {
		return 0, err
	}
	if err := requireKey(systemProgram, solana.SystemProgramID, "system program"); err != nil {
		return 0, err
	}
	if err := requireOwner(saleAcc, req.ProgramID, "sale"); err != nil {
		return 0, err
	}
	sale, err := domain.DecodeSale(saleAcc.Data)
	if err != nil {
		return 0, err
	}

	now, err := p.now(ctx)
	if err != nil {
		return 0, err
	}
	if err := sale.CheckWindow(now); err != nil {
		return 0, err
	}
	if err := requireKey(paymentDest, sale.Config.PaymentDestination, "payment destination"); err != nil {
		return 0, err
	}

	hi, payment := bits.Mul64(ix.Amount, sale.Config.ExchangeRate)
	if hi != 0 {
		return 0, errorsmod.Wrapf(programerr.ErrOverflow, "amount %d × rate %d", ix.Amount, sale.Config.ExchangeRate)
	}

	derived, err := authority.VerifyParticipant(req.ProgramID, saleAcc.Key, payer.Key, partAcc.Key)
	if err != nil {
		return 0, err
	}

	isNew := domain.IsEmpty(partAcc.Data)
	var part *domain.Participant
	if isNew {
		if payment < sale.Config.MinDeposit {
			return 0, errorsmod.Wrapf(programerr.ErrMinimalDeposit, "payment %d, minimum %d", payment, sale.Config.MinDeposit)
		}
		part = &domain.Participant{Owner: payer.Key, Sale: saleAcc.Key}
	} else {
		if err := requireOwner(partAcc, req.ProgramID, "participant"); err != nil {
			return 0, err
		}
		if part, err = domain.DecodeParticipant(partAcc.Data); err != nil {
			return 0, err
		}
		if part.Owner != payer.Key || part.Sale != saleAcc.Key {
			return 0, errorsmod.Wrapf(programerr.ErrInvalidAccount, "participant %s belongs to %s in sale %s", partAcc.Key, part.Owner, part.Sale)
		}
	}

	if err := part.Credit(ix.Amount); err != nil {
		return 0, err
	}
	if !p.opts.UncappedDeposits {
		if err := sale.Reserve(ix.Amount); err != nil {
			return 0, err
		}
	}

	err = p.token.Transfer(ctx, TransferParams{
		Source:      paymentSource,
		Destination: paymentDest,
		Authority:   transferAuth,
		Amount:      payment,
	})
	if err != nil {
		return 0, errorsmod.Wrapf(programerr.ErrTokenTransferFailed, "payment: %v", err)
	}

	if isNew {
		err = p.system.Allocate(ctx, AllocateParams{
			Payer:   payer,
			Account: partAcc,
			Owner:   req.ProgramID,
			Size:    domain.ParticipantSize,
			Seeds:   derived.Seeds,
		})
		if err != nil {
			return 0, errorsmod.Wrapf(programerr.ErrInvalidAccount, "allocate participant %s: %v", partAcc.Key, err)
		}
	}

	partData, err := part.Encode()
	if err != nil {
		return 0, errorsmod.Wrap(programerr.ErrDeserializationFailed, err.Error())
	}
	saleData, err := sale.Encode()
	if err != nil {
		return 0, errorsmod.Wrap(programerr.ErrDeserializationFailed, err.Error())
	}
	if err := store(partAcc, partData); err != nil {
		return 0, err
	}
	if err := store(saleAcc, saleData); err != nil {
		return 0, err
	}

	p.logger.Printf("[processor] Deposit %d units for %s, paid %d", ix.Amount, payer.Key, payment)
	return payment, nil
}
