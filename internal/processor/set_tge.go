package processor

import (
	"context"

	errorsmod "cosmossdk.io/errors"

	"solana-token-sale/internal/authority"
	"solana-token-sale/internal/domain"
	"solana-token-sale/internal/instruction"
	"solana-token-sale/internal/programerr"
)

// setTGE records the unlock epoch together with the funded sale vault. The
// vault is validated before an absent TGE is considered, so unsetting needs
// the same accounts as setting.
func (p *Processor) setTGE(_ context.Context, req Request, ix instruction.SetTGE) error {
	a := req.Accounts
	admin, saleAcc, saleMint, saleVault := a[0], a[1], a[2], a[3]

	if err := requireSigner(admin, "admin"); err != nil {
		return err
	}
	if err := requireOwner(saleAcc, req.ProgramID, "sale"); err != nil {
		return err
	}
	sale, err := domain.DecodeSale(saleAcc.Data)
	if err != nil {
		return err
	}
	if admin.Key != sale.Config.Admin {
		return errorsmod.Wrapf(programerr.ErrInvalidAccount, "%s is not the sale admin", admin.Key)
	}

	auth, err := authority.SaleAuthority(req.ProgramID, saleAcc.Key)
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
	if vault.Amount < sale.Config.TotalAllocated {
		return errorsmod.Wrapf(programerr.ErrNoTokensInVault, "vault holds %d, allocation %d", vault.Amount, sale.Config.TotalAllocated)
	}
	if vault.Mint != saleMint.Key {
		return errorsmod.Wrapf(programerr.ErrWrongMint, "sale vault mint %s, want %s", vault.Mint, saleMint.Key)
	}

	if ix.TGE == nil {
		if !p.opts.AllowTGEUnset {
			return errorsmod.Wrap(programerr.ErrTGEUnsetForbidden, "absent tge")
		}
		sale.Phase = domain.Configured{}
		p.logger.Printf("[processor] TGE unset for sale %s", saleAcc.Key)
		return p.storeSale(saleAcc, sale)
	}

	if prev, ok := sale.TGE(); ok && prev.TGE != *ix.TGE {
		p.logger.Printf("[processor] TGE for sale %s moved from %d to %d", saleAcc.Key, prev.TGE, *ix.TGE)
	}
	sale.Phase = domain.TgeSet{TGE: *ix.TGE, SaleMint: saleMint.Key, SaleVault: saleVault.Key}
	return p.storeSale(saleAcc, sale)
}

func (p *Processor) storeSale(acc *AccountInfo, sale *domain.Sale) error {
	data, err := sale.Encode()
	if err != nil {
		return errorsmod.Wrap(programerr.ErrDeserializationFailed, err.Error())
	}
	return store(acc, data)
}
