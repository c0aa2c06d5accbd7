package processor

import (
	errorsmod "cosmossdk.io/errors"

	"solana-token-sale/internal/programerr"
	"solana-token-sale/internal/solana"
)

func requireSigner(acc *AccountInfo, role string) error {
	if !acc.IsSigner {
		return errorsmod.Wrapf(programerr.ErrSignatureRequired, "%s %s did not sign", role, acc.Key)
	}
	return nil
}

func requireOwner(acc *AccountInfo, owner solana.PublicKey, role string) error {
	if acc.Owner != owner {
		return errorsmod.Wrapf(programerr.ErrInvalidOwner, "%s %s owned by %s, want %s", role, acc.Key, acc.Owner, owner)
	}
	return nil
}

func requireKey(acc *AccountInfo, want solana.PublicKey, role string) error {
	if acc.Key != want {
		return errorsmod.Wrapf(programerr.ErrInvalidAccount, "%s %s, want %s", role, acc.Key, want)
	}
	return nil
}

// loadTokenAccount decodes an SPL token account owned by the token program.
func loadTokenAccount(acc *AccountInfo, role string) (*solana.TokenAccount, error) {
	if err := requireOwner(acc, solana.TokenProgramID, role); err != nil {
		return nil, err
	}
	ta, err := solana.DecodeTokenAccount(acc.Data)
	if err != nil {
		return nil, errorsmod.Wrapf(programerr.ErrInvalidAccount, "%s %s: %v", role, acc.Key, err)
	}
	return ta, nil
}

// loadMint decodes an SPL mint owned by the token program.
func loadMint(acc *AccountInfo, role string) (*solana.Mint, error) {
	if err := requireOwner(acc, solana.TokenProgramID, role); err != nil {
		return nil, err
	}
	m, err := solana.DecodeMint(acc.Data)
	if err != nil {
		return nil, errorsmod.Wrapf(programerr.ErrInvalidAccount, "%s %s: %v", role, acc.Key, err)
	}
	return m, nil
}

// store overwrites the head of acc.Data with data.
func store(acc *AccountInfo, data []byte) error {
	if len(acc.Data) < len(data) {
		return errorsmod.Wrapf(programerr.ErrSizeMismatch, "%s holds %d bytes, record needs %d", acc.Key, len(acc.Data), len(data))
	}
	copy(acc.Data, data)
	return nil
}
