// Package authority derives the program-owned addresses that guard a sale: the
// sale authority that owns the sale vault, and each investor's participant
// record address. Derivations are pure and recomputed on every request; they
// are never read from storage.
package authority

import (
	"fmt"

	errorsmod "cosmossdk.io/errors"

	"solana-token-sale/internal/programerr"
	"solana-token-sale/internal/solana"
)

// DomainTag prefixes every derivation seed list.
const DomainTag = "tokensell"

// Derived is a program address together with the canonical bump and the full
// seed list (bump included) that proves it.
type Derived struct {
	Address solana.PublicKey
	Bump    uint8
	Seeds   [][]byte
}

// SaleAuthority derives the address allowed to move funds out of the sale vault.
func SaleAuthority(program, sale solana.PublicKey) (Derived, error) {
	return derive(program, []byte(DomainTag), program.Bytes(), sale.Bytes())
}

// ParticipantAddress derives the address of investor's participant record for sale.
func ParticipantAddress(program, sale, investor solana.PublicKey) (Derived, error) {
	return derive(program, []byte(DomainTag), program.Bytes(), sale.Bytes(), investor.Bytes())
}

func derive(program solana.PublicKey, seeds ...[]byte) (Derived, error) {
	addr, bump, err := solana.FindProgramAddress(seeds, program)
	if err != nil {
		return Derived{}, fmt.Errorf("derive program address: %w", err)
	}
	return Derived{
		Address: addr,
		Bump:    bump,
		Seeds:   append(seeds, []byte{bump}),
	}, nil
}

// VerifySaleAuthority returns the derived sale authority if supplied matches it.
func VerifySaleAuthority(program, sale, supplied solana.PublicKey) (Derived, error) {
	d, err := SaleAuthority(program, sale)
	if err != nil {
		return Derived{}, err
	}
	if d.Address != supplied {
		return Derived{}, errorsmod.Wrapf(programerr.ErrInvalidAccount, "sale authority %s, expected %s", supplied, d.Address)
	}
	return d, nil
}

// VerifyParticipant returns the derived participant address if supplied matches it.
func VerifyParticipant(program, sale, investor, supplied solana.PublicKey) (Derived, error) {
	d, err := ParticipantAddress(program, sale, investor)
	if err != nil {
		return Derived{}, err
	}
	if d.Address != supplied {
		return Derived{}, errorsmod.Wrapf(programerr.ErrInvalidAccount, "participant %s, expected %s", supplied, d.Address)
	}
	return d, nil
}
