package domain

import (
	"bytes"
	"fmt"
	"math/bits"

	errorsmod "cosmossdk.io/errors"
	bin "github.com/gagliardetto/binary"

	"solana-token-sale/internal/programerr"
	"solana-token-sale/internal/solana"
)

// Participant is one investor's deposit and claim ledger for a sale.
// Claimed never exceeds Purchased and neither ever decreases.
type Participant struct {
	Owner     solana.PublicKey // investor
	Sale      solana.PublicKey // sale this record belongs to
	Purchased uint64           // cumulative sale-token entitlement
	Claimed   uint64           // cumulative units already transferred out
}

// Credit adds purchased units.
func (p *Participant) Credit(units uint64) error {
	sum, carry := bits.Add64(p.Purchased, units, 0)
	if carry != 0 {
		return errorsmod.Wrapf(programerr.ErrOverflow, "purchased %d + %d", p.Purchased, units)
	}
	p.Purchased = sum
	return nil
}

// RecordClaim adds transferred units to Claimed, keeping Claimed ≤ Purchased.
func (p *Participant) RecordClaim(units uint64) error {
	sum, carry := bits.Add64(p.Claimed, units, 0)
	if carry != 0 || sum > p.Purchased {
		return errorsmod.Wrapf(programerr.ErrOverflow, "claimed %d + %d exceeds purchased %d", p.Claimed, units, p.Purchased)
	}
	p.Claimed = sum
	return nil
}

// Outstanding returns units purchased but not yet claimed.
func (p *Participant) Outstanding() uint64 {
	return p.Purchased - p.Claimed
}

// Encode serializes the participant into its ParticipantSize layout.
func (p *Participant) Encode() ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, ParticipantSize))
	if err := p.MarshalWithEncoder(bin.NewBorshEncoder(buf)); err != nil {
		return nil, fmt.Errorf("encode participant: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeParticipant parses an initialized participant record.
func DecodeParticipant(data []byte) (*Participant, error) {
	kind, err := PeekKind(data, ParticipantSize)
	if err != nil {
		return nil, err
	}
	if kind != KindParticipant {
		return nil, errorsmod.Wrapf(programerr.ErrInvalidAccount, "record kind %s, want participant", kind)
	}
	p := new(Participant)
	if err := p.UnmarshalWithDecoder(bin.NewBorshDecoder(data)); err != nil {
		return nil, errorsmod.Wrap(programerr.ErrDeserializationFailed, err.Error())
	}
	return p, nil
}

// MarshalWithEncoder writes the borsh layout.
func (p Participant) MarshalWithEncoder(enc *bin.Encoder) error {
	if err := enc.WriteUint8(uint8(KindParticipant)); err != nil {
		return err
	}
	if err := writeKeys(enc, p.Owner, p.Sale); err != nil {
		return err
	}
	if err := enc.WriteUint64(p.Purchased, bin.LE); err != nil {
		return err
	}
	return enc.WriteUint64(p.Claimed, bin.LE)
}

// UnmarshalWithDecoder reads the borsh layout.
func (p *Participant) UnmarshalWithDecoder(dec *bin.Decoder) (err error) {
	if _, err = dec.ReadUint8(); err != nil {
		return err
	}
	if p.Owner, err = readKey(dec); err != nil {
		return err
	}
	if p.Sale, err = readKey(dec); err != nil {
		return err
	}
	if p.Purchased, err = dec.ReadUint64(bin.LE); err != nil {
		return err
	}
	if p.Claimed, err = dec.ReadUint64(bin.LE); err != nil {
		return err
	}
	if p.Claimed > p.Purchased {
		return fmt.Errorf("claimed %d exceeds purchased %d", p.Claimed, p.Purchased)
	}
	return nil
}
