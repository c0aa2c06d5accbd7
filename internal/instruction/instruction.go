// Package instruction decodes and encodes token sale requests. A request is an
// opcode byte followed by a borsh payload specific to that opcode.
package instruction

import (
	"bytes"
	"fmt"

	errorsmod "cosmossdk.io/errors"
	bin "github.com/gagliardetto/binary"

	"solana-token-sale/internal/programerr"
)

// Opcode selects the operation.
type Opcode uint8

const (
	OpDeposit        Opcode = 0
	OpInitializeSale Opcode = 1
	OpClaim          Opcode = 2
	OpSetTGE         Opcode = 3
)

// String returns the operation name used in logs and metric labels.
func (o Opcode) String() string {
	switch o {
	case OpDeposit:
		return "deposit"
	case OpInitializeSale:
		return "initialize_sale"
	case OpClaim:
		return "claim"
	case OpSetTGE:
		return "set_tge"
	default:
		return fmt.Sprintf("opcode(%d)", uint8(o))
	}
}

// Instruction is implemented by Deposit, InitializeSale, Claim and SetTGE only.
type Instruction interface {
	Opcode() Opcode
	encodePayload(enc *bin.Encoder) error
}

// Deposit buys Amount sale-token units for Amount × ExchangeRate payment units.
type Deposit struct {
	Amount uint64
}

// InitializeSale configures a new sale.
type InitializeSale struct {
	ExchangeRate   uint64
	SaleStart      int64
	SaleEnd        int64
	UpfrontPercent uint64
	VestingMonths  uint64
	MinDeposit     uint64
	TotalAmount    uint64
}

// Claim transfers the currently unlocked amount to the investor.
type Claim struct{}

// SetTGE fixes the unlock epoch. A nil TGE asks to unset it.
type SetTGE struct {
	TGE *int64
}

func (Deposit) Opcode() Opcode        { return OpDeposit }
func (InitializeSale) Opcode() Opcode { return OpInitializeSale }
func (Claim) Opcode() Opcode          { return OpClaim }
func (SetTGE) Opcode() Opcode         { return OpSetTGE }

// Decode parses a request. Empty data or an unknown opcode is
// UnknownInstruction; a short or over-long payload is DeserializationFailed.
func Decode(data []byte) (Instruction, error) {
	if len(data) == 0 {
		return nil, errorsmod.Wrap(programerr.ErrUnknownInstruction, "empty instruction data")
	}

	dec := bin.NewBorshDecoder(data[1:])
	op := Opcode(data[0])

	var (
		ix  Instruction
		err error
	)
	switch op {
	case OpDeposit:
		var d Deposit
		err = d.decodePayload(dec)
		ix = d
	case OpInitializeSale:
		var i InitializeSale
		err = i.decodePayload(dec)
		ix = i
	case OpClaim:
		ix = Claim{}
	case OpSetTGE:
		var s SetTGE
		err = s.decodePayload(dec)
		ix = s
	default:
		return nil, errorsmod.Wrapf(programerr.ErrUnknownInstruction, "opcode %d", uint8(op))
	}
	if err != nil {
		return nil, errorsmod.Wrapf(programerr.ErrDeserializationFailed, "%s: %v", op, err)
	}
	if dec.Remaining() != 0 {
		return nil, errorsmod.Wrapf(programerr.ErrDeserializationFailed, "%s: %d trailing bytes", op, dec.Remaining())
	}
	return ix, nil
}

// Encode serializes ix with its opcode prefix.
func Encode(ix Instruction) ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := bin.NewBorshEncoder(buf)
	if err := enc.WriteUint8(uint8(ix.Opcode())); err != nil {
		return nil, err
	}
	if err := ix.encodePayload(enc); err != nil {
		return nil, fmt.Errorf("encode %s: %w", ix.Opcode(), err)
	}
	return buf.Bytes(), nil
}

func (d Deposit) encodePayload(enc *bin.Encoder) error {
	return enc.WriteUint64(d.Amount, bin.LE)
}

func (d *Deposit) decodePayload(dec *bin.Decoder) (err error) {
	d.Amount, err = dec.ReadUint64(bin.LE)
	return err
}

func (i InitializeSale) encodePayload(enc *bin.Encoder) error {
	if err := enc.WriteUint64(i.ExchangeRate, bin.LE); err != nil {
		return err
	}
	if err := enc.WriteInt64(i.SaleStart, bin.LE); err != nil {
		return err
	}
	if err := enc.WriteInt64(i.SaleEnd, bin.LE); err != nil {
		return err
	}
	for _, v := range []uint64{i.UpfrontPercent, i.VestingMonths, i.MinDeposit, i.TotalAmount} {
		if err := enc.WriteUint64(v, bin.LE); err != nil {
			return err
		}
	}
	return nil
}

func (i *InitializeSale) decodePayload(dec *bin.Decoder) (err error) {
	if i.ExchangeRate, err = dec.ReadUint64(bin.LE); err != nil {
		return err
	}
	if i.SaleStart, err = dec.ReadInt64(bin.LE); err != nil {
		return err
	}
	if i.SaleEnd, err = dec.ReadInt64(bin.LE); err != nil {
		return err
	}
	for _, dst := range []*uint64{&i.UpfrontPercent, &i.VestingMonths, &i.MinDeposit, &i.TotalAmount} {
		if *dst, err = dec.ReadUint64(bin.LE); err != nil {
			return err
		}
	}
	return nil
}

func (Claim) encodePayload(*bin.Encoder) error { return nil }

func (s SetTGE) encodePayload(enc *bin.Encoder) error {
	if err := enc.WriteOption(s.TGE != nil); err != nil {
		return err
	}
	if s.TGE == nil {
		return nil
	}
	return enc.WriteInt64(*s.TGE, bin.LE)
}

func (s *SetTGE) decodePayload(dec *bin.Decoder) error {
	tag, err := dec.ReadUint8()
	if err != nil {
		return err
	}
	switch tag {
	case 0:
		s.TGE = nil
		return nil
	case 1:
		tge, err := dec.ReadInt64(bin.LE)
		if err != nil {
			return err
		}
		s.TGE = &tge
		return nil
	default:
		return fmt.Errorf("invalid option tag %d", tag)
	}
}
