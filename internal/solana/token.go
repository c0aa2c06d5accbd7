package solana

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
)

// SPL token account layout sizes.
const (
	TokenAccountSize = 165
	MintSize         = 82
)

// TokenAccountState is the SPL token account state byte.
type TokenAccountState uint8

const (
	TokenAccountUninitialized TokenAccountState = iota
	TokenAccountInitialized
	TokenAccountFrozen
)

// TokenAccount is the SPL token account layout:
//   - mint: Pubkey (32)
//   - owner: Pubkey (32)
//   - amount: u64 (8)
//   - delegate: COption<Pubkey> (36)
//   - state: u8 (1)
//   - isNative: COption<u64> (12)
//   - delegatedAmount: u64 (8)
//   - closeAuthority: COption<Pubkey> (36)
type TokenAccount struct {
	Mint            PublicKey
	Owner           PublicKey
	Amount          uint64
	Delegate        *PublicKey
	State           TokenAccountState
	IsNative        *uint64
	DelegatedAmount uint64
	CloseAuthority  *PublicKey
}

// Mint is the SPL mint layout:
//   - mintAuthority: COption<Pubkey> (36)
//   - supply: u64 (8)
//   - decimals: u8 (1)
//   - isInitialized: bool (1)
//   - freezeAuthority: COption<Pubkey> (36)
type Mint struct {
	MintAuthority   *PublicKey
	Supply          uint64
	Decimals        uint8
	IsInitialized   bool
	FreezeAuthority *PublicKey
}

// DecodeTokenAccount parses SPL token account data.
func DecodeTokenAccount(data []byte) (*TokenAccount, error) {
	if len(data) < TokenAccountSize {
		return nil, fmt.Errorf("token account data too short: %d", len(data))
	}
	acc := new(TokenAccount)
	if err := acc.UnmarshalWithDecoder(bin.NewBinDecoder(data[:TokenAccountSize])); err != nil {
		return nil, fmt.Errorf("decode token account: %w", err)
	}
	if acc.State == TokenAccountUninitialized {
		return nil, fmt.Errorf("token account is not initialized")
	}
	return acc, nil
}

// Encode serializes the token account into its 165-byte layout.
func (a *TokenAccount) Encode() ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := a.MarshalWithEncoder(bin.NewBinEncoder(buf)); err != nil {
		return nil, fmt.Errorf("encode token account: %w", err)
	}
	return buf.Bytes(), nil
}

// UnmarshalWithDecoder implements bin.BinaryUnmarshaler.
func (a *TokenAccount) UnmarshalWithDecoder(dec *bin.Decoder) (err error) {
	if a.Mint, err = readPublicKey(dec); err != nil {
		return err
	}
	if a.Owner, err = readPublicKey(dec); err != nil {
		return err
	}
	if a.Amount, err = dec.ReadUint64(bin.LE); err != nil {
		return err
	}
	if a.Delegate, err = readCOptionPublicKey(dec); err != nil {
		return err
	}
	state, err := dec.ReadUint8()
	if err != nil {
		return err
	}
	a.State = TokenAccountState(state)
	hasNative, err := dec.ReadCOption()
	if err != nil {
		return err
	}
	native, err := dec.ReadUint64(bin.LE)
	if err != nil {
		return err
	}
	if hasNative {
		a.IsNative = &native
	}
	if a.DelegatedAmount, err = dec.ReadUint64(bin.LE); err != nil {
		return err
	}
	a.CloseAuthority, err = readCOptionPublicKey(dec)
	return err
}

// MarshalWithEncoder implements bin.BinaryMarshaler.
func (a TokenAccount) MarshalWithEncoder(enc *bin.Encoder) error {
	if err := enc.WriteBytes(a.Mint[:], false); err != nil {
		return err
	}
	if err := enc.WriteBytes(a.Owner[:], false); err != nil {
		return err
	}
	if err := enc.WriteUint64(a.Amount, bin.LE); err != nil {
		return err
	}
	if err := writeCOptionPublicKey(enc, a.Delegate); err != nil {
		return err
	}
	if err := enc.WriteUint8(uint8(a.State)); err != nil {
		return err
	}
	if err := enc.WriteCOption(a.IsNative != nil); err != nil {
		return err
	}
	var native uint64
	if a.IsNative != nil {
		native = *a.IsNative
	}
	if err := enc.WriteUint64(native, bin.LE); err != nil {
		return err
	}
	if err := enc.WriteUint64(a.DelegatedAmount, bin.LE); err != nil {
		return err
	}
	return writeCOptionPublicKey(enc, a.CloseAuthority)
}

// DecodeMint parses SPL mint data.
func DecodeMint(data []byte) (*Mint, error) {
	if len(data) < MintSize {
		return nil, fmt.Errorf("mint data too short: %d", len(data))
	}
	m := new(Mint)
	if err := m.UnmarshalWithDecoder(bin.NewBinDecoder(data[:MintSize])); err != nil {
		return nil, fmt.Errorf("decode mint: %w", err)
	}
	if !m.IsInitialized {
		return nil, fmt.Errorf("mint is not initialized")
	}
	return m, nil
}

// Encode serializes the mint into its 82-byte layout.
func (m *Mint) Encode() ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := m.MarshalWithEncoder(bin.NewBinEncoder(buf)); err != nil {
		return nil, fmt.Errorf("encode mint: %w", err)
	}
	return buf.Bytes(), nil
}

// UnmarshalWithDecoder implements bin.BinaryUnmarshaler.
func (m *Mint) UnmarshalWithDecoder(dec *bin.Decoder) (err error) {
	if m.MintAuthority, err = readCOptionPublicKey(dec); err != nil {
		return err
	}
	if m.Supply, err = dec.ReadUint64(bin.LE); err != nil {
		return err
	}
	if m.Decimals, err = dec.ReadUint8(); err != nil {
		return err
	}
	if m.IsInitialized, err = dec.ReadBool(); err != nil {
		return err
	}
	m.FreezeAuthority, err = readCOptionPublicKey(dec)
	return err
}

// MarshalWithEncoder implements bin.BinaryMarshaler.
func (m Mint) MarshalWithEncoder(enc *bin.Encoder) error {
	if err := writeCOptionPublicKey(enc, m.MintAuthority); err != nil {
		return err
	}
	if err := enc.WriteUint64(m.Supply, bin.LE); err != nil {
		return err
	}
	if err := enc.WriteUint8(m.Decimals); err != nil {
		return err
	}
	if err := enc.WriteBool(m.IsInitialized); err != nil {
		return err
	}
	return writeCOptionPublicKey(enc, m.FreezeAuthority)
}

func readPublicKey(dec *bin.Decoder) (PublicKey, error) {
	var pk PublicKey
	b, err := dec.ReadNBytes(PublicKeyLength)
	if err != nil {
		return pk, err
	}
	copy(pk[:], b)
	return pk, nil
}

// readCOptionPublicKey reads a 4-byte tagged optional key. The key bytes are
// always present in the layout, zeroed when absent.
func readCOptionPublicKey(dec *bin.Decoder) (*PublicKey, error) {
	present, err := dec.ReadCOption()
	if err != nil {
		return nil, err
	}
	pk, err := readPublicKey(dec)
	if err != nil {
		return nil, err
	}
	if !present {
		return nil, nil
	}
	return &pk, nil
}

func writeCOptionPublicKey(enc *bin.Encoder, pk *PublicKey) error {
	if err := enc.WriteCOption(pk != nil); err != nil {
		return err
	}
	var key PublicKey
	if pk != nil {
		key = *pk
	}
	return enc.WriteBytes(key[:], false)
}
