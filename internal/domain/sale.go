package domain

import (
	"bytes"
	"fmt"

	errorsmod "cosmossdk.io/errors"
	bin "github.com/gagliardetto/binary"

	"solana-token-sale/internal/programerr"
	"solana-token-sale/internal/solana"
)

// SaleConfig is fixed when the sale is initialized and never changes afterwards.
type SaleConfig struct {
	Admin              solana.PublicKey // may call SetTGE
	PaymentMint        solana.PublicKey // accepted payment token
	PaymentDestination solana.PublicKey // token account receiving payments
	ExchangeRate       uint64           // payment units per purchased unit
	SaleStart          int64            // deposit window start, inclusive (unix seconds)
	SaleEnd            int64            // deposit window end, inclusive (unix seconds)
	UpfrontPercent     uint64           // 0..100, released at TGE
	VestingMonths      uint64           // monthly tranches for the remainder
	MinDeposit         uint64           // minimum payment to open a participant record
	TotalAllocated     uint64           // sale-token units offered
}

// Validate checks the configuration constraints enforced at initialization.
func (c SaleConfig) Validate() error {
	if c.SaleEnd < c.SaleStart {
		return errorsmod.Wrapf(programerr.ErrInvalidEndTimestamp, "end %d before start %d", c.SaleEnd, c.SaleStart)
	}
	if c.UpfrontPercent > 100 {
		return errorsmod.Wrapf(programerr.ErrInvalidArgument, "upfront percent %d above 100", c.UpfrontPercent)
	}
	if c.ExchangeRate == 0 {
		return errorsmod.Wrap(programerr.ErrInvalidArgument, "exchange rate must be positive")
	}
	return nil
}

// Phase is the lifecycle phase of an initialized sale: Configured or TgeSet.
type Phase interface {
	phase()
}

// Configured is the phase before the administrator has fixed TGE.
type Configured struct{}

// TgeSet is the phase in which claims are possible. The sale mint and vault are
// only known from this phase on.
type TgeSet struct {
	TGE       int64
	SaleMint  solana.PublicKey
	SaleVault solana.PublicKey
}

func (Configured) phase() {}
func (TgeSet) phase()     {}

// Sale is an initialized sale record.
type Sale struct {
	Config         SaleConfig
	Phase          Phase
	TotalRemaining uint64 // unsold capacity
}

// NewSale returns a freshly initialized sale in the Configured phase.
func NewSale(cfg SaleConfig) *Sale {
	return &Sale{
		Config:         cfg,
		Phase:          Configured{},
		TotalRemaining: cfg.TotalAllocated,
	}
}

// TGE returns the TgeSet phase, if the sale is in it.
func (s *Sale) TGE() (TgeSet, bool) {
	p, ok := s.Phase.(TgeSet)
	return p, ok
}

// InWindow reports whether deposits are accepted at now.
func (s *Sale) InWindow(now int64) bool {
	return s.CheckWindow(now) == nil
}

// CheckWindow returns SellNotStarted or SellEnded when now is outside the
// inclusive deposit window.
func (s *Sale) CheckWindow(now int64) error {
	if now < s.Config.SaleStart {
		return errorsmod.Wrapf(programerr.ErrSellNotStarted, "now %d, start %d", now, s.Config.SaleStart)
	}
	if now > s.Config.SaleEnd {
		return errorsmod.Wrapf(programerr.ErrSellEnded, "now %d, end %d", now, s.Config.SaleEnd)
	}
	return nil
}

// Reserve takes units out of the remaining capacity.
func (s *Sale) Reserve(units uint64) error {
	if units > s.TotalRemaining {
		return errorsmod.Wrapf(programerr.ErrCapacityExceeded, "requested %d, remaining %d", units, s.TotalRemaining)
	}
	s.TotalRemaining -= units
	return nil
}

// Encode serializes the sale into its SaleSize layout, zero padded.
func (s *Sale) Encode() ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, SaleSize))
	if err := s.MarshalWithEncoder(bin.NewBorshEncoder(buf)); err != nil {
		return nil, fmt.Errorf("encode sale: %w", err)
	}
	out := make([]byte, SaleSize)
	copy(out, buf.Bytes())
	return out, nil
}

// DecodeSale parses an initialized sale record.
func DecodeSale(data []byte) (*Sale, error) {
	kind, err := PeekKind(data, SaleSize)
	if err != nil {
		return nil, err
	}
	if kind != KindSale {
		return nil, errorsmod.Wrapf(programerr.ErrInvalidAccount, "record kind %s, want sale", kind)
	}
	s := new(Sale)
	if err := s.UnmarshalWithDecoder(bin.NewBorshDecoder(data)); err != nil {
		return nil, errorsmod.Wrap(programerr.ErrDeserializationFailed, err.Error())
	}
	return s, nil
}

// MarshalWithEncoder writes the borsh layout.
func (s Sale) MarshalWithEncoder(enc *bin.Encoder) error {
	c := s.Config
	var (
		tgeSet TgeSet
		hasTGE bool
	)
	switch p := s.Phase.(type) {
	case TgeSet:
		tgeSet, hasTGE = p, true
	case Configured, nil:
	default:
		return fmt.Errorf("unknown phase %T", p)
	}

	if err := enc.WriteUint8(uint8(KindSale)); err != nil {
		return err
	}
	if err := writeKeys(enc, c.Admin, c.PaymentMint); err != nil {
		return err
	}
	if err := writeOptionalKey(enc, hasTGE, tgeSet.SaleMint); err != nil {
		return err
	}
	if err := writeOptionalKey(enc, hasTGE, tgeSet.SaleVault); err != nil {
		return err
	}
	if err := writeKeys(enc, c.PaymentDestination); err != nil {
		return err
	}
	if err := enc.WriteUint64(c.ExchangeRate, bin.LE); err != nil {
		return err
	}
	if err := enc.WriteInt64(c.SaleStart, bin.LE); err != nil {
		return err
	}
	if err := enc.WriteInt64(c.SaleEnd, bin.LE); err != nil {
		return err
	}
	if err := enc.WriteOption(hasTGE); err != nil {
		return err
	}
	if hasTGE {
		if err := enc.WriteInt64(tgeSet.TGE, bin.LE); err != nil {
			return err
		}
	}
	for _, v := range []uint64{c.UpfrontPercent, c.VestingMonths, c.MinDeposit, c.TotalAllocated, s.TotalRemaining} {
		if err := enc.WriteUint64(v, bin.LE); err != nil {
			return err
		}
	}
	return nil
}

// UnmarshalWithDecoder reads the borsh layout. The three phase fields must be
// all present or all absent.
func (s *Sale) UnmarshalWithDecoder(dec *bin.Decoder) (err error) {
	if _, err = dec.ReadUint8(); err != nil {
		return err
	}
	c := &s.Config
	if c.Admin, err = readKey(dec); err != nil {
		return err
	}
	if c.PaymentMint, err = readKey(dec); err != nil {
		return err
	}
	saleMint, err := readOptionalKey(dec)
	if err != nil {
		return err
	}
	saleVault, err := readOptionalKey(dec)
	if err != nil {
		return err
	}
	if c.PaymentDestination, err = readKey(dec); err != nil {
		return err
	}
	if c.ExchangeRate, err = dec.ReadUint64(bin.LE); err != nil {
		return err
	}
	if c.SaleStart, err = dec.ReadInt64(bin.LE); err != nil {
		return err
	}
	if c.SaleEnd, err = dec.ReadInt64(bin.LE); err != nil {
		return err
	}
	hasTGE, err := dec.ReadOption()
	if err != nil {
		return err
	}
	var tge int64
	if hasTGE {
		if tge, err = dec.ReadInt64(bin.LE); err != nil {
			return err
		}
	}
	for _, dst := range []*uint64{&c.UpfrontPercent, &c.VestingMonths, &c.MinDeposit, &c.TotalAllocated, &s.TotalRemaining} {
		if *dst, err = dec.ReadUint64(bin.LE); err != nil {
			return err
		}
	}

	switch {
	case hasTGE && saleMint != nil && saleVault != nil:
		s.Phase = TgeSet{TGE: tge, SaleMint: *saleMint, SaleVault: *saleVault}
	case !hasTGE && saleMint == nil && saleVault == nil:
		s.Phase = Configured{}
	default:
		return fmt.Errorf("inconsistent phase fields: tge=%t mint=%t vault=%t", hasTGE, saleMint != nil, saleVault != nil)
	}
	return nil
}

func writeKeys(enc *bin.Encoder, keys ...solana.PublicKey) error {
	for _, k := range keys {
		if err := enc.WriteBytes(k[:], false); err != nil {
			return err
		}
	}
	return nil
}

func writeOptionalKey(enc *bin.Encoder, present bool, key solana.PublicKey) error {
	if err := enc.WriteOption(present); err != nil {
		return err
	}
	if !present {
		return nil
	}
	return enc.WriteBytes(key[:], false)
}

func readKey(dec *bin.Decoder) (solana.PublicKey, error) {
	var k solana.PublicKey
	b, err := dec.ReadNBytes(solana.PublicKeyLength)
	if err != nil {
		return k, err
	}
	copy(k[:], b)
	return k, nil
}

func readOptionalKey(dec *bin.Decoder) (*solana.PublicKey, error) {
	present, err := dec.ReadOption()
	if err != nil || !present {
		return nil, err
	}
	k, err := readKey(dec)
	if err != nil {
		return nil, err
	}
	return &k, nil
}
