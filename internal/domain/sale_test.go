package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-token-sale/internal/programerr"
	"solana-token-sale/internal/solana"
)

func key(b byte) solana.PublicKey {
	var k solana.PublicKey
	for i := range k {
		k[i] = b
	}
	return k
}

func testConfig() SaleConfig {
	return SaleConfig{
		Admin:              key(1),
		PaymentMint:        key(2),
		PaymentDestination: key(3),
		ExchangeRate:       5,
		SaleStart:          1000,
		SaleEnd:            2000,
		UpfrontPercent:     20,
		VestingMonths:      10,
		MinDeposit:         50,
		TotalAllocated:     1_000_000,
	}
}

func TestSale_ConfiguredLayout(t *testing.T) {
	s := NewSale(testConfig())
	data, err := s.Encode()
	require.NoError(t, err)
	require.Len(t, data, SaleSize)
	assert.Equal(t, byte(KindSale), data[0])
	// saleMint option tag follows admin and paymentMint
	assert.Equal(t, byte(0), data[65])

	decoded, err := DecodeSale(data)
	require.NoError(t, err)
	assert.Equal(t, s.Config, decoded.Config)
	assert.Equal(t, Configured{}, decoded.Phase)
	assert.Equal(t, uint64(1_000_000), decoded.TotalRemaining)
	_, ok := decoded.TGE()
	assert.False(t, ok)
}

func TestSale_TgeSetLayout(t *testing.T) {
	s := NewSale(testConfig())
	s.Phase = TgeSet{TGE: 5000, SaleMint: key(7), SaleVault: key(8)}
	s.TotalRemaining = 10

	data, err := s.Encode()
	require.NoError(t, err)
	require.Len(t, data, SaleSize)
	assert.Equal(t, byte(1), data[65])
	// every option present fills the layout exactly; totalRemaining is the last field
	assert.Equal(t, byte(10), data[SaleSize-8])

	decoded, err := DecodeSale(data)
	require.NoError(t, err)
	phase, ok := decoded.TGE()
	require.True(t, ok)
	assert.Equal(t, int64(5000), phase.TGE)
	assert.Equal(t, key(7), phase.SaleMint)
	assert.Equal(t, key(8), phase.SaleVault)
	assert.Equal(t, uint64(10), decoded.TotalRemaining)
}

func TestDecodeSale_Errors(t *testing.T) {
	_, err := DecodeSale(make([]byte, SaleSize-1))
	assert.True(t, errors.Is(err, programerr.ErrSizeMismatch))

	_, err = DecodeSale(make([]byte, SaleSize))
	assert.True(t, errors.Is(err, programerr.ErrInvalidAccount), "uninitialized storage is not a sale")

	p := &Participant{Owner: key(1), Sale: key(2)}
	pdata, err := p.Encode()
	require.NoError(t, err)
	padded := make([]byte, SaleSize)
	copy(padded, pdata)
	_, err = DecodeSale(padded)
	assert.True(t, errors.Is(err, programerr.ErrInvalidAccount), "participant record is not a sale")

	// tge present while mint and vault are absent
	s := NewSale(testConfig())
	data, err := s.Encode()
	require.NoError(t, err)
	tgeTag := 1 + 32 + 32 + 1 + 1 + 32 + 8 + 8 + 8
	data[tgeTag] = 1
	_, err = DecodeSale(data)
	assert.True(t, errors.Is(err, programerr.ErrDeserializationFailed))
}

func TestSaleConfig_Validate(t *testing.T) {
	require.NoError(t, testConfig().Validate())

	cfg := testConfig()
	cfg.SaleEnd = cfg.SaleStart - 1
	assert.True(t, errors.Is(cfg.Validate(), programerr.ErrInvalidEndTimestamp))

	cfg = testConfig()
	cfg.SaleEnd = cfg.SaleStart
	assert.NoError(t, cfg.Validate())

	cfg = testConfig()
	cfg.UpfrontPercent = 101
	assert.True(t, errors.Is(cfg.Validate(), programerr.ErrInvalidArgument))

	cfg = testConfig()
	cfg.ExchangeRate = 0
	assert.True(t, errors.Is(cfg.Validate(), programerr.ErrInvalidArgument))
}

func TestSale_Window(t *testing.T) {
	s := NewSale(testConfig())

	assert.True(t, errors.Is(s.CheckWindow(999), programerr.ErrSellNotStarted))
	assert.True(t, s.InWindow(1000))
	assert.True(t, s.InWindow(2000))
	assert.True(t, errors.Is(s.CheckWindow(2001), programerr.ErrSellEnded))
}

func TestSale_Reserve(t *testing.T) {
	s := NewSale(testConfig())
	s.TotalRemaining = 100

	require.NoError(t, s.Reserve(60))
	assert.Equal(t, uint64(40), s.TotalRemaining)

	err := s.Reserve(41)
	assert.True(t, errors.Is(err, programerr.ErrCapacityExceeded))
	assert.Equal(t, uint64(40), s.TotalRemaining)
}
