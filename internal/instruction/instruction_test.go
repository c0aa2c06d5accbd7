package instruction

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-token-sale/internal/programerr"
)

func TestDecode_Deposit(t *testing.T) {
	ix, err := Decode([]byte{0, 0x2c, 0x01, 0, 0, 0, 0, 0, 0})
	require.NoError(t, err)
	assert.Equal(t, Deposit{Amount: 300}, ix)
	assert.Equal(t, "deposit", ix.Opcode().String())
}

func TestDecode_InitializeSale(t *testing.T) {
	want := InitializeSale{
		ExchangeRate:   3,
		SaleStart:      -5,
		SaleEnd:        1_700_000_000,
		UpfrontPercent: 20,
		VestingMonths:  10,
		MinDeposit:     100,
		TotalAmount:    1_000_000,
	}
	data, err := Encode(want)
	require.NoError(t, err)
	require.Len(t, data, 1+7*8)
	assert.Equal(t, byte(1), data[0])
	// saleStart is a little-endian signed value
	assert.Equal(t, byte(0xfb), data[9])
	assert.Equal(t, byte(0xff), data[16])

	ix, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, want, ix)
}

func TestDecode_SetTGE(t *testing.T) {
	ix, err := Decode([]byte{3, 0})
	require.NoError(t, err)
	assert.Equal(t, SetTGE{}, ix)

	ix, err = Decode([]byte{3, 1, 0x10, 0, 0, 0, 0, 0, 0, 0})
	require.NoError(t, err)
	set, ok := ix.(SetTGE)
	require.True(t, ok)
	require.NotNil(t, set.TGE)
	assert.Equal(t, int64(16), *set.TGE)

	_, err = Decode([]byte{3, 2, 0, 0, 0, 0, 0, 0, 0, 0})
	assert.True(t, errors.Is(err, programerr.ErrDeserializationFailed))
}

func TestDecode_Claim(t *testing.T) {
	ix, err := Decode([]byte{2})
	require.NoError(t, err)
	assert.Equal(t, Claim{}, ix)
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, programerr.ErrUnknownInstruction},
		{"unknown opcode", []byte{4}, programerr.ErrUnknownInstruction},
		{"truncated deposit", []byte{0, 1, 2, 3}, programerr.ErrDeserializationFailed},
		{"trailing bytes", []byte{2, 0}, programerr.ErrDeserializationFailed},
		{"set tge missing value", []byte{3, 1, 0}, programerr.ErrDeserializationFailed},
		{"set tge missing option", []byte{3}, programerr.ErrDeserializationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.data)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestEncode_RoundTrip(t *testing.T) {
	tge := int64(1_700_000_000)
	for _, ix := range []Instruction{
		Deposit{Amount: 42},
		Claim{},
		SetTGE{TGE: &tge},
		SetTGE{},
	} {
		data, err := Encode(ix)
		require.NoError(t, err)
		decoded, err := Decode(data)
		require.NoError(t, err)
		assert.Equal(t, ix, decoded)
	}
}

func TestAccountMetas(t *testing.T) {
	assert.Len(t, DepositKeys{}.Metas(), DepositAccountCount)
	assert.Len(t, InitializeSaleKeys{}.Metas(), InitializeSaleAccountCount)
	assert.Len(t, ClaimKeys{}.Metas(), ClaimAccountCount)
	assert.Len(t, SetTGEKeys{}.Metas(), SetTGEAccountCount)

	assert.True(t, DepositKeys{}.Metas()[0].IsSigner)
	assert.Equal(t, ClaimAccountCount, AccountCount(OpClaim))
	assert.Zero(t, AccountCount(Opcode(9)))
}
