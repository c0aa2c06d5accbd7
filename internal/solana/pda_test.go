package solana

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testProgram = MustPublicKeyFromBase58("4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T")

func TestFindProgramAddress_Canonical(t *testing.T) {
	seeds := [][]byte{[]byte("tokensell"), testProgram.Bytes()}

	addr, bump, err := FindProgramAddress(seeds, testProgram)
	require.NoError(t, err)
	assert.False(t, IsOnCurve(addr[:]))

	// Re-deriving with the returned bump gives the same address.
	again, err := CreateProgramAddress(append(seeds, []byte{bump}), testProgram)
	require.NoError(t, err)
	assert.Equal(t, addr, again)

	// Every higher bump must have been on curve.
	for b := 255; b > int(bump); b-- {
		_, err := CreateProgramAddress(append(seeds, []byte{uint8(b)}), testProgram)
		assert.ErrorIs(t, err, ErrOnCurve, "bump %d", b)
	}
}

func TestFindProgramAddress_Deterministic(t *testing.T) {
	seeds := [][]byte{[]byte("a"), []byte("b")}
	a1, b1, err := FindProgramAddress(seeds, testProgram)
	require.NoError(t, err)
	a2, b2, err := FindProgramAddress(seeds, testProgram)
	require.NoError(t, err)
	assert.Equal(t, a1, a2)
	assert.Equal(t, b1, b2)

	other, _, err := FindProgramAddress([][]byte{[]byte("a"), []byte("c")}, testProgram)
	require.NoError(t, err)
	assert.NotEqual(t, a1, other)

	otherProgram, _, err := FindProgramAddress(seeds, SystemProgramID)
	require.NoError(t, err)
	assert.NotEqual(t, a1, otherProgram)
}

func TestCreateProgramAddress_SeedLimits(t *testing.T) {
	_, err := CreateProgramAddress([][]byte{bytes.Repeat([]byte{1}, MaxSeedLength+1)}, testProgram)
	assert.ErrorIs(t, err, ErrInvalidSeeds)

	tooMany := make([][]byte, MaxSeeds+1)
	for i := range tooMany {
		tooMany[i] = []byte{byte(i)}
	}
	_, err = CreateProgramAddress(tooMany, testProgram)
	assert.ErrorIs(t, err, ErrInvalidSeeds)

	_, _, err = FindProgramAddress(tooMany[:MaxSeeds], testProgram)
	assert.ErrorIs(t, err, ErrInvalidSeeds)
}

func TestIsOnCurve(t *testing.T) {
	// Real wallet keys are curve points.
	wallet := MustPublicKeyFromBase58("9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin")
	assert.True(t, IsOnCurve(wallet[:]))
	assert.False(t, IsOnCurve([]byte{1, 2, 3}))
}

func TestPublicKey_Text(t *testing.T) {
	text, err := TokenProgramID.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA", string(text))

	var pk PublicKey
	require.NoError(t, pk.UnmarshalText(text))
	assert.Equal(t, TokenProgramID, pk)

	assert.Error(t, pk.UnmarshalText([]byte("not-base58-0OIl")))
	_, err = PublicKeyFromBase58("3yZe7d")
	assert.Error(t, err)

	assert.True(t, SystemProgramID.IsZero())
	assert.False(t, TokenProgramID.IsZero())
}
