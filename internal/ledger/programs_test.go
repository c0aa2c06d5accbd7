package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-token-sale/internal/processor"
	"solana-token-sale/internal/solana"
)

func tokenHandle(t *testing.T, k, mint, owner solana.PublicKey, amount uint64) *processor.AccountInfo {
	t.Helper()
	ta := &solana.TokenAccount{Mint: mint, Owner: owner, Amount: amount, State: solana.TokenAccountInitialized}
	data, err := ta.Encode()
	require.NoError(t, err)
	return &processor.AccountInfo{Key: k, Owner: solana.TokenProgramID, Data: data, IsWritable: true}
}

func amountOf(t *testing.T, h *processor.AccountInfo) uint64 {
	t.Helper()
	ta, err := solana.DecodeTokenAccount(h.Data)
	require.NoError(t, err)
	return ta.Amount
}

func TestRent_MatchesClusterDefaults(t *testing.T) {
	r := DefaultRent()
	assert.Equal(t, uint64(890_880), r.MinimumBalance(0))
	assert.Equal(t, uint64(2_039_280), r.MinimumBalance(solana.TokenAccountSize))
	assert.True(t, r.IsExempt(2_039_280, solana.TokenAccountSize))
	assert.False(t, r.IsExempt(2_039_279, solana.TokenAccountSize))
}

func TestManualClock(t *testing.T) {
	c := NewManualClock(100)
	assert.Equal(t, int64(160), c.Advance(60))
	c.Set(50)
	now, err := c.Now(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(50), now)
}

func TestTokenProgram_SignedTransfer(t *testing.T) {
	tp := &tokenProgram{caller: key(0xA0)}
	owner := &processor.AccountInfo{Key: key(1), IsSigner: true}
	src := tokenHandle(t, key(2), key(9), key(1), 100)
	dst := tokenHandle(t, key(3), key(9), key(4), 5)

	err := tp.Transfer(context.Background(), processor.TransferParams{Source: src, Destination: dst, Authority: owner, Amount: 40})
	require.NoError(t, err)
	assert.Equal(t, uint64(60), amountOf(t, src))
	assert.Equal(t, uint64(45), amountOf(t, dst))
}

func TestTokenProgram_DerivedAuthority(t *testing.T) {
	program := key(0xA0)
	seeds := [][]byte{[]byte("tokensell"), program.Bytes(), key(7).Bytes()}
	addr, bump, err := solana.FindProgramAddress(seeds, program)
	require.NoError(t, err)
	full := append(seeds, []byte{bump})

	tp := &tokenProgram{caller: program}
	auth := &processor.AccountInfo{Key: addr}
	src := tokenHandle(t, key(2), key(9), addr, 100)
	dst := tokenHandle(t, key(3), key(9), key(4), 0)

	err = tp.Transfer(context.Background(), processor.TransferParams{
		Source: src, Destination: dst, Authority: auth, Amount: 100, AuthoritySeeds: full,
	})
	require.NoError(t, err)
	assert.Zero(t, amountOf(t, src))

	// Seeds of another program do not prove the authority.
	other := &tokenProgram{caller: key(0xB0)}
	err = other.Transfer(context.Background(), processor.TransferParams{
		Source: dst, Destination: src, Authority: auth, Amount: 1, AuthoritySeeds: full,
	})
	assert.Error(t, err)
}

func TestTokenProgram_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *processor.TransferParams)
		want   error
	}{
		{"insufficient funds", func(p *processor.TransferParams) { p.Amount = 101 }, ErrInsufficientFunds},
		{"unsigned authority", func(p *processor.TransferParams) { p.Authority.IsSigner = false }, ErrMissingSignature},
		{"authority is not owner", func(p *processor.TransferParams) { p.Authority.Key = key(8) }, ErrOwnerMismatch},
		{"read-only source", func(p *processor.TransferParams) { p.Source.IsWritable = false }, ErrNotWritable},
		{"read-only destination", func(p *processor.TransferParams) { p.Destination.IsWritable = false }, ErrNotWritable},
		{"not a token account", func(p *processor.TransferParams) { p.Destination.Owner = key(0xA0) }, ErrNotTokenAccount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := processor.TransferParams{
				Source:      tokenHandle(t, key(2), key(9), key(1), 100),
				Destination: tokenHandle(t, key(3), key(9), key(4), 0),
				Authority:   &processor.AccountInfo{Key: key(1), IsSigner: true},
				Amount:      10,
			}
			tt.mutate(&p)
			err := (&tokenProgram{}).Transfer(context.Background(), p)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestTokenProgram_MintMismatch(t *testing.T) {
	err := (&tokenProgram{}).Transfer(context.Background(), processor.TransferParams{
		Source:      tokenHandle(t, key(2), key(9), key(1), 100),
		Destination: tokenHandle(t, key(3), key(8), key(4), 0),
		Authority:   &processor.AccountInfo{Key: key(1), IsSigner: true},
		Amount:      10,
	})
	assert.ErrorIs(t, err, ErrMintMismatch)
}

func TestSystemProgram_Allocate(t *testing.T) {
	program := key(0xA0)
	seeds := [][]byte{[]byte("tokensell"), program.Bytes(), key(7).Bytes(), key(2).Bytes()}
	addr, bump, err := solana.FindProgramAddress(seeds, program)
	require.NoError(t, err)
	full := append(seeds, []byte{bump})

	rent := DefaultRent()
	sp := &systemProgram{rent: rent}

	newParams := func() processor.AllocateParams {
		return processor.AllocateParams{
			Payer:   &processor.AccountInfo{Key: key(2), Lamports: 10_000_000, IsSigner: true, IsWritable: true},
			Account: &processor.AccountInfo{Key: addr, IsWritable: true},
			Owner:   program,
			Size:    81,
			Seeds:   full,
		}
	}

	p := newParams()
	require.NoError(t, sp.Allocate(context.Background(), p))
	assert.Equal(t, program, p.Account.Owner)
	assert.Len(t, p.Account.Data, 81)
	assert.Equal(t, rent.MinimumBalance(81), p.Account.Lamports)
	assert.Equal(t, 10_000_000-rent.MinimumBalance(81), p.Payer.Lamports)

	// Allocating twice fails.
	p.Payer.Lamports = 10_000_000
	assert.ErrorIs(t, sp.Allocate(context.Background(), p), ErrAccountInUse)

	p = newParams()
	p.Account.Key = key(5)
	assert.ErrorIs(t, sp.Allocate(context.Background(), p), ErrAddressMismatch)

	p = newParams()
	p.Payer.Lamports = 1
	assert.ErrorIs(t, sp.Allocate(context.Background(), p), ErrInsufficientFunds)

	p = newParams()
	p.Payer.IsSigner = false
	assert.ErrorIs(t, sp.Allocate(context.Background(), p), ErrMissingSignature)
}
