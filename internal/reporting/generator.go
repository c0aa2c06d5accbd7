package reporting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"solana-token-sale/internal/authority"
	"solana-token-sale/internal/domain"
	"solana-token-sale/internal/solana"
	"solana-token-sale/internal/storage"
	"solana-token-sale/internal/vesting"
)

// Generator produces reports from stored account state.
type Generator struct {
	programID  solana.PublicKey
	accounts   storage.AccountStore
	activities storage.ActivityStore
	formula    vesting.Formula
	now        func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator. activities may be nil.
func NewGenerator(programID solana.PublicKey, accounts storage.AccountStore, activities storage.ActivityStore) *Generator {
	return &Generator{
		programID:  programID,
		accounts:   accounts,
		activities: activities,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// WithFormula selects the vesting formula used for claimable amounts.
func (g *Generator) WithFormula(f vesting.Formula) *Generator {
	g.formula = f
	return g
}

// Generate reports investor's position in sale at the given unix time.
// An investor without a participant record reports zero purchased.
func (g *Generator) Generate(ctx context.Context, sale, investor solana.PublicKey, at int64) (*Report, error) {
	saleAcc, err := g.accounts.Get(ctx, sale)
	if err != nil {
		return nil, fmt.Errorf("load sale %s: %w", sale, err)
	}
	rec, err := domain.DecodeSale(saleAcc.Data)
	if err != nil {
		return nil, fmt.Errorf("decode sale %s: %w", sale, err)
	}

	schedule := vesting.Schedule{
		UpfrontPercent: rec.Config.UpfrontPercent,
		VestingMonths:  rec.Config.VestingMonths,
		Formula:        g.formula,
	}
	phase, tgeSet := rec.TGE()
	if tgeSet {
		schedule.TGE = phase.TGE
		if schedule.TokenScale, err = g.decimals(ctx, phase.SaleMint); err != nil {
			return nil, err
		}
	}

	var purchased, claimed uint64
	derived, err := authority.ParticipantAddress(g.programID, sale, investor)
	if err != nil {
		return nil, fmt.Errorf("derive participant: %w", err)
	}
	partAcc, err := g.accounts.Get(ctx, derived.Address)
	switch {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		return nil, fmt.Errorf("load participant %s: %w", derived.Address, err)
	default:
		part, err := domain.DecodeParticipant(partAcc.Data)
		if err != nil {
			return nil, fmt.Errorf("decode participant %s: %w", derived.Address, err)
		}
		purchased, claimed = part.Purchased, part.Claimed
	}

	r, err := Build(schedule, tgeSet, purchased, claimed, at)
	if err != nil {
		return nil, err
	}
	r.GeneratedAt = g.now()
	r.Sale = sale
	r.Investor = investor

	if g.activities != nil {
		if r.Activity, err = g.activities.GetByParticipant(ctx, sale, investor); err != nil {
			return nil, fmt.Errorf("load activity: %w", err)
		}
	}
	return r, nil
}

func (g *Generator) decimals(ctx context.Context, mint solana.PublicKey) (uint8, error) {
	acc, err := g.accounts.Get(ctx, mint)
	if err != nil {
		return 0, fmt.Errorf("load mint %s: %w", mint, err)
	}
	m, err := solana.DecodeMint(acc.Data)
	if err != nil {
		return 0, fmt.Errorf("decode mint %s: %w", mint, err)
	}
	return m.Decimals, nil
}
