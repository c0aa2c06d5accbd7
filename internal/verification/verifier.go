// Package verification checks that the stored state of a sale is internally
// consistent: participant totals match the sale's sold capacity, every
// participant record sits at its derived address, the vault covers what is
// still owed, and the activity log agrees with the records.
package verification

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"solana-token-sale/internal/authority"
	"solana-token-sale/internal/domain"
	"solana-token-sale/internal/solana"
	"solana-token-sale/internal/storage"
)

// Rule names used in divergences.
const (
	RuleSoldCapacity       = "sold_capacity"
	RuleParticipantAddress = "participant_address"
	RuleVaultCoversOwed    = "vault_covers_outstanding"
	RuleActivityPurchased  = "activity_purchased"
	RuleActivityClaimed    = "activity_claimed"
)

// Divergence is one broken consistency rule.
type Divergence struct {
	Rule     string
	Account  solana.PublicKey // offending account, zero for sale-wide rules
	Expected uint64
	Actual   uint64
}

func (d Divergence) String() string {
	if d.Account.IsZero() {
		return fmt.Sprintf("%s: expected %d, actual %d", d.Rule, d.Expected, d.Actual)
	}
	return fmt.Sprintf("%s %s: expected %d, actual %d", d.Rule, d.Account, d.Expected, d.Actual)
}

// Report contains the totals and divergences found for one sale.
type Report struct {
	Sale         solana.PublicKey
	Participants int
	Purchased    uint64 // sum over participant records
	Claimed      uint64 // sum over participant records
	Sold         uint64 // TotalAllocated - TotalRemaining
	VaultBalance uint64 // 0 until TGE is set
	Divergences  []Divergence
}

// OK reports whether no rule was broken.
func (r *Report) OK() bool {
	return len(r.Divergences) == 0
}

// Verifier checks sales held in an account store.
type Verifier struct {
	programID  solana.PublicKey
	accounts   storage.AccountStore
	activities storage.ActivityStore
	uncapped   bool
}

// NewVerifier creates a verifier. activities may be nil, which skips the
// activity rules.
func NewVerifier(programID solana.PublicKey, accounts storage.AccountStore, activities storage.ActivityStore) *Verifier {
	return &Verifier{programID: programID, accounts: accounts, activities: activities}
}

// WithUncappedDeposits drops the sold capacity rule for sales whose deposits
// never reduce TotalRemaining.
func (v *Verifier) WithUncappedDeposits() *Verifier {
	v.uncapped = true
	return v
}

// VerifySale checks every rule for sale.
func (v *Verifier) VerifySale(ctx context.Context, saleKey solana.PublicKey) (*Report, error) {
	acc, err := v.accounts.Get(ctx, saleKey)
	if err != nil {
		return nil, fmt.Errorf("load sale %s: %w", saleKey, err)
	}
	sale, err := domain.DecodeSale(acc.Data)
	if err != nil {
		return nil, fmt.Errorf("decode sale %s: %w", saleKey, err)
	}

	parts, err := v.participants(ctx, saleKey)
	if err != nil {
		return nil, err
	}

	r := &Report{
		Sale:         saleKey,
		Participants: len(parts),
		Sold:         sale.Config.TotalAllocated - sale.TotalRemaining,
	}
	for _, p := range parts {
		r.Purchased += p.record.Purchased
		r.Claimed += p.record.Claimed

		derived, err := authority.ParticipantAddress(v.programID, saleKey, p.record.Owner)
		if err != nil {
			return nil, fmt.Errorf("derive participant: %w", err)
		}
		if derived.Address != p.key {
			r.Divergences = append(r.Divergences, Divergence{Rule: RuleParticipantAddress, Account: p.key})
		}
	}
	if !v.uncapped && r.Purchased != r.Sold {
		r.Divergences = append(r.Divergences, Divergence{Rule: RuleSoldCapacity, Expected: r.Sold, Actual: r.Purchased})
	}

	if phase, ok := sale.TGE(); ok {
		if r.VaultBalance, err = v.vaultBalance(ctx, phase.SaleVault); err != nil {
			return nil, err
		}
		if owed := r.Purchased - r.Claimed; r.VaultBalance < owed {
			r.Divergences = append(r.Divergences, Divergence{Rule: RuleVaultCoversOwed, Account: phase.SaleVault, Expected: owed, Actual: r.VaultBalance})
		}
	}

	if v.activities != nil {
		divs, err := v.verifyActivity(ctx, saleKey, parts)
		if err != nil {
			return nil, err
		}
		r.Divergences = append(r.Divergences, divs...)
	}
	return r, nil
}

type storedParticipant struct {
	key    solana.PublicKey
	record *domain.Participant
}

// participants returns the sale's participant records ordered by address.
func (v *Verifier) participants(ctx context.Context, saleKey solana.PublicKey) ([]storedParticipant, error) {
	owned, err := v.accounts.ListByOwner(ctx, v.programID)
	if err != nil {
		return nil, fmt.Errorf("list program accounts: %w", err)
	}
	var out []storedParticipant
	for _, ka := range owned {
		kind, err := domain.PeekKind(ka.Account.Data, domain.ParticipantSize)
		if err != nil || kind != domain.KindParticipant {
			continue
		}
		p, err := domain.DecodeParticipant(ka.Account.Data)
		if err != nil {
			return nil, fmt.Errorf("decode participant %s: %w", ka.Pubkey, err)
		}
		if p.Sale == saleKey {
			out = append(out, storedParticipant{key: ka.Pubkey, record: p})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].key.String() < out[j].key.String()
	})
	return out, nil
}

func (v *Verifier) vaultBalance(ctx context.Context, vault solana.PublicKey) (uint64, error) {
	acc, err := v.accounts.Get(ctx, vault)
	if errors.Is(err, storage.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load vault %s: %w", vault, err)
	}
	ta, err := solana.DecodeTokenAccount(acc.Data)
	if err != nil {
		return 0, fmt.Errorf("decode vault %s: %w", vault, err)
	}
	return ta.Amount, nil
}

// verifyActivity compares per-investor activity sums with the records.
func (v *Verifier) verifyActivity(ctx context.Context, saleKey solana.PublicKey, parts []storedParticipant) ([]Divergence, error) {
	rows, err := v.activities.GetBySale(ctx, saleKey)
	if err != nil {
		return nil, fmt.Errorf("load activity: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	bought := make(map[solana.PublicKey]uint64)
	claimed := make(map[solana.PublicKey]uint64)
	for _, a := range rows {
		switch a.Kind {
		case domain.ActivityDeposit:
			bought[a.Investor] += a.Units
		case domain.ActivityClaim:
			claimed[a.Investor] += a.Units
		}
	}

	var divs []Divergence
	for _, p := range parts {
		owner := p.record.Owner
		if got := bought[owner]; got != p.record.Purchased {
			divs = append(divs, Divergence{Rule: RuleActivityPurchased, Account: p.key, Expected: p.record.Purchased, Actual: got})
		}
		if got := claimed[owner]; got != p.record.Claimed {
			divs = append(divs, Divergence{Rule: RuleActivityClaimed, Account: p.key, Expected: p.record.Claimed, Actual: got})
		}
	}
	return divs, nil
}
