package reporting

import (
	"time"

	"solana-token-sale/internal/domain"
	"solana-token-sale/internal/solana"
	"solana-token-sale/internal/vesting"
)

// Report is a participant's vesting position at one point in time.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	Sale        solana.PublicKey // zero for offline projections
	Investor    solana.PublicKey // zero for offline projections

	// Schedule parameters; Schedule.TGE is meaningful only when TGESet.
	Schedule vesting.Schedule
	TGESet   bool

	// Position at At (unix seconds)
	At        int64
	Purchased uint64
	Claimed   uint64
	Claimable uint64

	// NextUnlock is the next second at which Claimable grows, 0 if none.
	NextUnlock int64

	// Tranches is the unlock table for Purchased, empty until TGE is set.
	Tranches []vesting.Tranche

	// Activity lists recorded requests of this participant, oldest first.
	Activity []*domain.Activity
}

// Locked returns the units neither claimed nor claimable at At.
func (r *Report) Locked() uint64 {
	return r.Purchased - r.Claimed - r.Claimable
}

// Build computes a report for a position under s. With tgeSet false nothing
// is claimable and the unlock table is left empty; the table is also omitted for
// schedules longer than vesting.MaxProjectionMonths.
func Build(s vesting.Schedule, tgeSet bool, purchased, claimed uint64, at int64) (*Report, error) {
	r := &Report{
		GeneratedAt: time.Now().UTC(),
		Schedule:    s,
		TGESet:      tgeSet,
		At:          at,
		Purchased:   purchased,
		Claimed:     claimed,
	}
	if !tgeSet {
		return r, nil
	}

	var err error
	if r.Claimable, err = s.Unlocked(purchased, claimed, at); err != nil {
		return nil, err
	}
	if next, ok, err := s.NextUnlock(purchased, claimed, at); err != nil {
		return nil, err
	} else if ok {
		r.NextUnlock = next
	}
	if s.VestingMonths > vesting.MaxProjectionMonths {
		// Too long to tabulate; claimable and next unlock still stand.
		return r, nil
	}
	if r.Tranches, err = s.Projection(purchased); err != nil {
		return nil, err
	}
	return r, nil
}
