package vesting

import (
	"math"

	errorsmod "cosmossdk.io/errors"

	"solana-token-sale/internal/programerr"
)

// MaxProjectionMonths bounds the unlock table (100 years of tranches).
const MaxProjectionMonths = 1200

// Tranche is one row of a projected unlock table.
type Tranche struct {
	Month int
	// At is the first second at which this row's Cumulative is claimable.
	At int64
	// Cumulative is the total unlocked by At for a participant who has claimed nothing.
	Cumulative uint64
	// Delta is the increase over the previous row.
	Delta uint64
}

// MonthStart returns the first second of vesting month month. Month 0 starts
// one second after TGE, when the upfront share unlocks.
func (s Schedule) MonthStart(month uint64) (int64, error) {
	if month == 0 {
		if s.TGE == math.MaxInt64 {
			return 0, errorsmod.Wrapf(programerr.ErrOverflow, "tge %d + 1", s.TGE)
		}
		return s.TGE + 1, nil
	}
	if month > uint64(math.MaxInt64/MonthSeconds) {
		return 0, errorsmod.Wrapf(programerr.ErrOverflow, "month %d", month)
	}
	offset := int64(month) * MonthSeconds
	if s.TGE > math.MaxInt64-offset {
		return 0, errorsmod.Wrapf(programerr.ErrOverflow, "tge %d + month %d", s.TGE, month)
	}
	return s.TGE + offset, nil
}

// lastReachableMonth is the last month whose start fits in an int64 unix time.
func (s Schedule) lastReachableMonth() uint64 {
	// MaxInt64 ≥ TGE, so the unsigned difference is exact for negative TGE too.
	span := uint64(math.MaxInt64) - uint64(s.TGE)
	return min(span/uint64(MonthSeconds), uint64(math.MaxInt64/MonthSeconds))
}

// Projection returns the unlock table for purchased units from TGE through the
// last vesting month. Schedules longer than MaxProjectionMonths are rejected
// with ErrInvalidArgument.
func (s Schedule) Projection(purchased uint64) ([]Tranche, error) {
	if s.VestingMonths > MaxProjectionMonths {
		return nil, errorsmod.Wrapf(programerr.ErrInvalidArgument, "%d vesting months exceed the %d month table", s.VestingMonths, MaxProjectionMonths)
	}
	rows := make([]Tranche, 0, s.VestingMonths+1)
	var prev uint64
	for month := uint64(0); month <= s.VestingMonths; month++ {
		at, err := s.MonthStart(month)
		if err != nil {
			return nil, err
		}
		cumulative, err := s.Unlocked(purchased, 0, at)
		if err != nil {
			return nil, err
		}
		var delta uint64
		if cumulative > prev {
			delta = cumulative - prev
		}
		rows = append(rows, Tranche{
			Month:      int(month),
			At:         at,
			Cumulative: cumulative,
			Delta:      delta,
		})
		prev = cumulative
	}
	return rows, nil
}

// NextUnlock returns the next month boundary after now at which the unlocked
// amount grows, or false if nothing more will unlock or the boundary lies
// beyond the representable time range.
func (s Schedule) NextUnlock(purchased, claimed uint64, now int64) (int64, bool, error) {
	current, err := s.Unlocked(purchased, claimed, now)
	if err != nil {
		return 0, false, err
	}
	if now <= s.TGE {
		first, err := s.unlockedAfter(purchased, claimed, 0)
		if err != nil {
			return 0, false, err
		}
		if first > current {
			at, err := s.MonthStart(0)
			if err != nil {
				return 0, false, nil
			}
			return at, true, nil
		}
		now = s.TGE
	}

	lo := s.ElapsedMonths(now) + 1
	hi := min(s.VestingMonths, s.lastReachableMonth())
	if lo > hi {
		return 0, false, nil
	}
	last, err := s.unlockedAfter(purchased, claimed, hi)
	if err != nil {
		return 0, false, err
	}
	if last <= current {
		return 0, false, nil
	}

	// The unlocked amount never decreases with elapsed months, so the first
	// month exceeding current is found by bisection.
	for lo < hi {
		mid := lo + (hi-lo)/2
		amount, err := s.unlockedAfter(purchased, claimed, mid)
		if err != nil {
			return 0, false, err
		}
		if amount > current {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	at, err := s.MonthStart(lo)
	if err != nil {
		return 0, false, nil
	}
	return at, true, nil
}
