// Package vesting computes how much of a participant's purchased allocation is
// unlocked at a point in time.
//
// Unlocking starts strictly after TGE. An upfront percentage becomes available
// in the first second after TGE and the remainder is released in equal tranches
// every 30-day month until VestingMonths have elapsed. All arithmetic is
// unsigned and checked: any overflow or underflow is reported as
// programerr.ErrOverflow instead of wrapping.
package vesting

import (
	"fmt"
	"math/bits"

	errorsmod "cosmossdk.io/errors"

	"solana-token-sale/internal/programerr"
)

// MonthSeconds is the fixed length of one vesting month (30 days).
const MonthSeconds int64 = 30 * 24 * 3600

// maxTokenScale is the largest decimal precision whose power of ten fits in a uint64.
const maxTokenScale = 19

// Formula selects how the still-locked remainder is expressed.
type Formula uint8

const (
	// FormulaReference scales the still-locked remainder by 10^TokenScale while
	// purchased and claimed stay in raw units. With TokenScale > 0 this keeps
	// nearly everything locked until the final month; it is the deployed behavior.
	FormulaReference Formula = iota

	// FormulaUnitConsistent keeps every term in raw allocation units.
	FormulaUnitConsistent
)

// String returns the formula name.
func (f Formula) String() string {
	switch f {
	case FormulaReference:
		return "reference"
	case FormulaUnitConsistent:
		return "unit-consistent"
	default:
		return fmt.Sprintf("formula(%d)", uint8(f))
	}
}

// ParseFormula parses a name produced by Formula.String.
func ParseFormula(s string) (Formula, error) {
	switch s {
	case "", "reference":
		return FormulaReference, nil
	case "unit-consistent":
		return FormulaUnitConsistent, nil
	default:
		return 0, fmt.Errorf("unknown vesting formula %q", s)
	}
}

// Schedule holds the sale-wide vesting parameters.
type Schedule struct {
	TGE            int64
	UpfrontPercent uint64
	VestingMonths  uint64
	// TokenScale is the sale mint's decimal precision.
	TokenScale uint8
	Formula    Formula
}

// UnlockedAmount is the claimable amount under the reference formula.
func UnlockedAmount(purchased, claimed uint64, tge, now int64, upfrontPercent, vestingMonths uint64, tokenScale uint8) (uint64, error) {
	s := Schedule{
		TGE:            tge,
		UpfrontPercent: upfrontPercent,
		VestingMonths:  vestingMonths,
		TokenScale:     tokenScale,
		Formula:        FormulaReference,
	}
	return s.Unlocked(purchased, claimed, now)
}

// ElapsedMonths returns the number of whole months since TGE, or 0 when now ≤ TGE.
func (s Schedule) ElapsedMonths(now int64) uint64 {
	if now <= s.TGE {
		return 0
	}
	// now > TGE, so the unsigned difference is exact even across the sign boundary.
	return (uint64(now) - uint64(s.TGE)) / uint64(MonthSeconds)
}

// Unlocked returns how many units the participant may claim at now.
func (s Schedule) Unlocked(purchased, claimed uint64, now int64) (uint64, error) {
	if now <= s.TGE {
		return 0, nil
	}

	return s.unlockedAfter(purchased, claimed, s.ElapsedMonths(now))
}

// unlockedAfter is Unlocked for any time after TGE at which elapsed whole
// months have passed. It never decreases as elapsed grows.
func (s Schedule) unlockedAfter(purchased, claimed, elapsed uint64) (uint64, error) {
	toClaim, err := sub(purchased, claimed)
	if err != nil {
		return 0, errorsmod.Wrapf(err, "claimed %d exceeds purchased %d", claimed, purchased)
	}

	if elapsed >= s.VestingMonths {
		return toClaim, nil
	}

	locked, err := s.locked(purchased, elapsed)
	if err != nil {
		return 0, err
	}
	if toClaim > locked {
		return toClaim - locked, nil
	}
	return 0, nil
}

// locked returns the still-locked remainder after elapsed months, elapsed < VestingMonths.
func (s Schedule) locked(purchased, elapsed uint64) (uint64, error) {
	upfrontScaled, err := mul(purchased, s.UpfrontPercent)
	if err != nil {
		return 0, err
	}
	upfront := upfrontScaled / 100

	vesting, err := sub(purchased, upfront)
	if err != nil {
		return 0, errorsmod.Wrapf(err, "upfront %d exceeds purchased %d", upfront, purchased)
	}
	vestedScaled, err := mul(vesting, elapsed)
	if err != nil {
		return 0, err
	}
	vested := vestedScaled / s.VestingMonths

	remaining, err := sub(vesting, vested)
	if err != nil {
		return 0, err
	}
	if s.Formula == FormulaUnitConsistent {
		return remaining, nil
	}

	scale, err := pow10(s.TokenScale)
	if err != nil {
		return 0, err
	}
	return mul(remaining, scale)
}

func mul(a, b uint64) (uint64, error) {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return 0, errorsmod.Wrapf(programerr.ErrOverflow, "%d * %d", a, b)
	}
	return lo, nil
}

func sub(a, b uint64) (uint64, error) {
	diff, borrow := bits.Sub64(a, b, 0)
	if borrow != 0 {
		return 0, errorsmod.Wrapf(programerr.ErrOverflow, "%d - %d", a, b)
	}
	return diff, nil
}

func pow10(n uint8) (uint64, error) {
	if n > maxTokenScale {
		return 0, errorsmod.Wrapf(programerr.ErrOverflow, "10^%d", n)
	}
	out := uint64(1)
	for i := uint8(0); i < n; i++ {
		out *= 10
	}
	return out, nil
}
