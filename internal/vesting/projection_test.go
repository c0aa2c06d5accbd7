package vesting

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-token-sale/internal/programerr"
)

func TestProjection(t *testing.T) {
	s := Schedule{TGE: tge, UpfrontPercent: 20, VestingMonths: 10}

	rows, err := s.Projection(1000)
	require.NoError(t, err)
	require.Len(t, rows, 11)

	assert.Equal(t, tge+1, rows[0].At)
	assert.Equal(t, uint64(200), rows[0].Cumulative)
	assert.Equal(t, uint64(200), rows[0].Delta)

	assert.Equal(t, tge+MonthSeconds, rows[1].At)
	assert.Equal(t, uint64(280), rows[1].Cumulative)
	assert.Equal(t, uint64(80), rows[1].Delta)

	assert.Equal(t, uint64(1000), rows[10].Cumulative)

	var sum uint64
	for _, r := range rows {
		sum += r.Delta
	}
	assert.Equal(t, uint64(1000), sum)
}

func TestProjection_ReferenceScaleLocksUntilEnd(t *testing.T) {
	s := Schedule{TGE: tge, UpfrontPercent: 20, VestingMonths: 3, TokenScale: 9}

	rows, err := s.Projection(1000)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	for _, r := range rows[:3] {
		assert.Zero(t, r.Cumulative)
	}
	assert.Equal(t, uint64(1000), rows[3].Cumulative)
	assert.Equal(t, uint64(1000), rows[3].Delta)
}

func TestNextUnlock(t *testing.T) {
	s := Schedule{TGE: tge, UpfrontPercent: 20, VestingMonths: 10}

	at, ok, err := s.NextUnlock(1000, 0, tge-50)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, tge+1, at)

	at, ok, err = s.NextUnlock(1000, 200, tge+1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, tge+MonthSeconds, at)

	_, ok, err = s.NextUnlock(1000, 1000, tge+10*MonthSeconds)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestProjection_RejectsUnboundedSchedule(t *testing.T) {
	for _, months := range []uint64{MaxProjectionMonths + 1, math.MaxUint64} {
		s := Schedule{TGE: tge, VestingMonths: months}
		_, err := s.Projection(1000)
		assert.True(t, errors.Is(err, programerr.ErrInvalidArgument), "months %d: %v", months, err)
	}

	rows, err := Schedule{TGE: tge, VestingMonths: MaxProjectionMonths}.Projection(1000)
	require.NoError(t, err)
	assert.Len(t, rows, MaxProjectionMonths+1)
}

func TestNextUnlock_LongReferenceSchedule(t *testing.T) {
	// Under the decimal-scaled term nothing unlocks before the final month.
	s := Schedule{TGE: 0, VestingMonths: 1 << 40, TokenScale: 9}

	at, ok, err := s.NextUnlock(1000, 0, 10)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(1<<40)*MonthSeconds, at)
}

func TestNextUnlock_UnitConsistentFindsFirstGrowingMonth(t *testing.T) {
	s := Schedule{TGE: tge, VestingMonths: 1000, Formula: FormulaUnitConsistent}

	// 10 units over 1000 months: the first unit unlocks in month 100.
	at, ok, err := s.NextUnlock(10, 0, tge+5)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, tge+100*MonthSeconds, at)
}

func TestNextUnlock_BeyondTimeRange(t *testing.T) {
	s := Schedule{TGE: tge, VestingMonths: math.MaxUint64}

	_, ok, err := s.NextUnlock(1000, 0, tge+10)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMonthStart_Overflow(t *testing.T) {
	_, err := Schedule{TGE: math.MaxInt64}.MonthStart(0)
	assert.True(t, errors.Is(err, programerr.ErrOverflow))

	_, err = Schedule{TGE: tge}.MonthStart(math.MaxInt64 / uint64(MonthSeconds))
	assert.True(t, errors.Is(err, programerr.ErrOverflow))

	at, err := Schedule{TGE: tge}.MonthStart(2)
	require.NoError(t, err)
	assert.Equal(t, tge+2*MonthSeconds, at)
}
