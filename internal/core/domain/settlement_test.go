package domain_test

import (
	"math"
	"testing"

	"github.com/ark-network/wager/internal/core/domain"
	"github.com/stretchr/testify/require"
)

func TestBinaryOutcome(t *testing.T) {
	fixtures := []struct {
		price, threshold uint64
		expected         int
	}{
		{101, 100, domain.SideUpper},
		{100, 100, domain.SideLower},
		{99, 100, domain.SideLower},
		{0, 0, domain.SideLower},
	}
	for _, f := range fixtures {
		require.Equal(t, f.expected, domain.BinaryOutcome(f.price, f.threshold))
	}
}

func TestComputeSettlement(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		result, err := domain.ComputeSettlement(
			[]uint64{1_000_000_000, 1_000_000_000}, domain.SideUpper, 200,
		)
		require.NoError(t, err)
		require.False(t, result.NoOpponentRefund)
		require.Equal(t, uint64(2_000_000_000), result.TotalStaked)
		require.Equal(t, uint64(40_000_000), result.SettlementFee)
		require.Equal(t, uint64(1_960_000_000), result.Distributable)

		payout, err := domain.ComputePayout(
			result.Distributable, 1_000_000_000, result.WinningTotal, 100,
		)
		require.NoError(t, err)
		require.Equal(t, uint64(1_960_000_000), payout.Share)
		require.Equal(t, uint64(19_600_000), payout.ClearingFee)
		require.Equal(t, uint64(1_940_400_000), payout.Net)
	})

	t.Run("no opponent", func(t *testing.T) {
		fixtures := []struct {
			totals  []uint64
			outcome int
		}{
			{[]uint64{5_000_000, 0}, domain.SideUpper},
			{[]uint64{0, 5_000_000}, domain.SideUpper},
			{[]uint64{0, 0, 0}, 2},
		}
		for _, f := range fixtures {
			result, err := domain.ComputeSettlement(f.totals, f.outcome, 200)
			require.NoError(t, err)
			require.True(t, result.NoOpponentRefund)
			require.Zero(t, result.SettlementFee)
			require.Zero(t, result.Distributable)
		}
	})

	t.Run("large totals", func(t *testing.T) {
		result, err := domain.ComputeSettlement(
			[]uint64{1 << 62, 1 << 62}, domain.SideLower, 200,
		)
		require.NoError(t, err)
		require.Equal(t, uint64(1<<63)/50, result.SettlementFee)
		require.Equal(t, uint64(1<<63)-uint64(1<<63)/50, result.Distributable)
	})

	t.Run("invalid", func(t *testing.T) {
		fixtures := []struct {
			totals      []uint64
			outcome     int
			bps         uint16
			expectedErr error
		}{
			{[]uint64{1, 2}, 2, 100, domain.ErrInvalidOption},
			{[]uint64{1, 2}, -1, 100, domain.ErrInvalidOption},
			{[]uint64{1, 2}, 0, 10_001, domain.ErrInvalidFeeRate},
			{[]uint64{math.MaxUint64, 1}, 0, 100, domain.ErrOverflow},
		}
		for _, f := range fixtures {
			_, err := domain.ComputeSettlement(f.totals, f.outcome, f.bps)
			require.ErrorIs(t, err, f.expectedErr)
		}
	})
}

func TestPayoutTableConservation(t *testing.T) {
	fixtures := []struct {
		name        string
		stakes      map[string]uint64
		options     map[string]int
		optionCount int
		outcome     int
		settleBps   uint16
		clearingBps uint16
	}{
		{
			name:        "uneven binary",
			stakes:      map[string]uint64{"a": 3_333_333, "b": 1_000_001, "c": 7_777_777, "d": 2_000_000},
			options:     map[string]int{"a": 1, "b": 1, "c": 0, "d": 1},
			optionCount: 2,
			outcome:     1,
			settleBps:   250,
			clearingBps: 125,
		},
		{
			name:        "three options",
			stakes:      map[string]uint64{"a": 1_000_000, "b": 1_000_000, "c": 1_000_000, "d": 1_000_000, "e": 1_000_000},
			options:     map[string]int{"a": 0, "b": 0, "c": 0, "d": 1, "e": 2},
			optionCount: 3,
			outcome:     0,
			settleBps:   333,
			clearingBps: 77,
		},
		{
			name:        "zero fees",
			stakes:      map[string]uint64{"a": 10_000_001, "b": 9_999_999},
			options:     map[string]int{"a": 0, "b": 1},
			optionCount: 2,
			outcome:     0,
		},
	}

	for _, f := range fixtures {
		t.Run(f.name, func(t *testing.T) {
			totals := make([]uint64, f.optionCount)
			positions := make(map[string]*domain.Position)
			for who, amount := range f.stakes {
				totals[f.options[who]] += amount
				positions[who] = &domain.Position{
					Participant: who, Option: f.options[who], Amount: amount,
				}
			}

			result, err := domain.ComputeSettlement(totals, f.outcome, f.settleBps)
			require.NoError(t, err)

			table, err := domain.ComputePayoutTable(result, positions, f.clearingBps)
			require.NoError(t, err)

			sum := table.TotalNet + result.SettlementFee + table.ClearingFees + table.Dust
			require.Equal(t, result.TotalStaked, sum)
			require.LessOrEqual(t, table.TotalNet+table.ClearingFees, result.Distributable)

			for _, p := range table.Payouts {
				require.Equal(t, f.outcome, positions[p.Participant].Option)
				require.Equal(t, p.Share, p.Net+p.ClearingFee)
			}
		})
	}
}
