package domain

import (
	"math/bits"
	"sort"
)

// Binary pools have exactly two sides, the lower one at index 0.
const (
	SideLower = 0
	SideUpper = 1
)

// SettlementResult is the outcome of settling a pool. Individual payouts are
// derived lazily from it at claim time.
type SettlementResult struct {
	Outcome          int
	TotalStaked      uint64
	WinningTotal     uint64
	SettlementFee    uint64
	Distributable    uint64
	NoOpponentRefund bool
}

type Payout struct {
	Share       uint64
	ClearingFee uint64
	Net         uint64
}

type PositionPayout struct {
	Participant string
	Stake       uint64
	Payout
}

// PayoutTable is the projection of every winning claim for a settled pool.
type PayoutTable struct {
	Payouts      []PositionPayout
	TotalNet     uint64
	ClearingFees uint64
	// Dust is the rounding remainder that stays in the pool.
	Dust uint64
}

// BinaryOutcome picks the winning side for price against threshold. Ties go
// to the lower side.
func BinaryOutcome(price, threshold uint64) int {
	if price > threshold {
		return SideUpper
	}
	return SideLower
}

// ComputeSettlement applies the settlement fee to the pool totals for the
// given winning option. A pool with no stake on the winning side, or no
// stake against it, settles as a refund of every position.
func ComputeSettlement(totals []uint64, outcome int, settleFeeBps uint16) (*SettlementResult, error) {
	if outcome < 0 || outcome >= len(totals) {
		return nil, ErrInvalidOption
	}
	if settleFeeBps > BasisPoints {
		return nil, ErrInvalidFeeRate
	}

	var total uint64
	for _, t := range totals {
		sum, carry := bits.Add64(total, t, 0)
		if carry != 0 {
			return nil, ErrOverflow
		}
		total = sum
	}

	winning := totals[outcome]
	result := &SettlementResult{
		Outcome:      outcome,
		TotalStaked:  total,
		WinningTotal: winning,
	}
	if winning == 0 || winning == total {
		result.NoOpponentRefund = true
		return result, nil
	}

	fee, err := mulDiv(total, uint64(settleFeeBps), BasisPoints)
	if err != nil {
		return nil, err
	}
	result.SettlementFee = fee
	result.Distributable = total - fee
	return result, nil
}

// ComputePayout returns the claim for a winning stake.
func ComputePayout(
	distributable, stake, winningTotal uint64, clearingFeeBps uint16,
) (Payout, error) {
	if winningTotal == 0 || stake > winningTotal {
		return Payout{}, ErrMalformedRecord
	}
	if clearingFeeBps > BasisPoints {
		return Payout{}, ErrInvalidFeeRate
	}
	share, err := mulDiv(distributable, stake, winningTotal)
	if err != nil {
		return Payout{}, err
	}
	fee, err := mulDiv(share, uint64(clearingFeeBps), BasisPoints)
	if err != nil {
		return Payout{}, err
	}
	return Payout{Share: share, ClearingFee: fee, Net: share - fee}, nil
}

// ComputePayoutTable projects all claims of the winning positions.
func ComputePayoutTable(
	result *SettlementResult, positions map[string]*Position, clearingFeeBps uint16,
) (*PayoutTable, error) {
	table := &PayoutTable{Payouts: make([]PositionPayout, 0)}
	if result.NoOpponentRefund {
		return table, nil
	}

	var shares uint64
	for _, p := range positions {
		if p.Option != result.Outcome || p.Amount == 0 {
			continue
		}
		payout, err := ComputePayout(
			result.Distributable, p.Amount, result.WinningTotal, clearingFeeBps,
		)
		if err != nil {
			return nil, err
		}
		table.Payouts = append(table.Payouts, PositionPayout{
			Participant: p.Participant,
			Stake:       p.Amount,
			Payout:      payout,
		})
		shares += payout.Share
		table.TotalNet += payout.Net
		table.ClearingFees += payout.ClearingFee
	}
	if shares > result.Distributable {
		return nil, ErrOverflow
	}
	table.Dust = result.Distributable - shares

	sort.Slice(table.Payouts, func(i, j int) bool {
		return table.Payouts[i].Participant < table.Payouts[j].Participant
	})
	return table, nil
}

// mulDiv computes floor(a*b/c) with a 128-bit intermediate product.
func mulDiv(a, b, c uint64) (uint64, error) {
	if c == 0 {
		return 0, ErrOverflow
	}
	hi, lo := bits.Mul64(a, b)
	if hi >= c {
		return 0, ErrOverflow
	}
	q, _ := bits.Div64(hi, lo, c)
	return q, nil
}
