package domain

// Position is a participant's stake in one pool. A participant holds at
// most one position per pool and it always backs a single option.
type Position struct {
	PoolId      uint64
	Participant string
	Option      int
	Amount      uint64
	Bets        uint32
	Claimed     bool
	Refunded    bool
	Payout      uint64
	ClearingFee uint64
}
