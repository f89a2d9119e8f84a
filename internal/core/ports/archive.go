package ports

import (
	"context"

	"github.com/ark-network/wager/internal/core/domain"
)

// SettlementReceipt is the audit record stored once a pool reaches a
// terminal phase.
type SettlementReceipt struct {
	PoolId        uint64
	Txid          string
	Kind          string
	Phase         string
	Outcome       int
	Price         uint64
	TotalStaked   uint64
	SettlementFee uint64
	Distributable uint64
	Payouts       *domain.PayoutTable
	Timestamp     int64
}

type SettlementArchive interface {
	Store(ctx context.Context, receipt SettlementReceipt) error
}
