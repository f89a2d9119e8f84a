package application

import (
	"context"

	"github.com/ark-network/wager/internal/core/domain"
)

type Service interface {
	Start() error
	Stop()
	CreatePool(ctx context.Context, creator string, params domain.PoolParams) (*domain.Pool, error)
	PlaceBet(ctx context.Context, poolId uint64, participant string, option int, amount uint64) (*BetReceipt, error)
	ProposeOutcome(ctx context.Context, poolId uint64, proposer string, option int) (*domain.Pool, error)
	Challenge(ctx context.Context, poolId uint64, challenger string) (*domain.Pool, error)
	Finalize(ctx context.Context, poolId uint64, caller string) (*domain.Pool, error)
	Claim(ctx context.Context, poolId uint64, participant string) (*ClaimReceipt, error)
	Refund(ctx context.Context, poolId uint64, participant string) (*ClaimReceipt, error)
	GetPool(ctx context.Context, poolId uint64) (*domain.Pool, error)
	ListPools(ctx context.Context, createdAfter, createdBefore int64) ([]*domain.Pool, error)
	GetSettlementReport(ctx context.Context, poolId uint64) (*SettlementReport, error)
	GetInfo(ctx context.Context) (*ServiceInfo, error)
}

type AdminService interface {
	ResolveDispute(ctx context.Context, signer string, poolId uint64, option int) (*domain.Pool, error)
	CancelPool(ctx context.Context, signer string, poolId uint64) (*domain.Pool, error)
	SetAdmin(ctx context.Context, signer, newAdmin string) (*domain.FeeConfig, error)
	UpdateFeeConfig(ctx context.Context, signer string, update domain.FeeUpdate) (*domain.FeeConfig, error)
	GetFeeConfig(ctx context.Context) (*domain.FeeConfig, error)
	GetScheduledPools(ctx context.Context) ([]TrackedPool, error)
	TriggerSettlement(ctx context.Context, signer string, poolId uint64) (*AttemptResult, error)
}

type ServiceInfo struct {
	FeeConfig    domain.FeeConfig
	MinStake     uint64
	MaxOptions   int
	TrackedPools int
}

type BetReceipt struct {
	PoolId      uint64
	Participant string
	Txid        string
	Option      int
	Amount      uint64
	JoinFee     uint64
	Position    domain.Position
}

type ClaimReceipt struct {
	PoolId      uint64
	Participant string
	Txid        string
	Amount      uint64
	Fee         uint64
}

type SettlementReport struct {
	Pool    *domain.Pool
	Result  *domain.SettlementResult
	Payouts *domain.PayoutTable
}
