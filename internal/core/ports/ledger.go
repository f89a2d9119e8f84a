package ports

import (
	"context"

	"github.com/ark-network/wager/internal/core/domain"
)

type TxStatus int

const (
	TxUnknown TxStatus = iota
	TxConfirmed
	// TxAlreadySettled is returned when a settlement or cancellation targets
	// a pool that already reached a terminal phase.
	TxAlreadySettled
)

func (s TxStatus) String() string {
	switch s {
	case TxConfirmed:
		return "confirmed"
	case TxAlreadySettled:
		return "already_settled"
	default:
		return "unknown"
	}
}

type TxResult struct {
	Txid      string
	Status    TxStatus
	Pool      *domain.Pool
	// FeeConfig is set by fee config and admin submissions.
	FeeConfig *domain.FeeConfig
	// Amount paid out to the signer, for claims and refunds.
	Amount    uint64
	Fee       uint64
}

// LedgerGateway is the boundary to the ledger holding pools, positions and
// the fee config. Submissions are all-or-nothing: a rejected submission
// returns a *domain.Error and changes nothing. A submission whose outcome
// cannot be determined returns domain.ErrUnknownOutcome.
type LedgerGateway interface {
	FetchPool(ctx context.Context, id uint64) (*domain.Pool, error)
	FetchAllOpenPools(ctx context.Context) ([]*domain.Pool, error)
	// FetchPools lists pools by creation time, ignoring zero bounds.
	FetchPools(ctx context.Context, createdAfter, createdBefore int64) ([]*domain.Pool, error)
	FetchFeeConfig(ctx context.Context) (*domain.FeeConfig, error)

	SubmitCreation(ctx context.Context, creator string, params domain.PoolParams) (*TxResult, error)
	SubmitBet(ctx context.Context, id uint64, participant string, option int, amount uint64) (*TxResult, error)
	SubmitSettlement(ctx context.Context, id uint64, resolver string, price domain.Price) (*TxResult, error)
	SubmitProposal(ctx context.Context, id uint64, proposer string, option int) (*TxResult, error)
	SubmitChallenge(ctx context.Context, id uint64, challenger string) (*TxResult, error)
	SubmitFinalization(ctx context.Context, id uint64, caller string) (*TxResult, error)
	SubmitDisputeResolution(ctx context.Context, id uint64, signer string, option int) (*TxResult, error)
	SubmitCancellation(ctx context.Context, id uint64, signer string, reason domain.CancelReason) (*TxResult, error)
	SubmitClaim(ctx context.Context, id uint64, participant string) (*TxResult, error)
	SubmitRefund(ctx context.Context, id uint64, participant string) (*TxResult, error)
	SubmitFeeConfig(ctx context.Context, signer string, update domain.FeeUpdate) (*TxResult, error)
	SubmitAdmin(ctx context.Context, signer, newAdmin string) (*TxResult, error)

	Close()
}
