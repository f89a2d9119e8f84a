package jsonrpcledger

import (
	"context"
	"net/http"

	"github.com/ark-network/wager/internal/core/domain"
	"github.com/ark-network/wager/internal/core/ports"
	"github.com/ethereum/go-ethereum/rpc"
)

const Namespace = "wager"

// NewServer exposes ledger over json-rpc, under the wager namespace.
func NewServer(ledger ports.LedgerGateway) (http.Handler, error) {
	server := rpc.NewServer()
	if err := server.RegisterName(Namespace, &api{ledger}); err != nil {
		return nil, err
	}
	return server, nil
}

type api struct {
	ledger ports.LedgerGateway
}

func (a *api) FetchPool(ctx context.Context, id uint64) (*domain.Pool, error) {
	pool, err := a.ledger.FetchPool(ctx, id)
	return pool, toRpcError(err)
}

func (a *api) FetchAllOpenPools(ctx context.Context) ([]*domain.Pool, error) {
	pools, err := a.ledger.FetchAllOpenPools(ctx)
	return pools, toRpcError(err)
}

func (a *api) FetchPools(
	ctx context.Context, createdAfter, createdBefore int64,
) ([]*domain.Pool, error) {
	pools, err := a.ledger.FetchPools(ctx, createdAfter, createdBefore)
	return pools, toRpcError(err)
}

func (a *api) FetchFeeConfig(ctx context.Context) (*domain.FeeConfig, error) {
	fees, err := a.ledger.FetchFeeConfig(ctx)
	return fees, toRpcError(err)
}

func (a *api) SubmitCreation(
	ctx context.Context, creator string, params domain.PoolParams,
) (*ports.TxResult, error) {
	res, err := a.ledger.SubmitCreation(ctx, creator, params)
	return res, toRpcError(err)
}

func (a *api) SubmitBet(
	ctx context.Context, id uint64, participant string, option int, amount uint64,
) (*ports.TxResult, error) {
	res, err := a.ledger.SubmitBet(ctx, id, participant, option, amount)
	return res, toRpcError(err)
}

func (a *api) SubmitSettlement(
	ctx context.Context, id uint64, resolver string, price domain.Price,
) (*ports.TxResult, error) {
	res, err := a.ledger.SubmitSettlement(ctx, id, resolver, price)
	return res, toRpcError(err)
}

func (a *api) SubmitProposal(
	ctx context.Context, id uint64, proposer string, option int,
) (*ports.TxResult, error) {
	res, err := a.ledger.SubmitProposal(ctx, id, proposer, option)
	return res, toRpcError(err)
}

func (a *api) SubmitChallenge(
	ctx context.Context, id uint64, challenger string,
) (*ports.TxResult, error) {
	res, err := a.ledger.SubmitChallenge(ctx, id, challenger)
	return res, toRpcError(err)
}

func (a *api) SubmitFinalization(
	ctx context.Context, id uint64, caller string,
) (*ports.TxResult, error) {
	res, err := a.ledger.SubmitFinalization(ctx, id, caller)
	return res, toRpcError(err)
}

func (a *api) SubmitDisputeResolution(
	ctx context.Context, id uint64, signer string, option int,
) (*ports.TxResult, error) {
	res, err := a.ledger.SubmitDisputeResolution(ctx, id, signer, option)
	return res, toRpcError(err)
}

func (a *api) SubmitCancellation(
	ctx context.Context, id uint64, signer string, reason domain.CancelReason,
) (*ports.TxResult, error) {
	res, err := a.ledger.SubmitCancellation(ctx, id, signer, reason)
	return res, toRpcError(err)
}

func (a *api) SubmitClaim(
	ctx context.Context, id uint64, participant string,
) (*ports.TxResult, error) {
	res, err := a.ledger.SubmitClaim(ctx, id, participant)
	return res, toRpcError(err)
}

func (a *api) SubmitRefund(
	ctx context.Context, id uint64, participant string,
) (*ports.TxResult, error) {
	res, err := a.ledger.SubmitRefund(ctx, id, participant)
	return res, toRpcError(err)
}

func (a *api) SubmitFeeConfig(
	ctx context.Context, signer string, update domain.FeeUpdate,
) (*ports.TxResult, error) {
	res, err := a.ledger.SubmitFeeConfig(ctx, signer, update)
	return res, toRpcError(err)
}

func (a *api) SubmitAdmin(
	ctx context.Context, signer, newAdmin string,
) (*ports.TxResult, error) {
	res, err := a.ledger.SubmitAdmin(ctx, signer, newAdmin)
	return res, toRpcError(err)
}
