package jsonrpcledger

import (
	"context"
	"fmt"

	"github.com/ark-network/wager/internal/core/domain"
	"github.com/ark-network/wager/internal/core/ports"
	"github.com/ethereum/go-ethereum/rpc"
)

// client talks to a remote ledger over json-rpc. A submission that fails
// in transport may or may not have been applied and is reported as
// domain.ErrUnknownOutcome.
type client struct {
	rpc *rpc.Client
}

func NewLedger(ctx context.Context, url string) (ports.LedgerGateway, error) {
	if url == "" {
		return nil, fmt.Errorf("missing ledger url")
	}
	c, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to dial ledger: %w", err)
	}
	return &client{c}, nil
}

func (c *client) FetchPool(ctx context.Context, id uint64) (*domain.Pool, error) {
	var pool *domain.Pool
	if err := c.fetch(ctx, &pool, "fetchPool", id); err != nil {
		return nil, err
	}
	if pool == nil {
		return nil, domain.ErrPoolNotFound
	}
	return pool, nil
}

func (c *client) FetchAllOpenPools(ctx context.Context) ([]*domain.Pool, error) {
	var pools []*domain.Pool
	if err := c.fetch(ctx, &pools, "fetchAllOpenPools"); err != nil {
		return nil, err
	}
	return pools, nil
}

func (c *client) FetchPools(
	ctx context.Context, createdAfter, createdBefore int64,
) ([]*domain.Pool, error) {
	var pools []*domain.Pool
	if err := c.fetch(ctx, &pools, "fetchPools", createdAfter, createdBefore); err != nil {
		return nil, err
	}
	return pools, nil
}

func (c *client) FetchFeeConfig(ctx context.Context) (*domain.FeeConfig, error) {
	var fees *domain.FeeConfig
	if err := c.fetch(ctx, &fees, "fetchFeeConfig"); err != nil {
		return nil, err
	}
	if fees == nil {
		return nil, fmt.Errorf("%w: fee config not initialized", domain.ErrMalformedRecord)
	}
	return fees, nil
}

func (c *client) SubmitCreation(
	ctx context.Context, creator string, params domain.PoolParams,
) (*ports.TxResult, error) {
	return c.submit(ctx, "submitCreation", creator, params)
}

func (c *client) SubmitBet(
	ctx context.Context, id uint64, participant string, option int, amount uint64,
) (*ports.TxResult, error) {
	return c.submit(ctx, "submitBet", id, participant, option, amount)
}

func (c *client) SubmitSettlement(
	ctx context.Context, id uint64, resolver string, price domain.Price,
) (*ports.TxResult, error) {
	return c.submit(ctx, "submitSettlement", id, resolver, price)
}

func (c *client) SubmitProposal(
	ctx context.Context, id uint64, proposer string, option int,
) (*ports.TxResult, error) {
	return c.submit(ctx, "submitProposal", id, proposer, option)
}

func (c *client) SubmitChallenge(
	ctx context.Context, id uint64, challenger string,
) (*ports.TxResult, error) {
	return c.submit(ctx, "submitChallenge", id, challenger)
}

func (c *client) SubmitFinalization(
	ctx context.Context, id uint64, caller string,
) (*ports.TxResult, error) {
	return c.submit(ctx, "submitFinalization", id, caller)
}

func (c *client) SubmitDisputeResolution(
	ctx context.Context, id uint64, signer string, option int,
) (*ports.TxResult, error) {
	return c.submit(ctx, "submitDisputeResolution", id, signer, option)
}

func (c *client) SubmitCancellation(
	ctx context.Context, id uint64, signer string, reason domain.CancelReason,
) (*ports.TxResult, error) {
	return c.submit(ctx, "submitCancellation", id, signer, reason)
}

func (c *client) SubmitClaim(
	ctx context.Context, id uint64, participant string,
) (*ports.TxResult, error) {
	return c.submit(ctx, "submitClaim", id, participant)
}

func (c *client) SubmitRefund(
	ctx context.Context, id uint64, participant string,
) (*ports.TxResult, error) {
	return c.submit(ctx, "submitRefund", id, participant)
}

func (c *client) SubmitFeeConfig(
	ctx context.Context, signer string, update domain.FeeUpdate,
) (*ports.TxResult, error) {
	return c.submit(ctx, "submitFeeConfig", signer, update)
}

func (c *client) SubmitAdmin(
	ctx context.Context, signer, newAdmin string,
) (*ports.TxResult, error) {
	return c.submit(ctx, "submitAdmin", signer, newAdmin)
}

func (c *client) Close() {
	c.rpc.Close()
}

func (c *client) fetch(ctx context.Context, result interface{}, method string, args ...interface{}) error {
	err := c.rpc.CallContext(ctx, result, Namespace+"_"+method, args...)
	return fromRpcError(err, domain.ErrLedgerUnavailable)
}

func (c *client) submit(ctx context.Context, method string, args ...interface{}) (*ports.TxResult, error) {
	var res *ports.TxResult
	if err := c.rpc.CallContext(ctx, &res, Namespace+"_"+method, args...); err != nil {
		return nil, fromRpcError(err, domain.ErrUnknownOutcome)
	}
	if res == nil {
		return nil, fmt.Errorf("%w: empty response to %s", domain.ErrUnknownOutcome, method)
	}
	return res, nil
}
