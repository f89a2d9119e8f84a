package embeddedledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ark-network/wager/internal/core/domain"
	"github.com/ark-network/wager/internal/core/ports"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

type Config struct {
	// AbandonGracePeriod is the delay, in seconds, after a market's resolve
	// time past which it can be expired.
	AbandonGracePeriod int64
	// Bootstrap is stored as fee config if none exists yet.
	Bootstrap *domain.FeeConfig
	Clock     func() int64
}

// ledger executes domain operations against the local repositories. Writes
// are serialized so every submission is applied all-or-nothing.
type ledger struct {
	repoManager  ports.RepoManager
	publisher    ports.CreationPublisher
	abandonGrace int64
	now          func() int64
	lock         sync.Mutex
}

func NewLedger(
	repoManager ports.RepoManager, publisher ports.CreationPublisher, cfg Config,
) (ports.LedgerGateway, error) {
	clock := cfg.Clock
	if clock == nil {
		clock = func() int64 { return time.Now().Unix() }
	}

	ctx := context.Background()
	fees, err := repoManager.FeeConfig().Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get fee config: %w", err)
	}
	if fees == nil {
		if cfg.Bootstrap == nil {
			return nil, fmt.Errorf("missing fee config")
		}
		if err := repoManager.FeeConfig().Upsert(ctx, *cfg.Bootstrap); err != nil {
			return nil, fmt.Errorf("failed to store initial fee config: %w", err)
		}
		log.Infof("initialized fee config with admin %s", cfg.Bootstrap.Admin)
	}

	l := &ledger{
		repoManager:  repoManager,
		publisher:    publisher,
		abandonGrace: cfg.AbandonGracePeriod,
		now:          clock,
	}
	repoManager.Events().RegisterEventsHandler(l.onPoolUpdate)
	return l, nil
}

func (l *ledger) FetchPool(ctx context.Context, id uint64) (*domain.Pool, error) {
	return l.load(ctx, id)
}

func (l *ledger) FetchAllOpenPools(ctx context.Context) ([]*domain.Pool, error) {
	pools, err := l.repoManager.Pools().GetOpenPools(ctx)
	if err != nil {
		return nil, err
	}
	list := make([]*domain.Pool, 0, len(pools))
	for i := range pools {
		list = append(list, &pools[i])
	}
	return list, nil
}

func (l *ledger) FetchPools(
	ctx context.Context, createdAfter, createdBefore int64,
) ([]*domain.Pool, error) {
	ids, err := l.repoManager.Pools().GetPoolIds(ctx, createdAfter, createdBefore)
	if err != nil {
		return nil, err
	}
	pools := make([]*domain.Pool, 0, len(ids))
	for _, id := range ids {
		pool, err := l.repoManager.Pools().GetPoolWithId(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to get pool %d: %w", id, err)
		}
		pools = append(pools, pool)
	}
	return pools, nil
}

func (l *ledger) FetchFeeConfig(ctx context.Context) (*domain.FeeConfig, error) {
	fees, err := l.repoManager.FeeConfig().Get(ctx)
	if err != nil {
		return nil, err
	}
	if fees == nil {
		return nil, fmt.Errorf("%w: fee config not initialized", domain.ErrMalformedRecord)
	}
	return fees, nil
}

func (l *ledger) SubmitCreation(
	ctx context.Context, creator string, params domain.PoolParams,
) (*ports.TxResult, error) {
	l.lock.Lock()
	defer l.lock.Unlock()

	fees, err := l.FetchFeeConfig(ctx)
	if err != nil {
		return nil, err
	}
	next := *fees
	id, err := next.AllocatePoolId()
	if err != nil {
		return nil, err
	}

	pool, err := domain.NewPool(id, creator, params, fees.CreationFee, l.now())
	if err != nil {
		return nil, err
	}
	if err := l.repoManager.FeeConfig().Upsert(ctx, next); err != nil {
		return nil, err
	}
	saved, err := l.save(ctx, id, pool.Events())
	if err != nil {
		return nil, err
	}
	return &ports.TxResult{
		Txid:   newTxid(),
		Status: ports.TxConfirmed,
		Pool:   saved,
		Fee:    fees.CreationFee,
	}, nil
}

func (l *ledger) SubmitBet(
	ctx context.Context, id uint64, participant string, option int, amount uint64,
) (*ports.TxResult, error) {
	return l.apply(ctx, id, func(p *domain.Pool, fees *domain.FeeConfig, now int64) ([]domain.PoolEvent, error) {
		return p.PlaceBet(participant, option, amount, fees.JoinFeeBps, now)
	})
}

func (l *ledger) SubmitSettlement(
	ctx context.Context, id uint64, resolver string, price domain.Price,
) (*ports.TxResult, error) {
	return l.applyOnce(ctx, id, func(p *domain.Pool, fees *domain.FeeConfig, now int64) ([]domain.PoolEvent, error) {
		return p.Settle(resolver, price, *fees, now)
	})
}

func (l *ledger) SubmitProposal(
	ctx context.Context, id uint64, proposer string, option int,
) (*ports.TxResult, error) {
	return l.apply(ctx, id, func(p *domain.Pool, _ *domain.FeeConfig, now int64) ([]domain.PoolEvent, error) {
		return p.ProposeOutcome(proposer, option, now)
	})
}

func (l *ledger) SubmitChallenge(
	ctx context.Context, id uint64, challenger string,
) (*ports.TxResult, error) {
	return l.apply(ctx, id, func(p *domain.Pool, _ *domain.FeeConfig, now int64) ([]domain.PoolEvent, error) {
		return p.Challenge(challenger, now)
	})
}

func (l *ledger) SubmitFinalization(
	ctx context.Context, id uint64, caller string,
) (*ports.TxResult, error) {
	return l.applyOnce(ctx, id, func(p *domain.Pool, fees *domain.FeeConfig, now int64) ([]domain.PoolEvent, error) {
		return p.Finalize(caller, *fees, now)
	})
}

func (l *ledger) SubmitDisputeResolution(
	ctx context.Context, id uint64, signer string, option int,
) (*ports.TxResult, error) {
	return l.apply(ctx, id, func(p *domain.Pool, fees *domain.FeeConfig, now int64) ([]domain.PoolEvent, error) {
		return p.ResolveDispute(signer, option, *fees, now)
	})
}

func (l *ledger) SubmitCancellation(
	ctx context.Context, id uint64, signer string, reason domain.CancelReason,
) (*ports.TxResult, error) {
	return l.applyOnce(ctx, id, func(p *domain.Pool, fees *domain.FeeConfig, now int64) ([]domain.PoolEvent, error) {
		if reason == domain.CancelExpired {
			return p.Expire(l.abandonGrace, now)
		}
		return p.Cancel(signer, *fees, now)
	})
}

func (l *ledger) SubmitClaim(
	ctx context.Context, id uint64, participant string,
) (*ports.TxResult, error) {
	return l.apply(ctx, id, func(p *domain.Pool, fees *domain.FeeConfig, now int64) ([]domain.PoolEvent, error) {
		return p.Claim(participant, fees.ClearingFeeBps, now)
	})
}

func (l *ledger) SubmitRefund(
	ctx context.Context, id uint64, participant string,
) (*ports.TxResult, error) {
	return l.apply(ctx, id, func(p *domain.Pool, _ *domain.FeeConfig, now int64) ([]domain.PoolEvent, error) {
		return p.Refund(participant, now)
	})
}

func (l *ledger) SubmitFeeConfig(
	ctx context.Context, signer string, update domain.FeeUpdate,
) (*ports.TxResult, error) {
	return l.applyConfig(ctx, func(fees *domain.FeeConfig, now int64) error {
		return fees.Update(signer, update, now)
	})
}

func (l *ledger) SubmitAdmin(
	ctx context.Context, signer, newAdmin string,
) (*ports.TxResult, error) {
	return l.applyConfig(ctx, func(fees *domain.FeeConfig, now int64) error {
		return fees.SetAdmin(signer, newAdmin, now)
	})
}

func (l *ledger) Close() {
	l.repoManager.Close()
}

type poolOp func(p *domain.Pool, fees *domain.FeeConfig, now int64) ([]domain.PoolEvent, error)

func (l *ledger) apply(ctx context.Context, id uint64, op poolOp) (*ports.TxResult, error) {
	l.lock.Lock()
	defer l.lock.Unlock()

	return l.applyLocked(ctx, id, op)
}

// applyOnce is apply for actions that end a pool. Hitting a pool that
// already reached a terminal phase is reported as such instead of failing.
func (l *ledger) applyOnce(ctx context.Context, id uint64, op poolOp) (*ports.TxResult, error) {
	l.lock.Lock()
	defer l.lock.Unlock()

	pool, err := l.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if pool.IsTerminal() {
		return &ports.TxResult{Status: ports.TxAlreadySettled, Pool: pool}, nil
	}
	return l.applyLocked(ctx, id, op)
}

func (l *ledger) applyLocked(ctx context.Context, id uint64, op poolOp) (*ports.TxResult, error) {
	pool, err := l.load(ctx, id)
	if err != nil {
		return nil, err
	}
	fees, err := l.FetchFeeConfig(ctx)
	if err != nil {
		return nil, err
	}

	events, err := op(pool, fees, l.now())
	if err != nil {
		return nil, err
	}
	saved, err := l.save(ctx, id, events)
	if err != nil {
		return nil, err
	}

	result := &ports.TxResult{
		Txid:   newTxid(),
		Status: ports.TxConfirmed,
		Pool:   saved,
	}
	for _, event := range events {
		switch e := event.(type) {
		case domain.BetPlaced:
			result.Amount, result.Fee = e.Amount, e.JoinFee
		case domain.PrizeClaimed:
			result.Amount, result.Fee = e.Net, e.ClearingFee
		case domain.StakeRefunded:
			result.Amount = e.Amount
		case domain.PoolSettled:
			result.Fee = e.SettlementFee
		}
	}
	return result, nil
}

func (l *ledger) applyConfig(
	ctx context.Context, op func(fees *domain.FeeConfig, now int64) error,
) (*ports.TxResult, error) {
	l.lock.Lock()
	defer l.lock.Unlock()

	fees, err := l.FetchFeeConfig(ctx)
	if err != nil {
		return nil, err
	}
	if err := op(fees, l.now()); err != nil {
		return nil, err
	}
	if err := l.repoManager.FeeConfig().Upsert(ctx, *fees); err != nil {
		return nil, err
	}
	return &ports.TxResult{
		Txid:      newTxid(),
		Status:    ports.TxConfirmed,
		FeeConfig: fees,
	}, nil
}

func (l *ledger) load(ctx context.Context, id uint64) (*domain.Pool, error) {
	pool, err := l.repoManager.Events().Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if pool == nil || pool.Phase == domain.PhaseUndefined {
		return nil, domain.ErrPoolNotFound
	}
	return pool, nil
}

func (l *ledger) save(ctx context.Context, id uint64, events []domain.PoolEvent) (*domain.Pool, error) {
	saved, err := l.repoManager.Events().Save(ctx, id, events...)
	if err != nil {
		return nil, err
	}
	if err := l.repoManager.Pools().AddOrUpdatePool(ctx, *saved); err != nil {
		log.WithError(err).Warnf("failed to update projection of pool %d", id)
	}
	return saved, nil
}

// onPoolUpdate announces newly created pools.
func (l *ledger) onPoolUpdate(pool *domain.Pool) {
	if l.publisher == nil || pool.Version != 1 {
		return
	}
	event := ports.CreationEvent{PoolId: pool.Id, Deadline: pool.Deadline}
	if err := l.publisher.PublishCreation(context.Background(), event); err != nil {
		log.WithError(err).Warnf("failed to publish creation of pool %d", pool.Id)
	}
}

func newTxid() string {
	return uuid.New().String()
}
