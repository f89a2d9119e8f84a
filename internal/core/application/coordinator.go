package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ark-network/wager/internal/core/domain"
	"github.com/ark-network/wager/internal/core/ports"
	"github.com/cenkalti/backoff/v4"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

type AttemptOutcome int

const (
	// OutcomePending means nothing was due yet, the pool is tracked again
	// with its next action time.
	OutcomePending AttemptOutcome = iota
	OutcomeSettled
	OutcomeCancelled
	OutcomeAlreadyFinal
	OutcomeAwaitingAdmin
)

func (o AttemptOutcome) String() string {
	switch o {
	case OutcomeSettled:
		return "settled"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeAlreadyFinal:
		return "already_final"
	case OutcomeAwaitingAdmin:
		return "awaiting_admin"
	default:
		return "pending"
	}
}

// IsTerminal reports whether the pool no longer needs to be tracked.
func (o AttemptOutcome) IsTerminal() bool {
	return o == OutcomeSettled || o == OutcomeCancelled || o == OutcomeAlreadyFinal
}

type AttemptResult struct {
	PoolId  uint64
	Outcome AttemptOutcome
	Txid    string
	Pool    *domain.Pool
}

type CoordinatorConfig struct {
	// Resolver is the identity the coordinator signs settlements with.
	Resolver      string
	MaxRetries    uint64
	RetryInterval time.Duration
	// AbandonGracePeriod is how long, in seconds, a market may stay
	// unproposed after its resolve time before being cancelled.
	AbandonGracePeriod int64
	LockTTL            time.Duration
}

// SettlementCoordinator performs the automatic action due for a pool. All
// the I/O of a settlement attempt happens here, the math is left to the
// domain.
type SettlementCoordinator struct {
	ledger    ports.LedgerGateway
	oracle    ports.PriceOracle
	locker    ports.Locker
	archive   ports.SettlementArchive
	scheduler ports.SchedulerService
	cfg       CoordinatorConfig
}

func NewSettlementCoordinator(
	ledger ports.LedgerGateway, oracle ports.PriceOracle, locker ports.Locker,
	archive ports.SettlementArchive, scheduler ports.SchedulerService,
	cfg CoordinatorConfig,
) *SettlementCoordinator {
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = time.Minute
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = time.Second
	}
	return &SettlementCoordinator{ledger, oracle, locker, archive, scheduler, cfg}
}

// Process runs at most one attempt for the pool. Errors leave the pool
// untouched on the ledger. A panic while handling the pool, like one raised
// by a corrupted record, is returned as domain.ErrMalformedRecord.
func (c *SettlementCoordinator) Process(
	ctx context.Context, poolId uint64,
) (res *AttemptResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("recovered from panic while processing pool %d: %v", poolId, r)
			res, err = nil, panicError(r)
		}
	}()

	release, err := c.locker.Acquire(ctx, poolLockKey(poolId), c.cfg.LockTTL)
	if err != nil {
		return nil, err
	}
	defer release()

	var (
		pool *domain.Pool
		fees *domain.FeeConfig
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(guard(func() (err error) {
		pool, err = c.fetchPool(gctx, poolId)
		return
	}))
	g.Go(guard(func() (err error) {
		fees, err = c.fetchFeeConfig(gctx)
		return
	}))
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &AttemptResult{PoolId: poolId, Pool: pool}
	if pool.IsTerminal() {
		result.Outcome = OutcomeAlreadyFinal
		return result, nil
	}

	at, ok := pool.NextActionTime(c.cfg.AbandonGracePeriod)
	if !ok {
		result.Outcome = OutcomeAwaitingAdmin
		return result, nil
	}
	now := c.scheduler.Now()
	if at > now {
		result.Outcome = OutcomePending
		return result, nil
	}

	switch {
	case pool.Kind == domain.BinaryKind:
		return c.settle(ctx, pool, *fees, now)
	case pool.Phase == domain.PhaseProposed:
		return c.finalize(ctx, pool, *fees, now)
	default:
		return c.expire(ctx, pool, *fees, now)
	}
}

func (c *SettlementCoordinator) settle(
	ctx context.Context, pool *domain.Pool, fees domain.FeeConfig, now int64,
) (*AttemptResult, error) {
	price, err := c.fetchPrice(ctx, pool.Asset)
	if err != nil {
		return nil, err
	}

	preview := pool.Clone()
	if _, err := preview.Settle(c.cfg.Resolver, price, fees, now); err != nil {
		return nil, err
	}
	log.Infof(
		"settling pool %d at price %d against threshold %d, outcome %s",
		pool.Id, price.Value, pool.Threshold, pool.Options[preview.Outcome],
	)

	res, err := c.submit(ctx, pool.Id, func(ctx context.Context) (*ports.TxResult, error) {
		return c.ledger.SubmitSettlement(ctx, pool.Id, c.cfg.Resolver, price)
	})
	if err != nil {
		return nil, err
	}
	return c.complete(ctx, res, OutcomeSettled, fees), nil
}

func (c *SettlementCoordinator) finalize(
	ctx context.Context, pool *domain.Pool, fees domain.FeeConfig, now int64,
) (*AttemptResult, error) {
	preview := pool.Clone()
	if _, err := preview.Finalize(c.cfg.Resolver, fees, now); err != nil {
		return nil, err
	}
	log.Infof("finalizing market %d with outcome %s", pool.Id, pool.Options[pool.ProposedOutcome])

	res, err := c.submit(ctx, pool.Id, func(ctx context.Context) (*ports.TxResult, error) {
		return c.ledger.SubmitFinalization(ctx, pool.Id, c.cfg.Resolver)
	})
	if err != nil {
		return nil, err
	}
	return c.complete(ctx, res, OutcomeSettled, fees), nil
}

func (c *SettlementCoordinator) expire(
	ctx context.Context, pool *domain.Pool, fees domain.FeeConfig, now int64,
) (*AttemptResult, error) {
	preview := pool.Clone()
	if _, err := preview.Expire(c.cfg.AbandonGracePeriod, now); err != nil {
		return nil, err
	}
	log.Infof("cancelling abandoned market %d", pool.Id)

	res, err := c.submit(ctx, pool.Id, func(ctx context.Context) (*ports.TxResult, error) {
		return c.ledger.SubmitCancellation(ctx, pool.Id, c.cfg.Resolver, domain.CancelExpired)
	})
	if err != nil {
		return nil, err
	}
	return c.complete(ctx, res, OutcomeCancelled, fees), nil
}

func (c *SettlementCoordinator) complete(
	ctx context.Context, res *ports.TxResult, outcome AttemptOutcome, fees domain.FeeConfig,
) *AttemptResult {
	result := &AttemptResult{
		PoolId:  res.Pool.Id,
		Outcome: outcome,
		Txid:    res.Txid,
		Pool:    res.Pool,
	}
	if res.Status == ports.TxAlreadySettled {
		result.Outcome = OutcomeAlreadyFinal
		return result
	}

	if c.archive != nil {
		receipt := newReceipt(res, fees)
		if err := c.archive.Store(ctx, receipt); err != nil {
			log.WithError(err).Warnf("failed to archive receipt of pool %d", res.Pool.Id)
		}
	}
	return result
}

// submit sends a submission with bounded retries. When the outcome of a
// submission is unknown, the pool is read back before anything is resent.
func (c *SettlementCoordinator) submit(
	ctx context.Context, poolId uint64,
	fn func(context.Context) (*ports.TxResult, error),
) (*ports.TxResult, error) {
	// A submission already sent is awaited to a definite result, even once
	// ctx is cancelled.
	sendCtx := context.WithoutCancel(ctx)

	var result *ports.TxResult
	op := func() error {
		res, err := fn(sendCtx)
		if err == nil {
			result = res
			return nil
		}
		if !errors.Is(err, domain.ErrUnknownOutcome) {
			return retryable(err)
		}

		log.WithError(err).Warnf("unknown outcome for pool %d, reading it back", poolId)
		pool, ferr := c.ledger.FetchPool(sendCtx, poolId)
		if ferr != nil {
			return retryable(ferr)
		}
		if pool.IsTerminal() {
			result = &ports.TxResult{Status: ports.TxAlreadySettled, Pool: pool}
			return nil
		}
		return err
	}

	if err := backoff.Retry(op, c.backoff(ctx)); err != nil {
		return nil, err
	}
	if result.Pool == nil {
		pool, err := c.fetchPool(sendCtx, poolId)
		if err != nil {
			return nil, err
		}
		result.Pool = pool
	}
	return result, nil
}

func (c *SettlementCoordinator) fetchPool(ctx context.Context, id uint64) (*domain.Pool, error) {
	var pool *domain.Pool
	err := backoff.Retry(func() (err error) {
		pool, err = c.ledger.FetchPool(ctx, id)
		return retryable(err)
	}, c.backoff(ctx))
	return pool, err
}

func (c *SettlementCoordinator) fetchFeeConfig(ctx context.Context) (*domain.FeeConfig, error) {
	var fees *domain.FeeConfig
	err := backoff.Retry(func() (err error) {
		fees, err = c.ledger.FetchFeeConfig(ctx)
		return retryable(err)
	}, c.backoff(ctx))
	return fees, err
}

func (c *SettlementCoordinator) fetchPrice(ctx context.Context, asset string) (domain.Price, error) {
	var price domain.Price
	err := backoff.Retry(func() (err error) {
		price, err = c.oracle.GetPrice(ctx, asset)
		return retryable(err)
	}, c.backoff(ctx))
	if err != nil && !errors.Is(err, domain.ErrPriceUnavailable) && domain.KindOf(err) == domain.UnknownErrorKind {
		err = fmt.Errorf("%w: %s", domain.ErrPriceUnavailable, err)
	}
	return price, err
}

func (c *SettlementCoordinator) backoff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.RetryInterval
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, c.cfg.MaxRetries), ctx)
}

// retryable stops the retry loop on anything but transient failures.
// Errors outside the domain taxonomy come from transports and are retried.
func retryable(err error) error {
	if err == nil {
		return nil
	}
	switch domain.KindOf(err) {
	case domain.TransientError, domain.UnknownErrorKind:
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return backoff.Permanent(err)
		}
		return err
	default:
		return backoff.Permanent(err)
	}
}

func newReceipt(res *ports.TxResult, fees domain.FeeConfig) ports.SettlementReceipt {
	pool := res.Pool
	receipt := ports.SettlementReceipt{
		PoolId:        pool.Id,
		Txid:          res.Txid,
		Kind:          pool.Kind.String(),
		Phase:         pool.Phase.String(),
		Outcome:       pool.Outcome,
		Price:         pool.ResolvedPrice,
		TotalStaked:   pool.TotalStaked(),
		SettlementFee: pool.SettlementFee,
		Distributable: pool.Distributable,
		Timestamp:     pool.SettledAt,
	}
	if table, err := pool.PayoutTable(fees.ClearingFeeBps); err == nil {
		receipt.Payouts = table
	}
	return receipt
}

// guard recovers panics raised in errgroup goroutines, which the recover in
// Process cannot see.
func guard(fn func() error) func() error {
	return func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = panicError(r)
			}
		}()
		return fn()
	}
}

func panicError(r interface{}) error {
	return fmt.Errorf("%w: %v", domain.ErrMalformedRecord, r)
}

func poolLockKey(id uint64) string {
	return fmt.Sprintf("pool:%d:settlement", id)
}
