package application_test

import (
	"context"
	"testing"
	"time"

	"github.com/ark-network/wager/internal/core/application"
	"github.com/ark-network/wager/internal/core/domain"
	"github.com/ark-network/wager/internal/core/ports"
	inmemorylocker "github.com/ark-network/wager/internal/infrastructure/locker/inmemory"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	now          = int64(1_700_000_000)
	deadline     = now + 3600
	resolveTime  = deadline + 3600
	abandonGrace = int64(7 * 24 * 3600)
	resolver     = "resolver"
	admin        = "admin"
)

var (
	fees = &domain.FeeConfig{
		Admin:          admin,
		FeeDestination: "treasury",
		Resolver:       resolver,
		CreationFee:    5_000_000,
		JoinFeeBps:     50,
		ClearingFeeBps: 100,
		SettleFeeBps:   200,
		NextPoolId:     3,
	}
	price = domain.Price{Value: 70_000_000_000, Timestamp: deadline + 5}
)

func newBinaryPool(t *testing.T) *domain.Pool {
	pool, err := domain.NewPool(1, "creator", domain.PoolParams{
		Kind:      domain.BinaryKind,
		Question:  "BTC above 60k?",
		Asset:     "BTC",
		Threshold: 60_000_000_000,
		Deadline:  deadline,
	}, fees.CreationFee, now)
	require.NoError(t, err)

	_, err = pool.PlaceBet("alice", 1, 10_000_000, fees.JoinFeeBps, now+10)
	require.NoError(t, err)
	_, err = pool.PlaceBet("bob", 0, 30_000_000, fees.JoinFeeBps, now+20)
	require.NoError(t, err)
	return pool
}

func newMarket(t *testing.T) *domain.Pool {
	pool, err := domain.NewPool(2, "creator", domain.PoolParams{
		Kind:            domain.MarketKind,
		Question:        "Who wins?",
		Options:         []string{"red", "blue"},
		StakeAmount:     500_000_000,
		Deadline:        deadline,
		ResolveTime:     resolveTime,
		ChallengeWindow: 600,
	}, fees.CreationFee, now)
	require.NoError(t, err)

	_, err = pool.PlaceBet("alice", 0, 0, fees.JoinFeeBps, now+10)
	require.NoError(t, err)
	_, err = pool.PlaceBet("bob", 1, 0, fees.JoinFeeBps, now+20)
	require.NoError(t, err)
	return pool
}

func settled(t *testing.T, pool *domain.Pool) *domain.Pool {
	p := pool.Clone()
	_, err := p.Settle(resolver, price, *fees, deadline+10)
	require.NoError(t, err)
	return p
}

type coordinatorFixture struct {
	ledger    *mockedLedger
	oracle    *mockedOracle
	archive   *mockedArchive
	locker    ports.Locker
	scheduler *manualScheduler
	svc       *application.SettlementCoordinator
}

func newCoordinatorFixture(at int64) *coordinatorFixture {
	f := &coordinatorFixture{
		ledger:    &mockedLedger{},
		oracle:    &mockedOracle{},
		archive:   &mockedArchive{},
		locker:    inmemorylocker.NewLocker(),
		scheduler: newManualScheduler(at),
	}
	f.svc = application.NewSettlementCoordinator(
		f.ledger, f.oracle, f.locker, f.archive, f.scheduler,
		application.CoordinatorConfig{
			Resolver:           resolver,
			MaxRetries:         3,
			RetryInterval:      time.Millisecond,
			AbandonGracePeriod: abandonGrace,
		},
	)
	return f
}

func TestSettlementCoordinator(t *testing.T) {
	ctx := context.Background()

	t.Run("settles binary pool", func(t *testing.T) {
		pool := newBinaryPool(t)
		final := settled(t, pool)

		f := newCoordinatorFixture(deadline + 10)
		f.ledger.On("FetchPool", mock.Anything, uint64(1)).Return(pool, nil)
		f.ledger.On("FetchFeeConfig", mock.Anything).Return(fees, nil)
		f.oracle.On("GetPrice", mock.Anything, "BTC").Return(price, nil)
		f.ledger.On("SubmitSettlement", mock.Anything, uint64(1), resolver, price).
			Return(&ports.TxResult{Txid: "tx1", Status: ports.TxConfirmed, Pool: final}, nil).Once()
		f.archive.On("Store", mock.Anything, mock.MatchedBy(func(r ports.SettlementReceipt) bool {
			return r.PoolId == 1 && r.Txid == "tx1" && r.Phase == "SETTLED" && r.Outcome == 1
		})).Return(nil).Once()

		res, err := f.svc.Process(ctx, 1)
		require.NoError(t, err)
		require.Equal(t, application.OutcomeSettled, res.Outcome)
		require.Equal(t, "tx1", res.Txid)
		require.Equal(t, domain.PhaseSettled, res.Pool.Phase)
		f.ledger.AssertExpectations(t)
		f.archive.AssertExpectations(t)
	})

	t.Run("not due yet", func(t *testing.T) {
		f := newCoordinatorFixture(deadline - 1)
		f.ledger.On("FetchPool", mock.Anything, uint64(1)).Return(newBinaryPool(t), nil)
		f.ledger.On("FetchFeeConfig", mock.Anything).Return(fees, nil)

		res, err := f.svc.Process(ctx, 1)
		require.NoError(t, err)
		require.Equal(t, application.OutcomePending, res.Outcome)
		f.ledger.AssertNotCalled(t, "SubmitSettlement", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		f.oracle.AssertNotCalled(t, "GetPrice", mock.Anything, mock.Anything)
	})

	t.Run("already final", func(t *testing.T) {
		f := newCoordinatorFixture(deadline + 10)
		f.ledger.On("FetchPool", mock.Anything, uint64(1)).Return(settled(t, newBinaryPool(t)), nil)
		f.ledger.On("FetchFeeConfig", mock.Anything).Return(fees, nil)

		res, err := f.svc.Process(ctx, 1)
		require.NoError(t, err)
		require.Equal(t, application.OutcomeAlreadyFinal, res.Outcome)
		require.True(t, res.Outcome.IsTerminal())
		f.ledger.AssertNotCalled(t, "SubmitSettlement", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("disputed market awaits admin", func(t *testing.T) {
		pool := newMarket(t)
		_, err := pool.ProposeOutcome("alice", 0, resolveTime)
		require.NoError(t, err)
		_, err = pool.Challenge("bob", resolveTime+10)
		require.NoError(t, err)

		f := newCoordinatorFixture(resolveTime + 10_000)
		f.ledger.On("FetchPool", mock.Anything, uint64(2)).Return(pool, nil)
		f.ledger.On("FetchFeeConfig", mock.Anything).Return(fees, nil)

		res, err := f.svc.Process(ctx, 2)
		require.NoError(t, err)
		require.Equal(t, application.OutcomeAwaitingAdmin, res.Outcome)
		require.False(t, res.Outcome.IsTerminal())
	})

	t.Run("finalizes unchallenged proposal", func(t *testing.T) {
		pool := newMarket(t)
		_, err := pool.ProposeOutcome("alice", 0, resolveTime)
		require.NoError(t, err)
		final := pool.Clone()
		_, err = final.Finalize(resolver, *fees, resolveTime+600)
		require.NoError(t, err)

		f := newCoordinatorFixture(resolveTime + 600)
		f.ledger.On("FetchPool", mock.Anything, uint64(2)).Return(pool, nil)
		f.ledger.On("FetchFeeConfig", mock.Anything).Return(fees, nil)
		f.ledger.On("SubmitFinalization", mock.Anything, uint64(2), resolver).
			Return(&ports.TxResult{Txid: "tx2", Status: ports.TxConfirmed, Pool: final}, nil).Once()
		f.archive.On("Store", mock.Anything, mock.Anything).Return(nil).Once()

		res, err := f.svc.Process(ctx, 2)
		require.NoError(t, err)
		require.Equal(t, application.OutcomeSettled, res.Outcome)
		require.Equal(t, 0, res.Pool.Outcome)
		f.oracle.AssertNotCalled(t, "GetPrice", mock.Anything, mock.Anything)
	})

	t.Run("expires abandoned market", func(t *testing.T) {
		pool := newMarket(t)
		final := pool.Clone()
		_, err := final.Expire(abandonGrace, resolveTime+abandonGrace)
		require.NoError(t, err)

		f := newCoordinatorFixture(resolveTime + abandonGrace)
		f.ledger.On("FetchPool", mock.Anything, uint64(2)).Return(pool, nil)
		f.ledger.On("FetchFeeConfig", mock.Anything).Return(fees, nil)
		f.ledger.On("SubmitCancellation", mock.Anything, uint64(2), resolver, domain.CancelExpired).
			Return(&ports.TxResult{Txid: "tx3", Status: ports.TxConfirmed, Pool: final}, nil).Once()
		f.archive.On("Store", mock.Anything, mock.Anything).Return(nil).Once()

		res, err := f.svc.Process(ctx, 2)
		require.NoError(t, err)
		require.Equal(t, application.OutcomeCancelled, res.Outcome)
		require.Equal(t, domain.PhaseCancelled, res.Pool.Phase)
	})

	t.Run("retries transient failures", func(t *testing.T) {
		pool := newBinaryPool(t)
		final := settled(t, pool)

		f := newCoordinatorFixture(deadline + 10)
		f.ledger.On("FetchPool", mock.Anything, uint64(1)).Return(pool, nil)
		f.ledger.On("FetchFeeConfig", mock.Anything).Return(fees, nil)
		f.oracle.On("GetPrice", mock.Anything, "BTC").Return(price, nil)
		f.ledger.On("SubmitSettlement", mock.Anything, uint64(1), resolver, price).
			Return(nil, domain.ErrLedgerUnavailable).Twice()
		f.ledger.On("SubmitSettlement", mock.Anything, uint64(1), resolver, price).
			Return(&ports.TxResult{Txid: "tx1", Status: ports.TxConfirmed, Pool: final}, nil).Once()
		f.archive.On("Store", mock.Anything, mock.Anything).Return(nil)

		res, err := f.svc.Process(ctx, 1)
		require.NoError(t, err)
		require.Equal(t, application.OutcomeSettled, res.Outcome)
		f.ledger.AssertNumberOfCalls(t, "SubmitSettlement", 3)
	})

	t.Run("reads back unknown outcome", func(t *testing.T) {
		pool := newBinaryPool(t)
		final := settled(t, pool)

		f := newCoordinatorFixture(deadline + 10)
		f.ledger.On("FetchPool", mock.Anything, uint64(1)).Return(pool, nil).Once()
		f.ledger.On("FetchPool", mock.Anything, uint64(1)).Return(final, nil)
		f.ledger.On("FetchFeeConfig", mock.Anything).Return(fees, nil)
		f.oracle.On("GetPrice", mock.Anything, "BTC").Return(price, nil)
		f.ledger.On("SubmitSettlement", mock.Anything, uint64(1), resolver, price).
			Return(nil, domain.ErrUnknownOutcome).Once()

		res, err := f.svc.Process(ctx, 1)
		require.NoError(t, err)
		require.Equal(t, application.OutcomeAlreadyFinal, res.Outcome)
		f.ledger.AssertNumberOfCalls(t, "SubmitSettlement", 1)
		f.archive.AssertNotCalled(t, "Store", mock.Anything, mock.Anything)
	})

	t.Run("price unavailable", func(t *testing.T) {
		f := newCoordinatorFixture(deadline + 10)
		f.ledger.On("FetchPool", mock.Anything, uint64(1)).Return(newBinaryPool(t), nil)
		f.ledger.On("FetchFeeConfig", mock.Anything).Return(fees, nil)
		f.oracle.On("GetPrice", mock.Anything, "BTC").Return(nil, domain.ErrPriceUnavailable)

		res, err := f.svc.Process(ctx, 1)
		require.ErrorIs(t, err, domain.ErrPriceUnavailable)
		require.Nil(t, res)
		f.oracle.AssertNumberOfCalls(t, "GetPrice", 4)
		f.ledger.AssertNotCalled(t, "SubmitSettlement", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("does not retry rejections", func(t *testing.T) {
		f := newCoordinatorFixture(deadline + 10)
		f.ledger.On("FetchPool", mock.Anything, uint64(1)).Return(newBinaryPool(t), nil)
		f.ledger.On("FetchFeeConfig", mock.Anything).Return(fees, nil)
		f.oracle.On("GetPrice", mock.Anything, "BTC").Return(price, nil)
		f.ledger.On("SubmitSettlement", mock.Anything, uint64(1), resolver, price).
			Return(nil, domain.ErrNotResolver)

		_, err := f.svc.Process(ctx, 1)
		require.ErrorIs(t, err, domain.ErrNotResolver)
		f.ledger.AssertNumberOfCalls(t, "SubmitSettlement", 1)
	})

	t.Run("lock held elsewhere", func(t *testing.T) {
		f := newCoordinatorFixture(deadline + 10)
		release, err := f.locker.Acquire(ctx, "pool:1:settlement", time.Minute)
		require.NoError(t, err)
		defer release()

		_, err = f.svc.Process(ctx, 1)
		require.ErrorIs(t, err, domain.ErrLockHeld)
		f.ledger.AssertNotCalled(t, "FetchPool", mock.Anything, mock.Anything)
	})

	t.Run("panic while fetching", func(t *testing.T) {
		f := newCoordinatorFixture(deadline + 10)
		f.ledger.On("FetchPool", mock.Anything, uint64(1)).
			Run(func(mock.Arguments) { panic("corrupted pool record") }).
			Return(nil, nil)
		f.ledger.On("FetchFeeConfig", mock.Anything).Return(fees, nil)

		var err error
		require.NotPanics(t, func() {
			_, err = f.svc.Process(ctx, 1)
		})
		require.ErrorIs(t, err, domain.ErrMalformedRecord)
		require.Contains(t, err.Error(), "corrupted pool record")

		release, err := f.locker.Acquire(ctx, "pool:1:settlement", time.Minute)
		require.NoError(t, err)
		release()
	})

	t.Run("panic while settling", func(t *testing.T) {
		f := newCoordinatorFixture(deadline + 10)
		f.ledger.On("FetchPool", mock.Anything, uint64(1)).Return(newBinaryPool(t), nil)
		f.ledger.On("FetchFeeConfig", mock.Anything).Return(fees, nil)
		f.oracle.On("GetPrice", mock.Anything, "BTC").
			Run(func(mock.Arguments) { panic("bad quote") }).
			Return(nil, nil)

		var err error
		require.NotPanics(t, func() {
			_, err = f.svc.Process(ctx, 1)
		})
		require.ErrorIs(t, err, domain.ErrMalformedRecord)
		f.ledger.AssertNotCalled(t, "SubmitSettlement", mock.Anything, mock.Anything, mock.Anything, mock.Anything)

		release, err := f.locker.Acquire(ctx, "pool:1:settlement", time.Minute)
		require.NoError(t, err)
		release()
	})

	t.Run("submission outlives cancellation", func(t *testing.T) {
		pool := newBinaryPool(t)
		final := settled(t, pool)

		f := newCoordinatorFixture(deadline + 10)
		f.ledger.On("FetchPool", mock.Anything, uint64(1)).Return(pool, nil)
		f.ledger.On("FetchFeeConfig", mock.Anything).Return(fees, nil)
		f.oracle.On("GetPrice", mock.Anything, "BTC").Return(price, nil)
		f.archive.On("Store", mock.Anything, mock.Anything).Return(nil)

		cctx, cancel := context.WithCancel(ctx)
		var submitErr error
		f.ledger.On("SubmitSettlement", mock.Anything, uint64(1), resolver, price).
			Run(func(args mock.Arguments) {
				cancel()
				submitErr = args.Get(0).(context.Context).Err()
			}).
			Return(&ports.TxResult{Txid: "tx1", Status: ports.TxConfirmed, Pool: final}, nil).Once()

		res, err := f.svc.Process(cctx, 1)
		require.NoError(t, err)
		require.NoError(t, submitErr)
		require.Equal(t, application.OutcomeSettled, res.Outcome)
	})
}

func TestAttemptOutcome(t *testing.T) {
	testCases := []struct {
		outcome  application.AttemptOutcome
		str      string
		terminal bool
	}{
		{application.OutcomePending, "pending", false},
		{application.OutcomeSettled, "settled", true},
		{application.OutcomeCancelled, "cancelled", true},
		{application.OutcomeAlreadyFinal, "already_final", true},
		{application.OutcomeAwaitingAdmin, "awaiting_admin", false},
	}
	for _, tc := range testCases {
		require.Equal(t, tc.str, tc.outcome.String())
		require.Equal(t, tc.terminal, tc.outcome.IsTerminal())
	}
}
