package application_test

import (
	"context"
	"testing"
	"time"

	"github.com/ark-network/wager/internal/core/application"
	"github.com/ark-network/wager/internal/core/domain"
	"github.com/ark-network/wager/internal/infrastructure/db"
	embeddedledger "github.com/ark-network/wager/internal/infrastructure/ledger/embedded"
	inmemorylocker "github.com/ark-network/wager/internal/infrastructure/locker/inmemory"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type serviceFixture struct {
	scheduler *manualScheduler
	oracle    *mockedOracle
	svc       application.Service
	adminSvc  application.AdminService
}

func newServiceFixture(t *testing.T) *serviceFixture {
	repoManager, err := db.NewService(db.ServiceConfig{
		EventStoreType:   "badger",
		DataStoreType:    "badger",
		EventStoreConfig: []interface{}{"", nil},
		DataStoreConfig:  []interface{}{"", nil},
	})
	require.NoError(t, err)

	scheduler := newManualScheduler(now)
	bootstrap := *fees
	bootstrap.NextPoolId = 1
	ledger, err := embeddedledger.NewLedger(repoManager, nil, embeddedledger.Config{
		AbandonGracePeriod: abandonGrace,
		Bootstrap:          &bootstrap,
		Clock:              scheduler.Now,
	})
	require.NoError(t, err)

	oracle := &mockedOracle{}
	coordinator := application.NewSettlementCoordinator(
		ledger, oracle, inmemorylocker.NewLocker(), nil, scheduler,
		application.CoordinatorConfig{
			Resolver:           resolver,
			MaxRetries:         1,
			RetryInterval:      time.Millisecond,
			AbandonGracePeriod: abandonGrace,
		},
	)
	expiry := application.NewExpiryScheduler(ledger, scheduler, coordinator, "")

	f := &serviceFixture{
		scheduler: scheduler,
		oracle:    oracle,
		svc:       application.NewService(ledger, nil, expiry),
		adminSvc:  application.NewAdminService(ledger, expiry),
	}
	require.NoError(t, f.svc.Start())
	t.Cleanup(f.svc.Stop)
	return f
}

func binaryParams() domain.PoolParams {
	return domain.PoolParams{
		Kind:      domain.BinaryKind,
		Question:  "BTC above 60k?",
		Asset:     "BTC",
		Threshold: 60_000_000_000,
		Deadline:  deadline,
	}
}

func TestServiceBinaryLifecycle(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	pool, err := f.svc.CreatePool(ctx, "creator", binaryParams())
	require.NoError(t, err)
	require.Equal(t, uint64(1), pool.Id)
	require.Equal(t, fees.CreationFee, pool.CreationFee)

	listed, err := f.svc.ListPools(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.Equal(t, domain.PhaseOpen, listed[0].Phase)
	listed, err = f.svc.ListPools(ctx, now, 0)
	require.NoError(t, err)
	require.Empty(t, listed)

	info, err := f.svc.GetInfo(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(2), info.FeeConfig.NextPoolId)
	require.Equal(t, 1, info.TrackedPools)

	receipt, err := f.svc.PlaceBet(ctx, 1, "alice", 1, 10_000_000)
	require.NoError(t, err)
	require.Equal(t, uint64(50_000), receipt.JoinFee)
	require.Equal(t, uint64(10_000_000), receipt.Position.Amount)

	_, err = f.svc.PlaceBet(ctx, 1, "bob", 0, 30_000_000)
	require.NoError(t, err)

	_, err = f.svc.PlaceBet(ctx, 1, "bob", 1, 30_000_000)
	require.ErrorIs(t, err, domain.ErrOptionMismatch)
	_, err = f.svc.PlaceBet(ctx, 1, "carol", 0, 1)
	require.ErrorIs(t, err, domain.ErrStakeTooSmall)
	_, err = f.svc.PlaceBet(ctx, 9, "carol", 0, 10_000_000)
	require.ErrorIs(t, err, domain.ErrPoolNotFound)

	_, err = f.svc.GetSettlementReport(ctx, 1)
	require.ErrorIs(t, err, domain.ErrPoolNotSettled)

	f.oracle.On("GetPrice", mock.Anything, "BTC").Return(price, nil)
	f.scheduler.advance(deadline + 10)

	pool, err = f.svc.GetPool(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, domain.PhaseSettled, pool.Phase)
	require.Equal(t, domain.SideUpper, pool.Outcome)
	require.Equal(t, uint64(800_000), pool.SettlementFee)
	require.Equal(t, uint64(39_200_000), pool.Distributable)

	_, err = f.svc.PlaceBet(ctx, 1, "carol", 0, 10_000_000)
	require.ErrorIs(t, err, domain.ErrPoolNotOpen)

	listed, err = f.svc.ListPools(ctx, 0, deadline)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.Equal(t, domain.PhaseSettled, listed[0].Phase)
	require.Equal(t, uint64(39_200_000), listed[0].Distributable)

	_, err = f.svc.Claim(ctx, 1, "bob")
	require.ErrorIs(t, err, domain.ErrNotWinner)

	claim, err := f.svc.Claim(ctx, 1, "alice")
	require.NoError(t, err)
	require.Equal(t, uint64(38_808_000), claim.Amount)
	require.Equal(t, uint64(392_000), claim.Fee)

	_, err = f.svc.Claim(ctx, 1, "alice")
	require.ErrorIs(t, err, domain.ErrAlreadyClaimed)

	report, err := f.svc.GetSettlementReport(ctx, 1)
	require.NoError(t, err)
	require.Len(t, report.Payouts.Payouts, 1)
	require.Equal(t, uint64(38_808_000), report.Payouts.TotalNet)
	require.Zero(t, report.Payouts.Dust)

	scheduled, err := f.adminSvc.GetScheduledPools(ctx)
	require.NoError(t, err)
	require.Empty(t, scheduled)
}

func TestServiceMarketLifecycle(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	pool, err := f.svc.CreatePool(ctx, "creator", domain.PoolParams{
		Kind:            domain.MarketKind,
		Question:        "Who wins?",
		Options:         []string{"red", "blue"},
		StakeAmount:     500_000_000,
		Deadline:        deadline,
		ResolveTime:     resolveTime,
		ChallengeWindow: 600,
	})
	require.NoError(t, err)

	for participant, option := range map[string]int{"alice": 0, "bob": 1, "carol": 1} {
		_, err := f.svc.PlaceBet(ctx, pool.Id, participant, option, 0)
		require.NoError(t, err)
	}
	_, err = f.svc.PlaceBet(ctx, pool.Id, "dave", 0, 1)
	require.ErrorIs(t, err, domain.ErrInvalidAmount)

	f.scheduler.advance(resolveTime)

	_, err = f.svc.ProposeOutcome(ctx, pool.Id, "mallory", 0)
	require.ErrorIs(t, err, domain.ErrNotParticipant)

	pool, err = f.svc.ProposeOutcome(ctx, pool.Id, "alice", 0)
	require.NoError(t, err)
	require.Equal(t, domain.PhaseProposed, pool.Phase)

	_, err = f.svc.Challenge(ctx, pool.Id, "alice")
	require.ErrorIs(t, err, domain.ErrSelfChallenge)

	pool, err = f.svc.Challenge(ctx, pool.Id, "bob")
	require.NoError(t, err)
	require.Equal(t, domain.PhaseDisputed, pool.Phase)

	scheduled, err := f.adminSvc.GetScheduledPools(ctx)
	require.NoError(t, err)
	require.Len(t, scheduled, 1)
	require.Zero(t, scheduled[0].Deadline)

	_, err = f.adminSvc.ResolveDispute(ctx, "bob", pool.Id, 1)
	require.ErrorIs(t, err, domain.ErrNotAdmin)

	pool, err = f.adminSvc.ResolveDispute(ctx, admin, pool.Id, 1)
	require.NoError(t, err)
	require.Equal(t, domain.PhaseSettled, pool.Phase)
	require.True(t, pool.ByAdmin)

	// three stakes of 500M, 2% settle fee, two equal winning stakes
	claim, err := f.svc.Claim(ctx, pool.Id, "carol")
	require.NoError(t, err)
	require.Equal(t, uint64(735_000_000), claim.Amount+claim.Fee)

	scheduled, err = f.adminSvc.GetScheduledPools(ctx)
	require.NoError(t, err)
	require.Empty(t, scheduled)
}

func TestAdminService(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	pool, err := f.svc.CreatePool(ctx, "creator", binaryParams())
	require.NoError(t, err)
	_, err = f.svc.PlaceBet(ctx, pool.Id, "alice", 1, 10_000_000)
	require.NoError(t, err)

	t.Run("cancel", func(t *testing.T) {
		_, err := f.adminSvc.CancelPool(ctx, "alice", pool.Id)
		require.ErrorIs(t, err, domain.ErrNotAdmin)

		_, err = f.svc.Refund(ctx, pool.Id, "alice")
		require.ErrorIs(t, err, domain.ErrPoolNotCancelled)

		cancelled, err := f.adminSvc.CancelPool(ctx, admin, pool.Id)
		require.NoError(t, err)
		require.Equal(t, domain.PhaseCancelled, cancelled.Phase)
		require.Equal(t, domain.CancelByAdmin, cancelled.CancelReason)

		_, err = f.adminSvc.CancelPool(ctx, admin, pool.Id)
		require.ErrorIs(t, err, domain.ErrAlreadyCancelled)

		refund, err := f.svc.Refund(ctx, pool.Id, "alice")
		require.NoError(t, err)
		require.Equal(t, uint64(10_000_000), refund.Amount)

		_, err = f.svc.Refund(ctx, pool.Id, "alice")
		require.ErrorIs(t, err, domain.ErrAlreadyClaimed)
	})

	t.Run("trigger on final pool", func(t *testing.T) {
		_, err := f.adminSvc.TriggerSettlement(ctx, "alice", pool.Id)
		require.ErrorIs(t, err, domain.ErrNotAdmin)

		res, err := f.adminSvc.TriggerSettlement(ctx, admin, pool.Id)
		require.NoError(t, err)
		require.Equal(t, application.OutcomeAlreadyFinal, res.Outcome)
	})

	t.Run("fee config", func(t *testing.T) {
		bps := uint16(300)
		_, err := f.adminSvc.UpdateFeeConfig(ctx, "alice", domain.FeeUpdate{SettleFeeBps: &bps})
		require.ErrorIs(t, err, domain.ErrNotAdmin)

		updated, err := f.adminSvc.UpdateFeeConfig(ctx, admin, domain.FeeUpdate{SettleFeeBps: &bps})
		require.NoError(t, err)
		require.Equal(t, bps, updated.SettleFeeBps)
		require.Equal(t, fees.JoinFeeBps, updated.JoinFeeBps)

		invalid := uint16(domain.BasisPoints + 1)
		_, err = f.adminSvc.UpdateFeeConfig(ctx, admin, domain.FeeUpdate{JoinFeeBps: &invalid})
		require.ErrorIs(t, err, domain.ErrInvalidFeeRate)

		_, err = f.adminSvc.SetAdmin(ctx, admin, "")
		require.ErrorIs(t, err, domain.ErrInvalidAdmin)

		changed, err := f.adminSvc.SetAdmin(ctx, admin, "new-admin")
		require.NoError(t, err)
		require.Equal(t, "new-admin", changed.Admin)

		current, err := f.adminSvc.GetFeeConfig(ctx)
		require.NoError(t, err)
		require.Equal(t, "new-admin", current.Admin)
		require.Equal(t, bps, current.SettleFeeBps)

		_, err = f.adminSvc.SetAdmin(ctx, admin, "someone")
		require.ErrorIs(t, err, domain.ErrNotAdmin)
	})
}
