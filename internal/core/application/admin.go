package application

import (
	"context"

	"github.com/ark-network/wager/internal/core/domain"
	"github.com/ark-network/wager/internal/core/ports"
	log "github.com/sirupsen/logrus"
)

type adminService struct {
	ledger ports.LedgerGateway
	expiry *ExpiryScheduler
}

func NewAdminService(ledger ports.LedgerGateway, expiry *ExpiryScheduler) AdminService {
	return &adminService{ledger, expiry}
}

func (a *adminService) ResolveDispute(
	ctx context.Context, signer string, poolId uint64, option int,
) (*domain.Pool, error) {
	fees, err := a.authorize(ctx, signer)
	if err != nil {
		return nil, err
	}
	pool, err := a.ledger.FetchPool(ctx, poolId)
	if err != nil {
		return nil, err
	}
	if _, err := pool.Clone().ResolveDispute(signer, option, *fees, a.expiry.Now()); err != nil {
		return nil, err
	}

	res, err := a.ledger.SubmitDisputeResolution(ctx, poolId, signer, option)
	if err != nil {
		return nil, err
	}
	if res.Status == ports.TxAlreadySettled {
		a.untrack(res.Pool)
		return nil, alreadyFinal(res.Pool)
	}
	log.Infof("dispute on market %d resolved with option %d", poolId, option)

	a.untrack(res.Pool)
	return res.Pool, nil
}

func (a *adminService) CancelPool(
	ctx context.Context, signer string, poolId uint64,
) (*domain.Pool, error) {
	fees, err := a.authorize(ctx, signer)
	if err != nil {
		return nil, err
	}
	pool, err := a.ledger.FetchPool(ctx, poolId)
	if err != nil {
		return nil, err
	}
	if _, err := pool.Clone().Cancel(signer, *fees, a.expiry.Now()); err != nil {
		return nil, err
	}

	res, err := a.ledger.SubmitCancellation(ctx, poolId, signer, domain.CancelByAdmin)
	if err != nil {
		return nil, err
	}
	if res.Status == ports.TxAlreadySettled {
		a.untrack(res.Pool)
		return nil, alreadyFinal(res.Pool)
	}
	log.Infof("pool %d cancelled by administrator", poolId)

	a.untrack(res.Pool)
	return res.Pool, nil
}

func (a *adminService) SetAdmin(
	ctx context.Context, signer, newAdmin string,
) (*domain.FeeConfig, error) {
	fees, err := a.authorize(ctx, signer)
	if err != nil {
		return nil, err
	}
	if err := fees.SetAdmin(signer, newAdmin, a.expiry.Now()); err != nil {
		return nil, err
	}

	res, err := a.ledger.SubmitAdmin(ctx, signer, newAdmin)
	if err != nil {
		return nil, err
	}
	log.Infof("administrator changed to %s", newAdmin)
	return res.FeeConfig, nil
}

func (a *adminService) UpdateFeeConfig(
	ctx context.Context, signer string, update domain.FeeUpdate,
) (*domain.FeeConfig, error) {
	fees, err := a.authorize(ctx, signer)
	if err != nil {
		return nil, err
	}
	if err := fees.Update(signer, update, a.expiry.Now()); err != nil {
		return nil, err
	}

	res, err := a.ledger.SubmitFeeConfig(ctx, signer, update)
	if err != nil {
		return nil, err
	}
	log.Info("fee config updated")
	return res.FeeConfig, nil
}

func (a *adminService) GetFeeConfig(ctx context.Context) (*domain.FeeConfig, error) {
	return a.ledger.FetchFeeConfig(ctx)
}

func (a *adminService) GetScheduledPools(_ context.Context) ([]TrackedPool, error) {
	return a.expiry.ScheduledPools(), nil
}

func (a *adminService) TriggerSettlement(
	ctx context.Context, signer string, poolId uint64,
) (*AttemptResult, error) {
	if _, err := a.authorize(ctx, signer); err != nil {
		return nil, err
	}
	return a.expiry.Trigger(ctx, poolId)
}

func (a *adminService) authorize(ctx context.Context, signer string) (*domain.FeeConfig, error) {
	fees, err := a.ledger.FetchFeeConfig(ctx)
	if err != nil {
		return nil, err
	}
	if !fees.IsAdmin(signer) {
		return nil, domain.ErrNotAdmin
	}
	return fees, nil
}

func (a *adminService) untrack(pool *domain.Pool) {
	if pool == nil {
		return
	}
	if err := a.expiry.TrackPool(pool); err != nil {
		log.WithError(err).Warnf("failed to update tracking of pool %d", pool.Id)
	}
}

// alreadyFinal is the error for a submission that found the pool already in
// a terminal phase.
func alreadyFinal(pool *domain.Pool) error {
	if pool != nil && pool.Phase == domain.PhaseCancelled {
		return domain.ErrAlreadyCancelled
	}
	return domain.ErrAlreadySettled
}
