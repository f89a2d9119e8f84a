package application

import (
	"context"
	"fmt"

	"github.com/ark-network/wager/internal/core/domain"
	"github.com/ark-network/wager/internal/core/ports"
	log "github.com/sirupsen/logrus"
)

type service struct {
	ledger ports.LedgerGateway
	feed   ports.CreationFeed
	expiry *ExpiryScheduler

	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	listening bool
}

func NewService(
	ledger ports.LedgerGateway, feed ports.CreationFeed, expiry *ExpiryScheduler,
) Service {
	ctx, cancel := context.WithCancel(context.Background())
	return &service{
		ledger: ledger,
		feed:   feed,
		expiry: expiry,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

func (s *service) Start() error {
	if err := s.expiry.Start(); err != nil {
		return err
	}
	if s.feed == nil {
		return nil
	}

	events, err := s.feed.Subscribe(s.ctx)
	if err != nil {
		return fmt.Errorf("failed to subscribe to creation feed: %w", err)
	}
	s.listening = true
	go s.listenToCreations(events)
	return nil
}

func (s *service) Stop() {
	s.cancel()
	if s.feed != nil {
		if err := s.feed.Close(); err != nil {
			log.WithError(err).Warn("failed to close creation feed")
		}
	}
	if s.listening {
		<-s.done
	}
	s.expiry.Stop()
	s.ledger.Close()
	log.Debug("closed ledger gateway")
}

func (s *service) CreatePool(
	ctx context.Context, creator string, params domain.PoolParams,
) (*domain.Pool, error) {
	fees, err := s.ledger.FetchFeeConfig(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := domain.NewPool(fees.NextPoolId, creator, params, fees.CreationFee, s.expiry.Now()); err != nil {
		return nil, err
	}

	res, err := s.ledger.SubmitCreation(ctx, creator, params)
	if err != nil {
		return nil, err
	}
	log.Infof("created %s", res.Pool)

	s.track(res.Pool)
	return res.Pool, nil
}

func (s *service) PlaceBet(
	ctx context.Context, poolId uint64, participant string, option int, amount uint64,
) (*BetReceipt, error) {
	if err := s.dryRun(ctx, poolId, func(p *domain.Pool, fees domain.FeeConfig, now int64) error {
		_, err := p.PlaceBet(participant, option, amount, fees.JoinFeeBps, now)
		return err
	}); err != nil {
		return nil, err
	}

	res, err := s.ledger.SubmitBet(ctx, poolId, participant, option, amount)
	if err != nil {
		return nil, err
	}
	receipt := &BetReceipt{
		PoolId:      poolId,
		Participant: participant,
		Txid:        res.Txid,
		Option:      option,
		Amount:      res.Amount,
		JoinFee:     res.Fee,
	}
	if pos, ok := res.Pool.Position(participant); ok {
		receipt.Position = *pos
	}
	return receipt, nil
}

func (s *service) ProposeOutcome(
	ctx context.Context, poolId uint64, proposer string, option int,
) (*domain.Pool, error) {
	if err := s.dryRun(ctx, poolId, func(p *domain.Pool, _ domain.FeeConfig, now int64) error {
		_, err := p.ProposeOutcome(proposer, option, now)
		return err
	}); err != nil {
		return nil, err
	}

	res, err := s.ledger.SubmitProposal(ctx, poolId, proposer, option)
	if err != nil {
		return nil, err
	}
	log.Infof("outcome %d proposed for market %d, challenge window ends at %d", option, poolId, res.Pool.ChallengeEndTime)

	s.track(res.Pool)
	return res.Pool, nil
}

func (s *service) Challenge(
	ctx context.Context, poolId uint64, challenger string,
) (*domain.Pool, error) {
	if err := s.dryRun(ctx, poolId, func(p *domain.Pool, _ domain.FeeConfig, now int64) error {
		_, err := p.Challenge(challenger, now)
		return err
	}); err != nil {
		return nil, err
	}

	res, err := s.ledger.SubmitChallenge(ctx, poolId, challenger)
	if err != nil {
		return nil, err
	}
	log.Infof("market %d disputed", poolId)

	s.track(res.Pool)
	return res.Pool, nil
}

func (s *service) Finalize(
	ctx context.Context, poolId uint64, caller string,
) (*domain.Pool, error) {
	if err := s.dryRun(ctx, poolId, func(p *domain.Pool, fees domain.FeeConfig, now int64) error {
		_, err := p.Finalize(caller, fees, now)
		return err
	}); err != nil {
		return nil, err
	}

	res, err := s.ledger.SubmitFinalization(ctx, poolId, caller)
	if err != nil {
		return nil, err
	}

	s.track(res.Pool)
	return res.Pool, nil
}

func (s *service) Claim(
	ctx context.Context, poolId uint64, participant string,
) (*ClaimReceipt, error) {
	if err := s.dryRun(ctx, poolId, func(p *domain.Pool, fees domain.FeeConfig, now int64) error {
		_, err := p.Claim(participant, fees.ClearingFeeBps, now)
		return err
	}); err != nil {
		return nil, err
	}

	res, err := s.ledger.SubmitClaim(ctx, poolId, participant)
	if err != nil {
		return nil, err
	}
	return &ClaimReceipt{
		PoolId:      poolId,
		Participant: participant,
		Txid:        res.Txid,
		Amount:      res.Amount,
		Fee:         res.Fee,
	}, nil
}

func (s *service) Refund(
	ctx context.Context, poolId uint64, participant string,
) (*ClaimReceipt, error) {
	if err := s.dryRun(ctx, poolId, func(p *domain.Pool, _ domain.FeeConfig, now int64) error {
		_, err := p.Refund(participant, now)
		return err
	}); err != nil {
		return nil, err
	}

	res, err := s.ledger.SubmitRefund(ctx, poolId, participant)
	if err != nil {
		return nil, err
	}
	return &ClaimReceipt{
		PoolId:      poolId,
		Participant: participant,
		Txid:        res.Txid,
		Amount:      res.Amount,
	}, nil
}

func (s *service) GetPool(ctx context.Context, poolId uint64) (*domain.Pool, error) {
	return s.ledger.FetchPool(ctx, poolId)
}

// ListPools returns the pools created within the given bounds, a zero bound
// being open.
func (s *service) ListPools(
	ctx context.Context, createdAfter, createdBefore int64,
) ([]*domain.Pool, error) {
	return s.ledger.FetchPools(ctx, createdAfter, createdBefore)
}

func (s *service) GetSettlementReport(
	ctx context.Context, poolId uint64,
) (*SettlementReport, error) {
	pool, err := s.ledger.FetchPool(ctx, poolId)
	if err != nil {
		return nil, err
	}
	fees, err := s.ledger.FetchFeeConfig(ctx)
	if err != nil {
		return nil, err
	}

	result, err := pool.Settlement()
	if err != nil {
		return nil, err
	}
	table, err := domain.ComputePayoutTable(result, pool.Positions, fees.ClearingFeeBps)
	if err != nil {
		return nil, err
	}
	return &SettlementReport{Pool: pool, Result: result, Payouts: table}, nil
}

func (s *service) GetInfo(ctx context.Context) (*ServiceInfo, error) {
	fees, err := s.ledger.FetchFeeConfig(ctx)
	if err != nil {
		return nil, err
	}
	return &ServiceInfo{
		FeeConfig:    *fees,
		MinStake:     domain.MinStakeAmount,
		MaxOptions:   domain.MaxOptions,
		TrackedPools: len(s.expiry.ScheduledPools()),
	}, nil
}

// dryRun applies op to a copy of the current pool so that invalid requests
// are rejected with a specific error before reaching the ledger.
func (s *service) dryRun(
	ctx context.Context, poolId uint64,
	op func(p *domain.Pool, fees domain.FeeConfig, now int64) error,
) error {
	pool, err := s.ledger.FetchPool(ctx, poolId)
	if err != nil {
		return err
	}
	fees, err := s.ledger.FetchFeeConfig(ctx)
	if err != nil {
		return err
	}
	return op(pool.Clone(), *fees, s.expiry.Now())
}

func (s *service) track(pool *domain.Pool) {
	if pool == nil {
		return
	}
	if err := s.expiry.TrackPool(pool); err != nil {
		log.WithError(err).Warnf("failed to track pool %d", pool.Id)
	}
}

func (s *service) listenToCreations(events <-chan ports.CreationEvent) {
	defer close(s.done)
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("recovered from panic in creation listener: %v", r)
		}
	}()

	for event := range events {
		log.Debugf("received creation of pool %d", event.PoolId)
		s.expiry.OnCreatedEvent(event)
	}
}
