package application

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/ark-network/wager/internal/core/domain"
	"github.com/ark-network/wager/internal/core/ports"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

var errSchedulerStopped = errors.New("expiry scheduler stopped")

// ExpiryScheduler keeps one deferred action per tracked pool and hands it to
// the coordinator when due. Pools are forgotten only once they reach a
// terminal outcome, failed attempts are retried by the next reconcile pass.
type ExpiryScheduler struct {
	ledger      ports.LedgerGateway
	scheduler   ports.SchedulerService
	coordinator *SettlementCoordinator
	registry    *poolRegistry

	abandonGrace      int64
	reconcileSchedule string
	cron              *cron.Cron

	group singleflight.Group
	// lock guards stopped and every wg.Add, so that no attempt can start
	// once Stop is waiting.
	lock    sync.Mutex
	stopped bool
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewExpiryScheduler(
	ledger ports.LedgerGateway, scheduler ports.SchedulerService,
	coordinator *SettlementCoordinator, reconcileSchedule string,
) *ExpiryScheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &ExpiryScheduler{
		ledger:            ledger,
		scheduler:         scheduler,
		coordinator:       coordinator,
		registry:          newPoolRegistry(),
		abandonGrace:      coordinator.cfg.AbandonGracePeriod,
		reconcileSchedule: reconcileSchedule,
		ctx:               ctx,
		cancel:            cancel,
	}
}

// Start arms the scheduler, runs a first reconcile pass to pick up pools
// whose deadline passed while stopped, then reconciles periodically.
func (s *ExpiryScheduler) Start() error {
	s.scheduler.Start()

	if err := s.Reconcile(s.ctx); err != nil {
		return fmt.Errorf("initial reconcile failed: %w", err)
	}

	if s.reconcileSchedule != "" {
		s.cron = cron.New()
		if _, err := s.cron.AddFunc(s.reconcileSchedule, func() {
			if err := s.Reconcile(s.ctx); err != nil {
				log.WithError(err).Warn("reconcile failed")
			}
		}); err != nil {
			return fmt.Errorf("invalid reconcile schedule: %w", err)
		}
		s.cron.Start()
	}
	return nil
}

// Stop drops every pending action and waits for in-flight attempts to
// return. Their retries are cut short, but a ledger submission already sent
// is awaited until it gives a definite result.
func (s *ExpiryScheduler) Stop() {
	s.lock.Lock()
	s.stopped = true
	s.lock.Unlock()

	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
	s.scheduler.Stop()
	s.cancel()
	s.wg.Wait()
}

func (s *ExpiryScheduler) Now() int64 {
	return s.scheduler.Now()
}

// Track schedules the pool's action at deadline, or immediately if the
// deadline has passed. Tracking the same pool and deadline twice is a no-op.
func (s *ExpiryScheduler) Track(poolId uint64, deadline int64) error {
	return s.track(poolId, deadline, domain.PhaseOpen)
}

// TrackPool tracks the next automatic action of pool, if any.
func (s *ExpiryScheduler) TrackPool(pool *domain.Pool) error {
	if pool.IsTerminal() {
		s.registry.remove(pool.Id)
		return nil
	}
	at, ok := pool.NextActionTime(s.abandonGrace)
	if !ok {
		s.registry.track(pool.Id, 0, pool.Phase)
		log.Debugf("pool %d is %s, waiting for the administrator", pool.Id, pool.Phase)
		return nil
	}
	return s.track(pool.Id, at, pool.Phase)
}

func (s *ExpiryScheduler) OnCreatedEvent(event ports.CreationEvent) {
	if err := s.Track(event.PoolId, event.Deadline); err != nil {
		log.WithError(err).Warnf("failed to track new pool %d", event.PoolId)
	}
}

// Reconcile tracks every pool still open on the ledger, covering missed
// creation events and re-arming pools whose last attempt failed.
func (s *ExpiryScheduler) Reconcile(ctx context.Context) error {
	pools, err := s.ledger.FetchAllOpenPools(ctx)
	if err != nil {
		return err
	}

	open := make(map[uint64]struct{}, len(pools))
	for _, pool := range pools {
		open[pool.Id] = struct{}{}
		if err := s.TrackPool(pool); err != nil {
			log.WithError(err).Warnf("failed to track pool %d", pool.Id)
		}
	}
	if removed := s.registry.prune(open); len(removed) > 0 {
		log.Debugf("dropped %d pools no longer open: %v", len(removed), removed)
	}
	return nil
}

// Trigger runs an attempt for the pool right away, sharing the result with
// any attempt already running for it.
func (s *ExpiryScheduler) Trigger(ctx context.Context, poolId uint64) (*AttemptResult, error) {
	ch := s.group.DoChan(strconv.FormatUint(poolId, 10), func() (interface{}, error) {
		return s.attempt(poolId)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*AttemptResult), nil
	}
}

func (s *ExpiryScheduler) ScheduledPools() []TrackedPool {
	return s.registry.list()
}

func (s *ExpiryScheduler) IsTracked(poolId uint64) bool {
	_, ok := s.registry.get(poolId)
	return ok
}

func (s *ExpiryScheduler) track(poolId uint64, deadline int64, phase domain.Phase) error {
	if s.ctx.Err() != nil {
		return nil
	}
	if !s.registry.track(poolId, deadline, phase) {
		return nil
	}

	if err := s.scheduler.ScheduleTaskOnce(deadline, s.createTask(poolId, deadline)); err != nil {
		s.registry.unschedule(poolId)
		return err
	}

	log.Debugf(
		"scheduled action for pool %d at %s", poolId,
		time.Unix(deadline, 0).Format("2006-01-02 15:04:05"),
	)
	return nil
}

func (s *ExpiryScheduler) createTask(poolId uint64, deadline int64) func() {
	return func() {
		if s.ctx.Err() != nil {
			return
		}
		if !s.registry.fire(poolId, deadline) {
			log.Debugf("skipping stale action for pool %d", poolId)
			return
		}

		if _, err := s.Trigger(s.ctx, poolId); err != nil {
			log.WithError(err).WithField("pool", poolId).Warn("settlement attempt failed, pool stays tracked")
		}
	}
}

// enter registers an attempt with Stop, unless Stop already started.
func (s *ExpiryScheduler) enter() bool {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.stopped {
		return false
	}
	s.wg.Add(1)
	return true
}

func (s *ExpiryScheduler) attempt(poolId uint64) (*AttemptResult, error) {
	if !s.enter() {
		return nil, errSchedulerStopped
	}
	defer s.wg.Done()

	s.registry.begin(poolId)
	result, err := s.coordinator.Process(s.ctx, poolId)
	s.registry.finish(poolId, err)
	if err != nil {
		return nil, err
	}

	log.WithField("pool", poolId).Debugf("attempt outcome: %s", result.Outcome)

	if result.Outcome.IsTerminal() {
		s.registry.remove(poolId)
		return result, nil
	}
	if err := s.TrackPool(result.Pool); err != nil {
		log.WithError(err).Warnf("failed to reschedule pool %d", poolId)
	}
	return result, nil
}
