package application_test

import (
	"context"
	"sync"

	"github.com/ark-network/wager/internal/core/domain"
	"github.com/ark-network/wager/internal/core/ports"
	"github.com/stretchr/testify/mock"
)

type mockedLedger struct {
	mock.Mock
}

func (m *mockedLedger) FetchPool(ctx context.Context, id uint64) (*domain.Pool, error) {
	args := m.Called(ctx, id)

	var res *domain.Pool
	if a := args.Get(0); a != nil {
		res = a.(*domain.Pool)
	}
	return res, args.Error(1)
}

func (m *mockedLedger) FetchAllOpenPools(ctx context.Context) ([]*domain.Pool, error) {
	args := m.Called(ctx)

	var res []*domain.Pool
	if a := args.Get(0); a != nil {
		res = a.([]*domain.Pool)
	}
	return res, args.Error(1)
}

func (m *mockedLedger) FetchPools(
	ctx context.Context, createdAfter, createdBefore int64,
) ([]*domain.Pool, error) {
	args := m.Called(ctx, createdAfter, createdBefore)

	var res []*domain.Pool
	if a := args.Get(0); a != nil {
		res = a.([]*domain.Pool)
	}
	return res, args.Error(1)
}

func (m *mockedLedger) FetchFeeConfig(ctx context.Context) (*domain.FeeConfig, error) {
	args := m.Called(ctx)

	var res *domain.FeeConfig
	if a := args.Get(0); a != nil {
		res = a.(*domain.FeeConfig)
	}
	return res, args.Error(1)
}

func (m *mockedLedger) SubmitCreation(
	ctx context.Context, creator string, params domain.PoolParams,
) (*ports.TxResult, error) {
	args := m.Called(ctx, creator, params)
	return txResult(args)
}

func (m *mockedLedger) SubmitBet(
	ctx context.Context, id uint64, participant string, option int, amount uint64,
) (*ports.TxResult, error) {
	args := m.Called(ctx, id, participant, option, amount)
	return txResult(args)
}

func (m *mockedLedger) SubmitSettlement(
	ctx context.Context, id uint64, resolver string, price domain.Price,
) (*ports.TxResult, error) {
	args := m.Called(ctx, id, resolver, price)
	return txResult(args)
}

func (m *mockedLedger) SubmitProposal(
	ctx context.Context, id uint64, proposer string, option int,
) (*ports.TxResult, error) {
	args := m.Called(ctx, id, proposer, option)
	return txResult(args)
}

func (m *mockedLedger) SubmitChallenge(
	ctx context.Context, id uint64, challenger string,
) (*ports.TxResult, error) {
	args := m.Called(ctx, id, challenger)
	return txResult(args)
}

func (m *mockedLedger) SubmitFinalization(
	ctx context.Context, id uint64, caller string,
) (*ports.TxResult, error) {
	args := m.Called(ctx, id, caller)
	return txResult(args)
}

func (m *mockedLedger) SubmitDisputeResolution(
	ctx context.Context, id uint64, signer string, option int,
) (*ports.TxResult, error) {
	args := m.Called(ctx, id, signer, option)
	return txResult(args)
}

func (m *mockedLedger) SubmitCancellation(
	ctx context.Context, id uint64, signer string, reason domain.CancelReason,
) (*ports.TxResult, error) {
	args := m.Called(ctx, id, signer, reason)
	return txResult(args)
}

func (m *mockedLedger) SubmitClaim(
	ctx context.Context, id uint64, participant string,
) (*ports.TxResult, error) {
	args := m.Called(ctx, id, participant)
	return txResult(args)
}

func (m *mockedLedger) SubmitRefund(
	ctx context.Context, id uint64, participant string,
) (*ports.TxResult, error) {
	args := m.Called(ctx, id, participant)
	return txResult(args)
}

func (m *mockedLedger) SubmitFeeConfig(
	ctx context.Context, signer string, update domain.FeeUpdate,
) (*ports.TxResult, error) {
	args := m.Called(ctx, signer, update)
	return txResult(args)
}

func (m *mockedLedger) SubmitAdmin(
	ctx context.Context, signer, newAdmin string,
) (*ports.TxResult, error) {
	args := m.Called(ctx, signer, newAdmin)
	return txResult(args)
}

func (m *mockedLedger) Close() {
	m.Called()
}

func txResult(args mock.Arguments) (*ports.TxResult, error) {
	var res *ports.TxResult
	if a := args.Get(0); a != nil {
		res = a.(*ports.TxResult)
	}
	return res, args.Error(1)
}

type mockedOracle struct {
	mock.Mock
}

func (m *mockedOracle) GetPrice(ctx context.Context, asset string) (domain.Price, error) {
	args := m.Called(ctx, asset)

	var res domain.Price
	if a := args.Get(0); a != nil {
		res = a.(domain.Price)
	}
	return res, args.Error(1)
}

func (m *mockedOracle) Close() {
	m.Called()
}

type mockedArchive struct {
	mock.Mock
}

func (m *mockedArchive) Store(ctx context.Context, receipt ports.SettlementReceipt) error {
	args := m.Called(ctx, receipt)
	return args.Error(0)
}

// manualScheduler runs tasks only when asked to, at a clock set by the test.
type manualScheduler struct {
	lock    sync.Mutex
	now     int64
	tasks   map[int64][]func()
	stopped bool
}

func newManualScheduler(now int64) *manualScheduler {
	return &manualScheduler{now: now, tasks: make(map[int64][]func())}
}

func (s *manualScheduler) Start() {}

func (s *manualScheduler) Stop() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.stopped = true
	s.tasks = make(map[int64][]func())
}

func (s *manualScheduler) Now() int64 {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.now
}

func (s *manualScheduler) AfterNow(at int64) bool {
	return at > s.Now()
}

func (s *manualScheduler) ScheduleTaskOnce(at int64, task func()) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.tasks[at] = append(s.tasks[at], task)
	return nil
}

func (s *manualScheduler) pending() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	count := 0
	for _, tasks := range s.tasks {
		count += len(tasks)
	}
	return count
}

// advance moves the clock to now and runs every task due by then.
func (s *manualScheduler) advance(now int64) {
	s.lock.Lock()
	s.now = now
	due := make([]func(), 0)
	for at, tasks := range s.tasks {
		if at <= now {
			due = append(due, tasks...)
			delete(s.tasks, at)
		}
	}
	s.lock.Unlock()

	for _, task := range due {
		task()
	}
}
