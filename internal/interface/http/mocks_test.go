package httpservice

import (
	"context"

	"github.com/ark-network/wager/internal/core/application"
	"github.com/ark-network/wager/internal/core/domain"
	"github.com/stretchr/testify/mock"
)

type mockAppService struct {
	mock.Mock
}

func (m *mockAppService) Start() error { return m.Called().Error(0) }
func (m *mockAppService) Stop()        { m.Called() }

func (m *mockAppService) CreatePool(
	ctx context.Context, creator string, params domain.PoolParams,
) (*domain.Pool, error) {
	args := m.Called(ctx, creator, params)
	pool, _ := args.Get(0).(*domain.Pool)
	return pool, args.Error(1)
}

func (m *mockAppService) PlaceBet(
	ctx context.Context, poolId uint64, participant string, option int, amount uint64,
) (*application.BetReceipt, error) {
	args := m.Called(ctx, poolId, participant, option, amount)
	receipt, _ := args.Get(0).(*application.BetReceipt)
	return receipt, args.Error(1)
}

func (m *mockAppService) ProposeOutcome(
	ctx context.Context, poolId uint64, proposer string, option int,
) (*domain.Pool, error) {
	args := m.Called(ctx, poolId, proposer, option)
	pool, _ := args.Get(0).(*domain.Pool)
	return pool, args.Error(1)
}

func (m *mockAppService) Challenge(
	ctx context.Context, poolId uint64, challenger string,
) (*domain.Pool, error) {
	args := m.Called(ctx, poolId, challenger)
	pool, _ := args.Get(0).(*domain.Pool)
	return pool, args.Error(1)
}

func (m *mockAppService) Finalize(
	ctx context.Context, poolId uint64, caller string,
) (*domain.Pool, error) {
	args := m.Called(ctx, poolId, caller)
	pool, _ := args.Get(0).(*domain.Pool)
	return pool, args.Error(1)
}

func (m *mockAppService) Claim(
	ctx context.Context, poolId uint64, participant string,
) (*application.ClaimReceipt, error) {
	args := m.Called(ctx, poolId, participant)
	receipt, _ := args.Get(0).(*application.ClaimReceipt)
	return receipt, args.Error(1)
}

func (m *mockAppService) Refund(
	ctx context.Context, poolId uint64, participant string,
) (*application.ClaimReceipt, error) {
	args := m.Called(ctx, poolId, participant)
	receipt, _ := args.Get(0).(*application.ClaimReceipt)
	return receipt, args.Error(1)
}

func (m *mockAppService) GetPool(ctx context.Context, poolId uint64) (*domain.Pool, error) {
	args := m.Called(ctx, poolId)
	pool, _ := args.Get(0).(*domain.Pool)
	return pool, args.Error(1)
}

func (m *mockAppService) ListPools(
	ctx context.Context, createdAfter, createdBefore int64,
) ([]*domain.Pool, error) {
	args := m.Called(ctx, createdAfter, createdBefore)
	pools, _ := args.Get(0).([]*domain.Pool)
	return pools, args.Error(1)
}

func (m *mockAppService) GetSettlementReport(
	ctx context.Context, poolId uint64,
) (*application.SettlementReport, error) {
	args := m.Called(ctx, poolId)
	report, _ := args.Get(0).(*application.SettlementReport)
	return report, args.Error(1)
}

func (m *mockAppService) GetInfo(ctx context.Context) (*application.ServiceInfo, error) {
	args := m.Called(ctx)
	info, _ := args.Get(0).(*application.ServiceInfo)
	return info, args.Error(1)
}

type mockAdminService struct {
	mock.Mock
}

func (m *mockAdminService) ResolveDispute(
	ctx context.Context, signer string, poolId uint64, option int,
) (*domain.Pool, error) {
	args := m.Called(ctx, signer, poolId, option)
	pool, _ := args.Get(0).(*domain.Pool)
	return pool, args.Error(1)
}

func (m *mockAdminService) CancelPool(
	ctx context.Context, signer string, poolId uint64,
) (*domain.Pool, error) {
	args := m.Called(ctx, signer, poolId)
	pool, _ := args.Get(0).(*domain.Pool)
	return pool, args.Error(1)
}

func (m *mockAdminService) SetAdmin(
	ctx context.Context, signer, newAdmin string,
) (*domain.FeeConfig, error) {
	args := m.Called(ctx, signer, newAdmin)
	fees, _ := args.Get(0).(*domain.FeeConfig)
	return fees, args.Error(1)
}

func (m *mockAdminService) UpdateFeeConfig(
	ctx context.Context, signer string, update domain.FeeUpdate,
) (*domain.FeeConfig, error) {
	args := m.Called(ctx, signer, update)
	fees, _ := args.Get(0).(*domain.FeeConfig)
	return fees, args.Error(1)
}

func (m *mockAdminService) GetFeeConfig(ctx context.Context) (*domain.FeeConfig, error) {
	args := m.Called(ctx)
	fees, _ := args.Get(0).(*domain.FeeConfig)
	return fees, args.Error(1)
}

func (m *mockAdminService) GetScheduledPools(ctx context.Context) ([]application.TrackedPool, error) {
	args := m.Called(ctx)
	pools, _ := args.Get(0).([]application.TrackedPool)
	return pools, args.Error(1)
}

func (m *mockAdminService) TriggerSettlement(
	ctx context.Context, signer string, poolId uint64,
) (*application.AttemptResult, error) {
	args := m.Called(ctx, signer, poolId)
	result, _ := args.Get(0).(*application.AttemptResult)
	return result, args.Error(1)
}
