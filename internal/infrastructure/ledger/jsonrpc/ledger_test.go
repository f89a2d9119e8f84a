package jsonrpcledger_test

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/ark-network/wager/internal/core/domain"
	"github.com/ark-network/wager/internal/infrastructure/db"
	embeddedledger "github.com/ark-network/wager/internal/infrastructure/ledger/embedded"
	jsonrpcledger "github.com/ark-network/wager/internal/infrastructure/ledger/jsonrpc"
	"github.com/stretchr/testify/require"
)

const now = int64(1_700_000_000)

func TestRoundTrip(t *testing.T) {
	repoManager, err := db.NewService(db.ServiceConfig{
		EventStoreType:   "badger",
		DataStoreType:    "badger",
		EventStoreConfig: []interface{}{"", nil},
		DataStoreConfig:  []interface{}{"", nil},
	})
	require.NoError(t, err)

	bootstrap, err := domain.NewFeeConfig("admin", "treasury", "", 5_000_000, 50, 100, 200)
	require.NoError(t, err)
	local, err := embeddedledger.NewLedger(repoManager, nil, embeddedledger.Config{
		Bootstrap: bootstrap,
		Clock:     func() int64 { return now },
	})
	require.NoError(t, err)
	defer local.Close()

	handler, err := jsonrpcledger.NewServer(local)
	require.NoError(t, err)
	server := httptest.NewServer(handler)

	ctx := context.Background()
	remote, err := jsonrpcledger.NewLedger(ctx, server.URL)
	require.NoError(t, err)
	defer remote.Close()

	fees, err := remote.FetchFeeConfig(ctx)
	require.NoError(t, err)
	require.Equal(t, "admin", fees.Admin)
	require.Equal(t, uint16(200), fees.SettleFeeBps)

	res, err := remote.SubmitCreation(ctx, "creator", domain.PoolParams{
		Kind:      domain.BinaryKind,
		Question:  "BTC above 60k?",
		Asset:     "BTC",
		Threshold: 60_000,
		Deadline:  now + 3600,
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.Txid)
	require.Equal(t, uint64(5_000_000), res.Fee)
	poolId := res.Pool.Id

	res, err = remote.SubmitBet(ctx, poolId, "alice", domain.SideUpper, 1_000_000_000)
	require.NoError(t, err)
	require.Equal(t, uint64(5_000_000), res.Fee)

	pool, err := remote.FetchPool(ctx, poolId)
	require.NoError(t, err)
	require.Equal(t, domain.PhaseOpen, pool.Phase)
	require.Equal(t, uint64(1_000_000_000), pool.Totals[domain.SideUpper])
	require.True(t, pool.HasPosition("alice"))

	pools, err := remote.FetchAllOpenPools(ctx)
	require.NoError(t, err)
	require.Len(t, pools, 1)

	pools, err = remote.FetchPools(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, pools, 1)
	require.Equal(t, poolId, pools[0].Id)
	require.True(t, pools[0].HasPosition("alice"))

	pools, err = remote.FetchPools(ctx, now, 0)
	require.NoError(t, err)
	require.Empty(t, pools)

	t.Run("domain errors keep their identity", func(t *testing.T) {
		_, err := remote.FetchPool(ctx, 99)
		require.ErrorIs(t, err, domain.ErrPoolNotFound)

		_, err = remote.SubmitBet(ctx, poolId, "bob", domain.SideLower, 10)
		require.ErrorIs(t, err, domain.ErrStakeTooSmall)

		_, err = remote.SubmitCancellation(ctx, poolId, "mallory", domain.CancelByAdmin)
		require.ErrorIs(t, err, domain.ErrNotAdmin)
		require.Equal(t, domain.AuthorizationError, domain.KindOf(err))
	})

	t.Run("transport failures", func(t *testing.T) {
		server.Close()

		_, err := remote.FetchPool(ctx, poolId)
		require.ErrorIs(t, err, domain.ErrLedgerUnavailable)

		_, err = remote.SubmitSettlement(ctx, poolId, "resolver", domain.Price{Value: 1, Timestamp: now})
		require.ErrorIs(t, err, domain.ErrUnknownOutcome)
		require.True(t, domain.IsRetryable(err))
	})
}
