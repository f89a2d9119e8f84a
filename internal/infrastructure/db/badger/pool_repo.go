package badgerdb

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/ark-network/wager/internal/core/domain"
	"github.com/dgraph-io/badger/v4"
	"github.com/timshannon/badgerhold/v4"
)

const poolStoreDir = "pools"

type poolRepository struct {
	store *badgerhold.Store
}

func NewPoolRepository(config ...interface{}) (domain.PoolRepository, error) {
	if len(config) != 2 {
		return nil, fmt.Errorf("invalid config")
	}
	baseDir, ok := config[0].(string)
	if !ok {
		return nil, fmt.Errorf("invalid base directory")
	}
	var logger badger.Logger
	if config[1] != nil {
		logger, ok = config[1].(badger.Logger)
		if !ok {
			return nil, fmt.Errorf("invalid logger")
		}
	}

	var dir string
	if len(baseDir) > 0 {
		dir = filepath.Join(baseDir, poolStoreDir)
	}
	store, err := createDB(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open pool store: %s", err)
	}

	return &poolRepository{store}, nil
}

func (r *poolRepository) AddOrUpdatePool(
	ctx context.Context, pool domain.Pool,
) (err error) {
	if ctx.Value("tx") != nil {
		tx := ctx.Value("tx").(*badger.Txn)
		err = r.store.TxUpsert(tx, pool.Id, pool)
	} else {
		err = r.store.Upsert(pool.Id, pool)
	}
	return
}

func (r *poolRepository) GetPoolWithId(
	ctx context.Context, id uint64,
) (*domain.Pool, error) {
	query := badgerhold.Where("Id").Eq(id)
	pools, err := r.findPools(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(pools) <= 0 {
		return nil, domain.ErrPoolNotFound
	}
	return &pools[0], nil
}

func (r *poolRepository) GetOpenPools(ctx context.Context) ([]domain.Pool, error) {
	query := badgerhold.Where("Phase").In(
		domain.PhaseOpen, domain.PhaseProposed, domain.PhaseDisputed,
	).SortBy("Id")
	return r.findPools(ctx, query)
}

func (r *poolRepository) GetPoolIds(
	ctx context.Context, createdAfter, createdBefore int64,
) ([]uint64, error) {
	query := badgerhold.Where("Id").Gt(uint64(0))
	if createdAfter > 0 {
		query = query.And("CreatedAt").Gt(createdAfter)
	}
	if createdBefore > 0 {
		query = query.And("CreatedAt").Lt(createdBefore)
	}

	pools, err := r.findPools(ctx, query.SortBy("Id"))
	if err != nil {
		return nil, err
	}
	ids := make([]uint64, 0, len(pools))
	for _, pool := range pools {
		ids = append(ids, pool.Id)
	}
	return ids, nil
}

func (r *poolRepository) Close() {
	r.store.Close()
}

func (r *poolRepository) findPools(
	ctx context.Context, query *badgerhold.Query,
) ([]domain.Pool, error) {
	var pools []domain.Pool
	var err error

	if ctx.Value("tx") != nil {
		tx := ctx.Value("tx").(*badger.Txn)
		err = r.store.TxFind(tx, &pools, query)
	} else {
		err = r.store.Find(&pools, query)
	}

	return pools, err
}
