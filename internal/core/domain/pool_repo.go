package domain

import "context"

type PoolEventRepository interface {
	Save(ctx context.Context, id uint64, events ...PoolEvent) (*Pool, error)
	Load(ctx context.Context, id uint64) (*Pool, error)
	RegisterEventsHandler(func(*Pool))
	Close()
}

// PoolRepository is the queryable projection of the pool event stream.
type PoolRepository interface {
	AddOrUpdatePool(ctx context.Context, pool Pool) error
	GetPoolWithId(ctx context.Context, id uint64) (*Pool, error)
	GetOpenPools(ctx context.Context) ([]Pool, error)
	GetPoolIds(ctx context.Context, createdAfter, createdBefore int64) ([]uint64, error)
	Close()
}

type FeeConfigRepository interface {
	// Get returns nil without error when nothing has been stored yet.
	Get(ctx context.Context) (*FeeConfig, error)
	Upsert(ctx context.Context, config FeeConfig) error
	Close()
}
