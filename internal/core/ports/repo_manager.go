package ports

import "github.com/ark-network/wager/internal/core/domain"

type RepoManager interface {
	Events() domain.PoolEventRepository
	Pools() domain.PoolRepository
	FeeConfig() domain.FeeConfigRepository
	Close()
}
