package pgdb

import (
	"github.com/ark-network/wager/internal/core/domain"
	"github.com/ark-network/wager/internal/infrastructure/db/sqldb"
)

func NewPoolRepository(config ...interface{}) (domain.PoolRepository, error) {
	db, err := dbFromConfig(config)
	if err != nil {
		return nil, err
	}
	return sqldb.NewPoolRepository(db, sqldb.Postgres), nil
}

func NewFeeConfigRepository(config ...interface{}) (domain.FeeConfigRepository, error) {
	db, err := dbFromConfig(config)
	if err != nil {
		return nil, err
	}
	return sqldb.NewFeeConfigRepository(db, sqldb.Postgres), nil
}
