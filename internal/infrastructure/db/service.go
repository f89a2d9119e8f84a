package db

import (
	"database/sql"
	"fmt"
	"path/filepath"

	"github.com/ark-network/wager/internal/core/domain"
	"github.com/ark-network/wager/internal/core/ports"
	badgerdb "github.com/ark-network/wager/internal/infrastructure/db/badger"
	pgdb "github.com/ark-network/wager/internal/infrastructure/db/postgres"
	sqlitedb "github.com/ark-network/wager/internal/infrastructure/db/sqlite"
)

var (
	eventStoreTypes = map[string]func(...interface{}) (domain.PoolEventRepository, error){
		"badger": badgerdb.NewPoolEventRepository,
	}
	poolStoreTypes = map[string]func(...interface{}) (domain.PoolRepository, error){
		"badger":   badgerdb.NewPoolRepository,
		"sqlite":   sqlitedb.NewPoolRepository,
		"postgres": pgdb.NewPoolRepository,
	}
	feeConfigStoreTypes = map[string]func(...interface{}) (domain.FeeConfigRepository, error){
		"badger":   badgerdb.NewFeeConfigRepository,
		"sqlite":   sqlitedb.NewFeeConfigRepository,
		"postgres": pgdb.NewFeeConfigRepository,
	}
)

type ServiceConfig struct {
	EventStoreType string
	DataStoreType  string

	// EventStoreConfig is passed as is to the event store factory.
	EventStoreConfig []interface{}
	// DataStoreConfig is {datadir string, logger} for badger, {datadir string}
	// for sqlite and {dsn string} for postgres.
	DataStoreConfig []interface{}
}

type service struct {
	eventStore     domain.PoolEventRepository
	poolStore      domain.PoolRepository
	feeConfigStore domain.FeeConfigRepository
}

func NewService(config ServiceConfig) (ports.RepoManager, error) {
	eventStoreFactory, ok := eventStoreTypes[config.EventStoreType]
	if !ok {
		return nil, fmt.Errorf("invalid event store type: %s", config.EventStoreType)
	}
	poolStoreFactory, ok := poolStoreTypes[config.DataStoreType]
	if !ok {
		return nil, fmt.Errorf("invalid data store type: %s", config.DataStoreType)
	}
	feeConfigStoreFactory, ok := feeConfigStoreTypes[config.DataStoreType]
	if !ok {
		return nil, fmt.Errorf("invalid data store type: %s", config.DataStoreType)
	}

	dataStoreConfig := config.DataStoreConfig
	switch config.DataStoreType {
	case "sqlite":
		db, err := openSqlite(config.DataStoreConfig)
		if err != nil {
			return nil, err
		}
		dataStoreConfig = []interface{}{db}
	case "postgres":
		db, err := openPostgres(config.DataStoreConfig)
		if err != nil {
			return nil, err
		}
		dataStoreConfig = []interface{}{db}
	}

	eventStore, err := eventStoreFactory(config.EventStoreConfig...)
	if err != nil {
		return nil, fmt.Errorf("failed to create event store: %w", err)
	}
	poolStore, err := poolStoreFactory(dataStoreConfig...)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool store: %w", err)
	}
	feeConfigStore, err := feeConfigStoreFactory(dataStoreConfig...)
	if err != nil {
		return nil, fmt.Errorf("failed to create fee config store: %w", err)
	}

	return &service{
		eventStore:     eventStore,
		poolStore:      poolStore,
		feeConfigStore: feeConfigStore,
	}, nil
}

func (s *service) Events() domain.PoolEventRepository {
	return s.eventStore
}

func (s *service) Pools() domain.PoolRepository {
	return s.poolStore
}

func (s *service) FeeConfig() domain.FeeConfigRepository {
	return s.feeConfigStore
}

func (s *service) Close() {
	s.eventStore.Close()
	s.poolStore.Close()
	s.feeConfigStore.Close()
}

func openSqlite(config []interface{}) (*sql.DB, error) {
	if len(config) != 1 {
		return nil, fmt.Errorf("invalid sqlite config")
	}
	baseDir, ok := config[0].(string)
	if !ok {
		return nil, fmt.Errorf("invalid sqlite base directory")
	}

	db, err := sqlitedb.OpenDb(filepath.Join(baseDir, sqlitedb.DbFile))
	if err != nil {
		return nil, err
	}
	if err := sqlitedb.MigrateUp(db); err != nil {
		return nil, fmt.Errorf("failed to migrate sqlite: %w", err)
	}
	return db, nil
}

func openPostgres(config []interface{}) (*sql.DB, error) {
	if len(config) != 1 {
		return nil, fmt.Errorf("invalid postgres config")
	}
	dsn, ok := config[0].(string)
	if !ok || dsn == "" {
		return nil, fmt.Errorf("invalid postgres dsn")
	}

	db, err := pgdb.OpenDb(dsn)
	if err != nil {
		return nil, err
	}
	if err := pgdb.MigrateUp(db); err != nil {
		return nil, fmt.Errorf("failed to migrate postgres: %w", err)
	}
	return db, nil
}
