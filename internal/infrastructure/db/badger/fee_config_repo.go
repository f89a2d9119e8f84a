package badgerdb

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/ark-network/wager/internal/core/domain"
	"github.com/dgraph-io/badger/v4"
	"github.com/timshannon/badgerhold/v4"
)

const (
	feeConfigStoreDir = "fee-config"
	feeConfigKey      = "fee-config"
)

type feeConfigRepository struct {
	store *badgerhold.Store
}

func NewFeeConfigRepository(config ...interface{}) (domain.FeeConfigRepository, error) {
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
		dir = filepath.Join(baseDir, feeConfigStoreDir)
	}
	store, err := createDB(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open fee config store: %s", err)
	}
	return &feeConfigRepository{store}, nil
}

func (r *feeConfigRepository) Get(_ context.Context) (*domain.FeeConfig, error) {
	var config domain.FeeConfig
	if err := r.store.Get(feeConfigKey, &config); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &config, nil
}

func (r *feeConfigRepository) Upsert(_ context.Context, config domain.FeeConfig) error {
	return r.store.Upsert(feeConfigKey, config)
}

func (r *feeConfigRepository) Close() {
	r.store.Close()
}
