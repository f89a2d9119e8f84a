package sqldb

import (
	"context"
	"database/sql"
	"errors"

	"github.com/ark-network/wager/internal/core/domain"
)

const selectFeeConfig = `SELECT admin, fee_destination, resolver, creation_fee,
	join_fee_bps, clearing_fee_bps, settle_fee_bps, next_pool_id, updated_at
FROM fee_config WHERE id = 1`

const upsertFeeConfig = `INSERT INTO fee_config (
	id, admin, fee_destination, resolver, creation_fee, join_fee_bps,
	clearing_fee_bps, settle_fee_bps, next_pool_id, updated_at
) VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
	admin = excluded.admin,
	fee_destination = excluded.fee_destination,
	resolver = excluded.resolver,
	creation_fee = excluded.creation_fee,
	join_fee_bps = excluded.join_fee_bps,
	clearing_fee_bps = excluded.clearing_fee_bps,
	settle_fee_bps = excluded.settle_fee_bps,
	next_pool_id = excluded.next_pool_id,
	updated_at = excluded.updated_at`

type feeConfigRepository struct {
	db      *sql.DB
	dialect Dialect
}

func NewFeeConfigRepository(db *sql.DB, dialect Dialect) domain.FeeConfigRepository {
	return &feeConfigRepository{db, dialect}
}

func (r *feeConfigRepository) Get(ctx context.Context) (*domain.FeeConfig, error) {
	var c domain.FeeConfig
	if err := r.db.QueryRowContext(ctx, r.dialect.Rebind(selectFeeConfig)).Scan(
		&c.Admin, &c.FeeDestination, &c.Resolver, &c.CreationFee, &c.JoinFeeBps,
		&c.ClearingFeeBps, &c.SettleFeeBps, &c.NextPoolId, &c.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

func (r *feeConfigRepository) Upsert(ctx context.Context, c domain.FeeConfig) error {
	_, err := r.db.ExecContext(
		ctx, r.dialect.Rebind(upsertFeeConfig),
		c.Admin, c.FeeDestination, c.Resolver, int64(c.CreationFee),
		int(c.JoinFeeBps), int(c.ClearingFeeBps), int(c.SettleFeeBps),
		int64(c.NextPoolId), c.UpdatedAt,
	)
	return err
}

func (r *feeConfigRepository) Close() {
	_ = r.db.Close()
}
