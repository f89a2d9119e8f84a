package sqldb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/ark-network/wager/internal/core/domain"
)

const poolColumns = `id, kind, creator, question, asset, threshold, options, totals,
	participants, stake_amount, deadline, resolve_time, challenge_window, phase,
	proposer, proposed_outcome, challenge_end_time, challenger, outcome,
	resolved_price, resolved_by, by_admin, winning_total, settlement_fee,
	distributable, no_opponent_refund, cancel_reason, creation_fee, join_fees,
	clearing_fees, paid_out, created_at, settled_at, version`

const upsertPool = `INSERT INTO pool (` + poolColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
	totals = excluded.totals,
	participants = excluded.participants,
	phase = excluded.phase,
	proposer = excluded.proposer,
	proposed_outcome = excluded.proposed_outcome,
	challenge_end_time = excluded.challenge_end_time,
	challenger = excluded.challenger,
	outcome = excluded.outcome,
	resolved_price = excluded.resolved_price,
	resolved_by = excluded.resolved_by,
	by_admin = excluded.by_admin,
	winning_total = excluded.winning_total,
	settlement_fee = excluded.settlement_fee,
	distributable = excluded.distributable,
	no_opponent_refund = excluded.no_opponent_refund,
	cancel_reason = excluded.cancel_reason,
	join_fees = excluded.join_fees,
	clearing_fees = excluded.clearing_fees,
	paid_out = excluded.paid_out,
	settled_at = excluded.settled_at,
	version = excluded.version`

const upsertPosition = `INSERT INTO pool_position (
	pool_id, participant, option_index, amount, bets, claimed, refunded, payout, clearing_fee
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (pool_id, participant) DO UPDATE SET
	amount = excluded.amount,
	bets = excluded.bets,
	claimed = excluded.claimed,
	refunded = excluded.refunded,
	payout = excluded.payout,
	clearing_fee = excluded.clearing_fee`

const selectPositions = `SELECT pool_id, participant, option_index, amount, bets,
	claimed, refunded, payout, clearing_fee
FROM pool_position WHERE pool_id = ?`

type poolRepository struct {
	db      *sql.DB
	dialect Dialect
}

func NewPoolRepository(db *sql.DB, dialect Dialect) domain.PoolRepository {
	return &poolRepository{db, dialect}
}

func (r *poolRepository) AddOrUpdatePool(ctx context.Context, pool domain.Pool) error {
	options, err := json.Marshal(pool.Options)
	if err != nil {
		return err
	}
	totals, err := json.Marshal(pool.Totals)
	if err != nil {
		return err
	}
	participants, err := json.Marshal(pool.Participants)
	if err != nil {
		return err
	}

	return ExecTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(
			ctx, r.dialect.Rebind(upsertPool),
			int64(pool.Id), int(pool.Kind), pool.Creator, pool.Question, pool.Asset,
			int64(pool.Threshold), string(options), string(totals), string(participants),
			int64(pool.StakeAmount), pool.Deadline, pool.ResolveTime, pool.ChallengeWindow,
			int(pool.Phase), pool.Proposer, pool.ProposedOutcome, pool.ChallengeEndTime,
			pool.Challenger, pool.Outcome, int64(pool.ResolvedPrice), pool.ResolvedBy,
			pool.ByAdmin, int64(pool.WinningTotal), int64(pool.SettlementFee),
			int64(pool.Distributable), pool.NoOpponentRefund, int(pool.CancelReason),
			int64(pool.CreationFee), int64(pool.JoinFees), int64(pool.ClearingFees),
			int64(pool.PaidOut), pool.CreatedAt, pool.SettledAt, int64(pool.Version),
		); err != nil {
			return fmt.Errorf("failed to upsert pool %d: %w", pool.Id, err)
		}

		for _, pos := range sortedPositions(pool.Positions) {
			if _, err := tx.ExecContext(
				ctx, r.dialect.Rebind(upsertPosition),
				int64(pool.Id), pos.Participant, pos.Option, int64(pos.Amount),
				int64(pos.Bets), pos.Claimed, pos.Refunded, int64(pos.Payout),
				int64(pos.ClearingFee),
			); err != nil {
				return fmt.Errorf("failed to upsert position of pool %d: %w", pool.Id, err)
			}
		}
		return nil
	})
}

func (r *poolRepository) GetPoolWithId(ctx context.Context, id uint64) (*domain.Pool, error) {
	pools, err := r.queryPools(
		ctx, "SELECT "+poolColumns+" FROM pool WHERE id = ?", int64(id),
	)
	if err != nil {
		return nil, err
	}
	if len(pools) <= 0 {
		return nil, domain.ErrPoolNotFound
	}
	return &pools[0], nil
}

func (r *poolRepository) GetOpenPools(ctx context.Context) ([]domain.Pool, error) {
	return r.queryPools(
		ctx, "SELECT "+poolColumns+" FROM pool WHERE phase IN (?, ?, ?) ORDER BY id",
		int(domain.PhaseOpen), int(domain.PhaseProposed), int(domain.PhaseDisputed),
	)
}

func (r *poolRepository) GetPoolIds(
	ctx context.Context, createdAfter, createdBefore int64,
) ([]uint64, error) {
	query := "SELECT id FROM pool WHERE 1 = 1"
	args := make([]interface{}, 0, 2)
	if createdAfter > 0 {
		query += " AND created_at > ?"
		args = append(args, createdAfter)
	}
	if createdBefore > 0 {
		query += " AND created_at < ?"
		args = append(args, createdBefore)
	}
	query += " ORDER BY id"

	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]uint64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, uint64(id))
	}
	return ids, rows.Err()
}

func (r *poolRepository) Close() {
	_ = r.db.Close()
}

func (r *poolRepository) queryPools(
	ctx context.Context, query string, args ...interface{},
) ([]domain.Pool, error) {
	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(query), args...)
	if err != nil {
		return nil, err
	}

	pools := make([]domain.Pool, 0)
	for rows.Next() {
		pool, err := scanPool(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		pools = append(pools, *pool)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range pools {
		positions, err := r.getPositions(ctx, pools[i].Id)
		if err != nil {
			return nil, err
		}
		pools[i].Positions = positions
	}
	return pools, nil
}

func (r *poolRepository) getPositions(
	ctx context.Context, poolId uint64,
) (map[string]*domain.Position, error) {
	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(selectPositions), int64(poolId))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	positions := make(map[string]*domain.Position)
	for rows.Next() {
		var pos domain.Position
		if err := rows.Scan(
			&pos.PoolId, &pos.Participant, &pos.Option, &pos.Amount, &pos.Bets,
			&pos.Claimed, &pos.Refunded, &pos.Payout, &pos.ClearingFee,
		); err != nil {
			return nil, err
		}
		positions[pos.Participant] = &pos
	}
	return positions, rows.Err()
}

func scanPool(rows *sql.Rows) (*domain.Pool, error) {
	var (
		pool                          domain.Pool
		options, totals, participants string
	)
	if err := rows.Scan(
		&pool.Id, &pool.Kind, &pool.Creator, &pool.Question, &pool.Asset,
		&pool.Threshold, &options, &totals, &participants, &pool.StakeAmount,
		&pool.Deadline, &pool.ResolveTime, &pool.ChallengeWindow, &pool.Phase,
		&pool.Proposer, &pool.ProposedOutcome, &pool.ChallengeEndTime,
		&pool.Challenger, &pool.Outcome, &pool.ResolvedPrice, &pool.ResolvedBy,
		&pool.ByAdmin, &pool.WinningTotal, &pool.SettlementFee, &pool.Distributable,
		&pool.NoOpponentRefund, &pool.CancelReason, &pool.CreationFee,
		&pool.JoinFees, &pool.ClearingFees, &pool.PaidOut, &pool.CreatedAt,
		&pool.SettledAt, &pool.Version,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPoolNotFound
		}
		return nil, err
	}

	if err := json.Unmarshal([]byte(options), &pool.Options); err != nil {
		return nil, fmt.Errorf("%w: options of pool %d", domain.ErrMalformedRecord, pool.Id)
	}
	if err := json.Unmarshal([]byte(totals), &pool.Totals); err != nil {
		return nil, fmt.Errorf("%w: totals of pool %d", domain.ErrMalformedRecord, pool.Id)
	}
	if err := json.Unmarshal([]byte(participants), &pool.Participants); err != nil {
		return nil, fmt.Errorf("%w: participants of pool %d", domain.ErrMalformedRecord, pool.Id)
	}
	return &pool, nil
}

func sortedPositions(positions map[string]*domain.Position) []*domain.Position {
	list := make([]*domain.Position, 0, len(positions))
	for _, p := range positions {
		list = append(list, p)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Participant < list[j].Participant })
	return list
}
