package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"stakeledger/internal/model"
)

// Store provides Postgres persistence for ledger audit data.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// UpsertPools inserts or updates pool snapshots.
func (s *Store) UpsertPools(ctx context.Context, pools []model.Pool) error {
	if len(pools) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, pool := range pools {
		var whitelistMin *string
		if pool.MinStakeForWhitelist != nil {
			val := pool.MinStakeForWhitelist.String()
			whitelistMin = &val
		}
		batch.Queue(`
			INSERT INTO pools (
				pool_id, start_time, is_active, stake_token, reward_token,
				min_stake, max_stake, max_pool, total_staked,
				duration_days, redemption_days, apr_numerator, apr_denominator,
				use_whitelist, min_stake_for_whitelist, created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,now(),now())
			ON CONFLICT (pool_id)
			DO UPDATE SET
				is_active = EXCLUDED.is_active,
				total_staked = EXCLUDED.total_staked,
				updated_at = now()
		`,
			int64(pool.ID),
			int64(pool.StartTime),
			pool.IsActive,
			pool.StakeToken.Hex(),
			pool.RewardToken.Hex(),
			pool.MinStake.String(),
			pool.MaxStake.String(),
			pool.MaxPool.String(),
			pool.TotalStaked.String(),
			int64(pool.DurationDays),
			int64(pool.RedemptionDays),
			int64(pool.APRNumerator),
			int64(pool.APRDenominator),
			pool.UseWhitelist,
			whitelistMin,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range pools {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// UpsertStakes inserts or updates stake record snapshots.
func (s *Store) UpsertStakes(ctx context.Context, stakes []model.StakeRecord) error {
	if len(stakes) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, record := range stakes {
		var rewardPaid *string
		if record.RewardPaid != nil {
			val := record.RewardPaid.String()
			rewardPaid = &val
		}
		batch.Queue(`
			INSERT INTO stakes (
				pool_id, user_address, stake_time, value_date, amount,
				reward_time, reward_paid, withdraw_time,
				created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,now(),now())
			ON CONFLICT (pool_id, user_address, stake_time)
			DO UPDATE SET
				reward_time = EXCLUDED.reward_time,
				reward_paid = EXCLUDED.reward_paid,
				withdraw_time = EXCLUDED.withdraw_time,
				updated_at = now()
		`,
			int64(record.PoolID),
			record.User.Hex(),
			int64(record.StakeTime),
			int64(record.ValueDate),
			record.Amount.String(),
			int64(record.RewardTime),
			rewardPaid,
			int64(record.WithdrawTime),
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range stakes {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// InsertEvents appends ledger events. Replayed duplicates are ignored by
// sequence number.
func (s *Store) InsertEvents(ctx context.Context, events []model.LedgerEvent) error {
	if len(events) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, event := range events {
		batch.Queue(`
			INSERT INTO ledger_events (
				seq, name, event_time, pool_id, user_address, token, amount, reward, created_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,now())
			ON CONFLICT (seq) DO NOTHING
		`,
			int64(event.Seq),
			event.Name,
			int64(event.Time),
			int64(event.PoolID),
			event.User,
			event.Token,
			event.Amount,
			event.Reward,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range events {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// LoadState returns last_seen_seq for a name.
func (s *Store) LoadState(ctx context.Context, name string) (uint64, bool, error) {
	if name == "" {
		return 0, false, fmt.Errorf("state name required")
	}
	var seq uint64
	row := s.pool.QueryRow(ctx, `SELECT last_seen_seq FROM replay_state WHERE name=$1`, name)
	if err := row.Scan(&seq); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return seq, true, nil
}

// SaveState upserts last_seen_seq for a name.
func (s *Store) SaveState(ctx context.Context, name string, seq uint64) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO replay_state (name, last_seen_seq, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET last_seen_seq = EXCLUDED.last_seen_seq, updated_at = now()
	`, name, seq)
	return err
}
