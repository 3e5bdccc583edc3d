package engine

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"stakeledger/internal/model"
)

// PoolParams carries the admin inputs for a new staking pool.
type PoolParams struct {
	StartTime            uint64
	StakeToken           common.Address
	RewardToken          common.Address
	MinStake             *big.Int
	MaxStake             *big.Int
	MaxPool              *big.Int
	DurationDays         uint64
	RedemptionDays       uint64
	APRNumerator         uint64
	APRDenominator       uint64
	UseWhitelist         bool
	MinStakeForWhitelist *big.Int
}

// CreatePool validates params, pulls the full-capacity reward funding from
// the caller, and appends a new pool. Pool IDs are assigned in creation
// order.
func (e *Engine) CreatePool(ctx context.Context, caller common.Address, params PoolParams) (uint64, error) {
	if err := e.begin(); err != nil {
		return 0, err
	}
	defer e.end()

	if !e.auth.IsAdmin(caller) {
		return 0, errState("caller is not admin")
	}

	now := e.now()
	if params.StartTime < now {
		return 0, errValidation("start time in the past")
	}
	if params.DurationDays == 0 {
		return 0, errValidation("duration must be positive")
	}
	if params.MinStake == nil || params.MinStake.Sign() <= 0 {
		return 0, errValidation("min stake must be positive")
	}
	if params.MaxStake == nil || params.MaxStake.Sign() <= 0 {
		return 0, errValidation("max stake must be positive")
	}
	if params.MaxPool == nil || params.MaxPool.Sign() <= 0 {
		return 0, errValidation("max pool must be positive")
	}
	if params.APRDenominator == 0 {
		return 0, errValidation("apr denominator must be positive")
	}
	if params.APRNumerator == 0 || params.APRNumerator > params.APRDenominator {
		return 0, errValidation("apr numerator out of range")
	}

	// Fund custody with the full-capacity reward up front. Promises are
	// tallied per stake, so the funding stays sweepable until staked
	// against; the stake-time solvency guard prices every promise off
	// the actual custody balance.
	reserve := rewardFor(params.MaxPool, params.DurationDays, params.APRNumerator, params.APRDenominator)
	if err := e.tokens.TransferIn(ctx, params.RewardToken, caller, reserve); err != nil {
		return 0, errCollaborator("reserve reward transfer failed", err)
	}

	pool := &model.Pool{
		ID:             uint64(len(e.pools)),
		StartTime:      params.StartTime,
		IsActive:       true,
		StakeToken:     params.StakeToken,
		RewardToken:    params.RewardToken,
		MinStake:       new(big.Int).Set(params.MinStake),
		MaxStake:       new(big.Int).Set(params.MaxStake),
		MaxPool:        new(big.Int).Set(params.MaxPool),
		TotalStaked:    new(big.Int),
		DurationDays:   params.DurationDays,
		RedemptionDays: params.RedemptionDays,
		APRNumerator:   params.APRNumerator,
		APRDenominator: params.APRDenominator,
		UseWhitelist:   params.UseWhitelist,
	}
	if params.MinStakeForWhitelist != nil {
		pool.MinStakeForWhitelist = new(big.Int).Set(params.MinStakeForWhitelist)
	}
	e.pools = append(e.pools, pool)

	e.logger.Info("pool created",
		zap.Uint64("pool_id", pool.ID),
		zap.Uint64("start_time", pool.StartTime),
		zap.Uint64("duration_days", pool.DurationDays),
		zap.String("reserved_reward", reserve.String()),
	)
	e.emit(model.LedgerEvent{
		Name:   model.EventNewPool,
		Time:   now,
		PoolID: pool.ID,
		Token:  pool.RewardToken.Hex(),
		Reward: reserve.String(),
	})

	return pool.ID, nil
}

// ClosePool deactivates a pool. Closing is one-way and idempotent: a
// second close succeeds without effect.
func (e *Engine) ClosePool(caller common.Address, id uint64) error {
	if err := e.begin(); err != nil {
		return err
	}
	defer e.end()

	if !e.auth.IsAdmin(caller) {
		return errState("caller is not admin")
	}
	pool, err := e.poolByID(id)
	if err != nil {
		return err
	}
	if !pool.IsActive {
		return nil
	}

	pool.IsActive = false
	e.logger.Info("pool closed", zap.Uint64("pool_id", id))
	e.emit(model.LedgerEvent{
		Name:   model.EventClosePool,
		Time:   e.now(),
		PoolID: id,
	})
	return nil
}

// GetPool returns a copy of the pool.
func (e *Engine) GetPool(id uint64) (model.Pool, error) {
	if err := e.beginRead(); err != nil {
		return model.Pool{}, err
	}
	defer e.mu.RUnlock()

	pool, err := e.poolByID(id)
	if err != nil {
		return model.Pool{}, err
	}
	return copyPool(pool), nil
}

// ListPools returns all pools in creation order.
func (e *Engine) ListPools() []model.Pool {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]model.Pool, 0, len(e.pools))
	for _, pool := range e.pools {
		out = append(out, copyPool(pool))
	}
	return out
}

// ListActivePools returns open pools with remaining capacity, in creation
// order.
func (e *Engine) ListActivePools() []model.Pool {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var out []model.Pool
	for _, pool := range e.pools {
		if poolOpen(pool) {
			out = append(out, copyPool(pool))
		}
	}
	return out
}

// CountActivePools counts the pools ListActivePools would return.
func (e *Engine) CountActivePools() int {
	e.mu.RLock()
	defer e.mu.RUnlock()

	count := 0
	for _, pool := range e.pools {
		if poolOpen(pool) {
			count++
		}
	}
	return count
}

func (e *Engine) poolByID(id uint64) (*model.Pool, error) {
	if id >= uint64(len(e.pools)) {
		return nil, errValidation("pool id out of range")
	}
	return e.pools[id], nil
}

func poolOpen(pool *model.Pool) bool {
	return pool.IsActive && pool.TotalStaked.Cmp(pool.MaxPool) < 0
}

func copyPool(pool *model.Pool) model.Pool {
	out := *pool
	out.MinStake = new(big.Int).Set(pool.MinStake)
	out.MaxStake = new(big.Int).Set(pool.MaxStake)
	out.MaxPool = new(big.Int).Set(pool.MaxPool)
	out.TotalStaked = new(big.Int).Set(pool.TotalStaked)
	if pool.MinStakeForWhitelist != nil {
		out.MinStakeForWhitelist = new(big.Int).Set(pool.MinStakeForWhitelist)
	}
	return out
}
