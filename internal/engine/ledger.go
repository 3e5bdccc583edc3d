package engine

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"stakeledger/internal/model"
)

// Stake opens a position for user in a pool. Preconditions run in a fixed
// order with the first failure winning; the record, pool total, and both
// reserve tallies are committed only after the principal transfer and the
// solvency guard pass.
func (e *Engine) Stake(ctx context.Context, poolID uint64, user common.Address, amount *big.Int) error {
	if err := e.begin(); err != nil {
		return err
	}
	defer e.end()

	pool, err := e.poolByID(poolID)
	if err != nil {
		return err
	}

	key := stakeKey{poolID: poolID, user: user}
	if e.stakes[key].Live() {
		return errState("stake already exists")
	}
	if amount == nil || amount.Sign() <= 0 {
		return errValidation("amount must be positive")
	}
	now := e.now()
	if now < pool.StartTime {
		return errState("not time yet")
	}
	if !pool.IsActive {
		return errState("pool closed")
	}
	if pool.TotalStaked.Cmp(pool.MaxPool) >= 0 {
		return errState("pool is full")
	}
	if amount.Cmp(pool.MinStake) < 0 {
		return errState("amount below pool minimum")
	}
	if amount.Cmp(pool.MaxStake) > 0 {
		return errState("amount above pool maximum")
	}
	if new(big.Int).Add(pool.TotalStaked, amount).Cmp(pool.MaxPool) > 0 {
		return errState("exceeds pool capacity")
	}

	if err := e.tokens.TransferIn(ctx, pool.StakeToken, user, amount); err != nil {
		return errCollaborator("stake transfer failed", err)
	}

	// Solvency guard: the reward token must already cover every live
	// principal and promised reward in that token plus this new promise.
	// Re-checked on every stake because one reward token may back
	// multiple pools.
	reward := rewardFor(amount, pool.DurationDays, pool.APRNumerator, pool.APRDenominator)
	if err := e.requireCustody(ctx, pool.RewardToken, reward); err != nil {
		// A failed refund leaves the principal in custody outside both
		// tallies; it stays recoverable through WithdrawExcessToken.
		if refundErr := e.tokens.TransferOut(ctx, pool.StakeToken, user, amount); refundErr != nil {
			e.logger.Error("stake refund failed",
				zap.Uint64("pool_id", poolID),
				zap.String("user", user.Hex()),
				zap.Error(refundErr),
			)
		}
		return err
	}

	record := &model.StakeRecord{
		PoolID:    poolID,
		User:      user,
		StakeTime: now,
		ValueDate: valueDateFor(now),
		Amount:    new(big.Int).Set(amount),
	}
	e.stakes[key] = record
	pool.TotalStaked.Add(pool.TotalStaked, amount)
	tallyAdd(e.staked, pool.StakeToken, amount)
	tallyAdd(e.reserved, pool.RewardToken, reward)

	e.logger.Info("staked",
		zap.Uint64("pool_id", poolID),
		zap.String("user", user.Hex()),
		zap.String("amount", amount.String()),
		zap.Uint64("value_date", record.ValueDate),
	)
	e.emit(model.LedgerEvent{
		Name:   model.EventStaked,
		Time:   now,
		PoolID: poolID,
		User:   user.Hex(),
		Token:  pool.StakeToken.Hex(),
		Amount: amount.String(),
		Reward: reward.String(),
	})
	return nil
}

// GetStakeInfo returns a copy of the stake record for (pool, user). The
// second return value reports whether a record exists at all, live or
// settled.
func (e *Engine) GetStakeInfo(poolID uint64, user common.Address) (model.StakeRecord, bool, error) {
	if err := e.beginRead(); err != nil {
		return model.StakeRecord{}, false, err
	}
	defer e.mu.RUnlock()

	if _, err := e.poolByID(poolID); err != nil {
		return model.StakeRecord{}, false, err
	}
	record, ok := e.stakes[stakeKey{poolID: poolID, user: user}]
	if !ok {
		return model.StakeRecord{}, false, nil
	}
	return copyStake(record), true, nil
}

// GetRewardClaimable prices the position by whole accrued days, capped at
// the pool duration. Zero before the value date, without a live record,
// or once the reward leg has settled. Pure query; settlement itself is
// all-or-nothing and does not use this figure.
func (e *Engine) GetRewardClaimable(poolID uint64, user common.Address) (*big.Int, error) {
	if err := e.beginRead(); err != nil {
		return nil, err
	}
	defer e.mu.RUnlock()

	pool, err := e.poolByID(poolID)
	if err != nil {
		return nil, err
	}
	record := e.stakes[stakeKey{poolID: poolID, user: user}]
	if !record.Live() || record.RewardTime != 0 {
		return new(big.Int), nil
	}
	days := accruedDays(e.now(), record.ValueDate, pool.DurationDays)
	return rewardFor(record.Amount, days, pool.APRNumerator, pool.APRDenominator), nil
}

// Withdraw settles a live position. Before maturity the reward is
// forfeited; inside the redemption window withdrawal is blocked; at or
// after maturity the full reserved reward is paid. The reservation is
// always released in full so a forfeit cannot leak reserve.
//
// Settlement is two-phase: the reward leg commits into the record and the
// reserve tally as soon as its transfer succeeds, before the principal
// leg is attempted. A retry after a failed principal transfer settles
// only the outstanding principal and can never pay the reward twice.
func (e *Engine) Withdraw(ctx context.Context, poolID uint64, user common.Address) error {
	if err := e.begin(); err != nil {
		return err
	}
	defer e.end()

	pool, err := e.poolByID(poolID)
	if err != nil {
		return err
	}
	key := stakeKey{poolID: poolID, user: user}
	record := e.stakes[key]
	if !record.Live() {
		return errState("nothing to withdraw")
	}

	now := e.now()
	if record.RewardTime == 0 {
		interestEnd := record.ValueDate + pool.DurationDays*secondsPerDay
		if pool.RedemptionDays > 0 {
			redemptionEnd := interestEnd + pool.RedemptionDays*secondsPerDay
			if now >= interestEnd && now < redemptionEnd {
				return errState("redemption period in progress")
			}
		}

		reserve := rewardFor(record.Amount, pool.DurationDays, pool.APRNumerator, pool.APRDenominator)
		payout := new(big.Int)
		if now >= interestEnd {
			payout.Set(reserve)
		}

		if err := e.requireWithdrawCustody(ctx, pool, record.Amount, payout); err != nil {
			return err
		}
		if payout.Sign() > 0 {
			if err := e.tokens.TransferOut(ctx, pool.RewardToken, user, payout); err != nil {
				return errCollaborator("reward transfer failed", err)
			}
		}
		record.RewardTime = now
		record.RewardPaid = payout
		tallySub(e.reserved, pool.RewardToken, reserve)
	} else if err := e.requireWithdrawCustody(ctx, pool, record.Amount, new(big.Int)); err != nil {
		return err
	}

	if err := e.tokens.TransferOut(ctx, pool.StakeToken, user, record.Amount); err != nil {
		return errCollaborator("principal transfer failed", err)
	}

	record.WithdrawTime = now
	pool.TotalStaked.Sub(pool.TotalStaked, record.Amount)
	tallySub(e.staked, pool.StakeToken, record.Amount)

	e.logger.Info("withdrawn",
		zap.Uint64("pool_id", poolID),
		zap.String("user", user.Hex()),
		zap.String("amount", record.Amount.String()),
		zap.String("reward", record.RewardPaid.String()),
	)
	e.emit(model.LedgerEvent{
		Name:   model.EventWithdrawn,
		Time:   now,
		PoolID: poolID,
		User:   user.Hex(),
		Token:  pool.StakeToken.Hex(),
		Amount: record.Amount.String(),
		Reward: record.RewardPaid.String(),
	})
	return nil
}

// GetStakedAmount returns the live principal tally for a token.
func (e *Engine) GetStakedAmount(tok common.Address) *big.Int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return tallyGet(e.staked, tok)
}

// GetRewardAmount returns the promised-reward tally for a token.
func (e *Engine) GetRewardAmount(tok common.Address) *big.Int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return tallyGet(e.reserved, tok)
}

// ListStakes returns copies of every stake record, live and settled, for
// audit snapshots. Order is unspecified.
func (e *Engine) ListStakes() []model.StakeRecord {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]model.StakeRecord, 0, len(e.stakes))
	for _, record := range e.stakes {
		out = append(out, copyStake(record))
	}
	return out
}

func copyStake(record *model.StakeRecord) model.StakeRecord {
	out := *record
	out.Amount = new(big.Int).Set(record.Amount)
	if record.RewardPaid != nil {
		out.RewardPaid = new(big.Int).Set(record.RewardPaid)
	}
	return out
}

// WithdrawExcessToken sweeps tokens held outside the accounting model.
// The sweep can never touch principal or promised reward.
func (e *Engine) WithdrawExcessToken(ctx context.Context, caller common.Address, tok common.Address, amount *big.Int) error {
	if err := e.begin(); err != nil {
		return err
	}
	defer e.end()

	if !e.auth.IsAdmin(caller) {
		return errState("caller is not admin")
	}
	if amount == nil || amount.Sign() <= 0 {
		return errValidation("amount must be positive")
	}

	balance, err := e.tokens.BalanceOf(ctx, tok)
	if err != nil {
		return errCollaborator("balance query failed", err)
	}
	required := new(big.Int).Add(tallyGet(e.staked, tok), tallyGet(e.reserved, tok))
	required.Add(required, amount)
	if balance.Cmp(required) < 0 {
		return errSolvency("sweep exceeds unreserved balance")
	}

	if err := e.tokens.TransferOut(ctx, tok, caller, amount); err != nil {
		return errCollaborator("sweep transfer failed", err)
	}

	now := e.now()
	e.logger.Info("excess withdrawn",
		zap.String("token", tok.Hex()),
		zap.String("amount", amount.String()),
	)
	e.emit(model.LedgerEvent{
		Name:   model.EventExcessWithdrawn,
		Time:   now,
		User:   caller.Hex(),
		Token:  tok.Hex(),
		Amount: amount.String(),
	})
	return nil
}

// IsWhitelistQualified reports whether the user's live stake meets the
// pool's whitelist threshold. Read-only predicate for collaborators; the
// engine itself does not gate stake or withdraw on it. False while an
// operation is mid-flight.
func (e *Engine) IsWhitelistQualified(poolID uint64, user common.Address) bool {
	if err := e.beginRead(); err != nil {
		return false
	}
	defer e.mu.RUnlock()

	pool, err := e.poolByID(poolID)
	if err != nil || !pool.UseWhitelist || pool.MinStakeForWhitelist == nil {
		return false
	}
	record := e.stakes[stakeKey{poolID: poolID, user: user}]
	return record.Live() && record.Amount.Cmp(pool.MinStakeForWhitelist) >= 0
}

// requireCustody enforces the stake-time solvency guard: the reward token
// balance must cover all live principal and promised reward in that token
// plus the new promise.
func (e *Engine) requireCustody(ctx context.Context, rewardToken common.Address, reward *big.Int) error {
	balance, err := e.tokens.BalanceOf(ctx, rewardToken)
	if err != nil {
		return errCollaborator("balance query failed", err)
	}
	required := new(big.Int).Add(tallyGet(e.staked, rewardToken), tallyGet(e.reserved, rewardToken))
	required.Add(required, reward)
	if balance.Cmp(required) < 0 {
		return errSolvency("reward reservation exceeds custody balance")
	}
	return nil
}

// requireWithdrawCustody checks both payout legs against custody before
// any transfer leaves the contract.
func (e *Engine) requireWithdrawCustody(ctx context.Context, pool *model.Pool, principal, payout *big.Int) error {
	if pool.StakeToken == pool.RewardToken {
		balance, err := e.tokens.BalanceOf(ctx, pool.StakeToken)
		if err != nil {
			return errCollaborator("balance query failed", err)
		}
		if balance.Cmp(new(big.Int).Add(principal, payout)) < 0 {
			return errSolvency("custody cannot cover settlement")
		}
		return nil
	}

	stakeBalance, err := e.tokens.BalanceOf(ctx, pool.StakeToken)
	if err != nil {
		return errCollaborator("balance query failed", err)
	}
	if stakeBalance.Cmp(principal) < 0 {
		return errSolvency("custody cannot cover principal")
	}
	if payout.Sign() > 0 {
		rewardBalance, err := e.tokens.BalanceOf(ctx, pool.RewardToken)
		if err != nil {
			return errCollaborator("balance query failed", err)
		}
		if rewardBalance.Cmp(payout) < 0 {
			return errSolvency("custody cannot cover reward")
		}
	}
	return nil
}
