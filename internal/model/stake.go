package model

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// StakeRecord is one user's position in one pool. A record with a non-zero
// WithdrawTime is terminal; a fresh stake on the same (pool, user) slot
// replaces it with a new logical position.
//
// Settlement is two-phase: RewardTime is set when the reward leg commits
// (paid or forfeited, releasing the reservation), WithdrawTime when the
// principal leg follows. A record with RewardTime set and WithdrawTime
// zero is mid-settlement; only the principal remains outstanding.
type StakeRecord struct {
	PoolID       uint64         `json:"pool_id"`
	User         common.Address `json:"user"`
	StakeTime    uint64         `json:"stake_time"`
	ValueDate    uint64         `json:"value_date"`
	Amount       *big.Int       `json:"amount"`
	RewardTime   uint64         `json:"reward_time,omitempty"`
	RewardPaid   *big.Int       `json:"reward_paid,omitempty"`
	WithdrawTime uint64         `json:"withdraw_time"`
}

// Live reports whether the record holds an open position.
func (r *StakeRecord) Live() bool {
	return r != nil && r.Amount != nil && r.Amount.Sign() > 0 && r.WithdrawTime == 0
}
