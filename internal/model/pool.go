package model

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Pool represents one staking campaign.
type Pool struct {
	ID                   uint64         `json:"id"`
	StartTime            uint64         `json:"start_time"`
	IsActive             bool           `json:"is_active"`
	StakeToken           common.Address `json:"stake_token"`
	RewardToken          common.Address `json:"reward_token"`
	MinStake             *big.Int       `json:"min_stake"`
	MaxStake             *big.Int       `json:"max_stake"`
	MaxPool              *big.Int       `json:"max_pool"`
	TotalStaked          *big.Int       `json:"total_staked"`
	DurationDays         uint64         `json:"duration_days"`
	RedemptionDays       uint64         `json:"redemption_days"`
	APRNumerator         uint64         `json:"apr_numerator"`
	APRDenominator       uint64         `json:"apr_denominator"`
	UseWhitelist         bool           `json:"use_whitelist"`
	MinStakeForWhitelist *big.Int       `json:"min_stake_for_whitelist,omitempty"`
}

// Remaining returns the unfilled capacity of the pool.
func (p *Pool) Remaining() *big.Int {
	if p.MaxPool == nil || p.TotalStaked == nil {
		return new(big.Int)
	}
	return new(big.Int).Sub(p.MaxPool, p.TotalStaked)
}
