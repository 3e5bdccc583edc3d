package replay

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"stakeledger/internal/engine"
	"stakeledger/internal/model"
)

func parseAddress(field, value string) (common.Address, error) {
	if !common.IsHexAddress(value) {
		return common.Address{}, fmt.Errorf("invalid %s address: %q", field, value)
	}
	return common.HexToAddress(value), nil
}

func parseAmount(field, value string) (*big.Int, error) {
	if value == "" {
		return nil, fmt.Errorf("%s is required", field)
	}
	amount, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, fmt.Errorf("invalid %s amount: %q", field, value)
	}
	return amount, nil
}

func poolParamsFromOp(record model.OpRecord) (engine.PoolParams, error) {
	stakeToken, err := parseAddress("stake_token", record.StakeToken)
	if err != nil {
		return engine.PoolParams{}, err
	}
	rewardToken, err := parseAddress("reward_token", record.RewardToken)
	if err != nil {
		return engine.PoolParams{}, err
	}
	minStake, err := parseAmount("min_stake", record.MinStake)
	if err != nil {
		return engine.PoolParams{}, err
	}
	maxStake, err := parseAmount("max_stake", record.MaxStake)
	if err != nil {
		return engine.PoolParams{}, err
	}
	maxPool, err := parseAmount("max_pool", record.MaxPool)
	if err != nil {
		return engine.PoolParams{}, err
	}

	params := engine.PoolParams{
		StartTime:      record.StartTime,
		StakeToken:     stakeToken,
		RewardToken:    rewardToken,
		MinStake:       minStake,
		MaxStake:       maxStake,
		MaxPool:        maxPool,
		DurationDays:   record.DurationDays,
		RedemptionDays: record.RedemptionDays,
		APRNumerator:   record.APRNumerator,
		APRDenominator: record.APRDenominator,
		UseWhitelist:   record.UseWhitelist,
	}
	if record.MinStakeForWhitelist != "" {
		threshold, err := parseAmount("min_stake_for_whitelist", record.MinStakeForWhitelist)
		if err != nil {
			return engine.PoolParams{}, err
		}
		params.MinStakeForWhitelist = threshold
	}
	return params, nil
}
