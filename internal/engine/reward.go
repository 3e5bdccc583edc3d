package engine

import "math/big"

const (
	secondsPerDay = 86400
	daysPerYear   = 365

	// Reward accrual starts at the next daily cutover, 07:00 UTC.
	valueDateOffset = 7 * 3600
)

// rewardFor computes amount * days * aprNum / (365 * aprDen), truncating.
// The same formula prices the full-duration reservation at pool creation
// and stake time, and the day-scaled claimable amount in queries, so the
// two meet exactly when the accrued days reach the pool duration.
func rewardFor(amount *big.Int, days, aprNum, aprDen uint64) *big.Int {
	if amount == nil || amount.Sign() <= 0 || days == 0 || aprNum == 0 || aprDen == 0 {
		return new(big.Int)
	}
	reward := new(big.Int).Set(amount)
	reward.Mul(reward, new(big.Int).SetUint64(days))
	reward.Mul(reward, new(big.Int).SetUint64(aprNum))
	denom := new(big.Int).Mul(big.NewInt(daysPerYear), new(big.Int).SetUint64(aprDen))
	return reward.Quo(reward, denom)
}

// valueDateFor aligns a stake instant to the next daily cutover.
func valueDateFor(now uint64) uint64 {
	return (now/secondsPerDay)*secondsPerDay + secondsPerDay + valueDateOffset
}

// accruedDays counts whole days elapsed since the value date, capped at
// the pool duration. Zero before the value date.
func accruedDays(now, valueDate, durationDays uint64) uint64 {
	if now < valueDate {
		return 0
	}
	days := (now - valueDate) / secondsPerDay
	if days > durationDays {
		return durationDays
	}
	return days
}
