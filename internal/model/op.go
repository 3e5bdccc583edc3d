package model

// Operation names accepted by the replay runner.
const (
	OpCreatePool     = "create_pool"
	OpClosePool      = "close_pool"
	OpStake          = "stake"
	OpWithdraw       = "withdraw"
	OpWithdrawExcess = "withdraw_excess"
	OpSetBalance     = "set_balance"
)

// OpRecord is one replayable ledger operation read from a JSONL line.
// Amount-like fields are decimal strings so arbitrary precision survives
// the JSON round trip.
type OpRecord struct {
	Seq    uint64 `json:"seq"`
	Op     string `json:"op"`
	Time   uint64 `json:"time,omitempty"`
	Caller string `json:"caller,omitempty"`
	PoolID uint64 `json:"pool_id,omitempty"`
	User   string `json:"user,omitempty"`
	Token  string `json:"token,omitempty"`
	Amount string `json:"amount,omitempty"`

	// create_pool parameters.
	StartTime            uint64 `json:"start_time,omitempty"`
	StakeToken           string `json:"stake_token,omitempty"`
	RewardToken          string `json:"reward_token,omitempty"`
	MinStake             string `json:"min_stake,omitempty"`
	MaxStake             string `json:"max_stake,omitempty"`
	MaxPool              string `json:"max_pool,omitempty"`
	DurationDays         uint64 `json:"duration_days,omitempty"`
	RedemptionDays       uint64 `json:"redemption_days,omitempty"`
	APRNumerator         uint64 `json:"apr_numerator,omitempty"`
	APRDenominator       uint64 `json:"apr_denominator,omitempty"`
	UseWhitelist         bool   `json:"use_whitelist,omitempty"`
	MinStakeForWhitelist string `json:"min_stake_for_whitelist,omitempty"`
}
