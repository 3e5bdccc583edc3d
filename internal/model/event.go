package model

// Ledger event names.
const (
	EventNewPool         = "new_pool"
	EventClosePool       = "close_pool"
	EventStaked          = "staked"
	EventWithdrawn       = "withdrawn"
	EventExcessWithdrawn = "excess_withdrawn"
)

// LedgerEvent is a notification emitted once per committed operation.
type LedgerEvent struct {
	Seq    uint64 `json:"seq"`
	Name   string `json:"name"`
	Time   uint64 `json:"time"`
	PoolID uint64 `json:"pool_id"`
	User   string `json:"user,omitempty"`
	Token  string `json:"token,omitempty"`
	Amount string `json:"amount,omitempty"`
	Reward string `json:"reward,omitempty"`
}
