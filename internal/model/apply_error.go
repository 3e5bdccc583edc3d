package model

// ApplyError records an operation the replay runner could not apply.
type ApplyError struct {
	Seq    uint64 `json:"seq"`
	Op     string `json:"op"`
	PoolID uint64 `json:"pool_id,omitempty"`
	User   string `json:"user,omitempty"`
	Class  string `json:"class,omitempty"`
	Error  string `json:"error"`
}
