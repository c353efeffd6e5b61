package domain

// Balances are a user's raw token balances in base denomination.
type Balances struct {
	BullTokens uint64 `json:"bull_tokens"`
	BearTokens uint64 `json:"bear_tokens"`
}

// AvgCost is the caller supplied average purchase price per token, per side.
// Zero means unknown.
type AvgCost struct {
	Bull float64 `json:"bull_avg_price"`
	Bear float64 `json:"bear_avg_price"`
}

// UserPosition is derived on every read and never persisted.
type UserPosition struct {
	PoolID        string  `json:"pool_id"`
	Address       string  `json:"address,omitempty"`
	BullTokens    uint64  `json:"bull_tokens"`
	BearTokens    uint64  `json:"bear_tokens"`
	BullValue     float64 `json:"bull_value"`
	BearValue     float64 `json:"bear_value"`
	BullReturnPct float64 `json:"bull_return_pct"`
	BearReturnPct float64 `json:"bear_return_pct"`
}
