package domain

import "time"

// TokenInfo describes one side's token of a prediction pool.
type TokenInfo struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Symbol      string  `json:"symbol"`
	TotalSupply uint64  `json:"total_supply"`
	// ImpliedPrice is reserve / total supply, or 1 when nothing is minted.
	ImpliedPrice float64 `json:"implied_price"`
}

// Fees are the raw fee integers stored on the pool object. Their unit is
// contract defined and they are never rescaled inside a snapshot.
type Fees struct {
	PoolCreatorFee uint64 `json:"pool_creator_fee"`
	ProtocolFee    uint64 `json:"protocol_fee"`
	StableOrderFee uint64 `json:"stable_order_fee"`
}

// Total returns protocol*2 + stable order + creator fee.
func (f Fees) Total() uint64 {
	return f.ProtocolFee*2 + f.StableOrderFee + f.PoolCreatorFee
}

// Asset is the display metadata for a priced asset reference.
type Asset struct {
	FeedID string `json:"feed_id"`
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
	Pair   string `json:"pair,omitempty"`
}

// PoolSnapshot is the normalized view of one prediction pool. A snapshot is
// never mutated after construction; a refresh produces a new one.
type PoolSnapshot struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Description    string     `json:"description"`
	AssetReference string     `json:"asset_reference"`
	Asset          Asset      `json:"asset"`
	Creator        string     `json:"creator"`
	CurrentPrice   uint64     `json:"current_price"`
	PriceScale     float64    `json:"price_scale"`
	BullReserve    uint64     `json:"bull_reserve"`
	BearReserve    uint64     `json:"bear_reserve"`
	BullToken      *TokenInfo `json:"bull_token,omitempty"`
	BearToken      *TokenInfo `json:"bear_token,omitempty"`
	BullPercentage float64    `json:"bull_percentage"`
	BearPercentage float64    `json:"bear_percentage"`
	Fees           Fees       `json:"fees"`
	CreatedAt      *time.Time `json:"created_at,omitempty"`
	FetchedAt      time.Time  `json:"fetched_at"`
}

// DisplayPrice divides the raw current price by the configured scale.
func (p PoolSnapshot) DisplayPrice() float64 {
	if p.PriceScale <= 0 {
		return 0
	}
	return float64(p.CurrentPrice) / p.PriceScale
}

// TotalLiquidity is the sum of both reserves.
func (p PoolSnapshot) TotalLiquidity() uint64 {
	return p.BullReserve + p.BearReserve
}

// PoolCreatedEvent is the lightweight metadata carried by a pool creation
// event.
type PoolCreatedEvent struct {
	PoolID       string
	Name         string
	Creator      string
	InitialPrice uint64
	Timestamp    *time.Time
	TxDigest     string
}

// DiscoveredPool is a candidate pool id with the event it came from, if any.
type DiscoveredPool struct {
	ID    string
	Event *PoolCreatedEvent
}

// PoolFilter narrows a list of snapshots. Zero values disable a criterion.
type PoolFilter struct {
	Search       string
	Asset        string
	Creator      string
	MinLiquidity uint64
	MaxLiquidity uint64
	MinFees      uint64
	MaxFees      uint64
}
