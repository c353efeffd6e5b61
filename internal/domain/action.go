package domain

import "time"

// TxAction names an orchestrated user action.
type TxAction string

const (
	ActionBuy        TxAction = "buy"
	ActionSell       TxAction = "sell"
	ActionSettle     TxAction = "settle"
	ActionCreatePool TxAction = "create_pool"
)

// TxState is a step of the orchestrator state machine.
type TxState string

const (
	StateIdle          TxState = "idle"
	StateValidating    TxState = "validating"
	StatePriceUpdating TxState = "price_updating"
	StateSubmitting    TxState = "submitting"
	StateSucceeded     TxState = "succeeded"
	StateFailed        TxState = "failed"
)

// Terminal reports whether s ends a run.
func (s TxState) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// BuyRequest purchases bull or bear tokens with Amount SUI.
type BuyRequest struct {
	PoolID string  `json:"pool_id"`
	IsBull bool    `json:"is_bull"`
	Amount float64 `json:"amount"`
}

// SellRequest redeems Amount whole tokens of one side.
type SellRequest struct {
	PoolID string  `json:"pool_id"`
	IsBull bool    `json:"is_bull"`
	Amount float64 `json:"amount"`
}

// SettleRequest triggers distribution for a pool.
type SettleRequest struct {
	PoolID string `json:"pool_id"`
}

// CreatePoolRequest deploys a new prediction pool. An empty Creator means
// the connected wallet.
type CreatePoolRequest struct {
	Creator         string `json:"creator"`
	VaultFee        int64  `json:"vault_fee"`
	VaultCreatorFee int64  `json:"vault_creator_fee"`
	TreasuryFee     int64  `json:"treasury_fee"`
}

// TxOutcome is the result of one orchestrator run. Failures are reported
// here rather than as returned errors.
type TxOutcome struct {
	ID            string        `json:"id"`
	Action        TxAction      `json:"action"`
	PoolID        string        `json:"pool_id"`
	State         TxState       `json:"state"`
	Trace         []TxState     `json:"trace"`
	Digest        string        `json:"digest,omitempty"`
	PriceObjectID string        `json:"price_object_id,omitempty"`
	CreatedPoolID string        `json:"created_pool_id,omitempty"`
	Error         *ActionError  `json:"error,omitempty"`
	Snapshot      *PoolSnapshot `json:"snapshot,omitempty"`
}

// Succeeded reports whether the run ended in StateSucceeded.
func (o TxOutcome) Succeeded() bool { return o.State == StateSucceeded }

// TxRecord is the persisted history row of an orchestrator run.
type TxRecord struct {
	ID         string     `json:"id"`
	Action     TxAction   `json:"action"`
	PoolID     string     `json:"pool_id"`
	Sender     string     `json:"sender"`
	Amount     float64    `json:"amount"`
	IsBull     bool       `json:"is_bull"`
	State      TxState    `json:"state"`
	Digest     string     `json:"digest,omitempty"`
	ErrorKind  ErrorKind  `json:"error_kind,omitempty"`
	Message    string     `json:"message,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}
