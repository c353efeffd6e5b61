package domain

import (
	"context"
	"time"
)

// MoveObject is the content of an on-chain Move object.
type MoveObject struct {
	ID     string
	Type   string
	Fields map[string]any
}

// ChainEvent is a parsed event returned by an event query.
type ChainEvent struct {
	Type       string
	TxDigest   string
	ParsedJSON map[string]any
	Timestamp  *time.Time
}

// ChainTx is a transaction returned by a history query.
type ChainTx struct {
	Digest        string
	ObjectChanges []ObjectChange
	Timestamp     *time.Time
}

// ReturnValue is one BCS encoded value returned by a simulated call.
type ReturnValue struct {
	Bytes []byte
	Type  string
}

// InspectResult holds the return values of every command of a simulated
// transaction.
type InspectResult struct {
	Results [][]ReturnValue
	Error   string
}

// ChainReader is the read side of the chain node.
type ChainReader interface {
	GetObject(ctx context.Context, id string) (MoveObject, error)
	QueryEvents(ctx context.Context, eventType string, limit int, descending bool) ([]ChainEvent, error)
	QueryTransactionsByFunction(ctx context.Context, pkg, module, function string, limit int) ([]ChainTx, error)
	GetBalance(ctx context.Context, owner, coinType string) (uint64, error)
	DevInspect(ctx context.Context, sender string, tx *Transaction) (InspectResult, error)
}

// PriceOracle posts fresh price updates on chain and returns the resulting
// price object references.
type PriceOracle interface {
	UpdatePrice(ctx context.Context, feedIDs []string) (PriceUpdate, error)
}

// Wallet is the signing capability: the connected account plus
// sign-and-execute.
type Wallet interface {
	// Address returns the connected account, or false when none is connected.
	Address() (string, bool)
	SignAndExecute(ctx context.Context, tx *Transaction) (TxResult, error)
}
