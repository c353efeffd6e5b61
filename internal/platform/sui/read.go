package sui

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"

	"github.com/StabilityNexus/Fate/internal/domain"
)

// SuiCoinType is the native coin type.
const SuiCoinType = "0x2::sui::SUI"

var _ domain.ChainReader = (*Client)(nil)

type objectOptions struct {
	ShowType    bool `json:"showType"`
	ShowOwner   bool `json:"showOwner"`
	ShowContent bool `json:"showContent"`
}

// GetObject fetches an object with its Move content.
func (c *Client) GetObject(ctx context.Context, id string) (domain.MoveObject, error) {
	resp, err := c.getObjectRaw(ctx, id, objectOptions{ShowType: true, ShowContent: true})
	if err != nil {
		return domain.MoveObject{}, err
	}
	return resp.ToDomain(id)
}

func (c *Client) getObjectRaw(ctx context.Context, id string, opts objectOptions) (ObjectResponse, error) {
	var resp ObjectResponse
	if err := c.call(ctx, "sui_getObject", []any{id, opts}, &resp); err != nil {
		return ObjectResponse{}, err
	}
	return resp, nil
}

// MultiGetObjects fetches several objects with owner information, in order.
func (c *Client) MultiGetObjects(ctx context.Context, ids []string) ([]ObjectResponse, error) {
	var resp []ObjectResponse
	opts := objectOptions{ShowType: true, ShowOwner: true}
	if err := c.call(ctx, "sui_multiGetObjects", []any{ids, opts}, &resp); err != nil {
		return nil, err
	}
	if len(resp) != len(ids) {
		return nil, fmt.Errorf("sui: multiGetObjects: asked for %d objects, got %d", len(ids), len(resp))
	}
	return resp, nil
}

// GetDynamicFieldObject reads a dynamic field of parent by its name.
func (c *Client) GetDynamicFieldObject(ctx context.Context, parentID, nameType string, nameValue any) (ObjectResponse, error) {
	name := map[string]any{"type": nameType, "value": nameValue}
	var resp ObjectResponse
	if err := c.call(ctx, "suix_getDynamicFieldObject", []any{parentID, name}, &resp); err != nil {
		return ObjectResponse{}, err
	}
	return resp, nil
}

// QueryEvents returns up to limit events of the given Move event type.
func (c *Client) QueryEvents(ctx context.Context, eventType string, limit int, descending bool) ([]domain.ChainEvent, error) {
	query := map[string]any{"MoveEventType": eventType}
	var page EventPage
	if err := c.call(ctx, "suix_queryEvents", []any{query, nil, limit, descending}, &page); err != nil {
		return nil, err
	}
	out := make([]domain.ChainEvent, len(page.Data))
	for i, e := range page.Data {
		out[i] = e.ToDomain()
	}
	return out, nil
}

// QueryTransactionsByFunction returns the most recent transactions calling
// pkg::module::function, with their object changes.
func (c *Client) QueryTransactionsByFunction(ctx context.Context, pkg, module, function string, limit int) ([]domain.ChainTx, error) {
	query := map[string]any{
		"filter": map[string]any{
			"MoveFunction": map[string]any{"package": pkg, "module": module, "function": function},
		},
		"options": map[string]any{"showObjectChanges": true},
	}
	var page TransactionPage
	if err := c.call(ctx, "suix_queryTransactionBlocks", []any{query, nil, limit, true}, &page); err != nil {
		return nil, err
	}
	out := make([]domain.ChainTx, len(page.Data))
	for i, t := range page.Data {
		out[i] = t.ToDomain()
	}
	return out, nil
}

// GetCoins returns every coin of coinType owned by owner.
func (c *Client) GetCoins(ctx context.Context, owner, coinType string) ([]Coin, error) {
	var (
		coins  []Coin
		cursor *string
	)
	for page := 0; page < 50; page++ {
		var resp CoinPage
		if err := c.call(ctx, "suix_getCoins", []any{owner, coinType, cursor, 50}, &resp); err != nil {
			return nil, err
		}
		coins = append(coins, resp.Data...)
		if !resp.HasNextPage || resp.NextCursor == nil {
			break
		}
		cursor = resp.NextCursor
	}
	return coins, nil
}

// GetBalance sums the balances of every coin of coinType owned by owner.
func (c *Client) GetBalance(ctx context.Context, owner, coinType string) (uint64, error) {
	coins, err := c.GetCoins(ctx, owner, coinType)
	if err != nil {
		return 0, err
	}
	var total uint64
	for _, coin := range coins {
		total += coin.BalanceValue()
	}
	return total, nil
}

// GetReferenceGasPrice returns the current reference gas price.
func (c *Client) GetReferenceGasPrice(ctx context.Context) (uint64, error) {
	var s string
	if err := c.call(ctx, "suix_getReferenceGasPrice", nil, &s); err != nil {
		return 0, err
	}
	p, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("sui: reference gas price %q: %w", s, err)
	}
	return p, nil
}

// DevInspect simulates tx as sender and returns each command's return
// values without committing anything.
func (c *Client) DevInspect(ctx context.Context, sender string, tx *domain.Transaction) (domain.InspectResult, error) {
	kind, err := NewBuilder(c).BuildKind(ctx, tx)
	if err != nil {
		return domain.InspectResult{}, err
	}
	var resp DevInspectResults
	params := []any{sender, base64.StdEncoding.EncodeToString(kind), nil, nil}
	if err := c.call(ctx, "sui_devInspectTransactionBlock", params, &resp); err != nil {
		return domain.InspectResult{}, err
	}
	return resp.ToDomain(), nil
}

// ExecuteTransactionBlock submits signed transaction bytes and waits for
// local execution.
func (c *Client) ExecuteTransactionBlock(ctx context.Context, txBytes []byte, signatures []string) (domain.TxResult, error) {
	opts := map[string]any{"showEffects": true, "showObjectChanges": true}
	params := []any{base64.StdEncoding.EncodeToString(txBytes), signatures, opts, "WaitForLocalExecution"}
	var resp TransactionBlock
	if err := c.call(ctx, "sui_executeTransactionBlock", params, &resp); err != nil {
		return domain.TxResult{}, err
	}
	return resp.ToResult(), nil
}
