package sui

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/StabilityNexus/Fate/internal/domain"
)

// ---------------------------------------------------------------------------
// Objects
// ---------------------------------------------------------------------------

// ObjectResponse is the result of sui_getObject and friends.
type ObjectResponse struct {
	Data  *ObjectData  `json:"data"`
	Error *ObjectError `json:"error"`
}

// ObjectError reports why an object could not be read.
type ObjectError struct {
	Code     string `json:"code"`
	ObjectID string `json:"object_id"`
}

// ObjectData is the data section of an object response.
type ObjectData struct {
	ObjectID string          `json:"objectId"`
	Version  string          `json:"version"`
	Digest   string          `json:"digest"`
	Type     string          `json:"type"`
	Owner    json.RawMessage `json:"owner"`
	Content  *ObjectContent  `json:"content"`
}

// ObjectContent is the parsed Move content of an object.
type ObjectContent struct {
	DataType string         `json:"dataType"`
	Type     string         `json:"type"`
	Fields   map[string]any `json:"fields"`
}

// ToDomain converts a response to a MoveObject. A missing object maps to
// domain.ErrNotFound; non-Move content maps to domain.ErrInvalidPoolType.
func (r ObjectResponse) ToDomain(id string) (domain.MoveObject, error) {
	if r.Error != nil {
		return domain.MoveObject{}, fmt.Errorf("sui: object %s %s: %w", id, r.Error.Code, domain.ErrNotFound)
	}
	if r.Data == nil {
		return domain.MoveObject{}, fmt.Errorf("sui: object %s: %w", id, domain.ErrNotFound)
	}
	if r.Data.Content == nil || r.Data.Content.DataType != "moveObject" {
		return domain.MoveObject{}, fmt.Errorf("sui: object %s has no move content: %w", id, domain.ErrInvalidPoolType)
	}
	typ := r.Data.Content.Type
	if typ == "" {
		typ = r.Data.Type
	}
	return domain.MoveObject{
		ID:     r.Data.ObjectID,
		Type:   typ,
		Fields: r.Data.Content.Fields,
	}, nil
}

// objectOwner is the decoded owner field: either a bare string such as
// "Immutable" or a single-key object.
type objectOwner struct {
	Kind                 string
	Address              string
	InitialSharedVersion uint64
}

func parseOwner(raw json.RawMessage) (objectOwner, error) {
	if len(raw) == 0 {
		return objectOwner{}, fmt.Errorf("sui: missing owner")
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return objectOwner{Kind: s}, nil
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return objectOwner{}, fmt.Errorf("sui: decode owner: %w", err)
	}
	if v, ok := m["Shared"]; ok {
		var shared struct {
			InitialSharedVersion json.Number `json:"initial_shared_version"`
		}
		if err := json.Unmarshal(v, &shared); err != nil {
			return objectOwner{}, fmt.Errorf("sui: decode shared owner: %w", err)
		}
		ver, err := strconv.ParseUint(shared.InitialSharedVersion.String(), 10, 64)
		if err != nil {
			return objectOwner{}, fmt.Errorf("sui: shared version: %w", err)
		}
		return objectOwner{Kind: "Shared", InitialSharedVersion: ver}, nil
	}
	for k, v := range m {
		var addr string
		_ = json.Unmarshal(v, &addr)
		return objectOwner{Kind: k, Address: addr}, nil
	}
	return objectOwner{}, fmt.Errorf("sui: empty owner")
}

// ---------------------------------------------------------------------------
// Events and transactions
// ---------------------------------------------------------------------------

// EventPage is a page of suix_queryEvents results.
type EventPage struct {
	Data        []Event `json:"data"`
	HasNextPage bool    `json:"hasNextPage"`
}

// Event is a single emitted Move event.
type Event struct {
	ID struct {
		TxDigest string `json:"txDigest"`
		EventSeq string `json:"eventSeq"`
	} `json:"id"`
	PackageID   string         `json:"packageId"`
	Sender      string         `json:"sender"`
	Type        string         `json:"type"`
	ParsedJSON  map[string]any `json:"parsedJson"`
	TimestampMs string         `json:"timestampMs"`
}

// ToDomain converts the event.
func (e Event) ToDomain() domain.ChainEvent {
	return domain.ChainEvent{
		Type:       e.Type,
		TxDigest:   e.ID.TxDigest,
		ParsedJSON: e.ParsedJSON,
		Timestamp:  msToTime(e.TimestampMs),
	}
}

// TransactionPage is a page of suix_queryTransactionBlocks results.
type TransactionPage struct {
	Data        []TransactionBlock `json:"data"`
	HasNextPage bool               `json:"hasNextPage"`
}

// TransactionBlock is a transaction with the requested options.
type TransactionBlock struct {
	Digest        string         `json:"digest"`
	TimestampMs   string         `json:"timestampMs"`
	ObjectChanges []ObjectChange `json:"objectChanges"`
	Effects       *Effects       `json:"effects"`
}

// ObjectChange is one entry of objectChanges.
type ObjectChange struct {
	Type       string `json:"type"`
	ObjectID   string `json:"objectId"`
	ObjectType string `json:"objectType"`
	Version    string `json:"version"`
	Digest     string `json:"digest"`
}

// Effects holds the execution status.
type Effects struct {
	Status struct {
		Status string `json:"status"`
		Error  string `json:"error"`
	} `json:"status"`
}

// ToDomain converts a history entry.
func (t TransactionBlock) ToDomain() domain.ChainTx {
	return domain.ChainTx{
		Digest:        t.Digest,
		ObjectChanges: convertChanges(t.ObjectChanges),
		Timestamp:     msToTime(t.TimestampMs),
	}
}

// ToResult converts an execution response.
func (t TransactionBlock) ToResult() domain.TxResult {
	res := domain.TxResult{
		Digest:        t.Digest,
		ObjectChanges: convertChanges(t.ObjectChanges),
	}
	if ms, err := strconv.ParseInt(t.TimestampMs, 10, 64); err == nil {
		res.TimestampMs = ms
	}
	if t.Effects != nil {
		res.Success = t.Effects.Status.Status == "success"
		res.Error = t.Effects.Status.Error
	}
	return res
}

func convertChanges(in []ObjectChange) []domain.ObjectChange {
	if len(in) == 0 {
		return nil
	}
	out := make([]domain.ObjectChange, len(in))
	for i, c := range in {
		out[i] = domain.ObjectChange{Type: c.Type, ObjectID: c.ObjectID, ObjectType: c.ObjectType}
	}
	return out
}

// ---------------------------------------------------------------------------
// Coins
// ---------------------------------------------------------------------------

// CoinPage is a page of suix_getCoins results.
type CoinPage struct {
	Data        []Coin  `json:"data"`
	NextCursor  *string `json:"nextCursor"`
	HasNextPage bool    `json:"hasNextPage"`
}

// Coin is an owned coin object.
type Coin struct {
	CoinType     string `json:"coinType"`
	CoinObjectID string `json:"coinObjectId"`
	Version      string `json:"version"`
	Digest       string `json:"digest"`
	Balance      string `json:"balance"`
}

// BalanceValue parses the decimal balance string.
func (c Coin) BalanceValue() uint64 {
	v, _ := strconv.ParseUint(c.Balance, 10, 64)
	return v
}

// ---------------------------------------------------------------------------
// Dev inspect
// ---------------------------------------------------------------------------

// DevInspectResults is the result of sui_devInspectTransactionBlock.
type DevInspectResults struct {
	Effects Effects           `json:"effects"`
	Results []ExecutionResult `json:"results"`
	Error   string            `json:"error"`
}

// ExecutionResult holds one command's return values.
type ExecutionResult struct {
	ReturnValues []ReturnValue `json:"returnValues"`
}

// ReturnValue is encoded on the wire as [[byte, ...], "type"].
type ReturnValue struct {
	Bytes []byte
	Type  string
}

// UnmarshalJSON decodes the tuple form.
func (r *ReturnValue) UnmarshalJSON(b []byte) error {
	var tuple []json.RawMessage
	if err := json.Unmarshal(b, &tuple); err != nil {
		return err
	}
	if len(tuple) != 2 {
		return fmt.Errorf("sui: return value: want 2 elements, got %d", len(tuple))
	}
	var ints []int
	if err := json.Unmarshal(tuple[0], &ints); err != nil {
		return fmt.Errorf("sui: return value bytes: %w", err)
	}
	r.Bytes = make([]byte, len(ints))
	for i, n := range ints {
		if n < 0 || n > 255 {
			return fmt.Errorf("sui: return value byte %d out of range", n)
		}
		r.Bytes[i] = byte(n)
	}
	return json.Unmarshal(tuple[1], &r.Type)
}

// ToDomain converts the inspection result.
func (d DevInspectResults) ToDomain() domain.InspectResult {
	out := domain.InspectResult{Error: d.Error}
	if out.Error == "" && d.Effects.Status.Status != "" && d.Effects.Status.Status != "success" {
		out.Error = d.Effects.Status.Error
		if out.Error == "" {
			out.Error = d.Effects.Status.Status
		}
	}
	for _, r := range d.Results {
		vals := make([]domain.ReturnValue, len(r.ReturnValues))
		for i, v := range r.ReturnValues {
			vals[i] = domain.ReturnValue{Bytes: v.Bytes, Type: v.Type}
		}
		out.Results = append(out.Results, vals)
	}
	return out
}

func msToTime(ms string) *time.Time {
	n, err := strconv.ParseInt(ms, 10, 64)
	if err != nil || n <= 0 {
		return nil
	}
	t := time.UnixMilli(n).UTC()
	return &t
}
