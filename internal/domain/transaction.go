package domain

import (
	"fmt"
	"strings"
)

// ArgKind tags an Argument of a programmable transaction command.
type ArgKind uint8

const (
	ArgGasCoin ArgKind = iota
	ArgInput
	ArgResult
	ArgNestedResult
)

// Argument references the gas coin, a transaction input, or the result of an
// earlier command.
type Argument struct {
	Kind   ArgKind
	Index  uint16
	Nested uint16
}

// NestedResult selects the i-th value returned by the given result argument.
func NestedResult(result Argument, i uint16) Argument {
	return Argument{Kind: ArgNestedResult, Index: result.Index, Nested: i}
}

// PureType names the Move type of a pure input.
type PureType string

const (
	PureBool    PureType = "bool"
	PureU64     PureType = "u64"
	PureAddress PureType = "address"
	PureBytes   PureType = "vector<u8>"
	PureString  PureType = "0x1::string::String"
)

// Input is either a pure value or an object reference. Object versions and
// digests are resolved when the transaction is built for signing.
type Input struct {
	Object   bool
	ObjectID string
	Mutable  bool

	Type  PureType
	Value any
}

// CommandKind tags a Command.
type CommandKind uint8

const (
	CommandMoveCall CommandKind = iota
	CommandSplitCoins
)

// Command is one step of a programmable transaction.
type Command struct {
	Kind CommandKind

	// Move call
	Package       string
	Module        string
	Function      string
	TypeArguments []string
	Arguments     []Argument

	// Split coins
	Coin    Argument
	Amounts []Argument
}

// Target returns package::module::function for a move call.
func (c Command) Target() string {
	return c.Package + "::" + c.Module + "::" + c.Function
}

// Transaction is a chain-agnostic description of a programmable transaction
// block plus its gas budget. Construct with NewTransaction and the builder
// methods; the wallet resolves and encodes it.
type Transaction struct {
	Inputs    []Input
	Commands  []Command
	GasBudget uint64
}

// NewTransaction returns an empty transaction with the given gas budget.
func NewTransaction(gasBudget uint64) *Transaction {
	return &Transaction{GasBudget: gasBudget}
}

// Gas references the gas coin.
func (t *Transaction) Gas() Argument {
	return Argument{Kind: ArgGasCoin}
}

// Object adds (or reuses) a mutable object input.
func (t *Transaction) Object(id string) Argument {
	return t.object(id, true)
}

// ReadOnly adds (or reuses) an object input passed by immutable reference.
func (t *Transaction) ReadOnly(id string) Argument {
	return t.object(id, false)
}

func (t *Transaction) object(id string, mutable bool) Argument {
	for i, in := range t.Inputs {
		if in.Object && sameObjectID(in.ObjectID, id) {
			if mutable {
				t.Inputs[i].Mutable = true
			}
			return Argument{Kind: ArgInput, Index: uint16(i)}
		}
	}
	t.Inputs = append(t.Inputs, Input{Object: true, ObjectID: id, Mutable: mutable})
	return Argument{Kind: ArgInput, Index: uint16(len(t.Inputs) - 1)}
}

func (t *Transaction) pure(typ PureType, v any) Argument {
	t.Inputs = append(t.Inputs, Input{Type: typ, Value: v})
	return Argument{Kind: ArgInput, Index: uint16(len(t.Inputs) - 1)}
}

// Bool adds a pure bool input.
func (t *Transaction) Bool(v bool) Argument { return t.pure(PureBool, v) }

// U64 adds a pure u64 input.
func (t *Transaction) U64(v uint64) Argument { return t.pure(PureU64, v) }

// Address adds a pure address input.
func (t *Transaction) Address(addr string) Argument { return t.pure(PureAddress, addr) }

// Bytes adds a pure vector<u8> input.
func (t *Transaction) Bytes(b []byte) Argument { return t.pure(PureBytes, b) }

// MoveCall appends a call to target ("pkg::module::function") and returns
// its result argument.
func (t *Transaction) MoveCall(target string, typeArgs []string, args ...Argument) Argument {
	pkg, mod, fn := splitTarget(target)
	t.Commands = append(t.Commands, Command{
		Kind:          CommandMoveCall,
		Package:       pkg,
		Module:        mod,
		Function:      fn,
		TypeArguments: typeArgs,
		Arguments:     args,
	})
	return Argument{Kind: ArgResult, Index: uint16(len(t.Commands) - 1)}
}

// SplitCoins splits the given amounts off coin and returns one argument per
// new coin.
func (t *Transaction) SplitCoins(coin Argument, amounts ...Argument) []Argument {
	t.Commands = append(t.Commands, Command{Kind: CommandSplitCoins, Coin: coin, Amounts: amounts})
	res := Argument{Kind: ArgResult, Index: uint16(len(t.Commands) - 1)}
	out := make([]Argument, len(amounts))
	for i := range amounts {
		out[i] = NestedResult(res, uint16(i))
	}
	return out
}

// MoveCalls returns every move call command in order.
func (t *Transaction) MoveCalls() []Command {
	var out []Command
	for _, c := range t.Commands {
		if c.Kind == CommandMoveCall {
			out = append(out, c)
		}
	}
	return out
}

func splitTarget(target string) (pkg, mod, fn string) {
	parts := strings.SplitN(target, "::", 3)
	for len(parts) < 3 {
		parts = append(parts, "")
	}
	return parts[0], parts[1], parts[2]
}

func sameObjectID(a, b string) bool {
	return NormalizeObjectID(a) == NormalizeObjectID(b)
}

// NormalizeObjectID lower-cases an id and left-pads it to 32 bytes.
func NormalizeObjectID(id string) string {
	s := strings.ToLower(strings.TrimPrefix(strings.TrimPrefix(id, "0x"), "0X"))
	if len(s) < 64 {
		s = strings.Repeat("0", 64-len(s)) + s
	}
	return "0x" + s
}

// IsValidAddress reports whether s is a 0x-prefixed hex address of at most
// 32 bytes.
func IsValidAddress(s string) bool {
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return false
	}
	h := s[2:]
	if h == "" || len(h) > 64 {
		return false
	}
	for _, c := range h {
		if !strings.ContainsRune("0123456789abcdefABCDEF", c) {
			return false
		}
	}
	return true
}

// ObjectChange is a created/mutated/deleted object reported by execution.
type ObjectChange struct {
	Type       string `json:"type"`
	ObjectID   string `json:"object_id"`
	ObjectType string `json:"object_type"`
}

// TxResult is the outcome reported by the chain for a submitted transaction.
type TxResult struct {
	Digest        string         `json:"digest"`
	Success       bool           `json:"success"`
	Error         string         `json:"error,omitempty"`
	ObjectChanges []ObjectChange `json:"object_changes,omitempty"`
	TimestampMs   int64          `json:"timestamp_ms,omitempty"`
}

// Err converts a failed execution status into an error.
func (r TxResult) Err() error {
	if r.Success {
		return nil
	}
	if r.Error == "" {
		return fmt.Errorf("transaction %s failed", r.Digest)
	}
	return fmt.Errorf("transaction %s failed: %s", r.Digest, r.Error)
}

// CreatedOfType returns the ids of created objects whose type matches.
func (r TxResult) CreatedOfType(objectType string) []string {
	var ids []string
	for _, c := range r.ObjectChanges {
		if c.Type == "created" && c.ObjectType == objectType {
			ids = append(ids, c.ObjectID)
		}
	}
	return ids
}

// PriceUpdate is the result of posting an oracle update on chain.
type PriceUpdate struct {
	PriceObjectID  string
	PriceObjectIDs []string
	Submission     TxResult
}
