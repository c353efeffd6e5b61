package sui

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/StabilityNexus/Fate/internal/domain"
)

// maxGasCoins is the most payment coins a transaction may carry.
const maxGasCoins = 255

// Builder resolves the object inputs of a domain.Transaction against the
// node and encodes it as BCS TransactionData.
type Builder struct {
	client *Client
}

// NewBuilder returns a Builder reading from c.
func NewBuilder(c *Client) *Builder {
	return &Builder{client: c}
}

type objectRef struct {
	id      string
	version uint64
	digest  []byte
}

type resolvedObject struct {
	ref           objectRef
	shared        bool
	sharedVersion uint64
}

// BuildKind encodes tx as a TransactionKind, the form accepted by
// sui_devInspectTransactionBlock.
func (b *Builder) BuildKind(ctx context.Context, tx *domain.Transaction) ([]byte, error) {
	objs, err := b.resolveObjects(ctx, tx)
	if err != nil {
		return nil, err
	}
	var enc Encoder
	if err := encodeKind(&enc, tx, objs); err != nil {
		return nil, err
	}
	return enc.Bytes(), nil
}

// BuildTransactionData encodes tx as signable TransactionData for sender,
// selecting gas coins and the reference gas price.
func (b *Builder) BuildTransactionData(ctx context.Context, sender string, tx *domain.Transaction) ([]byte, error) {
	objs, err := b.resolveObjects(ctx, tx)
	if err != nil {
		return nil, err
	}
	price, err := b.client.GetReferenceGasPrice(ctx)
	if err != nil {
		return nil, err
	}
	coins, err := b.client.GetCoins(ctx, sender, SuiCoinType)
	if err != nil {
		return nil, err
	}
	payment, err := selectGasCoins(coins, tx.GasBudget+gasSplitTotal(tx), inputIDs(tx))
	if err != nil {
		return nil, err
	}

	var enc Encoder
	enc.ULEB128(0) // TransactionData::V1
	if err := encodeKind(&enc, tx, objs); err != nil {
		return nil, err
	}
	if err := enc.Address(sender); err != nil {
		return nil, err
	}
	enc.ULEB128(uint64(len(payment)))
	for _, ref := range payment {
		if err := encodeObjectRef(&enc, ref); err != nil {
			return nil, err
		}
	}
	if err := enc.Address(sender); err != nil {
		return nil, err
	}
	enc.U64(price)
	enc.U64(tx.GasBudget)
	enc.ULEB128(0) // TransactionExpiration::None
	return enc.Bytes(), nil
}

func (b *Builder) resolveObjects(ctx context.Context, tx *domain.Transaction) (map[string]resolvedObject, error) {
	var ids []string
	for _, in := range tx.Inputs {
		if in.Object {
			ids = append(ids, domain.NormalizeObjectID(in.ObjectID))
		}
	}
	out := make(map[string]resolvedObject, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	resp, err := b.client.MultiGetObjects(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i, r := range resp {
		if r.Data == nil {
			return nil, fmt.Errorf("sui: resolve %s: %w", ids[i], domain.ErrNotFound)
		}
		owner, err := parseOwner(r.Data.Owner)
		if err != nil {
			return nil, fmt.Errorf("sui: resolve %s: %w", ids[i], err)
		}
		if owner.Kind == "Shared" {
			out[ids[i]] = resolvedObject{ref: objectRef{id: ids[i]}, shared: true, sharedVersion: owner.InitialSharedVersion}
			continue
		}
		ref, err := toObjectRef(ids[i], r.Data.Version, r.Data.Digest)
		if err != nil {
			return nil, err
		}
		out[ids[i]] = resolvedObject{ref: ref}
	}
	return out, nil
}

func toObjectRef(id, version, digest string) (objectRef, error) {
	v, err := strconv.ParseUint(version, 10, 64)
	if err != nil {
		return objectRef{}, fmt.Errorf("sui: object %s version %q: %w", id, version, err)
	}
	d, err := DecodeDigest(digest)
	if err != nil {
		return objectRef{}, err
	}
	return objectRef{id: id, version: v, digest: d}, nil
}

func encodeObjectRef(enc *Encoder, ref objectRef) error {
	if err := enc.Address(ref.id); err != nil {
		return err
	}
	enc.U64(ref.version)
	enc.VecBytes(ref.digest)
	return nil
}

func encodeKind(enc *Encoder, tx *domain.Transaction, objs map[string]resolvedObject) error {
	enc.ULEB128(0) // TransactionKind::ProgrammableTransaction

	enc.ULEB128(uint64(len(tx.Inputs)))
	for i, in := range tx.Inputs {
		if err := encodeInput(enc, in, objs); err != nil {
			return fmt.Errorf("sui: input %d: %w", i, err)
		}
	}

	enc.ULEB128(uint64(len(tx.Commands)))
	for i, cmd := range tx.Commands {
		if err := encodeCommand(enc, cmd); err != nil {
			return fmt.Errorf("sui: command %d: %w", i, err)
		}
	}
	return nil
}

func encodeInput(enc *Encoder, in domain.Input, objs map[string]resolvedObject) error {
	if !in.Object {
		pure, err := encodePure(in.Type, in.Value)
		if err != nil {
			return err
		}
		enc.ULEB128(0) // CallArg::Pure
		enc.VecBytes(pure)
		return nil
	}

	id := domain.NormalizeObjectID(in.ObjectID)
	obj, ok := objs[id]
	if !ok {
		return fmt.Errorf("object %s not resolved", id)
	}
	enc.ULEB128(1) // CallArg::Object
	if obj.shared {
		enc.ULEB128(1) // ObjectArg::SharedObject
		if err := enc.Address(id); err != nil {
			return err
		}
		enc.U64(obj.sharedVersion)
		enc.Bool(in.Mutable)
		return nil
	}
	enc.ULEB128(0) // ObjectArg::ImmOrOwnedObject
	return encodeObjectRef(enc, obj.ref)
}

func encodePure(typ domain.PureType, v any) ([]byte, error) {
	var enc Encoder
	switch typ {
	case domain.PureBool:
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("bool input holds %T", v)
		}
		enc.Bool(b)
	case domain.PureU64:
		n, ok := v.(uint64)
		if !ok {
			return nil, fmt.Errorf("u64 input holds %T", v)
		}
		enc.U64(n)
	case domain.PureAddress:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("address input holds %T", v)
		}
		if err := enc.Address(s); err != nil {
			return nil, err
		}
	case domain.PureBytes:
		b, ok := v.([]byte)
		if !ok {
			return nil, fmt.Errorf("vector<u8> input holds %T", v)
		}
		enc.VecBytes(b)
	case domain.PureString:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("string input holds %T", v)
		}
		enc.String(s)
	default:
		return nil, fmt.Errorf("unsupported pure type %q", typ)
	}
	return enc.Bytes(), nil
}

func encodeCommand(enc *Encoder, cmd domain.Command) error {
	switch cmd.Kind {
	case domain.CommandMoveCall:
		enc.ULEB128(0)
		if err := enc.Address(cmd.Package); err != nil {
			return err
		}
		enc.String(cmd.Module)
		enc.String(cmd.Function)
		enc.ULEB128(uint64(len(cmd.TypeArguments)))
		for _, t := range cmd.TypeArguments {
			if err := enc.TypeTag(t); err != nil {
				return err
			}
		}
		enc.ULEB128(uint64(len(cmd.Arguments)))
		for _, a := range cmd.Arguments {
			encodeArgument(enc, a)
		}
	case domain.CommandSplitCoins:
		enc.ULEB128(2)
		encodeArgument(enc, cmd.Coin)
		enc.ULEB128(uint64(len(cmd.Amounts)))
		for _, a := range cmd.Amounts {
			encodeArgument(enc, a)
		}
	default:
		return fmt.Errorf("unsupported command kind %d", cmd.Kind)
	}
	return nil
}

func encodeArgument(enc *Encoder, a domain.Argument) {
	switch a.Kind {
	case domain.ArgGasCoin:
		enc.ULEB128(0)
	case domain.ArgInput:
		enc.ULEB128(1)
		enc.U16(a.Index)
	case domain.ArgResult:
		enc.ULEB128(2)
		enc.U16(a.Index)
	case domain.ArgNestedResult:
		enc.ULEB128(3)
		enc.U16(a.Index)
		enc.U16(a.Nested)
	}
}

// gasSplitTotal sums the pure u64 amounts split off the gas coin.
func gasSplitTotal(tx *domain.Transaction) uint64 {
	var total uint64
	for _, cmd := range tx.Commands {
		if cmd.Kind != domain.CommandSplitCoins || cmd.Coin.Kind != domain.ArgGasCoin {
			continue
		}
		for _, a := range cmd.Amounts {
			if a.Kind != domain.ArgInput || int(a.Index) >= len(tx.Inputs) {
				continue
			}
			if n, ok := tx.Inputs[a.Index].Value.(uint64); ok {
				total += n
			}
		}
	}
	return total
}

func inputIDs(tx *domain.Transaction) map[string]bool {
	ids := make(map[string]bool)
	for _, in := range tx.Inputs {
		if in.Object {
			ids[domain.NormalizeObjectID(in.ObjectID)] = true
		}
	}
	return ids
}

// selectGasCoins picks the largest coins first until need is covered,
// skipping coins already used as transaction inputs.
func selectGasCoins(coins []Coin, need uint64, exclude map[string]bool) ([]objectRef, error) {
	sorted := make([]Coin, 0, len(coins))
	for _, c := range coins {
		if !exclude[domain.NormalizeObjectID(c.CoinObjectID)] {
			sorted = append(sorted, c)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].BalanceValue() > sorted[j].BalanceValue()
	})

	var (
		refs []objectRef
		sum  uint64
	)
	for _, c := range sorted {
		if (sum >= need && len(refs) > 0) || len(refs) == maxGasCoins {
			break
		}
		ref, err := toObjectRef(c.CoinObjectID, c.Version, c.Digest)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
		sum += c.BalanceValue()
	}
	if sum < need || len(refs) == 0 {
		return nil, fmt.Errorf("sui: gas coins hold %d mist, need %d: %w", sum, need, domain.ErrInsufficientFunds)
	}
	return refs, nil
}
