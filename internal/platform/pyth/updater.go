package pyth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/StabilityNexus/Fate/internal/domain"
	"github.com/StabilityNexus/Fate/internal/normalize"
	"github.com/StabilityNexus/Fate/internal/platform/sui"
)

// StateReader reads the Pyth and Wormhole state objects.
type StateReader interface {
	GetObject(ctx context.Context, id string) (domain.MoveObject, error)
	GetDynamicFieldObject(ctx context.Context, parentID, nameType string, nameValue any) (sui.ObjectResponse, error)
}

// UpdateSource returns signed accumulator updates for a set of feeds.
type UpdateSource interface {
	LatestUpdates(ctx context.Context, feedIDs []string) ([][]byte, error)
}

// Config holds the on-chain identifiers the updater needs.
type Config struct {
	PythStateID     string
	WormholeStateID string
	ClockID         string
	DefaultFeedID   string
	GasBudget       uint64
}

// Updater posts fresh Pyth prices to Sui and reports the price info objects
// that now carry them. It implements domain.PriceOracle.
type Updater struct {
	cfg    Config
	source UpdateSource
	chain  StateReader
	wallet domain.Wallet
	logger *slog.Logger

	mu          sync.Mutex
	state       *stateInfo
	priceTable  *tableInfo
	priceObject map[string]string
}

type stateInfo struct {
	pythPackage     string
	wormholePackage string
	baseUpdateFee   uint64
}

type tableInfo struct {
	id        string
	fieldType string
}

var _ domain.PriceOracle = (*Updater)(nil)

// NewUpdater creates an Updater.
func NewUpdater(cfg Config, source UpdateSource, chain StateReader, wallet domain.Wallet, logger *slog.Logger) *Updater {
	return &Updater{
		cfg:         cfg,
		source:      source,
		chain:       chain,
		wallet:      wallet,
		logger:      logger,
		priceObject: make(map[string]string),
	}
}

// UpdatePrice fetches the latest updates for feedIDs (the default feed when
// empty), submits one programmable transaction that verifies and applies
// them, and returns the first price info object id.
func (u *Updater) UpdatePrice(ctx context.Context, feedIDs []string) (domain.PriceUpdate, error) {
	if len(feedIDs) == 0 && u.cfg.DefaultFeedID != "" {
		feedIDs = []string{u.cfg.DefaultFeedID}
	}
	if u.cfg.PythStateID == "" {
		return domain.PriceUpdate{}, fmt.Errorf("pyth: pyth state id not configured: %w", domain.ErrFeatureDisabled)
	}

	var ids []string
	tx := domain.NewTransaction(u.cfg.GasBudget)
	if len(feedIDs) > 0 {
		updates, err := u.source.LatestUpdates(ctx, feedIDs)
		if err != nil {
			return domain.PriceUpdate{}, fmt.Errorf("pyth: %w", err)
		}
		ids, err = u.buildUpdate(ctx, tx, updates, feedIDs)
		if err != nil {
			return domain.PriceUpdate{}, err
		}
	}
	if len(ids) == 0 {
		return domain.PriceUpdate{}, domain.ErrPriceUpdateUnavailable
	}

	res, err := u.wallet.SignAndExecute(ctx, tx)
	if err != nil {
		return domain.PriceUpdate{}, fmt.Errorf("pyth: submit update: %w", err)
	}
	if err := res.Err(); err != nil {
		return domain.PriceUpdate{Submission: res}, fmt.Errorf("pyth: update rejected: %w", err)
	}

	u.logger.InfoContext(ctx, "pyth: price updated",
		slog.String("digest", res.Digest),
		slog.Int("feeds", len(feedIDs)),
		slog.String("price_object", ids[0]),
	)
	return domain.PriceUpdate{PriceObjectID: ids[0], PriceObjectIDs: ids, Submission: res}, nil
}

func (u *Updater) buildUpdate(ctx context.Context, tx *domain.Transaction, updates [][]byte, feedIDs []string) ([]string, error) {
	if len(updates) != 1 {
		return nil, fmt.Errorf("pyth: expected one accumulator update, got %d", len(updates))
	}
	update := updates[0]
	vaa, err := ExtractVAA(update)
	if err != nil {
		return nil, err
	}
	st, err := u.stateInfo(ctx)
	if err != nil {
		return nil, err
	}

	clock := tx.ReadOnly(u.cfg.ClockID)
	pythState := tx.ReadOnly(u.cfg.PythStateID)
	verified := tx.MoveCall(st.wormholePackage+"::vaa::parse_and_verify", nil,
		tx.ReadOnly(u.cfg.WormholeStateID), tx.Bytes(vaa), clock)
	hot := tx.MoveCall(st.pythPackage+"::pyth::create_authenticated_price_infos_using_accumulator", nil,
		pythState, tx.Bytes(update), verified, clock)

	fees := make([]domain.Argument, len(feedIDs))
	for i := range feedIDs {
		fees[i] = tx.U64(st.baseUpdateFee)
	}
	coins := tx.SplitCoins(tx.Gas(), fees...)

	ids := make([]string, 0, len(feedIDs))
	for i, feed := range feedIDs {
		objID, err := u.priceInfoObjectID(ctx, feed)
		if err != nil {
			return nil, err
		}
		hot = tx.MoveCall(st.pythPackage+"::pyth::update_single_price_feed", nil,
			pythState, hot, tx.Object(objID), coins[i], clock)
		ids = append(ids, objID)
	}
	tx.MoveCall(st.pythPackage+"::hot_potato_vector::destroy",
		[]string{st.pythPackage + "::price_info::PriceInfo"}, hot)
	return ids, nil
}

func (u *Updater) stateInfo(ctx context.Context) (stateInfo, error) {
	u.mu.Lock()
	cached := u.state
	u.mu.Unlock()
	if cached != nil {
		return *cached, nil
	}

	pyth, err := u.chain.GetObject(ctx, u.cfg.PythStateID)
	if err != nil {
		return stateInfo{}, fmt.Errorf("pyth: read pyth state: %w", err)
	}
	worm, err := u.chain.GetObject(ctx, u.cfg.WormholeStateID)
	if err != nil {
		return stateInfo{}, fmt.Errorf("pyth: read wormhole state: %w", err)
	}

	st := stateInfo{
		pythPackage:     upgradePackage(pyth.Fields),
		wormholePackage: upgradePackage(worm.Fields),
		baseUpdateFee:   normalize.ToUintSafe(pyth.Fields["base_update_fee"], 0),
	}
	if st.pythPackage == "" || st.wormholePackage == "" {
		return stateInfo{}, errors.New("pyth: state objects carry no upgrade_cap package")
	}

	u.mu.Lock()
	u.state = &st
	u.mu.Unlock()
	return st, nil
}

// upgradePackage reads upgrade_cap.fields.package.
func upgradePackage(fields map[string]any) string {
	capObj, _ := fields["upgrade_cap"].(map[string]any)
	inner, _ := capObj["fields"].(map[string]any)
	return normalize.ToStringSafe(inner["package"], "")
}

func (u *Updater) table(ctx context.Context) (tableInfo, error) {
	u.mu.Lock()
	cached := u.priceTable
	u.mu.Unlock()
	if cached != nil {
		return *cached, nil
	}

	resp, err := u.chain.GetDynamicFieldObject(ctx, u.cfg.PythStateID, "vector<u8>", "price_info")
	if err != nil {
		return tableInfo{}, fmt.Errorf("pyth: price table: %w", err)
	}
	if resp.Data == nil {
		return tableInfo{}, fmt.Errorf("pyth: price table: %w", domain.ErrNotFound)
	}
	typ := resp.Data.Type
	if typ == "" && resp.Data.Content != nil {
		typ = resp.Data.Content.Type
	}
	t := tableInfo{id: resp.Data.ObjectID, fieldType: tableFieldType(typ)}
	if t.fieldType == "" {
		return tableInfo{}, fmt.Errorf("pyth: price table has unexpected type %q", typ)
	}

	u.mu.Lock()
	u.priceTable = &t
	u.mu.Unlock()
	return t, nil
}

// tableFieldType extracts the package address of PriceIdentifier from
// "0x2::table::Table<{pkg}::price_identifier::PriceIdentifier, 0x2::object::ID>".
func tableFieldType(typ string) string {
	s := strings.TrimPrefix(typ, "0x2::table::Table<")
	s = strings.TrimSuffix(s, "::price_identifier::PriceIdentifier, 0x2::object::ID>")
	if s == typ || strings.Contains(s, "<") {
		return ""
	}
	return s
}

func (u *Updater) priceInfoObjectID(ctx context.Context, feedID string) (string, error) {
	key := strings.ToLower(strings.TrimPrefix(feedID, "0x"))
	u.mu.Lock()
	cached, ok := u.priceObject[key]
	u.mu.Unlock()
	if ok {
		return cached, nil
	}

	raw := common.FromHex(key)
	if len(raw) != 32 {
		return "", fmt.Errorf("pyth: feed id %q is not 32 bytes: %w", feedID, domain.ErrInvalidInput)
	}
	t, err := u.table(ctx)
	if err != nil {
		return "", err
	}

	// JSON-RPC expects the identifier bytes as a number array.
	nums := make([]int, len(raw))
	for i, b := range raw {
		nums[i] = int(b)
	}
	resp, err := u.chain.GetDynamicFieldObject(ctx, t.id, t.fieldType+"::price_identifier::PriceIdentifier",
		map[string]any{"bytes": nums})
	if err != nil {
		return "", fmt.Errorf("pyth: price info for %s: %w", feedID, err)
	}
	if resp.Data == nil || resp.Data.Content == nil {
		return "", fmt.Errorf("pyth: price info for %s: %w", feedID, domain.ErrNotFound)
	}
	objID := normalize.ToStringSafe(resp.Data.Content.Fields["value"], "")
	if objID == "" {
		return "", fmt.Errorf("pyth: price info for %s has no object id", feedID)
	}

	u.mu.Lock()
	u.priceObject[key] = objID
	u.mu.Unlock()
	return objID, nil
}
