package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/StabilityNexus/Fate/internal/domain"
)

const (
	suiCoinType   = "0x2::sui::SUI"
	mistPerSUI    = 1_000_000_000
	defaultClock  = "0x6"
	defaultBudget = 100_000_000
)

// TradeConfig holds the contract coordinates and gas parameters of the
// orchestrator.
type TradeConfig struct {
	PackageID       string
	ClockID         string
	TradeGasBudget  uint64
	CreateGasBudget uint64
	// BalanceReserve is the mist a buyer must hold on top of the amount.
	BalanceReserve uint64
}

// PoolReader is the part of PoolService the orchestrator depends on.
type PoolReader interface {
	Get(ctx context.Context, id string) (domain.PoolSnapshot, error)
	Refresh(ctx context.Context, id string) (domain.PoolSnapshot, error)
}

// TradeService runs buy, sell, settle and create-pool actions through the
// Validating, PriceUpdating and Submitting steps. Every run ends in a
// TxOutcome; failures are classified and never retried.
type TradeService struct {
	cfg      TradeConfig
	chain    domain.ChainReader
	oracle   domain.PriceOracle
	wallet   domain.Wallet
	pools    PoolReader
	txs      domain.TxStore
	audit    domain.AuditStore
	bus      domain.SignalBus
	notifier Notifier
	metrics  Recorder
	logger   *slog.Logger

	newID func() string
	now   func() time.Time
}

// NewTradeService creates a TradeService. oracle may be nil when price
// updates are not configured; txs, audit, bus and notifier are optional.
func NewTradeService(
	cfg TradeConfig,
	chain domain.ChainReader,
	oracle domain.PriceOracle,
	wallet domain.Wallet,
	pools PoolReader,
	txs domain.TxStore,
	audit domain.AuditStore,
	bus domain.SignalBus,
	notifier Notifier,
	metrics Recorder,
	logger *slog.Logger,
) *TradeService {
	if cfg.ClockID == "" {
		cfg.ClockID = defaultClock
	}
	if cfg.TradeGasBudget == 0 {
		cfg.TradeGasBudget = defaultBudget
	}
	if cfg.CreateGasBudget == 0 {
		cfg.CreateGasBudget = 11_000_000
	}
	if metrics == nil {
		metrics = NopRecorder{}
	}
	return &TradeService{
		cfg:      cfg,
		chain:    chain,
		oracle:   oracle,
		wallet:   wallet,
		pools:    pools,
		txs:      txs,
		audit:    audit,
		bus:      bus,
		notifier: notifier,
		metrics:  metrics,
		logger:   logger,
		newID:    uuid.NewString,
		now:      time.Now,
	}
}

// run tracks one pass through the state machine.
type run struct {
	out     domain.TxOutcome
	rec     domain.TxRecord
	started time.Time
	created bool
}

func (r *run) enter(st domain.TxState) {
	r.out.State = st
	r.out.Trace = append(r.out.Trace, st)
}

func (s *TradeService) begin(action domain.TxAction, poolID string, amount float64, isBull bool) *run {
	id := s.newID()
	started := s.now()
	r := &run{
		out:     domain.TxOutcome{ID: id, Action: action, PoolID: poolID},
		started: started,
		rec: domain.TxRecord{
			ID:        id,
			Action:    action,
			PoolID:    poolID,
			Amount:    amount,
			IsBull:    isBull,
			CreatedAt: started.UTC(),
		},
	}
	r.enter(domain.StateIdle)
	r.enter(domain.StateValidating)
	return r
}

// Buy purchases bull or bear tokens for req.Amount SUI. After the local
// checks it reads the sender's SUI balance while the run is still
// Validating; an unfunded buy fails there without paying for a price update.
func (s *TradeService) Buy(ctx context.Context, req domain.BuyRequest) domain.TxOutcome {
	r := s.begin(domain.ActionBuy, req.PoolID, req.Amount, req.IsBull)

	if err := s.validateAmount(req.Amount); err != nil {
		return s.fail(ctx, r, err)
	}
	mist := toBaseUnits(req.Amount)
	sender, err := s.validateTrade(req.PoolID, true)
	if err != nil {
		return s.fail(ctx, r, err)
	}
	r.rec.Sender = sender

	if err := s.preflight(ctx, sender, mist); err != nil {
		return s.fail(ctx, r, err)
	}

	price, err := s.updatePrice(ctx, r, req.PoolID)
	if err != nil {
		return s.fail(ctx, r, err)
	}

	tx := domain.NewTransaction(s.cfg.TradeGasBudget)
	payment := tx.SplitCoins(tx.Gas(), tx.U64(mist))
	tx.MoveCall(s.target("purchase_token"), nil,
		tx.Object(req.PoolID),
		tx.Bool(req.IsBull),
		tx.ReadOnly(price),
		tx.ReadOnly(s.cfg.ClockID),
		payment[0],
	)
	return s.submit(ctx, r, tx)
}

// Sell redeems req.Amount whole tokens of one side.
func (s *TradeService) Sell(ctx context.Context, req domain.SellRequest) domain.TxOutcome {
	r := s.begin(domain.ActionSell, req.PoolID, req.Amount, req.IsBull)

	if err := s.validateAmount(req.Amount); err != nil {
		return s.fail(ctx, r, err)
	}
	tokens := toBaseUnits(req.Amount)
	sender, err := s.validateTrade(req.PoolID, true)
	if err != nil {
		return s.fail(ctx, r, err)
	}
	r.rec.Sender = sender

	price, err := s.updatePrice(ctx, r, req.PoolID)
	if err != nil {
		return s.fail(ctx, r, err)
	}

	tx := domain.NewTransaction(s.cfg.TradeGasBudget)
	tx.MoveCall(s.target("redeem_token"), nil,
		tx.Object(req.PoolID),
		tx.Bool(req.IsBull),
		tx.U64(tokens),
		tx.ReadOnly(price),
		tx.ReadOnly(s.cfg.ClockID),
	)
	return s.submit(ctx, r, tx)
}

// Settle triggers distribution between the two reserves at the fresh
// oracle price. Whether the sender may settle is left to the contract.
func (s *TradeService) Settle(ctx context.Context, req domain.SettleRequest) domain.TxOutcome {
	r := s.begin(domain.ActionSettle, req.PoolID, 0, false)

	sender, err := s.validateTrade(req.PoolID, true)
	if err != nil {
		return s.fail(ctx, r, err)
	}
	r.rec.Sender = sender

	price, err := s.updatePrice(ctx, r, req.PoolID)
	if err != nil {
		return s.fail(ctx, r, err)
	}

	tx := domain.NewTransaction(s.cfg.TradeGasBudget)
	tx.MoveCall(s.target("distribute"), nil,
		tx.Object(req.PoolID),
		tx.ReadOnly(price),
		tx.ReadOnly(s.cfg.ClockID),
	)
	return s.submit(ctx, r, tx)
}

// CreatePool deploys a new prediction pool. It needs no price update.
func (s *TradeService) CreatePool(ctx context.Context, req domain.CreatePoolRequest) domain.TxOutcome {
	r := s.begin(domain.ActionCreatePool, "", 0, false)

	if req.VaultFee < 0 || req.VaultCreatorFee < 0 || req.TreasuryFee < 0 {
		return s.fail(ctx, r, fmt.Errorf("fees must be non-negative integers: %w", domain.ErrInvalidInput))
	}
	sender, err := s.validateTrade("", false)
	if err != nil {
		return s.fail(ctx, r, err)
	}
	r.rec.Sender = sender

	creator := req.Creator
	if creator == "" {
		creator = sender
	}
	if !domain.IsValidAddress(creator) {
		return s.fail(ctx, r, fmt.Errorf("invalid creator address %q: %w", creator, domain.ErrInvalidInput))
	}

	tx := domain.NewTransaction(s.cfg.CreateGasBudget)
	tx.MoveCall(s.target(createPoolFn), nil,
		tx.Address(creator),
		tx.U64(uint64(req.VaultFee)),
		tx.U64(uint64(req.VaultCreatorFee)),
		tx.U64(uint64(req.TreasuryFee)),
	)
	s.startRecord(ctx, r)
	return s.submit(ctx, r, tx)
}

func (s *TradeService) target(fn string) string {
	return s.cfg.PackageID + "::" + poolModule + "::" + fn
}

func (s *TradeService) poolType() string {
	return s.cfg.PackageID + "::" + poolModule + "::PredictionPool"
}

// validateAmount rejects non-positive, non-finite and sub-unit amounts.
func (s *TradeService) validateAmount(amount float64) error {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return fmt.Errorf("amount must be a positive number: %w", domain.ErrInvalidInput)
	}
	if toBaseUnits(amount) == 0 {
		return fmt.Errorf("amount is below the smallest unit: %w", domain.ErrInvalidInput)
	}
	return nil
}

// validateTrade performs the local checks shared by every action and returns
// the connected address. It makes no network calls.
func (s *TradeService) validateTrade(poolID string, needsPool bool) (string, error) {
	if needsPool && poolID == "" {
		return "", fmt.Errorf("pool id is required: %w", domain.ErrInvalidInput)
	}
	if s.cfg.PackageID == "" {
		return "", fmt.Errorf("package id not configured: %w", domain.ErrFeatureDisabled)
	}
	if needsPool && s.oracle == nil {
		return "", fmt.Errorf("price oracle not configured: %w", domain.ErrFeatureDisabled)
	}
	if s.wallet == nil {
		return "", domain.ErrWalletNotConnected
	}
	addr, ok := s.wallet.Address()
	if !ok {
		return "", domain.ErrWalletNotConnected
	}
	return addr, nil
}

// preflight checks that the sender holds the amount plus the gas reserve
// before any price update is paid for. It is the one network read made in
// the Validating state.
func (s *TradeService) preflight(ctx context.Context, sender string, mist uint64) error {
	total, err := s.chain.GetBalance(ctx, sender, suiCoinType)
	if err != nil {
		return fmt.Errorf("trade_service: balance check: %w", err)
	}
	required := mist + s.cfg.BalanceReserve
	if total < required {
		return fmt.Errorf("insufficient balance: required %d, available %d: %w", required, total, domain.ErrInsufficientFunds)
	}
	return nil
}

// updatePrice moves the run to PriceUpdating and posts a fresh oracle price
// for the pool's asset. It returns the price object id.
func (s *TradeService) updatePrice(ctx context.Context, r *run, poolID string) (string, error) {
	r.enter(domain.StatePriceUpdating)
	s.startRecord(ctx, r)

	snap, err := s.pools.Get(ctx, poolID)
	if err != nil {
		return "", ClassifyLoadError(err)
	}

	var feeds []string
	if snap.AssetReference != "" {
		feeds = []string{snap.AssetReference}
	}
	up, err := s.oracle.UpdatePrice(ctx, feeds)
	if errors.Is(err, domain.ErrFeatureDisabled) {
		return "", err
	}
	if err != nil {
		return "", &domain.ActionError{
			Kind:    domain.KindOracleUnavailable,
			Message: "Price update failed: " + err.Error(),
			Err:     err,
		}
	}
	if up.PriceObjectID == "" {
		return "", domain.ErrPriceUpdateUnavailable
	}
	r.out.PriceObjectID = up.PriceObjectID
	return up.PriceObjectID, nil
}

// submit signs and executes tx and finishes the run.
func (s *TradeService) submit(ctx context.Context, r *run, tx *domain.Transaction) domain.TxOutcome {
	r.enter(domain.StateSubmitting)

	res, err := s.wallet.SignAndExecute(ctx, tx)
	if err != nil {
		return s.fail(ctx, r, err)
	}
	r.out.Digest = res.Digest
	r.rec.Digest = res.Digest
	if !res.Success {
		return s.fail(ctx, r, res.Err())
	}

	poolID := r.out.PoolID
	if r.out.Action == domain.ActionCreatePool {
		if ids := res.CreatedOfType(s.poolType()); len(ids) > 0 {
			poolID = ids[0]
			r.out.CreatedPoolID = poolID
			r.rec.PoolID = poolID
		}
	}

	if poolID != "" {
		snap, err := s.pools.Refresh(ctx, poolID)
		if err != nil {
			s.logger.WarnContext(ctx, "trade_service: post-trade refresh failed",
				slog.String("pool_id", poolID),
				slog.String("error", err.Error()),
			)
		} else {
			r.out.Snapshot = &snap
		}
	}

	r.enter(domain.StateSucceeded)
	s.finish(ctx, r)
	return r.out
}

func (s *TradeService) fail(ctx context.Context, r *run, err error) domain.TxOutcome {
	ae := ClassifyTxError(r.out.Action, err)
	r.out.Error = ae
	r.rec.ErrorKind = ae.Kind
	r.rec.Message = ae.Message
	r.enter(domain.StateFailed)

	s.logger.WarnContext(ctx, "trade_service: action failed",
		slog.String("id", r.out.ID),
		slog.String("action", string(r.out.Action)),
		slog.String("pool_id", r.out.PoolID),
		slog.String("kind", string(ae.Kind)),
		slog.String("error", err.Error()),
	)
	s.finish(ctx, r)
	return r.out
}

func (s *TradeService) startRecord(ctx context.Context, r *run) {
	if s.txs == nil || r.created {
		return
	}
	r.rec.State = r.out.State
	if err := s.txs.Create(ctx, r.rec); err != nil {
		s.logger.WarnContext(ctx, "trade_service: record create failed",
			slog.String("id", r.rec.ID),
			slog.String("error", err.Error()),
		)
		return
	}
	r.created = true
}

// finish persists, audits, counts, notifies and publishes a terminal run.
func (s *TradeService) finish(ctx context.Context, r *run) {
	finished := s.now().UTC()
	r.rec.State = r.out.State
	r.rec.FinishedAt = &finished

	if s.txs != nil {
		var err error
		if r.created {
			err = s.txs.Finish(ctx, r.rec)
		} else {
			err = s.txs.Create(ctx, r.rec)
		}
		if err != nil {
			s.logger.WarnContext(ctx, "trade_service: record finish failed",
				slog.String("id", r.rec.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	if s.audit != nil {
		detail := map[string]any{
			"id":      r.out.ID,
			"action":  string(r.out.Action),
			"pool_id": r.rec.PoolID,
			"state":   string(r.out.State),
			"digest":  r.out.Digest,
		}
		if r.out.Error != nil {
			detail["error_kind"] = string(r.out.Error.Kind)
		}
		if err := s.audit.Log(ctx, "tx_"+string(r.out.State), detail); err != nil {
			s.logger.WarnContext(ctx, "trade_service: audit log failed",
				slog.String("error", err.Error()),
			)
		}
	}

	var kind domain.ErrorKind
	if r.out.Error != nil {
		kind = r.out.Error.Kind
	}
	s.metrics.ObserveTx(r.out.Action, r.out.State, kind, finished.Sub(r.started))

	if s.notifier != nil {
		if err := s.notifier.NotifyOutcome(ctx, r.out); err != nil {
			s.logger.WarnContext(ctx, "trade_service: notify failed",
				slog.String("error", err.Error()),
			)
		}
	}

	if s.bus != nil {
		if payload, err := json.Marshal(r.out); err == nil {
			if err := s.bus.Publish(ctx, domain.ChannelTxOutcome, payload); err != nil {
				s.logger.WarnContext(ctx, "trade_service: publish outcome failed",
					slog.String("error", err.Error()),
				)
			}
		}
	}

	if r.out.Succeeded() {
		s.logger.InfoContext(ctx, "trade_service: action succeeded",
			slog.String("id", r.out.ID),
			slog.String("action", string(r.out.Action)),
			slog.String("pool_id", r.rec.PoolID),
			slog.String("digest", r.out.Digest),
		)
	}
}

// toBaseUnits converts a whole-unit amount to its 1e9 base denomination,
// flooring.
func toBaseUnits(amount float64) uint64 {
	v := math.Floor(amount * mistPerSUI)
	if v <= 0 || v >= math.MaxUint64 {
		return 0
	}
	return uint64(v)
}

// History lists recent orchestrator runs, optionally for one pool.
func (s *TradeService) History(ctx context.Context, poolID string, opts domain.ListOpts) ([]domain.TxRecord, error) {
	if s.txs == nil {
		return nil, nil
	}
	var (
		recs []domain.TxRecord
		err  error
	)
	if poolID != "" {
		recs, err = s.txs.ListByPool(ctx, poolID, opts)
	} else {
		recs, err = s.txs.ListRecent(ctx, opts)
	}
	if err != nil {
		return nil, fmt.Errorf("trade_service: history: %w", err)
	}
	return recs, nil
}
